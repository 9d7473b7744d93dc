// Zaparoo Library
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Library.
//
// Zaparoo Library is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Library.  If not, see <http://www.gnu.org/licenses/>.

package importer

import (
	"context"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-library/pkg/api/notifications"
)

// ProgressTracker forwards job snapshots to an in-process observer and to
// the notification channel.
type ProgressTracker struct {
	ctx           context.Context
	notifications chan<- models.Notification
	observer      func(Progress)
}

// NewProgressTracker creates a tracker. Either destination may be nil.
func NewProgressTracker(
	ctx context.Context,
	notificationsChan chan<- models.Notification,
	observer func(Progress),
) *ProgressTracker {
	return &ProgressTracker{
		ctx:           ctx,
		notifications: notificationsChan,
		observer:      observer,
	}
}

// Publish reports p. Intermediate updates may be dropped when the channel
// is full; terminal ones wait for room until the tracker's context ends.
func (pt *ProgressTracker) Publish(p Progress) {
	if pt.observer != nil {
		pt.observer(p)
	}

	if !p.State.Terminal() {
		notifications.ImportProgress(pt.notifications, models.ImportProgressParams{
			JobID:       p.JobID,
			Source:      p.Source,
			Destination: p.Destination,
			State:       string(p.State),
			Copied:      p.Copied,
			Total:       p.Total,
			Fraction:    p.Fraction,
		})
		return
	}

	params := models.ImportFinishedParams{
		JobID:       p.JobID,
		Source:      p.Source,
		Destination: p.Destination,
		State:       string(p.State),
		Copied:      p.Copied,
		Total:       p.Total,
		FinishedAt:  p.FinishedAt,
	}
	if p.Err != nil && p.State == StateFailed {
		params.Error = p.Err.Error()
	}
	notifications.ImportFinished(pt.ctx, pt.notifications, params)
}
