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

// Package notifications builds and sends the library's notifications.
package notifications

import (
	"context"
	"encoding/json"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/rs/zerolog/log"
)

func build(method string, payload any) (models.Notification, bool) {
	params, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("method", method).Msg("failed to marshal notification params")
		return models.Notification{}, false
	}
	return models.Notification{Method: method, Params: params}, true
}

// offer sends without blocking; a full channel drops the notification.
func offer(ns chan<- models.Notification, method string, payload any) {
	if ns == nil {
		return
	}
	n, ok := build(method, payload)
	if !ok {
		return
	}
	select {
	case ns <- n:
	default:
		log.Debug().Str("method", method).Msg("notification channel full, dropping")
	}
}

// deliver blocks until the notification is sent or ctx is done.
func deliver(ctx context.Context, ns chan<- models.Notification, method string, payload any) {
	if ns == nil {
		return
	}
	n, ok := build(method, payload)
	if !ok {
		return
	}
	select {
	case ns <- n:
	case <-ctx.Done():
		log.Warn().Str("method", method).Msg("dropped notification on shutdown")
	}
}

// ImportProgress is best effort; a later update supersedes a dropped one.
func ImportProgress(ns chan<- models.Notification, payload models.ImportProgressParams) {
	offer(ns, models.NotificationImportProgress, payload)
}

// ImportFinished must reach subscribers because it triggers a rescan.
func ImportFinished(ctx context.Context, ns chan<- models.Notification, payload models.ImportFinishedParams) {
	deliver(ctx, ns, models.NotificationImportFinished, payload)
}

func LibraryScanned(ns chan<- models.Notification, payload models.LibraryScannedParams) {
	offer(ns, models.NotificationLibraryScanned, payload)
}

func LibraryChanged(ctx context.Context, ns chan<- models.Notification, payload models.LibraryChangedParams) {
	deliver(ctx, ns, models.NotificationLibraryChanged, payload)
}
