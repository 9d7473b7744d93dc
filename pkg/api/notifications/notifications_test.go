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

package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportProgress_NonBlocking(t *testing.T) {
	t.Parallel()

	// unbuffered with no reader: a blocking send would hang
	ns := make(chan models.Notification)

	done := make(chan struct{})
	go func() {
		ImportProgress(ns, models.ImportProgressParams{JobID: "j"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("progress notification blocked on a full channel")
	}
}

func TestImportProgress_Payload(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	ImportProgress(ns, models.ImportProgressParams{JobID: "j1", Copied: 3, Total: 4, Fraction: 0.75})

	n := <-ns
	assert.Equal(t, models.NotificationImportProgress, n.Method)

	var got models.ImportProgressParams
	require.NoError(t, json.Unmarshal(n.Params, &got))
	assert.Equal(t, "j1", got.JobID)
	assert.InDelta(t, 0.75, got.Fraction, 1e-9)
}

func TestImportFinished_WaitsForReader(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification)
	go ImportFinished(context.Background(), ns, models.ImportFinishedParams{JobID: "j2", State: "succeeded"})

	select {
	case n := <-ns:
		assert.Equal(t, models.NotificationImportFinished, n.Method)
		assert.Contains(t, string(n.Params), `"state":"succeeded"`)
		assert.NotContains(t, string(n.Params), "error")
	case <-time.After(time.Second):
		t.Fatal("finished notification was not delivered")
	}
}

func TestImportFinished_GivesUpOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		ImportFinished(ctx, make(chan models.Notification), models.ImportFinishedParams{})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("finished notification ignored a cancelled context")
	}
}

func TestNilChannel(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		LibraryScanned(nil, models.LibraryScannedParams{})
		LibraryChanged(context.Background(), nil, models.LibraryChangedParams{})
	})
}
