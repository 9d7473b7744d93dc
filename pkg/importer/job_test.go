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
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_Terminal(t *testing.T) {
	t.Parallel()

	assert.False(t, StatePending.Terminal())
	assert.False(t, StateRunning.Terminal())
	assert.True(t, StateSucceeded.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateCancelled.Terminal())
}

func TestSource_Name(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "gearbox", Source{Path: "/sd/games/gearbox/"}.Name())
	assert.Equal(t, "valve", Source{Path: "valve"}.Name())
}

func TestJob_UpdateCounters(t *testing.T) {
	t.Parallel()

	job := newJob(context.Background(), Source{Fs: afero.NewMemMapFs(), Path: "/g"}, time.Time{})
	assert.NotEmpty(t, job.ID())

	p, changed := job.update(func(p *Progress) {
		p.State = StateRunning
		p.Total = 4
		p.Copied = 1
	})
	assert.True(t, changed)
	assert.InDelta(t, 0.25, p.Fraction, 1e-9)

	// files that appeared after counting raise the total
	p, _ = job.update(func(p *Progress) { p.Copied = 5 })
	assert.Equal(t, 5, p.Total)
	assert.InDelta(t, 1.0, p.Fraction, 1e-9)
}

func TestJob_TerminalIsFinal(t *testing.T) {
	t.Parallel()

	job := newJob(context.Background(), Source{Path: "/g"}, time.Time{})
	boom := errors.New("boom")

	_, changed := job.update(func(p *Progress) {
		p.State = StateFailed
		p.Err = boom
	})
	require.True(t, changed)

	select {
	case <-job.Done():
	default:
		t.Fatal("done not closed")
	}

	_, changed = job.update(func(p *Progress) { p.State = StateSucceeded })
	assert.False(t, changed)
	assert.Equal(t, StateFailed, job.Snapshot().State)
	require.ErrorIs(t, job.Err(), boom)
}

func TestJob_WaitTimeout(t *testing.T) {
	t.Parallel()

	job := newJob(context.Background(), Source{Path: "/g"}, time.Time{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := job.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StatePending, p.State)
	job.Cancel()
}

func TestFinishState(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StateSucceeded, finishState(nil))
	assert.Equal(t, StateCancelled, finishState(context.Canceled))
	assert.Equal(t, StateCancelled, finishState(context.DeadlineExceeded))
	assert.Equal(t, StateFailed, finishState(ErrNotGameDir))
}
