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
	"path/filepath"
	"time"

	"github.com/ZaparooProject/zaparoo-library/pkg/helpers/syncutil"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// State is the lifecycle stage of an import job.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateCancelled
}

// Source is a game directory to import and the filesystem it lives on.
// Hosts usually wrap the user's pick in afero.NewReadOnlyFs.
type Source struct {
	Fs   afero.Fs
	Path string
}

// NewOsSource reads path from the host filesystem without write access.
func NewOsSource(path string) Source {
	return Source{Fs: afero.NewReadOnlyFs(afero.NewOsFs()), Path: path}
}

// Name is the directory name the game is installed under.
func (s Source) Name() string {
	return filepath.Base(filepath.Clean(s.Path))
}

// Progress is a point-in-time copy of a job's state.
type Progress struct {
	CreatedAt   time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
	Err         error
	JobID       string
	Source      string
	Destination string
	State       State
	Copied      int
	Total       int
	Fraction    float64
}

// Job is one queued or running import. Its state only moves forward:
// pending, running, then exactly one terminal state.
type Job struct {
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	source   Source
	progress Progress
	mu       syncutil.RWMutex
}

func newJob(parent context.Context, src Source, now time.Time) *Job {
	ctx, cancel := context.WithCancel(parent)
	return &Job{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		source: src,
		progress: Progress{
			JobID:     uuid.New().String(),
			Source:    src.Path,
			State:     StatePending,
			CreatedAt: now,
		},
	}
}

func (j *Job) ID() string {
	return j.progress.JobID
}

func (j *Job) Source() Source {
	return j.source
}

// Snapshot returns the current progress.
func (j *Job) Snapshot() Progress {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.progress
}

// Err returns the failure or cancellation cause once the job has finished.
func (j *Job) Err() error {
	return j.Snapshot().Err
}

// Cancel asks the job to stop at the next file boundary. A finished job is
// not affected.
func (j *Job) Cancel() {
	j.cancel()
}

// Done is closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes or ctx is done.
func (j *Job) Wait(ctx context.Context) (Progress, error) {
	select {
	case <-j.done:
		return j.Snapshot(), nil
	case <-ctx.Done():
		return j.Snapshot(), ctx.Err()
	}
}

// update applies fn unless the job already finished, keeps the counters
// consistent and returns the resulting snapshot. The bool is false when
// nothing changed.
func (j *Job) update(fn func(p *Progress)) (Progress, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.progress.State.Terminal() {
		return j.progress, false
	}

	fn(&j.progress)
	p := &j.progress
	if p.Copied > p.Total {
		p.Total = p.Copied
	}
	switch {
	case p.State == StateSucceeded:
		p.Fraction = 1
	case p.Total > 0:
		p.Fraction = float64(p.Copied) / float64(p.Total)
	}

	if p.State.Terminal() {
		j.cancel()
		close(j.done)
	}
	return j.progress, true
}

// finishState maps a processing error to the terminal state it causes.
func finishState(err error) State {
	switch {
	case err == nil:
		return StateSucceeded
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StateCancelled
	default:
		return StateFailed
	}
}
