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

	"github.com/ZaparooProject/zaparoo-library/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

var (
	ErrQueueFull   = errors.New("import queue is full")
	ErrQueueClosed = errors.New("import queue is closed")
)

// JobQueue is a bounded FIFO of jobs waiting for a worker. Enqueue never
// blocks.
type JobQueue struct {
	ctx    context.Context
	queue  chan *Job
	mu     syncutil.Mutex
	closed bool
}

// NewJobQueue creates a queue holding at most capacity jobs.
func NewJobQueue(ctx context.Context, capacity int) *JobQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &JobQueue{
		ctx:   ctx,
		queue: make(chan *Job, capacity),
	}
}

// Enqueue adds job to the queue. It returns ErrQueueFull when the queue
// has no room and ErrQueueClosed after Close.
func (jq *JobQueue) Enqueue(job *Job) error {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	if jq.closed {
		return ErrQueueClosed
	}

	if err := jq.ctx.Err(); err != nil {
		return err
	}

	select {
	case jq.queue <- job:
		log.Debug().
			Str("job_id", job.ID()).
			Str("source", job.source.Path).
			Msg("import job enqueued")
		return nil
	default:
		return ErrQueueFull
	}
}

// Channel is what workers consume from.
func (jq *JobQueue) Channel() <-chan *Job {
	return jq.queue
}

// Close stops accepting jobs. Jobs already queued stay readable.
func (jq *JobQueue) Close() {
	jq.mu.Lock()
	defer jq.mu.Unlock()

	if !jq.closed {
		jq.closed = true
		close(jq.queue)
	}
}

// Size returns the number of jobs waiting for a worker.
func (jq *JobQueue) Size() int {
	return len(jq.queue)
}

// Capacity returns the maximum number of waiting jobs.
func (jq *JobQueue) Capacity() int {
	return cap(jq.queue)
}
