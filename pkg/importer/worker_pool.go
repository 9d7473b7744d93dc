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
	"sync"

	"github.com/rs/zerolog/log"
)

// JobProcessor runs a single import job to completion.
type JobProcessor interface {
	ProcessJob(job *Job) error
}

// WorkerPool runs a fixed number of goroutines that drain a job channel.
type WorkerPool struct {
	ctx         context.Context
	jobQueue    <-chan *Job
	processor   JobProcessor
	workerWG    sync.WaitGroup
	workerCount int
}

// NewWorkerPool creates a pool of workerCount workers reading from jobQueue.
func NewWorkerPool(ctx context.Context, workerCount int, jobQueue <-chan *Job, processor JobProcessor) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &WorkerPool{
		ctx:         ctx,
		jobQueue:    jobQueue,
		processor:   processor,
		workerCount: workerCount,
	}
}

// Start launches the workers.
func (wp *WorkerPool) Start() {
	log.Info().Int("workers", wp.workerCount).Msg("starting import workers")
	for i := range wp.workerCount {
		wp.workerWG.Add(1)
		go wp.worker(i)
	}
}

// Wait blocks until every worker has exited. Workers exit when the
// context is cancelled or the job channel is closed and drained.
func (wp *WorkerPool) Wait() {
	wp.workerWG.Wait()
	log.Debug().Msg("import workers stopped")
}

func (wp *WorkerPool) worker(id int) {
	defer wp.workerWG.Done()

	for {
		select {
		case <-wp.ctx.Done():
			return
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}

			log.Debug().Int("worker_id", id).Str("job_id", job.ID()).Msg("processing import job")
			if err := wp.processor.ProcessJob(job); err != nil {
				log.Error().Err(err).
					Int("worker_id", id).
					Str("job_id", job.ID()).
					Str("source", job.source.Path).
					Msg("import job did not succeed")
			}
		}
	}
}
