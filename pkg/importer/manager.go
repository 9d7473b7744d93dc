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

// Package importer copies game directories into the library.
//
// An import counts the source files, copies them into a hidden staging
// directory next to the destination and renames it into place only once
// every file is written, so a partially copied game never shows up in a
// scan. Jobs run on a small worker pool and can be cancelled between
// files.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-library/pkg/gameinfo"
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const copyBufferSize = 256 << 10

var (
	ErrNotGameDir       = errors.New("source is not a game directory")
	ErrAlreadyInstalled = errors.New("game is already installed")
	ErrImportInProgress = errors.New("another import of this game is in progress")
	ErrInvalidName      = errors.New("source directory name cannot be installed")
	ErrJobNotFound      = errors.New("import job not found")
	ErrNoStorageDir     = errors.New("storage directory is not set")
)

// Config wires a Manager to its environment. Fs and StorageDir are
// required.
type Config struct {
	Fs            afero.Fs
	StorageDir    func() string
	Clock         clockwork.Clock
	Notifications chan<- models.Notification
	Observer      func(Progress)
	Workers       int
	QueueSize     int
}

// Manager owns the import queue, its workers and every job submitted
// during its lifetime.
type Manager struct {
	ctx     context.Context
	cancel  context.CancelFunc
	cfg     Config
	queue   *JobQueue
	pool    *WorkerPool
	tracker *ProgressTracker
	jobs    map[string]*Job
	claims  map[string]string
	order   []string
	mu      syncutil.RWMutex
	stopped bool
}

// NewManager creates a manager whose workers stop when ctx is cancelled.
// Call Start before jobs are processed.
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	if cfg.Fs == nil || cfg.StorageDir == nil {
		return nil, errors.New("import manager needs a filesystem and a storage directory")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	mctx, cancel := context.WithCancel(ctx)
	m := &Manager{
		ctx:     mctx,
		cancel:  cancel,
		cfg:     cfg,
		queue:   NewJobQueue(mctx, cfg.QueueSize),
		tracker: NewProgressTracker(mctx, cfg.Notifications, cfg.Observer),
		jobs:    make(map[string]*Job),
		claims:  make(map[string]string),
	}
	m.pool = NewWorkerPool(mctx, cfg.Workers, m.queue.Channel(), m)
	return m, nil
}

// Start launches the worker pool.
func (m *Manager) Start() {
	m.pool.Start()
}

// Stop cancels running jobs, waits for the workers to exit and marks jobs
// that never started as cancelled.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.mu.Unlock()

	m.cancel()
	m.queue.Close()
	m.pool.Wait()

	for _, job := range m.snapshotJobs() {
		m.finish(job, context.Canceled)
	}
	log.Info().Msg("import manager stopped")
}

// Submit queues an import of src.
func (m *Manager) Submit(src Source) (*Job, error) {
	if src.Fs == nil {
		return nil, errors.New("import source has no filesystem")
	}

	job := newJob(m.ctx, src, m.cfg.Clock.Now())

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil, ErrQueueClosed
	}
	m.jobs[job.ID()] = job
	m.order = append(m.order, job.ID())
	m.mu.Unlock()

	m.tracker.Publish(job.Snapshot())
	if err := m.queue.Enqueue(job); err != nil {
		err = fmt.Errorf("failed to queue import of %s: %w", src.Path, err)
		m.finish(job, err)
		m.forget(job.ID())
		return nil, err
	}
	return job, nil
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	if i := slices.Index(m.order, id); i >= 0 {
		m.order = slices.Delete(m.order, i, i+1)
	}
}

// Job looks up a job by id.
func (m *Manager) Job(id string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job, nil
}

// Jobs returns a snapshot of every job in submission order.
func (m *Manager) Jobs() []Progress {
	jobs := m.snapshotJobs()
	out := make([]Progress, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Snapshot())
	}
	return out
}

func (m *Manager) snapshotJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	jobs := make([]*Job, 0, len(m.order))
	for _, id := range m.order {
		jobs = append(jobs, m.jobs[id])
	}
	return jobs
}

func (m *Manager) set(job *Job, fn func(p *Progress)) bool {
	p, changed := job.update(fn)
	if changed {
		m.tracker.Publish(p)
	}
	return changed
}

// finish moves job into the terminal state implied by err.
func (m *Manager) finish(job *Job, err error) {
	state := finishState(err)
	now := m.cfg.Clock.Now()
	changed := m.set(job, func(p *Progress) {
		p.State = state
		p.Err = err
		p.FinishedAt = now
	})
	if !changed {
		return
	}

	ev := log.Info()
	if state == StateFailed {
		ev = log.Error().Err(err)
	}
	ev.Str("job_id", job.ID()).Str("state", string(state)).Msg("import job finished")
}

// ProcessJob runs job to completion on the calling goroutine.
func (m *Manager) ProcessJob(job *Job) error {
	err := m.run(job)
	m.finish(job, err)
	return err
}

func (m *Manager) run(job *Job) error {
	ctx := job.ctx
	if err := ctx.Err(); err != nil {
		return err
	}

	src := job.source
	now := m.cfg.Clock.Now()
	m.set(job, func(p *Progress) {
		p.State = StateRunning
		p.StartedAt = now
	})

	if !gameinfo.IsGameDir(src.Fs, src.Path) {
		return fmt.Errorf("%w: %s", ErrNotGameDir, src.Path)
	}

	name := src.Name()
	if name == "." || name == string(filepath.Separator) || helpers.IsHidden(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	storage := m.cfg.StorageDir()
	if storage == "" {
		return ErrNoStorageDir
	}
	dest := filepath.Join(storage, name)
	m.set(job, func(p *Progress) { p.Destination = dest })

	if err := m.claim(dest, job.ID()); err != nil {
		return err
	}
	defer m.unclaim(dest, job.ID())

	if _, err := m.cfg.Fs.Stat(dest); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyInstalled, dest)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check destination: %w", err)
	}

	total, err := countFiles(ctx, src.Fs, src.Path)
	if err != nil {
		return err
	}
	m.set(job, func(p *Progress) { p.Total = total })

	staging := filepath.Join(storage, helpers.StagingName(name))
	if err := m.prepareStaging(staging); err != nil {
		return err
	}

	cs := &copyState{
		ctx: ctx,
		src: src.Fs,
		dst: m.cfg.Fs,
		buf: make([]byte, copyBufferSize),
		onFile: func(copied int) {
			m.set(job, func(p *Progress) { p.Copied = copied })
		},
	}
	if err := cs.copyTree(src.Path, staging); err != nil {
		return err
	}

	// last chance to cancel before the game becomes visible
	if err := ctx.Err(); err != nil {
		return err
	}
	return publish(m.cfg.Fs, staging, dest)
}

// claim reserves dest for one job until it finishes, so two imports of
// the same name never share a staging directory.
func (m *Manager) claim(dest, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if owner, ok := m.claims[dest]; ok && owner != id {
		return fmt.Errorf("%w: %s (job %s)", ErrImportInProgress, dest, owner)
	}
	m.claims[dest] = id
	return nil
}

func (m *Manager) unclaim(dest, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claims[dest] == id {
		delete(m.claims, dest)
	}
}

// prepareStaging clears what an earlier failed import of the same game
// left behind and creates an empty staging directory.
func (m *Manager) prepareStaging(staging string) error {
	if _, err := m.cfg.Fs.Stat(staging); err == nil {
		log.Warn().Str("path", staging).Msg("removing leftover staging directory")
		if err := m.cfg.Fs.RemoveAll(staging); err != nil {
			return fmt.Errorf("failed to remove leftover staging directory: %w", err)
		}
	}
	if err := m.cfg.Fs.MkdirAll(filepath.Dir(staging), 0o755); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err := m.cfg.Fs.Mkdir(staging, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	return nil
}
