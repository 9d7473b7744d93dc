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

package library

import (
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/ZaparooProject/zaparoo-library/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers/syncutil"
	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce is how long the watcher waits for the directory to go
// quiet before reporting a change.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports changes to the top level of the base directory, such as
// a game folder being copied in or removed. Hidden entries are ignored, so
// an import only shows up once its staging directory is renamed.
type Watcher struct {
	clock    clockwork.Clock
	watcher  *fsnotify.Watcher
	timer    clockwork.Timer
	onChange func(paths []string)
	done     chan struct{}
	dir      string
	pending  []string
	debounce time.Duration
	mu       syncutil.Mutex
}

// NewWatcher starts watching dir. onChange runs on its own goroutine with
// the paths that changed since the previous call.
func NewWatcher(
	dir string,
	clock clockwork.Clock,
	debounce time.Duration,
	onChange func(paths []string),
) (*Watcher, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &Watcher{
		clock:    clock,
		watcher:  fw,
		onChange: onChange,
		done:     make(chan struct{}),
		dir:      dir,
		debounce: debounce,
	}
	go w.loop()

	log.Info().Str("dir", dir).Msg("watching library directory")
	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("dir", w.dir).Msg("library watcher error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) {
		return
	}
	if helpers.IsHidden(filepath.Base(event.Name)) {
		return
	}
	w.Notify(event.Name)
}

// Notify records a change to path as if it had been observed on disk.
func (w *Watcher) Notify(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !slices.Contains(w.pending, path) {
		w.pending = append(w.pending, path)
	}
	if w.timer == nil {
		w.timer = w.clock.AfterFunc(w.debounce, w.fire)
	} else {
		w.timer.Reset(w.debounce)
	}
}

func (w *Watcher) fire() {
	w.mu.Lock()
	paths := w.pending
	w.pending = nil
	w.timer = nil
	w.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	log.Debug().Strs("paths", paths).Msg("library directory changed")
	w.onChange(paths)
}

// Close stops watching and drops any change that has not been reported.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.pending = nil
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.done
	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}
