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

//go:build deadlock

// Package syncutil holds the locking primitives used across the library.
// Building with -tags=deadlock swaps the mutexes for go-deadlock versions
// that report lock-order inversions and long waits.
package syncutil

import (
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// DeadlockEnabled reports whether the deadlock detector is compiled in.
const DeadlockEnabled = true

func init() {
	// copy jobs hold no locks across file I/O, so anything past this is a bug
	deadlock.Opts.DeadlockTimeout = 30 * time.Second
}

// Mutex is a go-deadlock mutex in deadlock builds.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex is a go-deadlock reader/writer mutex in deadlock builds.
type RWMutex struct {
	deadlock.RWMutex
}
