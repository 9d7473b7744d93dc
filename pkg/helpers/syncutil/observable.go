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

package syncutil

import "context"

// Observable holds a value that can be read directly or followed through
// subscription channels. Subscribers are guaranteed to see the latest value
// but may miss intermediate ones if they fall behind.
type Observable[T any] struct {
	subs   map[int]chan T
	value  T
	mu     Mutex
	nextID int
}

// NewObservable returns an Observable seeded with initial.
func NewObservable[T any](initial T) *Observable[T] {
	return &Observable[T]{
		value: initial,
		subs:  make(map[int]chan T),
	}
}

// Get returns the current value.
func (o *Observable[T]) Get() T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value
}

// Set replaces the current value and pushes it to every subscriber.
func (o *Observable[T]) Set(v T) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.value = v
	for _, ch := range o.subs {
		offerLatest(ch, v)
	}
}

// Update applies fn to the current value under the lock and publishes the
// result. It returns the new value.
func (o *Observable[T]) Update(fn func(T) T) T {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.value = fn(o.value)
	for _, ch := range o.subs {
		offerLatest(ch, o.value)
	}
	return o.value
}

// Subscribe returns a channel that immediately yields the current value and
// then every later value (latest wins). The channel is closed once ctx is
// done.
func (o *Observable[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.subs[id] = ch
	ch <- o.value
	o.mu.Unlock()

	go func() {
		<-ctx.Done()
		o.mu.Lock()
		delete(o.subs, id)
		close(ch)
		o.mu.Unlock()
	}()

	return ch
}

// offerLatest replaces whatever is buffered in ch with v. ch must have a
// buffer of one and only be written under the owner's lock.
func offerLatest[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}
