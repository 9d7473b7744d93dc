/*
Zaparoo Library
Copyright (c) 2026 The Zaparoo Project Contributors.
SPDX-License-Identifier: GPL-3.0-or-later

This file is part of Zaparoo Library.

Zaparoo Library is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Zaparoo Library is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Zaparoo Library.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package broker fans library notifications out to any number of
// subscribers without letting a slow subscriber stall the publisher.
package broker

import (
	"context"
	"slices"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

type subscriber struct {
	ch      chan models.Notification
	methods []string
}

func (s subscriber) wants(method string) bool {
	return len(s.methods) == 0 || slices.Contains(s.methods, method)
}

// Broker reads notifications from a source channel and copies each one to
// every interested subscriber.
type Broker struct {
	ctx         context.Context
	source      <-chan models.Notification
	subscribers map[int]subscriber
	done        chan struct{}
	mu          syncutil.RWMutex
	nextID      int
	stopped     bool
}

func NewBroker(ctx context.Context, source <-chan models.Notification) *Broker {
	return &Broker{
		ctx:         ctx,
		source:      source,
		subscribers: make(map[int]subscriber),
		done:        make(chan struct{}),
	}
}

// Start runs the broadcast loop until the source closes or the context is
// cancelled, then closes every subscriber channel.
func (b *Broker) Start() {
	go func() {
		defer close(b.done)
		for {
			select {
			case n, ok := <-b.source:
				if !ok {
					log.Debug().Msg("broker: source closed")
					b.Stop()
					return
				}
				b.broadcast(n)
			case <-b.ctx.Done():
				log.Debug().Msg("broker: context cancelled")
				b.Stop()
				return
			}
		}
	}()
}

// Done is closed once the broadcast loop has exited.
func (b *Broker) Done() <-chan struct{} {
	return b.done
}

func (b *Broker) broadcast(n models.Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, sub := range b.subscribers {
		if !sub.wants(n.Method) {
			continue
		}
		select {
		case sub.ch <- n:
		default:
			log.Warn().
				Int("subscriber_id", id).
				Str("method", n.Method).
				Msg("subscriber channel full, dropping notification")
		}
	}
}

// Subscribe registers a subscriber with a buffer of bufferSize. When
// methods are given only those notifications are delivered. Subscribing
// after the broker stopped returns an already closed channel.
func (b *Broker) Subscribe(bufferSize int, methods ...string) (notifChan <-chan models.Notification, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan models.Notification, bufferSize)
	id = b.nextID
	b.nextID++

	if b.stopped {
		close(ch)
		return ch, id
	}

	b.subscribers[id] = subscriber{ch: ch, methods: methods}
	log.Debug().
		Int("subscriber_id", id).
		Int("buffer_size", bufferSize).
		Strs("methods", methods).
		Msg("new subscriber registered")
	return ch, id
}

// Unsubscribe closes and removes a subscription. Unknown ids are ignored.
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.ch)
		log.Debug().Int("subscriber_id", id).Msg("subscriber unsubscribed")
	}
}

// Stop closes every subscriber channel. Later subscriptions are closed
// immediately.
func (b *Broker) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return
	}
	b.stopped = true
	for id, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, id)
	}
}
