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

// Package prefs persists per-game launch preferences.
//
// All stores live in one bbolt database with a bucket per game. A Provider
// hands out exactly one Store per game for its whole lifetime, so every
// caller observes the same values.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ZaparooProject/zaparoo-library/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	bolt "go.etcd.io/bbolt"
)

const (
	DefaultLaunchArguments = "-console -log"

	fieldLaunchArguments  = "launch_arguments"
	fieldUseVolumeButtons = "use_volume_buttons"

	openTimeout = time.Second
)

var ErrEmptyKey = errors.New("preference key is empty")

// Preferences are the per-game launch settings.
type Preferences struct {
	LaunchArguments  string `json:"launchArguments"`
	UseVolumeButtons bool   `json:"useVolumeButtons"`
}

// Defaults returns the preferences of a game nothing was saved for.
func Defaults() Preferences {
	return Preferences{LaunchArguments: DefaultLaunchArguments}
}

// Provider owns the preference database and the store cache.
type Provider struct {
	db     *bolt.DB
	stores map[string]*Store
	mu     syncutil.Mutex
}

// Open opens or creates the preference database at path.
func Open(path string) (*Provider, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open preference database: %w", err)
	}
	return &Provider{
		db:     db,
		stores: make(map[string]*Store),
	}, nil
}

// Close closes the database. Stores handed out earlier keep serving their
// cached values but can no longer be written.
func (p *Provider) Close() error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close preference database: %w", err)
	}
	return nil
}

// Provide returns the store for key, creating it on first use. Concurrent
// first calls for the same key get the same instance.
func (p *Provider) Provide(key string) *Store {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.stores[key]; ok {
		return s
	}

	initial, err := p.load(key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to load preferences, using defaults")
		initial = Defaults()
	}

	s := &Store{
		db:    p.db,
		key:   key,
		state: syncutil.NewObservable(initial),
	}
	p.stores[key] = s
	return s
}

// Delete drops everything saved for key. A cached store stays valid and
// reverts to the defaults.
func (p *Provider) Delete(key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	p.mu.Lock()
	s, cached := p.stores[key]
	p.mu.Unlock()
	if cached {
		s.mu.Lock()
		defer s.mu.Unlock()
	}

	err := p.db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket([]byte(key))
		if errors.Is(err, bolt.ErrBucketNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete preferences for %s: %w", key, err)
	}

	if cached {
		s.state.Set(Defaults())
	}
	return nil
}

// Keys lists the games that have saved preferences.
func (p *Provider) Keys() ([]string, error) {
	var keys []string
	err := p.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			keys = append(keys, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (p *Provider) load(key string) (Preferences, error) {
	prefs := Defaults()
	if key == "" {
		return prefs, nil
	}

	err := p.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(key))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(fieldLaunchArguments)); v != nil {
			prefs.LaunchArguments = string(v)
		}
		if v := b.Get([]byte(fieldUseVolumeButtons)); v != nil {
			prefs.UseVolumeButtons = string(v) == "1"
		}
		return nil
	})
	if err != nil {
		return Defaults(), fmt.Errorf("failed to read preferences: %w", err)
	}
	return prefs, nil
}

// Store holds the preferences of one game.
type Store struct {
	db    *bolt.DB
	state *syncutil.Observable[Preferences]
	key   string
	mu    syncutil.Mutex
}

// Key returns the game directory name the store belongs to.
func (s *Store) Key() string {
	return s.key
}

// Get returns the current preferences.
func (s *Store) Get() Preferences {
	return s.state.Get()
}

// Subscribe yields the current preferences and then every change until ctx
// is done. Slow readers only see the latest value.
func (s *Store) Subscribe(ctx context.Context) <-chan Preferences {
	return s.state.Subscribe(ctx)
}

// SetLaunchArguments saves the extra engine arguments for the game.
func (s *Store) SetLaunchArguments(args string) error {
	return s.put(fieldLaunchArguments, []byte(args), func(p Preferences) Preferences {
		p.LaunchArguments = args
		return p
	})
}

// SetUseVolumeButtons saves whether volume keys are forwarded to the game.
func (s *Store) SetUseVolumeButtons(enabled bool) error {
	v := []byte("0")
	if enabled {
		v = []byte("1")
	}
	return s.put(fieldUseVolumeButtons, v, func(p Preferences) Preferences {
		p.UseVolumeButtons = enabled
		return p
	})
}

// put writes one field and publishes the new value once it is durable.
func (s *Store) put(field string, value []byte, apply func(Preferences) Preferences) error {
	if s.key == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(s.key))
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		return b.Put([]byte(field), value)
	})
	if err != nil {
		return fmt.Errorf("failed to save %s for %s: %w", field, s.key, err)
	}

	s.state.Update(apply)
	return nil
}
