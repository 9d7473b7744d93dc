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

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZaparooProject/zaparoo-library/pkg/helpers/syncutil"
	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	CfgEnv        = "ZAPAROO_LIBRARY_CFG"
	CfgFile       = "config.toml"
	PrefsFile     = "prefs.db"

	DefaultScanWorkers     = 4
	DefaultImportWorkers   = 1
	DefaultImportQueueSize = 16
)

var ErrSchemaMismatch = errors.New("schema version mismatch")

type Values struct {
	Library      Library `toml:"library"`
	Import       Import  `toml:"import"`
	ConfigSchema int     `toml:"config_schema"`
	DebugLogging bool    `toml:"debug_logging"`
}

type Library struct {
	// BaseDir is the folder scanned for game directories.
	BaseDir string `toml:"base_dir" validate:"required"`
	// StorageDir is where imports are written. Empty means BaseDir, so
	// finished imports show up on the next scan.
	StorageDir  string `toml:"storage_dir,omitempty"`
	ScanWorkers int    `toml:"scan_workers" validate:"min=1,max=64"`
	Watch       bool   `toml:"watch"`
}

type Import struct {
	Workers   int `toml:"workers" validate:"min=1,max=16"`
	QueueSize int `toml:"queue_size" validate:"min=1,max=1000"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	Library: Library{
		ScanWorkers: DefaultScanWorkers,
	},
	Import: Import{
		Workers:   DefaultImportWorkers,
		QueueSize: DefaultImportQueueSize,
	},
}

type Instance struct {
	baseDir  *syncutil.Observable[string]
	validate *validator.Validate
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
		baseDir:  syncutil.NewObservable(defaults.Library.BaseDir),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// file values are applied on top of the defaults so missing keys keep
	// their default value
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return ErrSchemaMismatch
	}

	if err := c.validate.Struct(newVals); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	c.vals = newVals
	c.applyLogLevel()
	c.baseDir.Set(newVals.Library.BaseDir)

	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

func (c *Instance) saveLocked() error {
	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	c.vals.ConfigSchema = SchemaVersion

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Path returns the location of the config file on disk.
func (c *Instance) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfgPath
}

func (c *Instance) BaseDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Library.BaseDir
}

// SetBaseDir replaces the base directory, persists it and notifies
// subscribers.
func (c *Instance) SetBaseDir(dir string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if dir == "" {
		return errors.New("base directory cannot be empty")
	}

	prev := c.vals.Library.BaseDir
	c.vals.Library.BaseDir = filepath.Clean(dir)
	if err := c.saveLocked(); err != nil {
		c.vals.Library.BaseDir = prev
		return err
	}

	c.baseDir.Set(c.vals.Library.BaseDir)
	return nil
}

// SubscribeBaseDir yields the current base directory and every later
// change. Only the latest value is guaranteed to be delivered.
func (c *Instance) SubscribeBaseDir(ctx context.Context) <-chan string {
	return c.baseDir.Subscribe(ctx)
}

// StorageDir is the private root that imports are copied into.
func (c *Instance) StorageDir() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Library.StorageDir != "" {
		return c.vals.Library.StorageDir
	}
	return c.vals.Library.BaseDir
}

func (c *Instance) ScanWorkers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Library.ScanWorkers
}

func (c *Instance) WatchLibrary() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Library.Watch
}

func (c *Instance) SetWatchLibrary(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Library.Watch = enabled
}

func (c *Instance) ImportWorkers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Import.Workers
}

func (c *Instance) ImportQueueSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Import.QueueSize
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
	c.applyLogLevel()
}

func (c *Instance) applyLogLevel() {
	if c.vals.DebugLogging {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
