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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefaults(baseDir string) Values {
	vals := BaseDefaults
	vals.Library.BaseDir = baseDir
	return vals
}

func TestNewConfig_CreatesDefaultFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := filepath.Join(dir, "games")

	cfg, err := NewConfig(dir, testDefaults(base))
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, CfgFile))
	require.NoError(t, err)

	assert.Equal(t, base, cfg.BaseDir())
	assert.Equal(t, base, cfg.StorageDir())
	assert.Equal(t, DefaultScanWorkers, cfg.ScanWorkers())
	assert.Equal(t, DefaultImportWorkers, cfg.ImportWorkers())
	assert.Equal(t, DefaultImportQueueSize, cfg.ImportQueueSize())
	assert.False(t, cfg.WatchLibrary())
}

func TestNewConfig_FileValuesOverrideDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := []byte(`config_schema = 1

[library]
base_dir = "/srv/games"
storage_dir = "/srv/private"
scan_workers = 2
watch = true

[import]
workers = 3
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), data, 0o600))

	cfg, err := NewConfig(dir, testDefaults("/unused"))
	require.NoError(t, err)

	assert.Equal(t, "/srv/games", cfg.BaseDir())
	assert.Equal(t, "/srv/private", cfg.StorageDir())
	assert.Equal(t, 2, cfg.ScanWorkers())
	assert.True(t, cfg.WatchLibrary())
	assert.Equal(t, 3, cfg.ImportWorkers())
	// not in the file, keeps the default
	assert.Equal(t, DefaultImportQueueSize, cfg.ImportQueueSize())
}

func TestNewConfig_SchemaMismatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := []byte("config_schema = 99\n[library]\nbase_dir = \"/srv/games\"\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), data, 0o600))

	_, err := NewConfig(dir, testDefaults("/unused"))
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestNewConfig_ValidationFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data := []byte("config_schema = 1\n[library]\nbase_dir = \"/srv/games\"\nscan_workers = 0\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, CfgFile), data, 0o600))

	_, err := NewConfig(dir, testDefaults("/unused"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestNewConfig_MissingBaseDirRejected(t *testing.T) {
	t.Parallel()

	_, err := NewConfig(t.TempDir(), BaseDefaults)
	require.Error(t, err)
}

func TestSetBaseDir_PersistsAndNotifies(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := NewConfig(dir, testDefaults(filepath.Join(dir, "a")))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := cfg.SubscribeBaseDir(ctx)
	assert.Equal(t, filepath.Join(dir, "a"), <-updates)

	newDir := filepath.Join(dir, "b")
	require.NoError(t, cfg.SetBaseDir(newDir))

	select {
	case got := <-updates:
		assert.Equal(t, newDir, got)
	case <-time.After(time.Second):
		t.Fatal("expected base dir update")
	}

	reloaded, err := NewConfig(dir, testDefaults("/unused"))
	require.NoError(t, err)
	assert.Equal(t, newDir, reloaded.BaseDir())
}

func TestSetBaseDir_RejectsEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := NewConfig(dir, testDefaults(filepath.Join(dir, "a")))
	require.NoError(t, err)

	require.Error(t, cfg.SetBaseDir(""))
	assert.Equal(t, filepath.Join(dir, "a"), cfg.BaseDir())
}

func TestStorageDirFallsBackToBaseDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := NewConfig(dir, testDefaults(filepath.Join(dir, "a")))
	require.NoError(t, err)

	require.NoError(t, cfg.SetBaseDir(filepath.Join(dir, "b")))
	assert.Equal(t, filepath.Join(dir, "b"), cfg.StorageDir())
}
