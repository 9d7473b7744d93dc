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

// Package helpers builds game directory fixtures for tests.
package helpers

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// GameFixture describes a game directory. Exactly one of the config files
// is written: gameinfo.txt when GameInfo is true, liblist.gam otherwise.
// Files are extra paths relative to the game directory.
type GameFixture struct {
	Files    map[string][]byte
	Title    string
	Icon     string
	GameInfo bool
	HD       bool
}

// FSHelper writes fixtures to a filesystem.
type FSHelper struct {
	Fs afero.Fs
}

// NewMemoryFS returns a helper backed by an in-memory filesystem.
func NewMemoryFS() *FSHelper {
	return &FSHelper{
		Fs: afero.NewMemMapFs(),
	}
}

// NewOSFS returns a helper writing to the real filesystem, for tests that
// need rename or fsnotify semantics.
func NewOSFS() *FSHelper {
	return &FSHelper{
		Fs: afero.NewOsFs(),
	}
}

// WriteFile writes content to path, creating parent directories.
func (h *FSHelper) WriteFile(path string, content []byte) error {
	if err := h.Fs.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := afero.WriteFile(h.Fs, path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// CreateGame writes a game directory at dir.
//
//nolint:gocritic // fixture passed by value for readable call sites
func (h *FSHelper) CreateGame(dir string, game GameFixture) error {
	if err := h.Fs.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create game directory %s: %w", dir, err)
	}

	name, titleKey := "liblist.gam", "game"
	if game.GameInfo {
		name, titleKey = "gameinfo.txt", "title"
	}

	var b strings.Builder
	b.WriteString("// generated fixture\n")
	if game.Title != "" {
		fmt.Fprintf(&b, "%s \"%s\"\n", titleKey, game.Title)
	}
	if game.Icon != "" {
		fmt.Fprintf(&b, "icon \"%s\"\n", game.Icon)
	}
	if game.HD {
		b.WriteString("hd_background \"1\"\n")
	}
	if err := h.WriteFile(filepath.Join(dir, name), []byte(b.String())); err != nil {
		return err
	}

	paths := make([]string, 0, len(game.Files))
	for p := range game.Files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := h.WriteFile(filepath.Join(dir, filepath.FromSlash(p)), game.Files[p]); err != nil {
			return err
		}
	}
	return nil
}

// CreateDirectoryStructure creates a tree under root. String and []byte
// values are files, nested maps are directories and nil is an empty
// directory.
func (h *FSHelper) CreateDirectoryStructure(root string, structure map[string]any) error {
	for name, content := range structure {
		fullPath := filepath.Join(root, name)

		switch v := content.(type) {
		case string:
			if err := h.WriteFile(fullPath, []byte(v)); err != nil {
				return err
			}
		case []byte:
			if err := h.WriteFile(fullPath, v); err != nil {
				return err
			}
		case map[string]any:
			if err := h.Fs.MkdirAll(fullPath, 0o750); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", fullPath, err)
			}
			if err := h.CreateDirectoryStructure(fullPath, v); err != nil {
				return err
			}
		case nil:
			if err := h.Fs.MkdirAll(fullPath, 0o750); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", fullPath, err)
			}
		default:
			return fmt.Errorf("unsupported fixture entry %s of type %T", fullPath, content)
		}
	}
	return nil
}

// FileExists reports whether path exists, treating errors as absent.
func (h *FSHelper) FileExists(path string) bool {
	exists, err := afero.Exists(h.Fs, path)
	return err == nil && exists
}

// ListFiles returns the sorted entry names of a directory.
func (h *FSHelper) ListFiles(path string) ([]string, error) {
	files, err := afero.ReadDir(h.Fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
	}

	names := make([]string, len(files))
	for i, file := range files {
		names[i] = file.Name()
	}
	return names, nil
}
