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

package helpers

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// NoMediaFile keeps gallery indexers from cataloguing game assets.
	NoMediaFile = ".nomedia"
	// StagingPrefix marks directories that are still being written.
	StagingPrefix = "."
)

// IsHidden reports whether a directory entry name is hidden from the
// library. Staging directories rely on this.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, StagingPrefix)
}

// StagingName returns the hidden name used while name is being imported.
func StagingName(name string) string {
	return StagingPrefix + name
}

// PathHasPrefix checks if path is inside root, respecting separator
// boundaries so "/games2/x" is not treated as part of "/games".
func PathHasPrefix(path, root string) bool {
	cleanPath := filepath.Clean(path)
	cleanRoot := filepath.Clean(root)

	if cleanRoot == "" || cleanRoot == "." {
		return false
	}
	if cleanPath == cleanRoot {
		return true
	}

	rel, err := filepath.Rel(cleanRoot, cleanPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

// NormalizeRelPath converts a path taken from a game resource file, which
// may use either slash style, into an OS path.
func NormalizeRelPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return filepath.FromSlash(strings.TrimPrefix(p, "/"))
}

// EnsureDirectories creates every directory in dirs.
func EnsureDirectories(dirs ...string) error {
	for _, d := range dirs {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o750); err != nil {
			return err
		}
	}
	return nil
}
