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
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGame(t *testing.T) {
	t.Parallel()

	h := NewMemoryFS()
	err := h.CreateGame("/games/hd", GameFixture{
		Title:    "Half-Life",
		Icon:     "hl.ico",
		GameInfo: true,
		HD:       true,
		Files: map[string][]byte{
			"resource/BackgroundLayout.txt": []byte("resolution 800 600\n"),
		},
	})
	require.NoError(t, err)

	data, err := afero.ReadFile(h.Fs, "/games/hd/gameinfo.txt")
	require.NoError(t, err)
	assert.Contains(t, string(data), "title \"Half-Life\"\n")
	assert.Contains(t, string(data), "icon \"hl.ico\"\n")
	assert.Contains(t, string(data), "hd_background \"1\"\n")
	assert.True(t, h.FileExists(filepath.Join("/games/hd", "resource", "BackgroundLayout.txt")))
	assert.False(t, h.FileExists("/games/hd/liblist.gam"))
}

func TestCreateGameLiblist(t *testing.T) {
	t.Parallel()

	h := NewMemoryFS()
	require.NoError(t, h.CreateGame("/games/mod", GameFixture{Title: "Mod"}))

	data, err := afero.ReadFile(h.Fs, "/games/mod/liblist.gam")
	require.NoError(t, err)
	assert.Contains(t, string(data), "game \"Mod\"\n")
}

func TestCreateDirectoryStructure(t *testing.T) {
	t.Parallel()

	h := NewMemoryFS()
	err := h.CreateDirectoryStructure("/src", map[string]any{
		"readme.txt": "hello",
		"maps": map[string]any{
			"c1a0.bsp": []byte{0x1e},
		},
		"empty": nil,
	})
	require.NoError(t, err)

	names, err := h.ListFiles("/src")
	require.NoError(t, err)
	assert.Equal(t, []string{"empty", "maps", "readme.txt"}, names)
	assert.True(t, h.FileExists("/src/maps/c1a0.bsp"))

	err = h.CreateDirectoryStructure("/bad", map[string]any{"n": 1})
	require.Error(t, err)
}
