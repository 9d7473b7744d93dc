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

// Package gameinfo resolves the metadata of a game installation directory
// from its legacy config files.
package gameinfo

import (
	"path/filepath"

	"github.com/ZaparooProject/zaparoo-library/pkg/keyvalues"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	GameInfoFile = "gameinfo.txt"
	LibListFile  = "liblist.gam"

	DefaultIcon = "game.ico"
	// DefaultBaseModDir is the shared mod every GoldSrc game builds on.
	DefaultBaseModDir = "valve"

	keyIcon         = "icon"
	keyHDBackground = "hd_background"
)

// Metadata describes one game installation. It is never modified after
// Resolve returns it.
type Metadata struct {
	values       keyvalues.Values
	Title        string
	Icon         string
	BaseModDir   string
	GameDir      string
	Source       string
	HDBackground bool
}

// Value returns a raw config value that has no dedicated field, such as
// "version" or "url_info".
func (m Metadata) Value(key string) (string, bool) {
	return m.values.Get(key)
}

type strategy struct {
	file     string
	titleKey string
}

// strategies are tried in order; the first config file found wins.
var strategies = []strategy{
	{file: GameInfoFile, titleKey: "title"},
	{file: LibListFile, titleKey: "game"},
}

// Resolve reads the metadata of the game in dir. It returns false when dir
// holds no readable game config, meaning dir is not a game.
func Resolve(fs afero.Fs, dir string) (Metadata, bool) {
	for _, s := range strategies {
		vals, ok := keyvalues.Load(fs, filepath.Join(dir, s.file))
		if !ok {
			continue
		}
		meta := fromValues(vals, s, filepath.Base(dir))
		log.Debug().
			Str("dir", dir).
			Str("source", s.file).
			Str("title", meta.Title).
			Msg("resolved game metadata")
		return meta, true
	}
	return Metadata{}, false
}

func fromValues(vals keyvalues.Values, s strategy, dirName string) Metadata {
	meta := Metadata{
		values:     vals,
		Title:      dirName,
		Icon:       DefaultIcon,
		BaseModDir: DefaultBaseModDir,
		GameDir:    dirName,
		Source:     s.file,
	}
	if title, ok := vals.Get(s.titleKey); ok && title != "" {
		meta.Title = title
	}
	if icon, ok := vals.Get(keyIcon); ok && icon != "" {
		meta.Icon = icon
	}
	if hd, ok := vals.Get(keyHDBackground); ok {
		meta.HDBackground = hd == "1"
	}
	return meta
}

// IsGameDir reports whether dir contains one of the game config files. It
// does not parse them.
func IsGameDir(fs afero.Fs, dir string) bool {
	for _, s := range strategies {
		info, err := fs.Stat(filepath.Join(dir, s.file))
		if err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}
