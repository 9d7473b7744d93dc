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

// Package background builds the cover image of a game from its menu
// background assets.
package background

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"path/filepath"

	"github.com/ZaparooProject/zaparoo-library/pkg/gameinfo"
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-library/pkg/imaging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	ResourceDir      = "resource"
	LayoutFile       = "BackgroundLayout.txt"
	HDLayoutFile     = "HD_BackgroundLayout.txt"
	SplashPath       = "gfx/shell/splash.bmp"
	gridDir          = "resource/background"
	gridRows         = 3
	gridCols         = 4
	gridCanvasWidth  = 800
	gridResolutionID = 800
)

// errNoLayout means neither the game nor its base mod ship a layout file.
var errNoLayout = fmt.Errorf("no layout file: %w", fs.ErrNotExist)

type strategy struct {
	compose func(meta gameinfo.Metadata, dir string) (image.Image, error)
	name    string
}

// Composer turns a game's background assets into a single cover image.
type Composer struct {
	fs         afero.Fs
	strategies []strategy
}

func NewComposer(fs afero.Fs) *Composer {
	c := &Composer{fs: fs}
	c.strategies = []strategy{
		{name: "layout", compose: c.fromLayout},
		{name: "grid", compose: c.fromGrid},
		{name: "splash", compose: c.fromSplash},
	}
	return c
}

// Compose returns the cover image for the game in dir, trying the layout
// file, the loading tile grid and the splash bitmap in that order. It
// returns nil when none of them produce an image.
func (c *Composer) Compose(meta gameinfo.Metadata, dir string) image.Image {
	for _, s := range c.strategies {
		img, err := s.compose(meta, dir)
		if err == nil && img != nil {
			log.Debug().Str("dir", dir).Str("strategy", s.name).Msg("composed background")
			return img
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Debug().Err(err).Str("dir", dir).Str("strategy", s.name).Msg("background strategy failed")
		}
	}
	return nil
}

// Icon decodes the game's icon, or returns nil when it is missing or
// unreadable.
func (c *Composer) Icon(meta gameinfo.Metadata, dir string) image.Image {
	path := filepath.Join(dir, helpers.NormalizeRelPath(meta.Icon))
	img, err := imaging.Load(c.fs, path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Debug().Err(err).Str("path", path).Msg("failed to load icon")
		}
		return nil
	}
	return img
}

// Compose builds a cover image using a default Composer.
func Compose(fs afero.Fs, meta gameinfo.Metadata, dir string) image.Image {
	return NewComposer(fs).Compose(meta, dir)
}

// LoadIcon decodes a game icon using a default Composer.
func LoadIcon(fs afero.Fs, meta gameinfo.Metadata, dir string) image.Image {
	return NewComposer(fs).Icon(meta, dir)
}

func layoutName(meta gameinfo.Metadata) string {
	if meta.HDBackground {
		return HDLayoutFile
	}
	return LayoutFile
}

// searchDirs lists where layout files and tiles are looked up: the game
// itself, then the base mod it builds on.
func searchDirs(meta gameinfo.Metadata, dir string) []string {
	dirs := []string{dir}
	if meta.BaseModDir != "" && meta.BaseModDir != filepath.Base(dir) {
		dirs = append(dirs, filepath.Join(filepath.Dir(dir), meta.BaseModDir))
	}
	return dirs
}

func (c *Composer) findLayout(meta gameinfo.Metadata, dir string) (string, bool) {
	name := layoutName(meta)
	for _, d := range searchDirs(meta, dir) {
		p := filepath.Join(d, ResourceDir, name)
		if info, err := c.fs.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

func (c *Composer) fromLayout(meta gameinfo.Metadata, dir string) (image.Image, error) {
	path, ok := c.findLayout(meta, dir)
	if !ok {
		return nil, errNoLayout
	}

	f, err := c.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open layout: %w", err)
	}
	defer func() { _ = f.Close() }()

	layout, err := ParseLayout(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	dirs := searchDirs(meta, dir)
	return layout.Render(func(tile string) (image.Image, bool) {
		return c.loadTile(dirs, tile)
	}), nil
}

func (c *Composer) loadTile(dirs []string, tile string) (image.Image, bool) {
	rel := helpers.NormalizeRelPath(tile)
	for _, d := range dirs {
		p := filepath.Join(d, rel)
		img, err := imaging.Load(c.fs, p)
		if err == nil {
			return img, true
		}
		if !errors.Is(err, fs.ErrNotExist) {
			log.Debug().Err(err).Str("path", p).Msg("failed to load background tile")
		}
	}
	return nil, false
}

func gridTileName(row, col int) string {
	return fmt.Sprintf("%d_%d_%c_loading.tga", gridResolutionID, row+1, 'a'+col)
}

// fromGrid stitches the 3x4 grid of loading tiles shipped by games without
// a layout file. Column widths and row heights come from the first tile
// decoded in that column or row; missing tiles leave gaps.
func (c *Composer) fromGrid(meta gameinfo.Metadata, dir string) (image.Image, error) {
	if _, ok := c.findLayout(meta, dir); ok {
		return nil, nil
	}

	var tiles [gridRows][gridCols]image.Image
	var colWidths [gridCols]int
	var rowHeights [gridRows]int
	found := 0

	for row := range gridRows {
		for col := range gridCols {
			p := filepath.Join(dir, filepath.FromSlash(gridDir), gridTileName(row, col))
			img, err := imaging.Load(c.fs, p)
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					log.Debug().Err(err).Str("path", p).Msg("failed to load grid tile")
				}
				continue
			}
			tiles[row][col] = img
			found++
			size := img.Bounds().Size()
			if colWidths[col] == 0 {
				colWidths[col] = size.X
			}
			if rowHeights[row] == 0 {
				rowHeights[row] = size.Y
			}
		}
	}
	if found == 0 {
		return nil, fs.ErrNotExist
	}

	height := 0
	for _, h := range rowHeights {
		height += h
	}
	canvas := image.NewNRGBA(image.Rect(0, 0, gridCanvasWidth, height))

	y := 0
	for row := range gridRows {
		x := 0
		for col := range gridCols {
			if img := tiles[row][col]; img != nil {
				paint(canvas, img, image.Pt(x, y))
			}
			x += colWidths[col]
		}
		y += rowHeights[row]
	}
	return canvas, nil
}

func (c *Composer) fromSplash(_ gameinfo.Metadata, dir string) (image.Image, error) {
	img, err := imaging.Load(c.fs, filepath.Join(dir, filepath.FromSlash(SplashPath)))
	if err != nil {
		return nil, err
	}
	return img, nil
}
