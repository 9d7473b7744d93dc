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

package background

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"strconv"
	"strings"
)

const (
	recordResolution = "resolution"
	// MaxCanvasSize bounds either side of a layout canvas.
	MaxCanvasSize = 8192
)

var (
	ErrNoResolution    = errors.New("layout has no resolution record before its tiles")
	ErrMalformedRecord = errors.New("malformed layout record")
)

// Tile is one image placed on the layout canvas.
type Tile struct {
	Path string
	X    int
	Y    int
}

// Layout is a canvas size plus tiles in the order they are painted.
type Layout struct {
	Tiles  []Tile
	Width  int
	Height int
}

// ParseLayout reads a BackgroundLayout.txt description. Each record is a
// line of whitespace separated tokens: "resolution <w> <h>" sizes the
// canvas, anything else is "<path> <mode> <x> <y>". The mode token is
// ignored. A later resolution record replaces an earlier one.
func ParseLayout(r io.Reader) (Layout, error) {
	var l Layout
	haveCanvas := false

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		fields := strings.Fields(line)

		if fields[0] == recordResolution {
			if len(fields) < 3 {
				return Layout{}, fmt.Errorf("%w: line %d: resolution needs width and height",
					ErrMalformedRecord, lineNo)
			}
			w, err := parseDimension(fields[1])
			if err != nil {
				return Layout{}, fmt.Errorf("%w: line %d: width: %w", ErrMalformedRecord, lineNo, err)
			}
			h, err := parseDimension(fields[2])
			if err != nil {
				return Layout{}, fmt.Errorf("%w: line %d: height: %w", ErrMalformedRecord, lineNo, err)
			}
			l.Width, l.Height = w, h
			haveCanvas = true
			continue
		}

		if !haveCanvas {
			return Layout{}, fmt.Errorf("%w: line %d", ErrNoResolution, lineNo)
		}
		if len(fields) < 4 {
			return Layout{}, fmt.Errorf("%w: line %d: tile needs path, mode, x and y",
				ErrMalformedRecord, lineNo)
		}
		x, err := strconv.Atoi(fields[2])
		if err != nil {
			return Layout{}, fmt.Errorf("%w: line %d: x: %w", ErrMalformedRecord, lineNo, err)
		}
		y, err := strconv.Atoi(fields[3])
		if err != nil {
			return Layout{}, fmt.Errorf("%w: line %d: y: %w", ErrMalformedRecord, lineNo, err)
		}
		l.Tiles = append(l.Tiles, Tile{Path: fields[0], X: x, Y: y})
	}
	if err := scanner.Err(); err != nil {
		return Layout{}, fmt.Errorf("failed to read layout: %w", err)
	}
	if !haveCanvas {
		return Layout{}, ErrNoResolution
	}

	return l, nil
}

func parseDimension(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 || n > MaxCanvasSize {
		return 0, fmt.Errorf("%d out of range", n)
	}
	return n, nil
}

// Render paints every tile onto a new canvas in file order, overwriting
// whatever is underneath. Tiles that load returns no image for are left
// out.
func (l Layout) Render(load func(path string) (image.Image, bool)) *image.NRGBA {
	canvas := image.NewNRGBA(image.Rect(0, 0, l.Width, l.Height))
	for _, t := range l.Tiles {
		img, ok := load(t.Path)
		if !ok {
			continue
		}
		paint(canvas, img, image.Pt(t.X, t.Y))
	}
	return canvas
}

func paint(dst draw.Image, src image.Image, at image.Point) {
	b := src.Bounds()
	r := image.Rectangle{Min: at, Max: at.Add(b.Size())}
	draw.Draw(dst, r, src, b.Min, draw.Src)
}
