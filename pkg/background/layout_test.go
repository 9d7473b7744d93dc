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
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLayout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		wantErr error
		name    string
		input   string
		want    Layout
	}{
		{
			name: "stock layout",
			input: "// comment\nresolution\t800\t600\n\n" +
				"resource/background/800_1_a_loading.tga\tfit\t0\t0\n" +
				"resource/background/800_1_b_loading.tga\tfit\t256\t0\n",
			want: Layout{
				Width:  800,
				Height: 600,
				Tiles: []Tile{
					{Path: "resource/background/800_1_a_loading.tga", X: 0, Y: 0},
					{Path: "resource/background/800_1_b_loading.tga", X: 256, Y: 0},
				},
			},
		},
		{
			name:  "later resolution wins",
			input: "resolution 640 480\nresolution 1024 768\n",
			want:  Layout{Width: 1024, Height: 768},
		},
		{
			name:  "extra tokens ignored",
			input: "resolution 10 10 extra\na.tga scaled 1 2 more\n",
			want:  Layout{Width: 10, Height: 10, Tiles: []Tile{{Path: "a.tga", X: 1, Y: 2}}},
		},
		{
			name:    "tile before resolution",
			input:   "a.tga fit 0 0\nresolution 800 600\n",
			wantErr: ErrNoResolution,
		},
		{
			name:    "no resolution at all",
			input:   "// nothing\n",
			wantErr: ErrNoResolution,
		},
		{
			name:    "short tile record",
			input:   "resolution 800 600\na.tga fit 0\n",
			wantErr: ErrMalformedRecord,
		},
		{
			name:    "bad coordinate",
			input:   "resolution 800 600\na.tga fit zero 0\n",
			wantErr: ErrMalformedRecord,
		},
		{
			name:    "bad resolution",
			input:   "resolution 800 tall\n",
			wantErr: ErrMalformedRecord,
		},
		{
			name:    "canvas too large",
			input:   "resolution 100000 600\n",
			wantErr: ErrMalformedRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseLayout(strings.NewReader(tt.input))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestLayout_RenderOverwritesInOrder(t *testing.T) {
	t.Parallel()

	red := color.NRGBA{R: 0xff, A: 0xff}
	blue := color.NRGBA{B: 0xff, A: 0x40}
	images := map[string]image.Image{
		"red":  solid(4, 4, red),
		"blue": solid(2, 2, blue),
	}
	l := Layout{
		Width:  6,
		Height: 6,
		Tiles: []Tile{
			{Path: "red", X: 0, Y: 0},
			{Path: "missing", X: 0, Y: 0},
			{Path: "blue", X: 3, Y: 3},
		},
	}

	canvas := l.Render(func(p string) (image.Image, bool) {
		img, ok := images[p]
		return img, ok
	})

	assert.Equal(t, image.Rect(0, 0, 6, 6), canvas.Bounds())
	assert.Equal(t, red, canvas.NRGBAAt(0, 0))
	// no blending: the translucent tile replaces what was underneath
	assert.Equal(t, blue, canvas.NRGBAAt(3, 3))
	assert.Equal(t, blue, canvas.NRGBAAt(4, 4))
	assert.Equal(t, color.NRGBA{}, canvas.NRGBAAt(5, 0))
}
