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

package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/ZaparooProject/zaparoo-library/pkg/imaging/tga"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tgaBytes(w, h int, c color.NRGBA) []byte {
	b := make([]byte, 18, 18+w*h*4)
	b[2] = 2
	b[12], b[13] = byte(w), byte(w>>8)
	b[14], b[15] = byte(h), byte(h>>8)
	b[16] = 32
	b[17] = 0x28
	for range w * h {
		b = append(b, c.B, c.G, c.R, c.A)
	}
	return b
}

func pngBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLoad(t *testing.T) {
	t.Parallel()

	orange := color.NRGBA{R: 0xff, G: 0x80, A: 0xff}
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/g/cover.png", pngBytes(t, 3, 2, orange), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/g/tile.TGA", tgaBytes(4, 4, orange), 0o644))
	// a TGA hiding behind the wrong extension still decodes via fallback
	require.NoError(t, afero.WriteFile(fs, "/g/icon.bmp", tgaBytes(2, 5, orange), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/g/junk.png", []byte("not an image"), 0o644))

	tests := []struct {
		name    string
		path    string
		size    image.Point
		wantErr bool
	}{
		{name: "png", path: "/g/cover.png", size: image.Pt(3, 2)},
		{name: "tga by extension", path: "/g/tile.TGA", size: image.Pt(4, 4)},
		{name: "tga fallback", path: "/g/icon.bmp", size: image.Pt(2, 5)},
		{name: "garbage", path: "/g/junk.png", wantErr: true},
		{name: "missing", path: "/g/none.png", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			img, err := Load(fs, tt.path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.size, img.Bounds().Size())
			assert.Equal(t, orange, color.NRGBAModel.Convert(img.At(0, 0)))
		})
	}
}

func TestDecode_TGAError(t *testing.T) {
	t.Parallel()

	_, err := Decode([]byte{1, 2, 3}, ".tga")
	require.ErrorIs(t, err, tga.ErrTruncated)
}

func TestDecodeConfig(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/a.tga", tgaBytes(8, 6, color.NRGBA{A: 0xff}), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/a.png", pngBytes(t, 7, 9, color.NRGBA{A: 0xff}), 0o644))

	cfg, err := DecodeConfig(fs, "/a.tga")
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Width)

	cfg, err = DecodeConfig(fs, "/a.png")
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Height)
}
