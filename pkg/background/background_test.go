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
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/ZaparooProject/zaparoo-library/pkg/gameinfo"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

var (
	red   = color.NRGBA{R: 0xff, A: 0xff}
	green = color.NRGBA{G: 0xff, A: 0xff}
	blue  = color.NRGBA{B: 0xff, A: 0xff}
)

// tgaBytes encodes a top-left origin 32-bit TGA filled with c.
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

func bmpBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, bmp.Encode(&buf, solid(w, h, c)))
	return buf.Bytes()
}

func pngBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(w, h, c)))
	return buf.Bytes()
}

func meta(dir string) gameinfo.Metadata {
	return gameinfo.Metadata{
		Title:      dir,
		Icon:       gameinfo.DefaultIcon,
		BaseModDir: gameinfo.DefaultBaseModDir,
		GameDir:    dir,
	}
}

func writeFiles(t *testing.T, fs afero.Fs, files map[string][]byte) {
	t.Helper()
	for p, data := range files {
		require.NoError(t, afero.WriteFile(fs, p, data, 0o644))
	}
}

func at(img image.Image, x, y int) color.NRGBA {
	c, _ := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	return c
}

func TestCompose_LayoutTileAtOffset(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string][]byte{
		"/games/mod/resource/BackgroundLayout.txt": []byte(
			"resolution 800 600\n" +
				"resource/background/tile.tga fit 100 50\n" +
				"resource/background/missing.tga fit 0 0\n"),
		"/games/mod/resource/background/tile.tga": tgaBytes(8, 8, red),
		"/games/mod/gfx/shell/splash.bmp":         bmpBytes(t, 2, 2, blue),
	})

	img := Compose(fs, meta("mod"), "/games/mod")
	require.NotNil(t, img)

	assert.Equal(t, image.Rect(0, 0, 800, 600), img.Bounds())
	assert.Equal(t, red, at(img, 100, 50))
	assert.Equal(t, red, at(img, 107, 57))
	assert.Equal(t, color.NRGBA{}, at(img, 99, 50))
	assert.Equal(t, color.NRGBA{}, at(img, 0, 0))
}

func TestCompose_HDLayout(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string][]byte{
		"/games/mod/resource/BackgroundLayout.txt":    []byte("resolution 800 600\n"),
		"/games/mod/resource/HD_BackgroundLayout.txt": []byte("resolution 1600 1200\n"),
	})

	m := meta("mod")
	m.HDBackground = true
	img := Compose(fs, m, "/games/mod")
	require.NotNil(t, img)
	assert.Equal(t, 1600, img.Bounds().Dx())
}

func TestCompose_BaseModLayout(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string][]byte{
		"/games/valve/resource/BackgroundLayout.txt": []byte(
			"resolution 16 16\nresource/background/shared.tga fit 0 0\nresource/background/own.tga fit 8 8\n"),
		"/games/valve/resource/background/shared.tga": tgaBytes(4, 4, green),
		"/games/mod/resource/background/own.tga":      tgaBytes(4, 4, red),
	})
	require.NoError(t, fs.MkdirAll("/games/mod", 0o755))

	img := Compose(fs, meta("mod"), "/games/mod")
	require.NotNil(t, img)

	assert.Equal(t, green, at(img, 0, 0), "tile found in base mod")
	assert.Equal(t, red, at(img, 8, 8), "game tile preferred")
}

func TestCompose_BrokenLayoutFallsBackToSplash(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string][]byte{
		"/games/mod/resource/BackgroundLayout.txt": []byte("tile.tga fit 0 0\nresolution 800 600\n"),
		// grid tiles are only used when no layout file exists
		"/games/mod/resource/background/800_1_a_loading.tga": tgaBytes(4, 4, red),
		"/games/mod/gfx/shell/splash.bmp":                    bmpBytes(t, 3, 2, blue),
	})

	img := Compose(fs, meta("mod"), "/games/mod")
	require.NotNil(t, img)
	assert.Equal(t, image.Pt(3, 2), img.Bounds().Size())
	assert.Equal(t, blue, at(img, 0, 0))
}

func TestCompose_Grid(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string][]byte{
		"/games/mod/resource/background/800_1_a_loading.tga": tgaBytes(256, 10, red),
		"/games/mod/resource/background/800_1_b_loading.tga": tgaBytes(256, 10, green),
		"/games/mod/resource/background/800_2_a_loading.tga": tgaBytes(256, 20, blue),
		"/games/mod/resource/background/800_3_d_loading.tga": tgaBytes(32, 5, green),
		"/games/mod/gfx/shell/splash.bmp":                    bmpBytes(t, 2, 2, blue),
	})

	img := Compose(fs, meta("mod"), "/games/mod")
	require.NotNil(t, img)

	assert.Equal(t, image.Rect(0, 0, 800, 35), img.Bounds())
	assert.Equal(t, red, at(img, 0, 0))
	assert.Equal(t, green, at(img, 256, 0))
	assert.Equal(t, blue, at(img, 0, 10))
	// columns b and c of row 3 are missing, so d lands after column a and b widths
	assert.Equal(t, green, at(img, 512, 30))
	assert.Equal(t, color.NRGBA{}, at(img, 300, 15))
}

func TestCompose_Splash(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string][]byte{
		"/games/mod/gfx/shell/splash.bmp": bmpBytes(t, 4, 3, green),
	})

	img := Compose(fs, meta("mod"), "/games/mod")
	require.NotNil(t, img)
	assert.Equal(t, green, at(img, 3, 2))
}

func TestCompose_Nothing(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/games/mod", 0o755))

	assert.Nil(t, Compose(fs, meta("mod"), "/games/mod"))
}

func TestLoadIcon(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string][]byte{
		"/games/a/game.ico":         pngBytes(t, 2, 2, red),
		"/games/b/gfx/custom.tga":   tgaBytes(3, 3, blue),
		"/games/c/game.ico":         []byte("junk"),
		"/games/d/liblist.gam":      []byte("game D\n"),
		"/games/e/icons/nested.png": pngBytes(t, 1, 1, green),
	})

	img := LoadIcon(fs, meta("a"), "/games/a")
	require.NotNil(t, img)
	assert.Equal(t, red, at(img, 1, 1))

	m := meta("b")
	m.Icon = "gfx/custom.tga"
	img = LoadIcon(fs, m, "/games/b")
	require.NotNil(t, img)
	assert.Equal(t, blue, at(img, 0, 0))

	m = meta("e")
	m.Icon = "icons\\nested.png"
	img = LoadIcon(fs, m, "/games/e")
	require.NotNil(t, img)
	assert.Equal(t, green, at(img, 0, 0))

	assert.Nil(t, LoadIcon(fs, meta("c"), "/games/c"), "undecodable")
	assert.Nil(t, LoadIcon(fs, meta("d"), "/games/d"), "missing")
}
