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

// Package imaging loads cover art and icons in the formats game folders
// ship with.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"path/filepath"
	"strings"

	_ "github.com/ZaparooProject/zaparoo-library/pkg/imaging/ico" // register decoder
	"github.com/ZaparooProject/zaparoo-library/pkg/imaging/tga"
	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp" // register decoder
)

// MaxFileSize bounds how much of an image file is read into memory.
const MaxFileSize = 32 << 20

var ErrTooLarge = errors.New("image file too large")

// Load decodes the image at path. Files with a .tga extension go straight
// to the TGA decoder; everything else tries the registered formats first
// and falls back to TGA, since TGA files carry no magic number.
func Load(fs afero.Fs, path string) (image.Image, error) {
	data, err := readFile(fs, path)
	if err != nil {
		return nil, err
	}
	return Decode(data, filepath.Ext(path))
}

// Decode decodes an in-memory image, using ext as a format hint.
func Decode(data []byte, ext string) (image.Image, error) {
	if strings.EqualFold(ext, ".tga") {
		img, err := tga.DecodeBytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode tga: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}

	timg, terr := tga.DecodeBytes(data)
	if terr != nil {
		return nil, fmt.Errorf("failed to decode image: %w", errors.Join(err, terr))
	}
	return timg, nil
}

// DecodeConfig returns the dimensions of the image at path.
func DecodeConfig(fs afero.Fs, path string) (image.Config, error) {
	f, err := fs.Open(path)
	if err != nil {
		return image.Config{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	if strings.EqualFold(filepath.Ext(path), ".tga") {
		return tga.DecodeConfig(f)
	}
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, fmt.Errorf("failed to decode image config: %w", err)
	}
	return cfg, nil
}

func readFile(fs afero.Fs, path string) ([]byte, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("%w: %s", ErrTooLarge, path)
	}
	return data, nil
}
