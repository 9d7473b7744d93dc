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

// Package ico decodes Windows icon files by picking their largest image.
//
// Importing the package registers the format with image.Decode.
package ico

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
)

const (
	dirSize   = 6
	entrySize = 16
	bmpHeader = 14
	maxSize   = 16 << 20

	biRGB       = 0
	biBitfields = 3
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

var (
	ErrInvalid   = errors.New("ico: invalid file")
	ErrTruncated = errors.New("ico: truncated data")
)

func init() {
	image.RegisterFormat("ico", "\x00\x00\x01\x00", Decode, DecodeConfig)
}

type entry struct {
	width  int
	height int
	bits   int
	size   int
	offset int
}

func (e entry) area() int {
	return e.width * e.height
}

func readEntries(data []byte) ([]entry, error) {
	if len(data) < dirSize {
		return nil, ErrTruncated
	}
	if binary.LittleEndian.Uint16(data[0:2]) != 0 || binary.LittleEndian.Uint16(data[2:4]) != 1 {
		return nil, ErrInvalid
	}
	count := int(binary.LittleEndian.Uint16(data[4:6]))
	if count == 0 {
		return nil, fmt.Errorf("%w: no images", ErrInvalid)
	}
	if len(data) < dirSize+count*entrySize {
		return nil, ErrTruncated
	}

	entries := make([]entry, 0, count)
	for i := range count {
		b := data[dirSize+i*entrySize:]
		e := entry{
			width:  int(b[0]),
			height: int(b[1]),
			bits:   int(binary.LittleEndian.Uint16(b[6:8])),
			size:   int(binary.LittleEndian.Uint32(b[8:12])),
			offset: int(binary.LittleEndian.Uint32(b[12:16])),
		}
		// zero means 256 pixels
		if e.width == 0 {
			e.width = 256
		}
		if e.height == 0 {
			e.height = 256
		}
		if e.offset < 0 || e.size <= 0 || e.offset+e.size > len(data) {
			return nil, fmt.Errorf("%w: image %d out of bounds", ErrTruncated, i)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// largest picks the biggest image, preferring deeper color on ties.
func largest(entries []entry) entry {
	best := entries[0]
	for _, e := range entries[1:] {
		if e.area() > best.area() || (e.area() == best.area() && e.bits > best.bits) {
			best = e
		}
	}
	return best
}

func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("ico: %w", err)
	}
	if len(data) > maxSize {
		return nil, fmt.Errorf("%w: file too large", ErrInvalid)
	}
	return data, nil
}

// DecodeConfig reports the dimensions of the largest image in the icon.
func DecodeConfig(r io.Reader) (image.Config, error) {
	data, err := readAll(r)
	if err != nil {
		return image.Config{}, err
	}
	entries, err := readEntries(data)
	if err != nil {
		return image.Config{}, err
	}
	best := largest(entries)
	img, err := decodeEntry(data, best)
	if err != nil {
		return image.Config{}, err
	}
	b := img.Bounds()
	return image.Config{ColorModel: img.ColorModel(), Width: b.Dx(), Height: b.Dy()}, nil
}

// Decode returns the largest image stored in the icon.
func Decode(r io.Reader) (image.Image, error) {
	data, err := readAll(r)
	if err != nil {
		return nil, err
	}
	entries, err := readEntries(data)
	if err != nil {
		return nil, err
	}
	return decodeEntry(data, largest(entries))
}

func decodeEntry(data []byte, e entry) (image.Image, error) {
	payload := data[e.offset : e.offset+e.size]
	if bytes.HasPrefix(payload, pngMagic) {
		img, err := png.Decode(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("ico: embedded png: %w", err)
		}
		return img, nil
	}

	file, err := dibToBMP(payload)
	if err != nil {
		return nil, err
	}
	img, err := bmp.Decode(bytes.NewReader(file))
	if err != nil {
		return nil, fmt.Errorf("ico: embedded bitmap: %w", err)
	}
	return img, nil
}

// dibToBMP turns an icon DIB into a standalone BMP file. Icon DIBs store
// the color rows followed by a 1-bit AND mask and report the combined
// height, so the height is halved and the mask is left unread.
func dibToBMP(dib []byte) ([]byte, error) {
	if len(dib) < 40 {
		return nil, ErrTruncated
	}
	infoSize := int(binary.LittleEndian.Uint32(dib[0:4]))
	if infoSize < 40 || infoSize > len(dib) {
		return nil, fmt.Errorf("%w: bitmap header size %d", ErrInvalid, infoSize)
	}
	height := int32(binary.LittleEndian.Uint32(dib[8:12]))
	bits := int(binary.LittleEndian.Uint16(dib[14:16]))
	compression := binary.LittleEndian.Uint32(dib[16:20])
	colorsUsed := int(binary.LittleEndian.Uint32(dib[32:36]))

	extra := 0
	switch {
	case bits <= 8:
		if colorsUsed == 0 {
			colorsUsed = 1 << bits
		}
		extra = colorsUsed * 4
	case compression != biRGB && compression != biBitfields:
		return nil, fmt.Errorf("%w: bitmap compression %d", ErrInvalid, compression)
	}

	out := make([]byte, bmpHeader+len(dib))
	copy(out[bmpHeader:], dib)
	out[0], out[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(out[2:6], uint32(len(out)))
	binary.LittleEndian.PutUint32(out[10:14], uint32(bmpHeader+infoSize+extra))
	binary.LittleEndian.PutUint32(out[bmpHeader+8:bmpHeader+12], uint32(height/2))
	return out, nil
}
