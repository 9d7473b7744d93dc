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

// Package tga decodes Truevision TGA images.
//
// Supported image types are color-mapped, true-color and grayscale, both
// raw and run-length encoded, at 8, 15, 16, 24 and 32 bits per pixel.
// TGA has no magic number, so the format is not registered with the image
// package; callers pick this decoder by extension or as a fallback.
package tga

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
)

const (
	headerSize = 18
	// maxPixels keeps a corrupt header from allocating gigabytes.
	maxPixels = 1 << 26

	typeColorMap    = 1
	typeTrueColor   = 2
	typeGrayscale   = 3
	typeColorMapRLE = 9
	typeTrueColRLE  = 10
	typeGrayRLE     = 11

	originRight = 0x10
	originTop   = 0x20
)

var (
	ErrUnsupported = errors.New("tga: unsupported image")
	ErrTruncated   = errors.New("tga: truncated data")
	ErrInvalid     = errors.New("tga: invalid header")
)

type header struct {
	idLength     int
	colorMapType int
	imageType    int
	cmapOrigin   int
	cmapLength   int
	cmapDepth    int
	width        int
	height       int
	depth        int
	descriptor   int
}

func parseHeader(b []byte) (header, error) {
	if len(b) < headerSize {
		return header{}, ErrTruncated
	}

	h := header{
		idLength:     int(b[0]),
		colorMapType: int(b[1]),
		imageType:    int(b[2]),
		cmapOrigin:   int(binary.LittleEndian.Uint16(b[3:5])),
		cmapLength:   int(binary.LittleEndian.Uint16(b[5:7])),
		cmapDepth:    int(b[7]),
		width:        int(binary.LittleEndian.Uint16(b[12:14])),
		height:       int(binary.LittleEndian.Uint16(b[14:16])),
		depth:        int(b[16]),
		descriptor:   int(b[17]),
	}

	if h.width == 0 || h.height == 0 {
		return header{}, fmt.Errorf("%w: zero dimension", ErrInvalid)
	}
	if h.width*h.height > maxPixels {
		return header{}, fmt.Errorf("%w: %dx%d too large", ErrInvalid, h.width, h.height)
	}

	switch h.imageType {
	case typeColorMap, typeColorMapRLE:
		if h.colorMapType != 1 {
			return header{}, fmt.Errorf("%w: color-mapped image without palette", ErrInvalid)
		}
		if h.depth != 8 && h.depth != 16 {
			return header{}, fmt.Errorf("%w: %d-bit palette index", ErrUnsupported, h.depth)
		}
		switch h.cmapDepth {
		case 15, 16, 24, 32:
		default:
			return header{}, fmt.Errorf("%w: %d-bit palette entries", ErrUnsupported, h.cmapDepth)
		}
	case typeTrueColor, typeTrueColRLE:
		switch h.depth {
		case 15, 16, 24, 32:
		default:
			return header{}, fmt.Errorf("%w: %d-bit true-color", ErrUnsupported, h.depth)
		}
	case typeGrayscale, typeGrayRLE:
		if h.depth != 8 && h.depth != 16 {
			return header{}, fmt.Errorf("%w: %d-bit grayscale", ErrUnsupported, h.depth)
		}
	default:
		return header{}, fmt.Errorf("%w: image type %d", ErrUnsupported, h.imageType)
	}

	return h, nil
}

func bytesPer(bits int) int {
	return (bits + 7) / 8
}

func (h header) paletteSize() int {
	if h.colorMapType != 1 {
		return 0
	}
	return h.cmapLength * bytesPer(h.cmapDepth)
}

// DecodeConfig returns the dimensions of a TGA image without decoding it.
func DecodeConfig(r io.Reader) (image.Config, error) {
	b := make([]byte, headerSize)
	if _, err := io.ReadFull(r, b); err != nil {
		return image.Config{}, ErrTruncated
	}
	h, err := parseHeader(b)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      h.width,
		Height:     h.height,
	}, nil
}

// Decode reads a whole TGA image from r.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("tga: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes decodes a TGA image held in memory.
func DecodeBytes(data []byte) (*image.NRGBA, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	paletteStart := headerSize + h.idLength
	pixelStart := paletteStart + h.paletteSize()
	if pixelStart > len(data) {
		return nil, ErrTruncated
	}

	var palette []color.NRGBA
	if h.imageType == typeColorMap || h.imageType == typeColorMapRLE {
		palette = readPalette(data[paletteStart:pixelStart], h.cmapDepth)
	}

	pixelBytes := bytesPer(h.depth)
	want := h.width * h.height * pixelBytes

	raw := data[pixelStart:]
	switch h.imageType {
	case typeColorMapRLE, typeTrueColRLE, typeGrayRLE:
		raw, err = decodeRLE(raw, pixelBytes, want)
		if err != nil {
			return nil, err
		}
	default:
		if len(raw) < want {
			return nil, ErrTruncated
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, h.width, h.height))
	fromRight := h.descriptor&originRight != 0
	fromTop := h.descriptor&originTop != 0

	i := 0
	for row := range h.height {
		y := row
		if !fromTop {
			y = h.height - 1 - row
		}
		for col := range h.width {
			x := col
			if fromRight {
				x = h.width - 1 - col
			}

			px := raw[i : i+pixelBytes]
			i += pixelBytes

			var c color.NRGBA
			switch h.imageType {
			case typeColorMap, typeColorMapRLE:
				c = paletteColor(palette, px, h.cmapOrigin)
			case typeGrayscale, typeGrayRLE:
				c = grayColor(px)
			default:
				c = trueColor(px, h.depth)
			}
			img.SetNRGBA(x, y, c)
		}
	}

	return img, nil
}

// decodeRLE expands run-length packets until want bytes are produced.
func decodeRLE(src []byte, pixelBytes, want int) ([]byte, error) {
	out := make([]byte, 0, want)
	i := 0
	for len(out) < want {
		if i >= len(src) {
			return nil, ErrTruncated
		}
		packet := src[i]
		i++
		count := int(packet&0x7f) + 1

		if packet&0x80 != 0 {
			if i+pixelBytes > len(src) {
				return nil, ErrTruncated
			}
			px := src[i : i+pixelBytes]
			i += pixelBytes
			for range count {
				out = append(out, px...)
			}
		} else {
			n := count * pixelBytes
			if i+n > len(src) {
				return nil, ErrTruncated
			}
			out = append(out, src[i:i+n]...)
			i += n
		}
	}
	// a run may straddle the end of the image
	return out[:want], nil
}

func readPalette(b []byte, depth int) []color.NRGBA {
	n := bytesPer(depth)
	palette := make([]color.NRGBA, 0, len(b)/n)
	for i := 0; i+n <= len(b); i += n {
		palette = append(palette, trueColor(b[i:i+n], depth))
	}
	return palette
}

func paletteColor(palette []color.NRGBA, px []byte, origin int) color.NRGBA {
	idx := int(px[0])
	if len(px) == 2 {
		idx |= int(px[1]) << 8
	}
	idx -= origin
	if idx < 0 || idx >= len(palette) {
		// out-of-range entries render as opaque white
		return color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	return palette[idx]
}

func grayColor(px []byte) color.NRGBA {
	a := uint8(0xff)
	if len(px) == 2 {
		a = px[1]
	}
	return color.NRGBA{R: px[0], G: px[0], B: px[0], A: a}
}

func trueColor(px []byte, depth int) color.NRGBA {
	switch depth {
	case 15, 16:
		v := uint16(px[0]) | uint16(px[1])<<8
		return color.NRGBA{
			R: expand5(uint8(v >> 10 & 0x1f)),
			G: expand5(uint8(v >> 5 & 0x1f)),
			B: expand5(uint8(v & 0x1f)),
			A: 0xff,
		}
	case 24:
		return color.NRGBA{R: px[2], G: px[1], B: px[0], A: 0xff}
	default:
		return color.NRGBA{R: px[2], G: px[1], B: px[0], A: px[3]}
	}
}

func expand5(v uint8) uint8 {
	return v<<3 | v>>2
}
