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

// Package keyvalues reads the flat "key value" text files used by GoldSrc
// mods, such as gameinfo.txt and liblist.gam.
package keyvalues

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/text/encoding/charmap"
)

// maxFileSize caps how much of a config is read. Anything past it is
// ignored, so an oversized file still counts as present.
const maxFileSize = 1 << 20

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Values maps config keys to their unquoted values.
type Values map[string]string

// Get returns the value for key and whether it was present.
func (v Values) Get(key string) (string, bool) {
	s, ok := v[key]
	return s, ok
}

// Parse reads key/value lines from r. Blank lines, // comments, lines
// without a value and lines with an empty key are skipped. Input that is not
// valid UTF-8 is decoded as Windows-1252.
func Parse(r io.Reader) (Values, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if len(data) > maxFileSize {
		data = data[:maxFileSize]
		// the line cut by the limit is dropped with the rest
		if i := bytes.LastIndexByte(data, '\n'); i >= 0 {
			data = data[:i+1]
		} else {
			data = nil
		}
		log.Warn().Int("limit", maxFileSize).Msg("config file truncated at size limit")
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
		data = decoded
	}

	vals := make(Values)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 4096), maxFileSize)
	for scanner.Scan() {
		key, value, ok := parseLine(scanner.Text())
		if ok {
			vals[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	return vals, nil
}

func parseLine(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "//") {
		return "", "", false
	}

	idx := strings.IndexFunc(line, unicode.IsSpace)
	if idx == -1 {
		return "", "", false
	}

	key = strings.TrimSpace(line[:idx])
	if key == "" {
		return "", "", false
	}

	value = strings.TrimSpace(line[idx:])
	value = strings.TrimPrefix(value, `"`)
	value = strings.TrimSuffix(value, `"`)
	value = strings.TrimSpace(value)

	return key, value, true
}

// Load parses the file at path. It returns false when the file does not
// exist or cannot be read; a partial read never produces values.
func Load(fsys afero.Fs, path string) (Values, bool) {
	info, err := fsys.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Debug().Err(err).Str("path", path).Msg("failed to stat config")
		}
		return nil, false
	}
	if info.IsDir() {
		return nil, false
	}

	f, err := fsys.Open(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("failed to open config")
		return nil, false
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", path).Msg("failed to close config")
		}
	}()

	vals, err := Parse(f)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("failed to parse config")
		return nil, false
	}

	return vals, true
}
