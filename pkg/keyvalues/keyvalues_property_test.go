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

package keyvalues

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func lineGen() *rapid.Generator[string] {
	return rapid.OneOf(
		rapid.StringMatching(`[a-z_]{1,12}[ \t]+"?[A-Za-z0-9 .\-]{0,20}"?`),
		rapid.StringMatching(`//[ -~]{0,20}`),
		rapid.StringMatching(`[ \t]{0,4}`),
		rapid.StringMatching(`[a-z]{1,8}`),
	)
}

func TestProperty_ParseIsIdempotent(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		lines := rapid.SliceOf(lineGen()).Draw(t, "lines")
		content := strings.Join(lines, "\n")

		fs := afero.NewMemMapFs()
		if err := afero.WriteFile(fs, "/g/gameinfo.txt", []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}

		first, ok1 := Load(fs, "/g/gameinfo.txt")
		second, ok2 := Load(fs, "/g/gameinfo.txt")
		if !ok1 || !ok2 {
			t.Fatalf("expected both loads to succeed")
		}
		require.Equal(t, first, second)
	})
}

func TestProperty_KeysNeverEmptyOrSpaced(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		content := rapid.String().Draw(t, "content")

		vals, err := Parse(strings.NewReader(content))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		for k, v := range vals {
			if k == "" {
				t.Fatalf("empty key parsed")
			}
			if strings.ContainsAny(k, " \t\r\n") {
				t.Fatalf("key %q contains whitespace", k)
			}
			if strings.TrimSpace(v) != v {
				t.Fatalf("value %q not trimmed", v)
			}
		}
	})
}
