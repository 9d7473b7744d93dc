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

package library

import (
	"cmp"
	"slices"
	"strings"

	"github.com/hbollon/go-edlib"
)

// MinSuggestionScore is the Jaro-Winkler similarity a game needs to be
// offered as a suggestion.
const MinSuggestionScore = 0.8

// Suggestion is a game that nearly matches a query.
type Suggestion struct {
	Game  *Game
	Score float32
}

// FindGame looks a game up by directory name or title, ignoring case. When
// nothing matches exactly it returns the closest games instead, best first.
func FindGame(games []Game, query string) (*Game, []Suggestion) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}

	for i := range games {
		g := &games[i]
		if strings.ToLower(g.ID()) == q || strings.ToLower(g.Metadata.Title) == q {
			return g, nil
		}
	}

	var suggestions []Suggestion
	for i := range games {
		g := &games[i]
		score := max(
			edlib.JaroWinklerSimilarity(q, strings.ToLower(g.ID())),
			edlib.JaroWinklerSimilarity(q, strings.ToLower(g.Metadata.Title)),
		)
		if score >= MinSuggestionScore {
			suggestions = append(suggestions, Suggestion{Game: g, Score: score})
		}
	}
	slices.SortStableFunc(suggestions, func(a, b Suggestion) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return nil, suggestions
}
