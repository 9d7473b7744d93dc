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

// Package models holds the notification payloads the library publishes to
// its host.
package models

import (
	"encoding/json"
	"time"
)

const (
	NotificationImportProgress = "import.progress"
	NotificationImportFinished = "import.finished"
	NotificationLibraryScanned = "library.scanned"
	NotificationLibraryChanged = "library.changed"
)

// Notification is one event published through the broker. Params holds
// the JSON encoded payload for Method.
type Notification struct {
	Method string
	Params json.RawMessage
}

// ImportProgressParams reports the counters of a running import.
type ImportProgressParams struct {
	JobID       string  `json:"jobId"`
	Source      string  `json:"source"`
	Destination string  `json:"destination"`
	State       string  `json:"state"`
	Copied      int     `json:"copied"`
	Total       int     `json:"total"`
	Fraction    float64 `json:"fraction"`
}

// ImportFinishedParams reports the terminal state of an import. Error is
// empty unless State is "failed".
type ImportFinishedParams struct {
	FinishedAt  time.Time `json:"finishedAt"`
	JobID       string    `json:"jobId"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	State       string    `json:"state"`
	Error       string    `json:"error,omitempty"`
	Copied      int       `json:"copied"`
	Total       int       `json:"total"`
}

// GameSummary is the serializable part of a scanned game.
type GameSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Dir      string `json:"dir"`
	HasCover bool   `json:"hasCover"`
	HasIcon  bool   `json:"hasIcon"`
}

// LibraryScannedParams is sent after every completed scan.
type LibraryScannedParams struct {
	BaseDir string        `json:"baseDir"`
	Games   []GameSummary `json:"games"`
}

// LibraryChangedParams is sent when the base directory changes on disk.
type LibraryChangedParams struct {
	BaseDir string   `json:"baseDir"`
	Paths   []string `json:"paths"`
}
