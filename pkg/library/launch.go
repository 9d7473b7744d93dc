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
	"fmt"

	"github.com/ZaparooProject/zaparoo-library/pkg/prefs"
	"github.com/google/shlex"
)

const (
	GameFlag = "-game"
	// VolumeButtonsFlag asks the engine to bind the device volume keys.
	VolumeButtonsFlag = "-usevolume"
)

// LaunchSpec is everything the engine needs to start a game.
type LaunchSpec struct {
	GameDir          string
	Args             []string
	UseVolumeButtons bool
}

// NewLaunchSpec combines a game with its saved preferences. The launch
// arguments are split like a shell would, honoring quotes.
func NewLaunchSpec(game *Game, p prefs.Preferences) (LaunchSpec, error) {
	args, err := shlex.Split(p.LaunchArguments)
	if err != nil {
		return LaunchSpec{}, fmt.Errorf("invalid launch arguments %q: %w", p.LaunchArguments, err)
	}
	return LaunchSpec{
		GameDir:          game.ID(),
		Args:             args,
		UseVolumeButtons: p.UseVolumeButtons,
	}, nil
}

// Argv returns the engine command line, without the program name.
func (s LaunchSpec) Argv() []string {
	argv := make([]string, 0, len(s.Args)+3)
	argv = append(argv, GameFlag, s.GameDir)
	argv = append(argv, s.Args...)
	if s.UseVolumeButtons {
		argv = append(argv, VolumeButtonsFlag)
	}
	return argv
}

// LaunchCommand returns the engine arguments for game with preferences p.
func LaunchCommand(game *Game, p prefs.Preferences) ([]string, error) {
	spec, err := NewLaunchSpec(game, p)
	if err != nil {
		return nil, err
	}
	return spec.Argv(), nil
}
