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

// Package cli implements the zaparoo-library command line, a small host
// for the library service.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZaparooProject/zaparoo-library/pkg/config"
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-library/pkg/library"
	"github.com/ZaparooProject/zaparoo-library/pkg/service"
	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// DefaultConfigDir is where config.toml lives unless --config-dir is set.
func DefaultConfigDir() string {
	return filepath.Join(xdg.ConfigHome, config.AppName)
}

// DefaultDataDir holds the preference database and the logs.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, config.AppName)
}

// DefaultBaseDir is the library location used before one is configured.
func DefaultBaseDir() string {
	return filepath.Join(xdg.Home, config.DefaultLibraryDir)
}

type app struct {
	cfg       *config.Instance
	configDir string
	dataDir   string
	verbose   bool
}

// NewRootCommand builds the command tree. Output goes to the command's
// out writer so callers can capture it with SetOut.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           config.AppName,
		Short:         "Manage a library of GoldSrc and Xash3D games",
		Version:       config.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configDir, "config-dir", DefaultConfigDir(), "directory holding config.toml")
	flags.StringVar(&a.dataDir, "data-dir", DefaultDataDir(), "directory for preferences and logs")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		a.scanCommand(),
		a.importCommand(),
		a.uninstallCommand(),
		a.prefsCommand(),
		a.launchCommand(),
		a.watchCommand(),
		a.baseDirCommand(),
	)
	return root
}

func (a *app) setup() error {
	if err := helpers.EnsureDirectories(a.configDir, a.dataDir); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	var writers []io.Writer
	if a.verbose {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
	}
	err := helpers.InitLogging(filepath.Join(a.dataDir, config.LogsDir), a.verbose, writers)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	defaults := config.BaseDefaults
	defaults.Library.BaseDir = DefaultBaseDir()
	a.cfg, err = config.NewConfig(a.configDir, defaults)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// loading the config applies its own log level
	if a.verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Debug().
		Str("version", config.AppVersion).
		Str("config", a.cfg.Path()).
		Str("base_dir", a.cfg.BaseDir()).
		Msg("cli started")
	return nil
}

// withService starts the library service for the length of fn.
func (a *app) withService(watch bool, fn func(svc *service.Service) error) error {
	if watch {
		a.cfg.SetWatchLibrary(true)
	}

	svc, err := service.Start(a.cfg, a.dataDir, service.Options{})
	if err != nil {
		return fmt.Errorf("failed to start library service: %w", err)
	}
	defer func() {
		if stopErr := svc.Stop(); stopErr != nil {
			log.Error().Err(stopErr).Msg("error stopping library service")
		}
	}()

	return fn(svc)
}

// findGame matches query against the snapshot, listing close matches in the
// error when nothing matches exactly.
func findGame(svc *service.Service, query string) (*library.Game, error) {
	game, suggestions := svc.FindGame(query)
	if game != nil {
		return game, nil
	}
	if len(suggestions) == 0 {
		return nil, fmt.Errorf("%w: %s", service.ErrGameNotFound, query)
	}

	names := make([]string, 0, len(suggestions))
	for _, s := range suggestions {
		names = append(names, s.Game.ID())
	}
	return nil, fmt.Errorf(
		"%w: %s (did you mean %s?)",
		service.ErrGameNotFound, query, strings.Join(names, ", "),
	)
}
