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

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-library/pkg/importer"
	"github.com/ZaparooProject/zaparoo-library/pkg/library"
	"github.com/ZaparooProject/zaparoo-library/pkg/service"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const progressBuffer = 100

func (a *app) scanCommand() *cobra.Command {
	var asJSON bool
	var coversDir string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "List the games in the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(false, func(svc *service.Service) error {
				games, err := svc.ScanForGames(cmd.Context())
				if err != nil {
					return fmt.Errorf("scan failed: %w", err)
				}

				if coversDir != "" {
					if err := exportCovers(games, coversDir); err != nil {
						return err
					}
				}

				out := cmd.OutOrStdout()
				if asJSON {
					summaries := make([]models.GameSummary, 0, len(games))
					for i := range games {
						summaries = append(summaries, games[i].Summary())
					}
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(summaries)
				}
				return printGames(out, games)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the games as JSON")
	cmd.Flags().StringVar(&coversDir, "export-covers", "", "write every cover to this directory as <id>.png")
	return cmd
}

func printGames(out io.Writer, games []library.Game) error {
	if len(games) == 0 {
		_, err := fmt.Fprintln(out, "no games found")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTITLE\tCOVER\tICON")
	for i := range games {
		g := &games[i]
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", g.ID(), g.Metadata.Title, yesNo(g.Cover != nil), yesNo(g.Icon != nil))
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func exportCovers(games []library.Game, dir string) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create cover directory: %w", err)
	}
	for i := range games {
		g := &games[i]
		if g.Cover == nil {
			continue
		}
		if err := writePNG(filepath.Join(dir, g.ID()+".png"), g); err != nil {
			return err
		}
	}
	return nil
}

func writePNG(path string, g *library.Game) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Str("path", path).Msg("failed to close cover")
		}
	}()

	if err := png.Encode(f, g.Cover); err != nil {
		return fmt.Errorf("failed to encode cover of %s: %w", g.ID(), err)
	}
	return nil
}

func (a *app) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>...",
		Short: "Copy game directories into the library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(false, func(svc *service.Service) error {
				progress, id := svc.Subscribe(progressBuffer, models.NotificationImportProgress)
				defer svc.Unsubscribe(id)

				jobs := make([]*importer.Job, 0, len(args))
				for _, arg := range args {
					src, err := filepath.Abs(arg)
					if err != nil {
						return fmt.Errorf("invalid source %s: %w", arg, err)
					}
					job, err := svc.SubmitImport(importer.NewOsSource(src))
					if err != nil {
						return err
					}
					jobs = append(jobs, job)
				}

				return waitImports(cmd.Context(), cmd.OutOrStdout(), progress, jobs)
			})
		},
	}
}

// waitImports prints progress until every job is finished. Interrupting
// cancels all of them.
func waitImports(
	ctx context.Context,
	out io.Writer,
	progress <-chan models.Notification,
	jobs []*importer.Job,
) error {
	failed := 0
	for _, job := range jobs {
	wait:
		for {
			select {
			case n, ok := <-progress:
				if !ok {
					progress = nil
					continue
				}
				printProgress(out, n)
			case <-job.Done():
				break wait
			case <-ctx.Done():
				for _, j := range jobs {
					j.Cancel()
				}
				return ctx.Err()
			}
		}

		p := job.Snapshot()
		if p.State == importer.StateSucceeded {
			_, _ = fmt.Fprintf(out, "imported %s to %s\n", p.Source, p.Destination)
			continue
		}
		failed++
		_, _ = fmt.Fprintf(out, "import of %s %s: %v\n", p.Source, p.State, p.Err)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d imports did not succeed", failed, len(jobs))
	}
	return nil
}

func printProgress(out io.Writer, n models.Notification) {
	var p models.ImportProgressParams
	if err := json.Unmarshal(n.Params, &p); err != nil {
		log.Debug().Err(err).Msg("failed to decode import progress")
		return
	}
	if p.State != string(importer.StateRunning) || p.Total == 0 {
		return
	}
	_, _ = fmt.Fprintf(out, "%s: %d/%d files\n", filepath.Base(p.Source), p.Copied, p.Total)
}

func (a *app) uninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <game>",
		Short: "Delete a game and its preferences",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(false, func(svc *service.Service) error {
				game, err := scanAndFind(cmd.Context(), svc, args[0])
				if err != nil {
					return err
				}
				if err := svc.UninstallGame(cmd.Context(), game); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "uninstalled %s (%s)\n", game.Metadata.Title, game.Dir)
				return nil
			})
		},
	}
}

func scanAndFind(ctx context.Context, svc *service.Service, query string) (*library.Game, error) {
	if _, err := svc.ScanForGames(ctx); err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	return findGame(svc, query)
}

func (a *app) prefsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change the launch preferences of a game",
	}

	get := &cobra.Command{
		Use:   "get <game>",
		Short: "Print the preferences of a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(false, func(svc *service.Service) error {
				game, err := scanAndFind(cmd.Context(), svc, args[0])
				if err != nil {
					return err
				}
				p := svc.Provide(game.ID()).Get()
				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "launch_arguments: %s\n", p.LaunchArguments)
				_, _ = fmt.Fprintf(out, "use_volume_buttons: %t\n", p.UseVolumeButtons)
				return nil
			})
		},
	}

	var launchArgs string
	var volumeButtons bool
	set := &cobra.Command{
		Use:   "set <game>",
		Short: "Change the preferences of a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			argsChanged := cmd.Flags().Changed("args")
			volumeChanged := cmd.Flags().Changed("volume-buttons")
			if !argsChanged && !volumeChanged {
				return errors.New("nothing to set, pass --args or --volume-buttons")
			}

			return a.withService(false, func(svc *service.Service) error {
				game, err := scanAndFind(cmd.Context(), svc, args[0])
				if err != nil {
					return err
				}
				store := svc.Provide(game.ID())
				if argsChanged {
					if err := store.SetLaunchArguments(launchArgs); err != nil {
						return err
					}
				}
				if volumeChanged {
					if err := store.SetUseVolumeButtons(volumeButtons); err != nil {
						return err
					}
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "updated preferences of %s\n", game.ID())
				return nil
			})
		},
	}
	set.Flags().StringVar(&launchArgs, "args", "", "engine launch arguments")
	set.Flags().BoolVar(&volumeButtons, "volume-buttons", false, "bind the volume keys in game")

	cmd.AddCommand(get, set)
	return cmd
}

func (a *app) launchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "launch <game>",
		Short: "Print the engine command line for a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(false, func(svc *service.Service) error {
				game, err := scanAndFind(cmd.Context(), svc, args[0])
				if err != nil {
					return err
				}
				argv, err := svc.LaunchCommand(game)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), joinArgs(argv))
				return nil
			})
		},
	}
}

func joinArgs(argv []string) string {
	quoted := make([]string, 0, len(argv))
	for _, arg := range argv {
		if arg == "" || strings.ContainsAny(arg, " \t\"'") {
			arg = strconv.Quote(arg)
		}
		quoted = append(quoted, arg)
	}
	return strings.Join(quoted, " ")
}

func (a *app) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Rescan whenever the library directory changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(true, func(svc *service.Service) error {
				ch, id := svc.Subscribe(
					progressBuffer,
					models.NotificationLibraryChanged,
					models.NotificationLibraryScanned,
					models.NotificationImportFinished,
				)
				defer svc.Unsubscribe(id)

				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintf(out, "watching %s\n", a.cfg.BaseDir())
				for {
					select {
					case <-cmd.Context().Done():
						return nil
					case n, ok := <-ch:
						if !ok {
							return nil
						}
						printEvent(out, n)
					}
				}
			})
		},
	}
}

func printEvent(out io.Writer, n models.Notification) {
	switch n.Method {
	case models.NotificationLibraryScanned:
		var p models.LibraryScannedParams
		if err := json.Unmarshal(n.Params, &p); err == nil {
			_, _ = fmt.Fprintf(out, "library: %d games in %s\n", len(p.Games), p.BaseDir)
		}
	case models.NotificationLibraryChanged:
		var p models.LibraryChangedParams
		if err := json.Unmarshal(n.Params, &p); err == nil {
			_, _ = fmt.Fprintf(out, "changed: %s\n", strings.Join(p.Paths, ", "))
		}
	case models.NotificationImportFinished:
		var p models.ImportFinishedParams
		if err := json.Unmarshal(n.Params, &p); err == nil {
			_, _ = fmt.Fprintf(out, "import of %s %s\n", p.Source, p.State)
		}
	default:
		_, _ = fmt.Fprintln(out, n.Method)
	}
}

func (a *app) baseDirCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "basedir [dir]",
		Short: "Print or change the library directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				_, _ = fmt.Fprintln(out, a.cfg.BaseDir())
				return nil
			}

			dir, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("invalid directory %s: %w", args[0], err)
			}
			if err := a.cfg.SetBaseDir(dir); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(out, "library directory set to %s\n", dir)
			return nil
		},
	}
}
