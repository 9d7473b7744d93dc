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

// Package library discovers the games installed under the base directory.
package library

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-library/pkg/background"
	"github.com/ZaparooProject/zaparoo-library/pkg/gameinfo"
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoBaseDir      = errors.New("base directory is not set")
	ErrOutsideBaseDir = errors.New("path is outside the base directory")
)

// Game is one installed game. Cover and Icon are nil when the game ships
// no usable image.
type Game struct {
	Cover    image.Image
	Icon     image.Image
	Dir      string
	Metadata gameinfo.Metadata
}

// ID is the game directory name, which is also the preference key.
func (g *Game) ID() string {
	return g.Metadata.GameDir
}

// Summary returns the serializable part of the game.
func (g *Game) Summary() models.GameSummary {
	return models.GameSummary{
		ID:       g.ID(),
		Title:    g.Metadata.Title,
		Dir:      g.Dir,
		HasCover: g.Cover != nil,
		HasIcon:  g.Icon != nil,
	}
}

// Settings is the part of the config the repository reads.
type Settings interface {
	BaseDir() string
	ScanWorkers() int
}

// Composer builds the images of a game.
type Composer interface {
	Compose(meta gameinfo.Metadata, dir string) image.Image
	Icon(meta gameinfo.Metadata, dir string) image.Image
}

type Repository struct {
	fs       afero.Fs
	settings Settings
	composer Composer
}

// NewRepository returns a repository reading from fs. A nil composer uses
// background.NewComposer.
func NewRepository(fs afero.Fs, settings Settings, composer Composer) *Repository {
	if composer == nil {
		composer = background.NewComposer(fs)
	}
	return &Repository{
		fs:       fs,
		settings: settings,
		composer: composer,
	}
}

// BaseDir returns the directory currently scanned for games.
func (r *Repository) BaseDir() string {
	return r.settings.BaseDir()
}

// ScanForGames returns every game directly under the base directory, in
// directory name order. Directories that are not games, hidden entries and
// plain files are left out. A base directory that does not exist yet holds
// no games.
func (r *Repository) ScanForGames(ctx context.Context) ([]Game, error) {
	base := r.settings.BaseDir()
	if base == "" {
		return nil, ErrNoBaseDir
	}

	info, err := r.fs.Stat(base)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("base_dir", base).Msg("base directory does not exist")
		return []Game{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("base directory %s is not a directory", base)
	}

	r.ensureNoMedia(base)

	dirs, err := r.gameDirCandidates(base)
	if err != nil {
		return nil, err
	}

	slots := make([]*Game, len(dirs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.settings.ScanWorkers(), 1))
	for i, dir := range dirs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if game, ok := r.CreateGame(gctx, dir); ok {
				slots[i] = game
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan cancelled: %w", err)
	}

	games := make([]Game, 0, len(slots))
	for _, game := range slots {
		if game != nil {
			games = append(games, *game)
		}
	}

	log.Info().
		Str("base_dir", base).
		Int("candidates", len(dirs)).
		Int("games", len(games)).
		Msg("library scan finished")
	return games, nil
}

func (r *Repository) gameDirCandidates(base string) ([]string, error) {
	entries, err := afero.ReadDir(r.fs, base)
	if err != nil {
		return nil, fmt.Errorf("failed to read base directory: %w", err)
	}

	dirs := make([]string, 0, len(entries))
	for _, e := range entries {
		if helpers.IsHidden(e.Name()) {
			continue
		}
		p := filepath.Join(base, e.Name())
		isDir := e.IsDir()
		if e.Mode()&os.ModeSymlink != 0 {
			target, err := r.fs.Stat(p)
			isDir = err == nil && target.IsDir()
		}
		if isDir {
			dirs = append(dirs, p)
		}
	}
	return dirs, nil
}

// ensureNoMedia keeps media scanners out of the library. Failures only
// cost gallery clutter, so they are logged and ignored.
func (r *Repository) ensureNoMedia(base string) {
	p := filepath.Join(base, helpers.NoMediaFile)
	f, err := r.fs.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if !errors.Is(err, fs.ErrExist) {
			log.Warn().Err(err).Str("path", p).Msg("failed to create marker file")
		}
		return
	}
	if err := f.Close(); err != nil {
		log.Warn().Err(err).Str("path", p).Msg("failed to close marker file")
	}
}

// CreateGame builds the game in dir, or returns false when dir is not a
// game or ctx is already done.
func (r *Repository) CreateGame(ctx context.Context, dir string) (*Game, bool) {
	if ctx.Err() != nil {
		return nil, false
	}

	meta, ok := gameinfo.Resolve(r.fs, dir)
	if !ok {
		return nil, false
	}

	return &Game{
		Metadata: meta,
		Dir:      dir,
		Cover:    r.composer.Compose(meta, dir),
		Icon:     r.composer.Icon(meta, dir),
	}, true
}

// UninstallGame deletes the game's directory tree. It refuses to touch
// anything that is not strictly inside the base directory.
func (r *Repository) UninstallGame(ctx context.Context, game *Game) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	base := r.settings.BaseDir()
	dir := filepath.Clean(game.Dir)
	if base == "" || dir == filepath.Clean(base) || !helpers.PathHasPrefix(dir, base) {
		return fmt.Errorf("%w: %s", ErrOutsideBaseDir, game.Dir)
	}

	if err := r.fs.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}

	log.Info().Str("game", game.ID()).Str("dir", dir).Msg("uninstalled game")
	return nil
}
