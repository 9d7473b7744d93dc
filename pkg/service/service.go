/*
Zaparoo Library
Copyright (c) 2026 The Zaparoo Project Contributors.
SPDX-License-Identifier: GPL-3.0-or-later

This file is part of Zaparoo Library.

Zaparoo Library is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

Zaparoo Library is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with Zaparoo Library.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package service wires the library core into one long-lived instance:
// the config, the preference database, the game repository, the import
// manager and the notification broker.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/ZaparooProject/zaparoo-library/pkg/api/models"
	"github.com/ZaparooProject/zaparoo-library/pkg/api/notifications"
	"github.com/ZaparooProject/zaparoo-library/pkg/config"
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers"
	"github.com/ZaparooProject/zaparoo-library/pkg/helpers/syncutil"
	"github.com/ZaparooProject/zaparoo-library/pkg/importer"
	"github.com/ZaparooProject/zaparoo-library/pkg/library"
	"github.com/ZaparooProject/zaparoo-library/pkg/prefs"
	"github.com/ZaparooProject/zaparoo-library/pkg/service/broker"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	notificationsBuffer = 100
	subscriberBuffer    = 100
)

var ErrGameNotFound = errors.New("game not found")

// Options are the optional collaborators of a service. Zero values use the
// host filesystem, the real clock and the default watcher debounce.
type Options struct {
	Fs       afero.Fs
	Clock    clockwork.Clock
	Debounce time.Duration
}

// ScanResult is the outcome of an asynchronous scan.
type ScanResult struct {
	Err   error
	Games []library.Game
}

// Service is a running library instance.
type Service struct {
	ctx       context.Context
	cfg       *config.Instance
	clock     clockwork.Clock
	prefs     *prefs.Provider
	repo      *library.Repository
	importer  *importer.Manager
	broker    *broker.Broker
	watcher   *library.Watcher
	ns        chan models.Notification
	cancel    context.CancelFunc
	done      chan struct{}
	games     []library.Game
	wg        sync.WaitGroup
	debounce  time.Duration
	scanSeq   uint64
	storedSeq uint64
	gamesMu   syncutil.RWMutex
	watchMu   syncutil.Mutex
	stateMu   syncutil.Mutex
	stopOnce  sync.Once
	stopped   bool
}

// Start opens the preference database in dataDir and starts the import
// workers, the broker and the rescan listeners. The first base directory
// value triggers an initial scan.
func Start(cfg *config.Instance, dataDir string, opts Options) (*Service, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	if err := helpers.EnsureDirectories(dataDir); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	log.Info().Msg("opening preference database")
	pp, err := prefs.Open(filepath.Join(dataDir, config.PrefsFile))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	ns := make(chan models.Notification, notificationsBuffer)

	s := &Service{
		ctx:      ctx,
		cancel:   cancel,
		cfg:      cfg,
		clock:    opts.Clock,
		debounce: opts.Debounce,
		prefs:    pp,
		repo:     library.NewRepository(opts.Fs, cfg, nil),
		ns:       ns,
		done:     make(chan struct{}),
	}

	s.broker = broker.NewBroker(ctx, ns)
	s.broker.Start()

	s.importer, err = importer.NewManager(ctx, importer.Config{
		Fs:            opts.Fs,
		StorageDir:    cfg.StorageDir,
		Clock:         opts.Clock,
		Notifications: ns,
		Workers:       cfg.ImportWorkers(),
		QueueSize:     cfg.ImportQueueSize(),
	})
	if err != nil {
		cancel()
		<-s.broker.Done()
		if closeErr := pp.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing preference database")
		}
		return nil, fmt.Errorf("failed to create import manager: %w", err)
	}
	log.Info().Msg("starting import workers")
	s.importer.Start()

	rescans, _ := s.broker.Subscribe(
		subscriberBuffer,
		models.NotificationImportFinished,
		models.NotificationLibraryChanged,
	)
	s.wg.Add(2)
	go s.listenRescans(rescans)
	go s.followBaseDir(cfg.SubscribeBaseDir(ctx))

	log.Info().Str("base_dir", cfg.BaseDir()).Msg("library service started")
	return s, nil
}

// listenRescans rescans after a successful import and after the watcher
// reports a change.
func (s *Service) listenRescans(ch <-chan models.Notification) {
	defer s.wg.Done()
	for n := range ch {
		if !needsRescan(n) {
			continue
		}
		if _, err := s.ScanForGames(s.ctx); err != nil && s.ctx.Err() == nil {
			log.Error().Err(err).Str("trigger", n.Method).Msg("rescan failed")
		}
	}
}

func needsRescan(n models.Notification) bool {
	switch n.Method {
	case models.NotificationLibraryChanged:
		return true
	case models.NotificationImportFinished:
		var params models.ImportFinishedParams
		if err := json.Unmarshal(n.Params, &params); err != nil {
			log.Warn().Err(err).Msg("failed to decode import result")
			return false
		}
		return params.State == string(importer.StateSucceeded)
	default:
		return false
	}
}

// followBaseDir re-points the watcher and rescans whenever the base
// directory setting changes.
func (s *Service) followBaseDir(dirs <-chan string) {
	defer s.wg.Done()
	for dir := range dirs {
		log.Info().Str("base_dir", dir).Msg("base directory changed")
		s.watch(dir)
		if dir == "" {
			continue
		}
		if _, err := s.ScanForGames(s.ctx); err != nil && s.ctx.Err() == nil {
			log.Error().Err(err).Msg("scan after base directory change failed")
		}
	}
}

func (s *Service) watch(dir string) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()

	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing library watcher")
		}
		s.watcher = nil
	}
	if dir == "" || !s.cfg.WatchLibrary() || s.ctx.Err() != nil {
		return
	}

	w, err := library.NewWatcher(dir, s.clock, s.debounce, func(paths []string) {
		notifications.LibraryChanged(s.ctx, s.ns, models.LibraryChangedParams{
			BaseDir: dir,
			Paths:   paths,
		})
	})
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("library watcher not started")
		return
	}
	s.watcher = w
}

// ScanForGames scans the base directory, stores the result as the current
// snapshot and publishes it. A result overtaken by a newer scan is only
// returned.
func (s *Service) ScanForGames(ctx context.Context) ([]library.Game, error) {
	s.gamesMu.Lock()
	s.scanSeq++
	seq := s.scanSeq
	s.gamesMu.Unlock()

	games, err := s.repo.ScanForGames(ctx)
	if err != nil {
		return nil, err
	}

	s.gamesMu.Lock()
	// a slower scan that started earlier must not replace a newer result
	stored := seq > s.storedSeq
	if stored {
		s.storedSeq = seq
		s.games = games
	}
	s.gamesMu.Unlock()

	if !stored {
		log.Debug().Uint64("scan", seq).Msg("discarding result of a stale scan")
		return games, nil
	}

	summaries := make([]models.GameSummary, 0, len(games))
	for i := range games {
		summaries = append(summaries, games[i].Summary())
	}
	notifications.LibraryScanned(s.ns, models.LibraryScannedParams{
		BaseDir: s.repo.BaseDir(),
		Games:   summaries,
	})
	return games, nil
}

// ScanAsync runs ScanForGames in the background. The channel receives
// exactly one result. The scan stops early when either ctx or the service
// is done.
func (s *Service) ScanAsync(ctx context.Context) <-chan ScanResult {
	out := make(chan ScanResult, 1)
	if !s.track() {
		out <- ScanResult{Err: context.Canceled}
		return out
	}

	sctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)

	go func() {
		defer s.wg.Done()
		defer cancel()
		defer stop()
		games, err := s.ScanForGames(sctx)
		out <- ScanResult{Games: games, Err: err}
	}()
	return out
}

// track registers a background goroutine with the service. It reports
// false once Stop has begun.
func (s *Service) track() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.stopped {
		return false
	}
	s.wg.Add(1)
	return true
}

// CreateGame builds a single game without touching the snapshot.
func (s *Service) CreateGame(ctx context.Context, dir string) (*library.Game, bool) {
	return s.repo.CreateGame(ctx, dir)
}

// Games returns the latest scan snapshot.
func (s *Service) Games() []library.Game {
	s.gamesMu.RLock()
	defer s.gamesMu.RUnlock()
	games := make([]library.Game, len(s.games))
	copy(games, s.games)
	return games
}

// Game looks up a game in the latest snapshot by its directory name.
func (s *Service) Game(id string) (*library.Game, error) {
	s.gamesMu.RLock()
	defer s.gamesMu.RUnlock()
	for i := range s.games {
		if s.games[i].ID() == id {
			game := s.games[i]
			return &game, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrGameNotFound, id)
}

// FindGame matches query against the latest snapshot.
func (s *Service) FindGame(query string) (*library.Game, []library.Suggestion) {
	return library.FindGame(s.Games(), query)
}

// Provide returns the preference store of a game.
func (s *Service) Provide(key string) *prefs.Store {
	return s.prefs.Provide(key)
}

// LaunchCommand builds the engine arguments for game from its stored
// preferences.
func (s *Service) LaunchCommand(game *library.Game) ([]string, error) {
	return library.LaunchCommand(game, s.prefs.Provide(game.ID()).Get())
}

// SubmitImport queues an import. The library is rescanned once it
// succeeds.
func (s *Service) SubmitImport(src importer.Source) (*importer.Job, error) {
	return s.importer.Submit(src)
}

func (s *Service) ImportJob(id string) (*importer.Job, error) {
	return s.importer.Job(id)
}

func (s *Service) ImportJobs() []importer.Progress {
	return s.importer.Jobs()
}

// UninstallGame removes the game's files and stored preferences, then
// rescans so the snapshot no longer lists it.
func (s *Service) UninstallGame(ctx context.Context, game *library.Game) error {
	if err := s.repo.UninstallGame(ctx, game); err != nil {
		return err
	}
	if err := s.prefs.Delete(game.ID()); err != nil {
		log.Warn().Err(err).Str("game", game.ID()).Msg("failed to delete preferences")
	}
	if _, err := s.ScanForGames(ctx); err != nil {
		log.Error().Err(err).Msg("rescan after uninstall failed")
	}
	return nil
}

// SetBaseDir changes the scanned directory. The change is persisted and
// picked up by the rescan listener.
func (s *Service) SetBaseDir(dir string) error {
	return s.cfg.SetBaseDir(dir)
}

// Subscribe returns a channel of notifications, optionally limited to the
// given methods.
func (s *Service) Subscribe(bufferSize int, methods ...string) (notifChan <-chan models.Notification, id int) {
	return s.broker.Subscribe(bufferSize, methods...)
}

func (s *Service) Unsubscribe(id int) {
	s.broker.Unsubscribe(id)
}

// Done is closed once Stop has finished.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Stop cancels running work, waits for every background goroutine and
// closes the preference database. It is safe to call more than once.
func (s *Service) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		log.Info().Msg("stopping library service")
		s.stateMu.Lock()
		s.stopped = true
		s.stateMu.Unlock()

		s.cancel()
		s.watch("")
		s.importer.Stop()
		<-s.broker.Done()
		s.wg.Wait()
		if closeErr := s.prefs.Close(); closeErr != nil {
			err = closeErr
		}
		close(s.done)
		log.Info().Msg("library service stopped")
	})
	<-s.done
	return err
}
