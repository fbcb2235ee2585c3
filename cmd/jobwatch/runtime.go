package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"go-jobwatch/internal/config"
	"go-jobwatch/internal/fetcher"
	"go-jobwatch/internal/judge"
	"go-jobwatch/internal/ledger"
	"go-jobwatch/internal/logger"
	"go-jobwatch/internal/models"
	"go-jobwatch/internal/notifier"
	"go-jobwatch/internal/storage"
	"go-jobwatch/internal/verifier"
	"go-jobwatch/internal/watcher"
	"go-jobwatch/utils"
)

// runtime holds everything a command may need, closed in reverse order
type runtime struct {
	cfg     *config.Config
	logger  zerolog.Logger
	store   storage.Store
	ledger  *ledger.Ledger
	closers []io.Closer
}

func loadRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, logCloser, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	rt := &runtime{cfg: cfg, logger: log, closers: []io.Closer{logCloser}}
	log.Info().Int("targets", len(cfg.Targets)).Str("storage", cfg.Storage.Backend).Msg("🔧 Config loaded")

	store, err := storage.Open(ctx, cfg.Storage, log)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	rt.store = store
	rt.closers = append(rt.closers, store)
	rt.ledger = ledger.New(store, log)
	return rt, nil
}

// watcher wires the full check pipeline. With dryRun, writes stay in memory
// and the report is only logged.
func (rt *runtime) watcher(ctx context.Context, targets []models.Target, dryRun bool) (*watcher.Watcher, error) {
	cfg := rt.cfg

	store := rt.store
	l := rt.ledger
	if dryRun {
		overlay := storage.NewOverlay(rt.store)
		store = overlay
		l = ledger.New(overlay, rt.logger)
	}

	registry, err := verifier.NewRegistry(ctx, cfg, rt.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build verifiers: %w", err)
	}
	rt.closers = append(rt.closers, closerFunc(registry.Close))

	router := fetcher.NewRouter(cfg, rt.logger)
	rt.closers = append(rt.closers, closerFunc(router.Close))

	policy := judge.Policy{
		ChangeThreshold:     cfg.ChangeThreshold,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		VerifierTimeout:     cfg.VerifierTimeout,
	}
	j := judge.New(l, registry, policy, rt.logger)

	var n notifier.Notifier = notifier.NewLogNotifier(rt.logger)
	if !dryRun && cfg.HasTelegram() {
		tg, err := notifier.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, cfg.NotifyErrors, rt.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to init Telegram: %w", err)
		}
		n = notifier.Multi{n, tg}
	} else if !dryRun {
		rt.logger.Warn().Msg("⚠️ Telegram not configured, reports are only logged")
	}

	opts := watcher.OptionsFromConfig(cfg, registry.AIEnabled())
	if cfg.SaveDebugImages {
		debug, err := utils.NewDiffDebugger(cfg.DebugDir, rt.logger)
		if err != nil {
			rt.logger.Warn().Err(err).Msg("⚠️ Debug images disabled")
		} else {
			opts.Debug = debug
		}
	}

	return watcher.New(targets, router, store, j, n, opts, rt.logger), nil
}

func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// selectTargets narrows the configured targets to one when name is set
func selectTargets(cfg *config.Config, name string) ([]models.Target, error) {
	if name == "" {
		return cfg.Targets, nil
	}
	t, ok := cfg.FindTarget(name)
	if !ok {
		return nil, fmt.Errorf("unknown target %q", name)
	}
	return []models.Target{t}, nil
}
