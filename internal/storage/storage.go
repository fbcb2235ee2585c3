// Package storage persists named slots (fingerprints, observations, ledgers,
// run state) behind one small interface with file, sqlite and postgres
// backends.
package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/rs/zerolog"

	"go-jobwatch/internal/config"
)

const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// RunStateSlot holds the JSON encoded models.RunState
const RunStateSlot = "run_state"

var ErrInvalidSlot = errors.New("invalid slot name")

var slotRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)

// Store reads and writes opaque blobs by slot name.
// Load returns nil, nil for a slot that was never written.
type Store interface {
	Load(ctx context.Context, slot string) ([]byte, error)
	Save(ctx context.Context, slot string, data []byte) error
	Close() error
}

// ValidSlot reports whether a slot name is safe for every backend
func ValidSlot(slot string) bool {
	return slotRegex.MatchString(slot)
}

func checkSlot(slot string) error {
	if !ValidSlot(slot) {
		return fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	return nil
}

// Open builds the configured backend
func Open(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (Store, error) {
	logger = logger.With().Str("component", "storage").Str("backend", cfg.Backend).Logger()

	switch cfg.Backend {
	case BackendFile, "":
		return NewFileStore(cfg.Path, logger)
	case BackendSQLite:
		return NewSQLiteStore(ctx, cfg.Path, logger)
	case BackendPostgres:
		return NewPostgresStore(ctx, cfg.DSN, logger)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
