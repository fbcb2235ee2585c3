package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobwatch/internal/config"
	"go-jobwatch/internal/models"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "state"), logger)
	require.NoError(t, err)

	sqliteStore, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "watch.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	stores := map[string]Store{
		"file":   fileStore,
		"sqlite": sqliteStore,
		"memory": NewMemoryStore(),
	}

	if dsn := os.Getenv("JOBWATCH_TEST_DATABASE_URL"); dsn != "" {
		pg, err := NewPostgresStore(ctx, dsn, logger)
		require.NoError(t, err)
		t.Cleanup(func() { pg.Close() })
		stores["postgres"] = pg
	}
	return stores
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			data, err := store.Load(ctx, "nvidia.fingerprint")
			require.NoError(t, err)
			assert.Nil(t, data, "missing slot should load as nil")

			require.NoError(t, store.Save(ctx, "nvidia.fingerprint", []byte("first")))
			require.NoError(t, store.Save(ctx, "nvidia.fingerprint", []byte("second")))

			data, err = store.Load(ctx, "nvidia.fingerprint")
			require.NoError(t, err)
			assert.Equal(t, "second", string(data))

			other, err := store.Load(ctx, "intel.fingerprint")
			require.NoError(t, err)
			assert.Nil(t, other)
		})
	}
}

func TestStoreRejectsUnsafeSlots(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Save(ctx, "../escape", []byte("x"))
			assert.True(t, errors.Is(err, ErrInvalidSlot))

			_, err = store.Load(ctx, "Upper Case")
			assert.True(t, errors.Is(err, ErrInvalidSlot))
		})
	}
}

func TestOverlayKeepsBaseUntouched(t *testing.T) {
	ctx := context.Background()
	base := NewMemoryStore()
	require.NoError(t, base.Save(ctx, "a.fingerprint", []byte("base")))

	overlay := NewOverlay(base)
	data, err := overlay.Load(ctx, "a.fingerprint")
	require.NoError(t, err)
	assert.Equal(t, "base", string(data))

	require.NoError(t, overlay.Save(ctx, "a.fingerprint", []byte("dry")))
	data, err = overlay.Load(ctx, "a.fingerprint")
	require.NoError(t, err)
	assert.Equal(t, "dry", string(data))

	data, err = base.Load(ctx, "a.fingerprint")
	require.NoError(t, err)
	assert.Equal(t, "base", string(data))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, config.StorageConfig{Backend: "file", Path: t.TempDir()}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	_, err = Open(ctx, config.StorageConfig{Backend: "redis"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestValidateDigest(t *testing.T) {
	good := strings.Repeat("ab", 32)

	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", good, false},
		{"valid with newline", good + "\n", false},
		{"too short", "abc123", true},
		{"uppercase", strings.ToUpper(good), true},
		{"md5 length", strings.Repeat("a", 32), true},
		{"garbage", "{\"json\":true}", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			digest, err := ValidateDigest([]byte(tt.input))
			if tt.wantErr {
				assert.True(t, errors.Is(err, models.ErrCorruptSlot))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, good, digest)
		})
	}
}

func TestImageSlot(t *testing.T) {
	img := []byte(strings.Repeat("\x89PNG-bytes", 20))

	decoded, err := DecodeImageSlot(EncodeImageSlot(img))
	require.NoError(t, err)
	assert.Equal(t, img, decoded)

	_, err = DecodeImageSlot([]byte("c2hvcnQ="))
	assert.True(t, errors.Is(err, models.ErrCorruptSlot))

	_, err = DecodeImageSlot([]byte(strings.Repeat("not base64 at all! ", 10)))
	assert.True(t, errors.Is(err, models.ErrCorruptSlot))
}
