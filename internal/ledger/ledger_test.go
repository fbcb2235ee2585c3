package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-jobwatch/internal/models"
	"go-jobwatch/internal/storage"
)

var nvidia = models.Target{Name: "NVIDIA", URL: "https://nvidia.example", Slot: "nvidia"}

type failingStore struct {
	*storage.MemoryStore
	failSave bool
	failLoad bool
}

func (f *failingStore) Load(ctx context.Context, slot string) ([]byte, error) {
	if f.failLoad {
		return nil, errors.New("disk on fire")
	}
	return f.MemoryStore.Load(ctx, slot)
}

func (f *failingStore) Save(ctx context.Context, slot string, data []byte) error {
	if f.failSave {
		return errors.New("disk full")
	}
	return f.MemoryStore.Save(ctx, slot, data)
}

func TestRecordIsMonotonic(t *testing.T) {
	ctx := context.Background()
	l := New(storage.NewMemoryStore(), zerolog.Nop())

	batches := [][]string{
		{"Intern A", "Intern B"},
		{"Intern B"},
		{},
		{"Intern C", "Intern A", " Intern   C "},
		{"Intern D"},
	}

	previous := 0
	for i, batch := range batches {
		_, err := l.Record(ctx, nvidia, batch)
		require.NoError(t, err)
		known, err := l.Known(ctx, nvidia)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(known), previous, "batch %d shrank the ledger", i)
		previous = len(known)
	}
	assert.Equal(t, 4, previous)
}

func TestRecordCountsOnlyNewItems(t *testing.T) {
	ctx := context.Background()
	l := New(storage.NewMemoryStore(), zerolog.Nop())

	first, err := l.IsFirstPopulation(ctx, nvidia)
	require.NoError(t, err)
	assert.True(t, first)

	added, err := l.Record(ctx, nvidia, []string{"Intern A", "Intern B"})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	first, err = l.IsFirstPopulation(ctx, nvidia)
	require.NoError(t, err)
	assert.False(t, first)

	added, err = l.Record(ctx, nvidia, []string{"Intern B", "Intern C"})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	unknown, err := l.Unknown(ctx, nvidia, []string{"Intern A", "Intern Z"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Intern Z"}, unknown)
}

func TestLedgerPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	_, err := New(store, zerolog.Nop()).Record(ctx, nvidia, []string{"Intern A"})
	require.NoError(t, err)

	known, err := New(store, zerolog.Nop()).Known(ctx, nvidia)
	require.NoError(t, err)
	assert.Equal(t, []string{"Intern A"}, known)
}

func TestPartitionsAreIndependent(t *testing.T) {
	ctx := context.Background()
	l := New(storage.NewMemoryStore(), zerolog.Nop())
	intel := models.Target{Name: "Intel", URL: "https://intel.example", Slot: "intel"}

	_, err := l.Record(ctx, nvidia, []string{"Intern A"})
	require.NoError(t, err)

	known, err := l.Known(ctx, intel)
	require.NoError(t, err)
	assert.Empty(t, known)
}

func TestCorruptSlotStartsEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Save(ctx, nvidia.LedgerSlot(), []byte("{not json")))

	l := New(store, zerolog.Nop())
	first, err := l.IsFirstPopulation(ctx, nvidia)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestFailedSaveRollsBack(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: storage.NewMemoryStore()}
	l := New(store, zerolog.Nop())

	_, err := l.Record(ctx, nvidia, []string{"Intern A"})
	require.NoError(t, err)

	store.failSave = true
	_, err = l.Record(ctx, nvidia, []string{"Intern B"})
	assert.Error(t, err)

	known, err := l.Known(ctx, nvidia)
	require.NoError(t, err)
	assert.Equal(t, []string{"Intern A"}, known)
}

func TestLoadErrorIsReported(t *testing.T) {
	l := New(&failingStore{MemoryStore: storage.NewMemoryStore(), failLoad: true}, zerolog.Nop())

	_, err := l.Known(context.Background(), nvidia)
	assert.Error(t, err)
}

func TestConcurrentRecord(t *testing.T) {
	ctx := context.Background()
	l := New(storage.NewMemoryStore(), zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.Record(ctx, nvidia, []string{fmt.Sprintf("Intern %d", i%10)})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	known, err := l.Known(ctx, nvidia)
	require.NoError(t, err)
	assert.Len(t, known, 10)
}

func TestReadEntriesSeesOtherWriters(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	reader := New(store, zerolog.Nop())

	cached, err := reader.Entries(ctx, nvidia)
	require.NoError(t, err)
	assert.Empty(t, cached)

	_, err = New(store, zerolog.Nop()).Record(ctx, nvidia, []string{"Intern B", "Intern A"})
	require.NoError(t, err)

	fresh, err := ReadEntries(ctx, store, nvidia)
	require.NoError(t, err)
	require.Len(t, fresh, 2)
	assert.Equal(t, "Intern A", fresh[0].Item, "same first-seen time sorts by item")

	require.NoError(t, store.Save(ctx, nvidia.LedgerSlot(), []byte("{not json")))
	fresh, err = ReadEntries(ctx, store, nvidia)
	require.NoError(t, err)
	assert.Empty(t, fresh)

	_, err = ReadEntries(ctx, &failingStore{MemoryStore: storage.NewMemoryStore(), failLoad: true}, nvidia)
	assert.Error(t, err)
}
