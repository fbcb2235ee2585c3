// Package ledger keeps, per target, every item identifier ever seen so that a
// listing re-surfacing through pagination or sort order is not mistaken for a
// new posting.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"go-jobwatch/internal/models"
	"go-jobwatch/internal/normalize"
	"go-jobwatch/internal/storage"
)

// Entry is one remembered item
type Entry struct {
	Item      string    `json:"item"`
	FirstSeen time.Time `json:"first_seen"`
}

type partition struct {
	mu     sync.Mutex
	loaded bool
	seen   map[string]time.Time
}

// Ledger is append-only: there is no way to forget an item
type Ledger struct {
	mu         sync.Mutex
	store      storage.Store
	partitions map[string]*partition
	logger     zerolog.Logger
	now        func() time.Time
}

func New(store storage.Store, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:      store,
		partitions: make(map[string]*partition),
		logger:     logger.With().Str("component", "ledger").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// partition returns the locked partition of a target, loading it on first use.
// Callers must unlock it.
func (l *Ledger) partition(ctx context.Context, t models.Target) (*partition, error) {
	slot := t.LedgerSlot()

	l.mu.Lock()
	p, ok := l.partitions[slot]
	if !ok {
		p = &partition{}
		l.partitions[slot] = p
	}
	l.mu.Unlock()

	p.mu.Lock()
	if p.loaded {
		return p, nil
	}
	seen, err := l.load(ctx, t)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	p.seen = seen
	p.loaded = true
	return p, nil
}

// load reads a partition from storage. Corrupt content counts as empty.
func (l *Ledger) load(ctx context.Context, t models.Target) (map[string]time.Time, error) {
	seen, err := read(ctx, l.store, t)
	if errors.Is(err, models.ErrCorruptSlot) {
		l.logger.Warn().Err(err).Str("target", t.Name).Msg("⚠️ Ledger slot is corrupt, starting empty")
		return make(map[string]time.Time), nil
	}
	if err != nil {
		return nil, err
	}
	l.logger.Debug().Str("target", t.Name).Int("items", len(seen)).Msg("📋 Loaded ledger")
	return seen, nil
}

func read(ctx context.Context, store storage.Store, t models.Target) (map[string]time.Time, error) {
	seen := make(map[string]time.Time)

	data, err := store.Load(ctx, t.LedgerSlot())
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger for %s: %w", t.Name, err)
	}
	if data == nil {
		return seen, nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: ledger for %s: %v", models.ErrCorruptSlot, t.Name, err)
	}
	for _, e := range entries {
		item := normalize.Item(e.Item)
		if item == "" {
			continue
		}
		seen[item] = e.FirstSeen
	}
	return seen, nil
}

// ReadEntries decodes the stored ledger of t without caching, for readers in
// another process than the one recording. Corrupt content reads as empty.
func ReadEntries(ctx context.Context, store storage.Store, t models.Target) ([]Entry, error) {
	seen, err := read(ctx, store, t)
	if errors.Is(err, models.ErrCorruptSlot) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, err
	}
	return sortedEntries(seen), nil
}

func sortedEntries(seen map[string]time.Time) []Entry {
	entries := make([]Entry, 0, len(seen))
	for item, ts := range seen {
		entries = append(entries, Entry{Item: item, FirstSeen: ts})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].FirstSeen.Equal(entries[j].FirstSeen) {
			return entries[i].Item < entries[j].Item
		}
		return entries[i].FirstSeen.Before(entries[j].FirstSeen)
	})
	return entries
}

func (l *Ledger) save(ctx context.Context, t models.Target, seen map[string]time.Time) error {
	data, err := json.MarshalIndent(sortedEntries(seen), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}
	if err := l.store.Save(ctx, t.LedgerSlot(), data); err != nil {
		return fmt.Errorf("failed to save ledger for %s: %w", t.Name, err)
	}
	return nil
}

// Known returns the accumulated items of a target, sorted
func (l *Ledger) Known(ctx context.Context, t models.Target) ([]string, error) {
	p, err := l.partition(ctx, t)
	if err != nil {
		return nil, err
	}
	defer p.mu.Unlock()

	items := make([]string, 0, len(p.seen))
	for item := range p.seen {
		items = append(items, item)
	}
	sort.Strings(items)
	return items, nil
}

// Entries returns the items with their first-seen time, oldest first
func (l *Ledger) Entries(ctx context.Context, t models.Target) ([]Entry, error) {
	p, err := l.partition(ctx, t)
	if err != nil {
		return nil, err
	}
	defer p.mu.Unlock()

	return sortedEntries(p.seen), nil
}

// IsFirstPopulation is true while nothing has ever been recorded for t
func (l *Ledger) IsFirstPopulation(ctx context.Context, t models.Target) (bool, error) {
	p, err := l.partition(ctx, t)
	if err != nil {
		return false, err
	}
	defer p.mu.Unlock()
	return len(p.seen) == 0, nil
}

// Record adds the items not yet known and persists immediately. It returns
// how many were genuinely new. On a failed save the in-memory partition is
// rolled back so memory and storage never disagree.
func (l *Ledger) Record(ctx context.Context, t models.Target, items []string) (int, error) {
	p, err := l.partition(ctx, t)
	if err != nil {
		return 0, err
	}
	defer p.mu.Unlock()

	now := l.now()
	var added []string
	for _, item := range normalize.Items(items) {
		if _, ok := p.seen[item]; ok {
			continue
		}
		p.seen[item] = now
		added = append(added, item)
	}
	if len(added) == 0 {
		return 0, nil
	}

	if err := l.save(ctx, t, p.seen); err != nil {
		for _, item := range added {
			delete(p.seen, item)
		}
		return 0, err
	}
	l.logger.Info().Str("target", t.Name).Int("added", len(added)).Int("total", len(p.seen)).Msg("💾 Recorded new items")
	return len(added), nil
}

// Unknown filters items down to those the ledger has never seen
func (l *Ledger) Unknown(ctx context.Context, t models.Target, items []string) ([]string, error) {
	p, err := l.partition(ctx, t)
	if err != nil {
		return nil, err
	}
	defer p.mu.Unlock()

	var out []string
	for _, item := range normalize.Items(items) {
		if _, ok := p.seen[item]; !ok {
			out = append(out, item)
		}
	}
	return out, nil
}
