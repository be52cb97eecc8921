// internal/store/memory.go
//
// High-score ledger: every time a live game beats its high score, the HTTP
// layer records an Entry here. The ledger keeps the best entry per player
// name. The live game state itself is never persisted.
//
// This file holds the Store interface and its in-memory implementation, used
// when DB_PATH is unset and in tests.
//
// Characteristics:
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// ErrInvalidEntry is returned for entries with no name or a non-positive score.
var ErrInvalidEntry = errors.New("store: invalid entry")

// Entry is one recorded high score.
type Entry struct {
	Name  string    `json:"name"`
	Score int       `json:"score"`
	Level int       `json:"level"`
	At    time.Time `json:"at"`
}

// Store defines the persistence interface for the high-score ledger.
type Store interface {
	// Record stores e unless the ledger already holds a score >= e.Score for
	// the same name.
	Record(ctx context.Context, e Entry) error

	// Top returns up to limit entries ordered by score desc, then oldest first.
	Top(ctx context.Context, limit int) ([]Entry, error)
}

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu      sync.RWMutex     // guards entries
	entries map[string]Entry // keyed by Entry.Name
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{entries: make(map[string]Entry)}
}

func (m *memory) Record(ctx context.Context, e Entry) error {
	e, err := normalize(e)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.entries[e.Name]; ok && prev.Score >= e.Score {
		return nil
	}
	m.entries[e.Name] = e
	return nil
}

func (m *memory) Top(ctx context.Context, limit int) ([]Entry, error) {
	limit = ClampLimit(limit)
	m.mu.RLock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ClampLimit maps non-positive limits to DefaultLimit and caps at MaxLimit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

// normalize validates e and stamps a UTC time if missing.
func normalize(e Entry) (Entry, error) {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" || e.Score <= 0 {
		return e, ErrInvalidEntry
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	e.At = e.At.UTC().Truncate(time.Second)
	return e, nil
}
