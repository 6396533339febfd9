// Package memory provides an in-process analysis journal.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tjfontaine/compliance-copilot/internal/core/domain"
	"github.com/tjfontaine/compliance-copilot/internal/core/ports"
)

// DefaultLimit applies when ListOptions.Limit is zero.
const DefaultLimit = 100

// Store is an in-memory implementation of ports.JournalStore
type Store struct {
	mu      sync.RWMutex
	entries map[string]*domain.JournalEntry
	order   []string
}

var _ ports.JournalStore = (*Store)(nil)

// New creates a new in-memory store
func New() *Store {
	return &Store{
		entries: make(map[string]*domain.JournalEntry),
	}
}

func (s *Store) Record(ctx context.Context, entry *domain.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		return fmt.Errorf("journal entry id is required")
	}
	if _, exists := s.entries[entry.ID]; exists {
		return fmt.Errorf("journal entry %s already exists", entry.ID)
	}

	s.entries[entry.ID] = copyEntry(entry)
	s.order = append(s.order, entry.ID)
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[id]
	if !exists {
		return nil, fmt.Errorf("journal entry %s not found", id)
	}
	return copyEntry(entry), nil
}

func (s *Store) List(ctx context.Context, opts ports.ListOptions) ([]*domain.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type indexed struct {
		pos   int
		entry *domain.JournalEntry
	}
	var matched []indexed
	for i, id := range s.order {
		e := s.entries[id]
		if opts.SessionID != "" && e.SessionID != opts.SessionID {
			continue
		}
		matched = append(matched, indexed{i, e})
	}

	// Newest first; insertion order breaks timestamp ties.
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.entry.CreatedAt.Equal(b.entry.CreatedAt) {
			return a.entry.CreatedAt.After(b.entry.CreatedAt)
		}
		return a.pos > b.pos
	})

	start := opts.Offset
	if start >= len(matched) {
		return []*domain.JournalEntry{}, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	result := make([]*domain.JournalEntry, 0, end-start)
	for _, m := range matched[start:end] {
		result = append(result, copyEntry(m.entry))
	}
	return result, nil
}

func (s *Store) Close() error {
	return nil
}

func copyEntry(e *domain.JournalEntry) *domain.JournalEntry {
	out := *e
	if e.Result != nil {
		r := e.Result.Clone()
		out.Result = &r
	}
	return &out
}
