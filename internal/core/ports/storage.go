package ports

import (
	"context"

	"github.com/tjfontaine/compliance-copilot/internal/core/domain"
)

// JournalStore defines the interface for analysis journal storage
type JournalStore interface {
	// Record saves a settled analysis attempt
	Record(ctx context.Context, entry *domain.JournalEntry) error

	// Get retrieves an entry by ID
	Get(ctx context.Context, id string) (*domain.JournalEntry, error)

	// List lists entries, newest first
	List(ctx context.Context, opts ListOptions) ([]*domain.JournalEntry, error)

	// Close closes the storage connection
	Close() error
}

// ListOptions contains options for listing journal entries
type ListOptions struct {
	SessionID string
	Limit     int
	Offset    int
}
