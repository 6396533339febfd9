// Package journal records settled analysis attempts.
package journal

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/compliance-copilot/internal/core/domain"
	"github.com/tjfontaine/compliance-copilot/internal/core/ports"
)

// PersistTimeout bounds a single journal write.
const PersistTimeout = 5 * time.Second

// NewEntryID returns a fresh journal entry id.
func NewEntryID() string {
	return "anl_" + strings.ReplaceAll(uuid.New().String(), "-", "")
}

// Record stores entry best-effort and returns its id. The write is detached
// from ctx cancellation so a closed browser tab does not drop the entry.
// Failures are logged, never returned.
func Record(ctx context.Context, store ports.JournalStore, entry *domain.JournalEntry, logger *slog.Logger) string {
	if store == nil || entry == nil {
		return ""
	}
	if logger == nil {
		logger = slog.Default()
	}
	if entry.ID == "" {
		entry.ID = NewEntryID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), PersistTimeout)
	defer cancel()

	if err := store.Record(persistCtx, entry); err != nil {
		logger.Warn("failed to record analysis",
			slog.String("entry_id", entry.ID),
			slog.String("session_id", entry.SessionID),
			slog.String("error", err.Error()),
		)
	}
	return entry.ID
}
