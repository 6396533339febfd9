package journal

import (
	"fmt"
	"strings"

	"github.com/tjfontaine/compliance-copilot/internal/core/ports"
	"github.com/tjfontaine/compliance-copilot/internal/journal/memory"
	"github.com/tjfontaine/compliance-copilot/internal/journal/sqldb"
)

// Driver names accepted by Open besides the SQL dialects.
const (
	DriverMemory = "memory"
	DriverNone   = "none"
)

// Open returns the journal store for driver. An empty driver selects the
// memory store; DriverNone returns a nil store, which disables journaling.
func Open(driver, dsn string) (ports.JournalStore, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverMemory:
		return memory.New(), nil
	case DriverNone:
		return nil, nil
	default:
		if dsn == "" {
			return nil, fmt.Errorf("journal driver %q requires a dsn", driver)
		}
		store, err := sqldb.New(sqldb.Config{Driver: driver, DSN: dsn})
		if err != nil {
			return nil, fmt.Errorf("failed to open %s journal: %w", driver, err)
		}
		return store, nil
	}
}
