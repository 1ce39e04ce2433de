// Package store persists the calendar between runs: the date triple, the
// host clock, the fractional tick remainder, and the active event snapshot.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"almanac/internal/calendar"
	"almanac/internal/config"
	"almanac/internal/events"
	logx "almanac/pkg/logx"
)

// ErrDisabled is returned by operations on a nil-backed store.
var ErrDisabled = errors.New("storage disabled")

// State is one saved calendar snapshot.
type State struct {
	Date            calendar.Date
	HostTicks       int64
	TickAccumulator float64
	Active          *events.Active
	SavedAt         time.Time
}

// Store is the persistence API used by the app.
type Store interface {
	// LoadState returns the saved snapshot, or (nil, nil) when none exists.
	LoadState(ctx context.Context) (*State, error)
	SaveState(ctx context.Context, st State) error

	// AppendDay records a day boundary in the audit log.
	AppendDay(ctx context.Context, date calendar.Date) error
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg *config.StorageConfig, log logx.Logger) (Store, error) {
	if cfg == nil {
		return nil, nil
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
