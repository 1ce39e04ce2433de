package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"almanac/internal/calendar"
	"almanac/internal/config"
	"almanac/internal/events"
	logx "almanac/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg *config.StorageConfig, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if raw := strings.TrimSpace(cfg.BusyTimeout); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", d.Milliseconds()))
		}
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) SaveState(ctx context.Context, st State) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if st.SavedAt.IsZero() {
		st.SavedAt = time.Now()
	}
	var (
		eventID, eventName              any
		startDay, startMonth, startYear any
		daysRemaining, endCommands      any
	)
	if a := st.Active; a != nil {
		eventID, eventName = a.ID, a.Name
		startDay, startMonth, startYear = a.StartedOn.Day, a.StartedOn.Month, a.StartedOn.Year
		daysRemaining = a.DaysRemaining
		if len(a.EndCommands) > 0 {
			b, err := json.Marshal(a.EndCommands)
			if err != nil {
				return fmt.Errorf("encode end commands: %w", err)
			}
			endCommands = string(b)
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO calendar_state(id, day, month, year, host_ticks, tick_accumulator,
		                            event_id, event_name, event_start_day, event_start_month,
		                            event_start_year, event_days_remaining, event_end_commands, saved_at)
		 VALUES(1,?,?,?,?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   day=excluded.day, month=excluded.month, year=excluded.year,
		   host_ticks=excluded.host_ticks, tick_accumulator=excluded.tick_accumulator,
		   event_id=excluded.event_id, event_name=excluded.event_name,
		   event_start_day=excluded.event_start_day, event_start_month=excluded.event_start_month,
		   event_start_year=excluded.event_start_year, event_days_remaining=excluded.event_days_remaining,
		   event_end_commands=excluded.event_end_commands, saved_at=excluded.saved_at`,
		st.Date.Day, st.Date.Month, st.Date.Year, st.HostTicks, st.TickAccumulator,
		eventID, eventName, startDay, startMonth, startYear, daysRemaining, endCommands,
		st.SavedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *sqliteStore) LoadState(ctx context.Context) (*State, error) {
	if s == nil || s.db == nil {
		return nil, ErrDisabled
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT day, month, year, host_ticks, tick_accumulator,
		        event_id, event_name, event_start_day, event_start_month,
		        event_start_year, event_days_remaining, event_end_commands, saved_at
		   FROM calendar_state WHERE id = 1`)

	var (
		st          State
		eventID     sql.NullString
		eventName   sql.NullString
		sd, sm      sql.NullInt64
		sy, rem     sql.NullInt64
		endCommands sql.NullString
		savedAt     string
	)
	err := row.Scan(&st.Date.Day, &st.Date.Month, &st.Date.Year,
		&st.HostTicks, &st.TickAccumulator,
		&eventID, &eventName, &sd, &sm, &sy, &rem, &endCommands, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if t, err := time.Parse(time.RFC3339Nano, savedAt); err == nil {
		st.SavedAt = t
	}
	if eventID.Valid && eventID.String != "" {
		a := &events.Active{
			ID:   eventID.String,
			Name: eventName.String,
			StartedOn: calendar.Date{
				Day:   int(sd.Int64),
				Month: int(sm.Int64),
				Year:  int(sy.Int64),
			},
			DaysRemaining: int(rem.Int64),
		}
		if endCommands.Valid && endCommands.String != "" {
			if err := json.Unmarshal([]byte(endCommands.String), &a.EndCommands); err != nil {
				s.log.Warn("discarding malformed end commands", logx.String("event_id", a.ID), logx.Err(err))
			}
		}
		st.Active = a
	}
	return &st, nil
}

func (s *sqliteStore) AppendDay(ctx context.Context, date calendar.Date) error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO day_log(at, day, month, year, season) VALUES(?,?,?,?,?)`,
		time.Now().Format(time.RFC3339Nano),
		date.Day, date.Month, date.Year, date.Season().Key(),
	)
	return err
}
