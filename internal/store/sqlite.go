package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mohsaqr/designtrace/internal/domain"
	"github.com/mohsaqr/designtrace/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed event log.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS design_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		event_category TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		session_id TEXT NOT NULL,
		design_session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		user_id TEXT NOT NULL,
		assignment_id TEXT NOT NULL,
		agent_config_id TEXT,
		version INTEGER NOT NULL DEFAULT 0,
		active_tab TEXT,
		total_design_time INTEGER NOT NULL DEFAULT 0,
		payload TEXT,
		UNIQUE(design_session_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_events_config_ts ON design_events(agent_config_id, timestamp, seq);
	CREATE INDEX IF NOT EXISTS idx_events_assignment ON design_events(assignment_id, timestamp, seq);
	CREATE INDEX IF NOT EXISTS idx_events_ts ON design_events(timestamp);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// InsertEvents appends a batch inside one transaction, retrying on SQLite
// concurrency errors with exponential backoff. Redelivered rows are skipped
// via INSERT OR IGNORE on the (design_session_id, seq) unique index.
func (s *SQLiteStore) InsertEvents(ctx context.Context, events []domain.DesignEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var inserted int64
	var err error
	for i := 0; i < maxRetries; i++ {
		inserted, err = s.insertEventsOnce(ctx, events)
		if err == nil {
			return inserted, nil
		}

		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // 100ms, 200ms, 400ms
			slog.Debug("InsertEvents hit SQLITE_BUSY, retrying",
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}
		break
	}
	return 0, fmt.Errorf("insert events after retries: %w", err)
}

// insertEventsOnce performs a single transactional insert attempt.
func (s *SQLiteStore) insertEventsOnce(ctx context.Context, events []domain.DesignEvent) (int64, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
	INSERT OR IGNORE INTO design_events (
		event_type, event_category, timestamp, session_id, design_session_id,
		seq, user_id, assignment_id, agent_config_id, version, active_tab,
		total_design_time, payload
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			slog.Warn("failed to close insert statement", "error", closeErr)
		}
	}()

	var inserted int64
	for _, ev := range events {
		var payload interface{}
		if ev.Payload != nil {
			data, marshalErr := json.Marshal(ev.Payload)
			if marshalErr != nil {
				return 0, fmt.Errorf("encode %s payload: %w", ev.EventType, marshalErr)
			}
			payload = string(data)
		}

		var agentConfigID interface{}
		if ev.AgentConfigID != "" {
			agentConfigID = ev.AgentConfigID
		}

		res, execErr := stmt.ExecContext(ctx,
			string(ev.EventType), string(ev.Category), ev.Timestamp.UnixMilli(),
			ev.SessionID, ev.DesignSessionID, ev.Seq,
			ev.UserID, ev.AssignmentID, agentConfigID,
			ev.Version, ev.ActiveTab, ev.TotalDesignTime, payload,
		)
		if execErr != nil {
			return 0, fmt.Errorf("insert event: %w", execErr)
		}
		rows, raErr := res.RowsAffected()
		if raErr != nil {
			return 0, fmt.Errorf("insert rows affected: %w", raErr)
		}
		inserted += rows
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert tx: %w", err)
	}
	return inserted, nil
}

const eventColumns = `event_type, event_category, timestamp, session_id,
	design_session_id, seq, user_id, assignment_id, agent_config_id,
	version, active_tab, total_design_time, payload`

func scanEvent(scan func(dest ...interface{}) error) (domain.DesignEvent, error) {
	var ev domain.DesignEvent
	var eventType, category string
	var ts int64
	var agentConfigID, activeTab, payload sql.NullString

	err := scan(
		&eventType, &category, &ts, &ev.SessionID,
		&ev.DesignSessionID, &ev.Seq, &ev.UserID, &ev.AssignmentID,
		&agentConfigID, &ev.Version, &activeTab, &ev.TotalDesignTime, &payload,
	)
	if err != nil {
		return ev, fmt.Errorf("scan event row: %w", err)
	}

	ev.EventType = domain.EventType(eventType)
	ev.Category = domain.Category(category)
	ev.Timestamp = time.UnixMilli(ts)
	ev.AgentConfigID = agentConfigID.String
	ev.ActiveTab = activeTab.String

	if payload.Valid {
		p, decodeErr := domain.DecodePayload(ev.EventType, []byte(payload.String))
		if decodeErr != nil {
			// A malformed stored payload degrades to an envelope-only
			// event rather than failing the whole listing.
			slog.Warn("failed to decode stored payload",
				"event_type", eventType, "error", decodeErr)
		} else {
			ev.Payload = p
		}
	}
	return ev, nil
}

func (s *SQLiteStore) queryEvents(ctx context.Context, query string, args ...interface{}) ([]domain.DesignEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close event rows", "error", closeErr)
		}
	}()

	var events []domain.DesignEvent
	for rows.Next() {
		ev, scanErr := scanEvent(rows.Scan)
		if scanErr != nil {
			return nil, scanErr
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ListEventsByConfig returns events for one agent configuration in
// (timestamp, seq) order.
func (s *SQLiteStore) ListEventsByConfig(ctx context.Context, agentConfigID string, category domain.Category, limit, offset int) ([]domain.DesignEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM design_events WHERE agent_config_id = ?`
	args := []interface{}{agentConfigID}

	if category != "" {
		query += ` AND event_category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY timestamp, seq`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	return s.queryEvents(ctx, query, args...)
}

// CountEventsByConfig counts events for one agent configuration.
func (s *SQLiteStore) CountEventsByConfig(ctx context.Context, agentConfigID string, category domain.Category) (int64, error) {
	query := `SELECT COUNT(*) FROM design_events WHERE agent_config_id = ?`
	args := []interface{}{agentConfigID}
	if category != "" {
		query += ` AND event_category = ?`
		args = append(args, string(category))
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

// ListEventsByAssignment returns all events for an assignment.
func (s *SQLiteStore) ListEventsByAssignment(ctx context.Context, assignmentID string) ([]domain.DesignEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM design_events
		WHERE assignment_id = ? ORDER BY timestamp, seq`
	return s.queryEvents(ctx, query, assignmentID)
}

// LatestSnapshotEvent returns the newest snapshot-bearing event at or
// before the given instant, or nil when the configuration has none.
func (s *SQLiteStore) LatestSnapshotEvent(ctx context.Context, agentConfigID string, at time.Time) (*domain.DesignEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM design_events
		WHERE agent_config_id = ?
		  AND event_type IN (?, ?)
		  AND timestamp <= ?
		ORDER BY timestamp DESC, seq DESC LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, agentConfigID,
		string(domain.EventDraftSaved), string(domain.EventSubmissionCompleted),
		at.UnixMilli())

	ev, err := scanEvent(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// PurgeEventsBefore deletes events older than the cutoff.
func (s *SQLiteStore) PurgeEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM design_events WHERE timestamp < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge events: %w", err)
	}
	return res.RowsAffected()
}
