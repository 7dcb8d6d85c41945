// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/mohsaqr/designtrace/internal/domain"
)

// Repository defines the interface for the append-only design-event log.
type Repository interface {
	// InsertEvents appends a batch of events. Rows whose
	// (design_session_id, seq) pair already exists are silently skipped,
	// which makes redelivered batches idempotent. Returns the number of
	// rows actually inserted.
	InsertEvents(ctx context.Context, events []domain.DesignEvent) (int64, error)

	// ListEventsByConfig returns events for one agent configuration in
	// (timestamp, seq) order. Category filters when non-empty; limit <= 0
	// means no limit beyond the caller's own cap.
	ListEventsByConfig(ctx context.Context, agentConfigID string, category domain.Category, limit, offset int) ([]domain.DesignEvent, error)

	// CountEventsByConfig counts events for one agent configuration,
	// optionally filtered by category.
	CountEventsByConfig(ctx context.Context, agentConfigID string, category domain.Category) (int64, error)

	// ListEventsByAssignment returns all events for an assignment in
	// (timestamp, seq) order.
	ListEventsByAssignment(ctx context.Context, assignmentID string) ([]domain.DesignEvent, error)

	// LatestSnapshotEvent returns the most recent draft_saved or
	// submission_completed event for the configuration at or before the
	// given instant, or nil if none exists.
	LatestSnapshotEvent(ctx context.Context, agentConfigID string, at time.Time) (*domain.DesignEvent, error)

	// PurgeEventsBefore deletes events older than the cutoff and returns
	// the number deleted.
	PurgeEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
