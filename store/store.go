package store

import (
	"context"
	"errors"
	"time"

	"sitestats/api/models"
)

// DefaultQueryLimit caps the number of events read for one aggregation window.
const DefaultQueryLimit = 10000

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint rejects an insert.
var ErrDuplicate = errors.New("already exists")

// EventStore persists analytics events and reads them back by window.
type EventStore interface {
	InsertEvent(ctx context.Context, event models.Event) error
	// EventsSince returns events with created_at >= since, newest first,
	// at most limit rows.
	EventsSince(ctx context.Context, since time.Time, limit int) ([]models.Event, error)
}
