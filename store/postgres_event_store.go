package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sitestats/api/models"
)

// PostgresEventStore keeps events in the analytics_events Postgres table.
type PostgresEventStore struct {
	db *sql.DB
}

func NewPostgresEventStore(db *sql.DB) *PostgresEventStore {
	return &PostgresEventStore{db: db}
}

func (s *PostgresEventStore) InsertEvent(ctx context.Context, event models.Event) error {
	query := `
		INSERT INTO analytics_events (
			page_url, page_title, referrer, user_agent, device_type, browser, browser_version,
			os, country, city, session_id, visitor_id, event_type, duration_seconds
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	var duration sql.NullFloat64
	if event.DurationSeconds != nil {
		duration = sql.NullFloat64{Float64: *event.DurationSeconds, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		event.PageURL, event.PageTitle, event.Referrer, event.UserAgent, event.DeviceType,
		event.Browser, event.BrowserVersion, event.OS, event.Country, event.City,
		event.SessionID, event.VisitorID, event.EventType, duration,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analytics event: %w", err)
	}
	return nil
}

func (s *PostgresEventStore) EventsSince(ctx context.Context, since time.Time, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	query := `
		SELECT id, page_url, page_title, referrer, user_agent, device_type, browser, browser_version,
			os, country, city, session_id, visitor_id, event_type, duration_seconds, created_at
		FROM analytics_events
		WHERE created_at >= $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics events: %w", err)
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		var (
			e        models.Event
			duration sql.NullFloat64
		)
		if err := rows.Scan(
			&e.ID, &e.PageURL, &e.PageTitle, &e.Referrer, &e.UserAgent, &e.DeviceType, &e.Browser,
			&e.BrowserVersion, &e.OS, &e.Country, &e.City, &e.SessionID, &e.VisitorID, &e.EventType,
			&duration, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan analytics event: %w", err)
		}
		if duration.Valid {
			d := duration.Float64
			e.DurationSeconds = &d
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analytics events: %w", err)
	}

	return events, nil
}
