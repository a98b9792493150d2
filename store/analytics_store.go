package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"sitestats/api/database"
	"sitestats/api/models"
)

// AnalyticsStore keeps events in ClickHouse.
type AnalyticsStore struct {
	DB     *database.ClickHouseClient
	logger *logrus.Logger
}

func NewAnalyticsStore(chClient *database.ClickHouseClient, logger *logrus.Logger) *AnalyticsStore {
	return &AnalyticsStore{
		DB:     chClient,
		logger: logger,
	}
}

const insertEventCH = `
	INSERT INTO analytics_events (
		page_url, page_title, referrer, user_agent, device_type, browser, browser_version,
		os, country, city, session_id, visitor_id, event_type, duration_seconds
	)`

func (s *AnalyticsStore) InsertEvent(ctx context.Context, event models.Event) error {
	batch, err := s.DB.Conn.PrepareBatch(ctx, insertEventCH)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}

	err = batch.Append(
		event.PageURL,
		event.PageTitle,
		event.Referrer,
		event.UserAgent,
		event.DeviceType,
		event.Browser,
		event.BrowserVersion,
		event.OS,
		event.Country,
		event.City,
		event.SessionID,
		event.VisitorID,
		event.EventType,
		event.DurationSeconds,
	)
	if err != nil {
		_ = batch.Abort()
		return fmt.Errorf("failed to append event: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send insert: %w", err)
	}

	s.logger.WithField("session_id", event.SessionID).Debug("inserted analytics event")
	return nil
}

const selectEventsSinceCH = `
	SELECT
		toString(id), page_url, page_title, referrer, user_agent, device_type, browser, browser_version,
		os, country, city, session_id, visitor_id, event_type, duration_seconds, created_at
	FROM analytics_events
	WHERE created_at >= ?
	ORDER BY created_at DESC
	LIMIT ?`

func (s *AnalyticsStore) EventsSince(ctx context.Context, since time.Time, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	rows, err := s.DB.Conn.Query(ctx, selectEventsSinceCH, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics events: %w", err)
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(
			&e.ID, &e.PageURL, &e.PageTitle, &e.Referrer, &e.UserAgent, &e.DeviceType, &e.Browser,
			&e.BrowserVersion, &e.OS, &e.Country, &e.City, &e.SessionID, &e.VisitorID, &e.EventType,
			&e.DurationSeconds, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan analytics event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analytics events: %w", err)
	}

	return events, nil
}
