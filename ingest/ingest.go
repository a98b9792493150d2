// Package ingest validates submitted page-view events and hands accepted ones
// to the event store.
package ingest

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"sitestats/api/models"
)

// EventInserter is the write side of the event store.
type EventInserter interface {
	InsertEvent(ctx context.Context, event models.Event) error
}

// Recorder observes ingestion outcomes.
type Recorder interface {
	EventAccepted(eventType string)
	EventRejected(reason string)
}

type nopRecorder struct{}

func (nopRecorder) EventAccepted(string) {}
func (nopRecorder) EventRejected(string) {}

// Validate checks the required fields and fills every optional one with an
// explicit default, so no field reaches storage missing.
func Validate(in models.EventInput) (models.Event, error) {
	if in.PageURL == "" || in.VisitorID == "" || in.SessionID == "" {
		return models.Event{}, fmt.Errorf("%w: missing required fields: page_url, visitor_id, session_id", models.ErrInvalidData)
	}

	eventType := models.DefaultEventType
	if in.EventType != nil && *in.EventType != "" {
		eventType = *in.EventType
	}

	var duration *float64
	if in.DurationSeconds != nil {
		d := *in.DurationSeconds
		if d < 0 {
			return models.Event{}, fmt.Errorf("%w: duration_seconds must not be negative", models.ErrInvalidData)
		}
		// zero carries no information and is stored as unknown
		if d > 0 {
			duration = &d
		}
	}

	deviceType := in.DeviceType
	if deviceType == "" {
		deviceType = models.DeviceDesktop
	}

	return models.Event{
		PageURL:         in.PageURL,
		PageTitle:       in.PageTitle,
		Referrer:        in.Referrer,
		UserAgent:       in.UserAgent,
		DeviceType:      deviceType,
		Browser:         in.Browser,
		BrowserVersion:  in.BrowserVersion,
		OS:              in.OS,
		SessionID:       in.SessionID,
		VisitorID:       in.VisitorID,
		EventType:       eventType,
		DurationSeconds: duration,
	}, nil
}

// Service validates and stores events. Inserts are attempted once.
type Service struct {
	store    EventInserter
	recorder Recorder
	logger   *logrus.Logger
}

func NewService(store EventInserter, recorder Recorder, logger *logrus.Logger) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{store: store, recorder: recorder, logger: logger}
}

// Track validates in and inserts it. The returned error wraps
// models.ErrInvalidData or models.ErrStorageFailure.
func (s *Service) Track(ctx context.Context, in models.EventInput) error {
	event, err := Validate(in)
	if err != nil {
		s.recorder.EventRejected("invalid_data")
		return err
	}

	if err := s.store.InsertEvent(ctx, event); err != nil {
		s.recorder.EventRejected("storage_failure")
		s.logger.WithFields(logrus.Fields{
			"session_id": event.SessionID,
			"page_url":   event.PageURL,
		}).WithError(err).Error("inserting analytics event failed")
		return fmt.Errorf("%w: %v", models.ErrStorageFailure, err)
	}

	s.recorder.EventAccepted(event.EventType)
	return nil
}
