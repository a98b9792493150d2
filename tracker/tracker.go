// Package tracker is the client side of page-view collection: it resolves
// the visitor and session identity, classifies the user agent and submits the
// event to the ingestion endpoint.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"sitestats/api/classifier"
	"sitestats/api/identity"
	"sitestats/api/models"
)

// PageView is what the embedding page knows about itself.
type PageView struct {
	URL       string
	Title     string
	Referrer  string
	UserAgent string
}

type Tracker struct {
	endpoint string
	ids      *identity.Manager
	client   *http.Client
	logger   *logrus.Logger
	now      func() time.Time
}

// New returns a Tracker posting to endpoint. A nil client uses a client with
// a 10 second timeout.
func New(endpoint string, ids *identity.Manager, client *http.Client, logger *logrus.Logger) *Tracker {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Tracker{
		endpoint: endpoint,
		ids:      ids,
		client:   client,
		logger:   logger,
		now:      time.Now,
	}
}

// Event builds the payload for pv, touching the session in the process.
func (t *Tracker) Event(ctx context.Context, pv PageView) models.EventInput {
	c := classifier.Classify(pv.UserAgent)
	return models.EventInput{
		PageURL:        pv.URL,
		PageTitle:      pv.Title,
		Referrer:       pv.Referrer,
		UserAgent:      pv.UserAgent,
		DeviceType:     c.DeviceType,
		Browser:        c.Browser,
		BrowserVersion: c.BrowserVersion,
		OS:             c.OS,
		VisitorID:      t.ids.VisitorID(ctx),
		SessionID:      t.ids.SessionID(ctx, t.now()),
	}
}

// Send posts one event and reports any failure.
func (t *Tracker) Send(ctx context.Context, in models.EventInput) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("ingestion endpoint returned %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

// TrackPageView records a page view. Tracking never fails the caller; errors
// only reach the debug log.
func (t *Tracker) TrackPageView(ctx context.Context, pv PageView) {
	if err := t.Send(ctx, t.Event(ctx, pv)); err != nil {
		t.logger.WithError(err).WithField("page_url", pv.URL).Debug("page view not tracked")
	}
}
