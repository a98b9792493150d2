// Package identity produces the visitor and session identifiers attached to
// every tracked page view.
//
// The visitor identifier is created once per client and never expires. The
// session identifier rolls: it is kept while page views arrive less than
// SessionTimeout apart, and replaced once that much inactivity has passed.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"sitestats/api/models"
)

// SessionTimeout is the inactivity window after which a new session starts.
const SessionTimeout = 30 * time.Minute

// Storage keys, before the manager's prefix is applied.
const (
	VisitorKey = "visitor_id"
	SessionKey = "session_id"
)

// Manager reads and writes identifiers in a Store. It never fails its
// callers: storage errors produce a fresh identifier for that call only.
type Manager struct {
	store  Store
	prefix string
	newID  func() string
	logger *logrus.Logger
}

// Option customizes a Manager.
type Option func(*Manager)

// WithKeyPrefix namespaces the storage keys.
func WithKeyPrefix(prefix string) Option {
	return func(m *Manager) { m.prefix = prefix }
}

// WithIDGenerator replaces the UUID v4 generator.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) { m.newID = fn }
}

func WithLogger(logger *logrus.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func NewManager(store Store, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		newID:  func() string { return uuid.NewString() },
		logger: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// VisitorID returns the persisted visitor identifier, creating and
// persisting one on first use.
func (m *Manager) VisitorID(ctx context.Context) string {
	key := m.prefix + VisitorKey

	id, ok, err := m.store.Get(ctx, key)
	if err != nil {
		m.logger.WithError(err).Debug("identity: reading visitor id failed, using ephemeral id")
		return m.newID()
	}
	if ok && id != "" {
		return id
	}

	id = m.newID()
	if err := m.store.Set(ctx, key, id); err != nil {
		m.logger.WithError(err).Debug("identity: persisting visitor id failed")
	}
	return id
}

// SessionID returns the current session identifier as of now. A live
// session (last activity less than SessionTimeout before now) is extended
// to now; an absent, malformed or expired one is replaced.
func (m *Manager) SessionID(ctx context.Context, now time.Time) string {
	key := m.prefix + SessionKey

	raw, ok, err := m.store.Get(ctx, key)
	if err != nil {
		m.logger.WithError(err).Debug("identity: reading session failed, using ephemeral id")
		return m.newID()
	}

	if ok {
		record, err := DecodeSession(raw)
		switch {
		case err == nil && now.Sub(record.LastActivity) < SessionTimeout:
			m.persistSession(ctx, key, SessionRecord{ID: record.ID, LastActivity: now})
			return record.ID
		case errors.Is(err, models.ErrMalformedState):
			m.logger.WithError(err).Debug("identity: discarding malformed session record")
		}
	}

	id := m.newID()
	m.persistSession(ctx, key, SessionRecord{ID: id, LastActivity: now})
	return id
}

func (m *Manager) persistSession(ctx context.Context, key string, record SessionRecord) {
	raw, err := EncodeSession(record)
	if err == nil {
		err = m.store.Set(ctx, key, raw)
	}
	if err != nil {
		m.logger.WithError(err).Debug("identity: persisting session failed")
	}
}
