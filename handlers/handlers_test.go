package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"sitestats/api/cache"
	"sitestats/api/ingest"
	"sitestats/api/metrics"
	"sitestats/api/middleware"
	"sitestats/api/models"
	"sitestats/api/store"
	"sitestats/api/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeEventStore struct {
	mu        sync.Mutex
	inserted  []models.Event
	events    []models.Event
	insertErr error
	queryErr  error
	queries   int
	lastSince time.Time
	lastLimit int
}

func (s *fakeEventStore) InsertEvent(_ context.Context, e models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, e)
	return nil
}

func (s *fakeEventStore) EventsSince(_ context.Context, since time.Time, limit int) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	s.lastSince, s.lastLimit = since, limit
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.events, nil
}

func newAnalyticsRouter(t *testing.T, events *fakeEventStore, ttl time.Duration) (*gin.Engine, *metrics.Metrics, *AnalyticsHandlers) {
	t.Helper()
	m := metrics.New(prometheus.NewRegistry())
	h := NewAnalyticsHandlers(ingest.NewService(events, m, quietLogger()), events, cache.NewReportCache(ttl), m, 500, quietLogger())
	h.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }

	r := gin.New()
	r.POST("/api/track", h.TrackEvent)
	r.GET("/api/metrics", h.GetMetrics)
	r.GET("/health", Health)
	return r, m, h
}

func doJSON(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestTrackEvent_Success(t *testing.T) {
	events := &fakeEventStore{}
	r, m, _ := newAnalyticsRouter(t, events, 0)

	rec := doJSON(r, http.MethodPost, "/api/track",
		`{"page_url":"https://example.com/","visitor_id":"v-1","session_id":"s-1","browser":"Chrome"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, string(decode(t, rec).Data))
	require.Len(t, events.inserted, 1)
	assert.Equal(t, models.DefaultEventType, events.inserted[0].EventType)
	assert.Equal(t, models.DeviceDesktop, events.inserted[0].DeviceType)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsAcceptedTotal.WithLabelValues("page_view")))
}

func TestTrackEvent_MissingFields(t *testing.T) {
	events := &fakeEventStore{}
	r, _, _ := newAnalyticsRouter(t, events, 0)

	rec := doJSON(r, http.MethodPost, "/api/track", `{"page_url":"https://example.com/"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, CodeInvalidData, env.Error.Code)
	assert.Contains(t, env.Error.Message, "missing required fields")
	assert.Empty(t, events.inserted)
}

func TestTrackEvent_MalformedJSON(t *testing.T) {
	r, _, _ := newAnalyticsRouter(t, &fakeEventStore{}, 0)

	rec := doJSON(r, http.MethodPost, "/api/track", `{"page_url":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInvalidData, decode(t, rec).Error.Code)
}

func TestTrackEvent_StorageFailure(t *testing.T) {
	events := &fakeEventStore{insertErr: errors.New("connection refused")}
	r, m, _ := newAnalyticsRouter(t, events, 0)

	rec := doJSON(r, http.MethodPost, "/api/track", `{"page_url":"/","visitor_id":"v","session_id":"s"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeTrackingFailed, decode(t, rec).Error.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsRejectedTotal.WithLabelValues("storage_failure")))
}

func TestGetMetrics_DefaultRange(t *testing.T) {
	created := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	events := &fakeEventStore{events: []models.Event{
		{PageURL: "/a", SessionID: "s1", VisitorID: "v1", DeviceType: "desktop", Browser: "Chrome", CreatedAt: created},
		{PageURL: "/b", SessionID: "s2", VisitorID: "v2", DeviceType: "mobile", Browser: "Safari", Referrer: "https://www.google.com/", CreatedAt: created},
	}}
	r, _, _ := newAnalyticsRouter(t, events, 0)

	rec := doJSON(r, http.MethodGet, "/api/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var report models.MetricsReport
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &report))
	assert.Equal(t, 2, report.Metrics.TotalPageViews)
	assert.Equal(t, 2, report.Metrics.UniqueVisitors)
	assert.Equal(t, 100.0, report.Metrics.BounceRate)
	assert.Len(t, report.TopPages, 2)
	require.Len(t, report.TrafficOverTime, 1)
	assert.Equal(t, "2026-03-09", report.TrafficOverTime[0].Date)

	assert.Equal(t, time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC), events.lastSince)
	assert.Equal(t, 500, events.lastLimit)
}

func TestGetMetrics_Today(t *testing.T) {
	events := &fakeEventStore{}
	r, _, _ := newAnalyticsRouter(t, events, 0)

	rec := doJSON(r, http.MethodGet, "/api/metrics?range=today", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), events.lastSince)

	var report models.MetricsReport
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &report))
	assert.Equal(t, 0, report.Metrics.TotalPageViews)
	assert.Empty(t, report.RecentActivity)
}

func TestGetMetrics_InvalidRange(t *testing.T) {
	events := &fakeEventStore{}
	r, _, _ := newAnalyticsRouter(t, events, 0)

	rec := doJSON(r, http.MethodGet, "/api/metrics?range=90d", "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInvalidRange, decode(t, rec).Error.Code)
	assert.Zero(t, events.queries)
}

func TestGetMetrics_QueryFailure(t *testing.T) {
	r, _, _ := newAnalyticsRouter(t, &fakeEventStore{queryErr: errors.New("timeout")}, 0)

	rec := doJSON(r, http.MethodGet, "/api/metrics?range=30d", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeQueryFailed, decode(t, rec).Error.Code)
}

func TestGetMetrics_CachesPerRange(t *testing.T) {
	events := &fakeEventStore{}
	r, m, _ := newAnalyticsRouter(t, events, time.Minute)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/api/metrics?range=7d", "").Code)
	}
	require.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/api/metrics?range=30d", "").Code)

	assert.Equal(t, 2, events.queries)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReportCacheHits))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ReportCacheMisses))
}

func TestHealth(t *testing.T) {
	r, _, _ := newAnalyticsRouter(t, &fakeEventStore{}, 0)

	rec := doJSON(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

type fakeOperatorStore struct {
	byEmail map[string]*models.Operator
	nextID  int
	err     error
}

func newFakeOperatorStore() *fakeOperatorStore {
	return &fakeOperatorStore{byEmail: map[string]*models.Operator{}, nextID: 1}
}

func (s *fakeOperatorStore) CreateOperator(_ context.Context, email string, hashed []byte) (*models.Operator, error) {
	if s.err != nil {
		return nil, s.err
	}
	if _, ok := s.byEmail[email]; ok {
		return nil, store.ErrDuplicate
	}
	op := &models.Operator{ID: s.nextID, Email: email, HashedPassword: hashed}
	s.nextID++
	s.byEmail[email] = op
	return op, nil
}

func (s *fakeOperatorStore) GetOperatorByEmail(_ context.Context, email string) (*models.Operator, error) {
	if s.err != nil {
		return nil, s.err
	}
	op, ok := s.byEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return op, nil
}

func newAuthRouter(operators OperatorStore, tokens *utils.TokenIssuer) *gin.Engine {
	h := NewAuthHandlers(operators, tokens, false, quietLogger())
	r := gin.New()
	r.POST("/api/auth/signup", h.Signup)
	r.POST("/api/auth/login", h.Login)
	r.POST("/api/auth/logout", h.Logout)
	return r
}

func TestSignup(t *testing.T) {
	operators := newFakeOperatorStore()
	r := newAuthRouter(operators, utils.NewTokenIssuer("secret", time.Hour))

	rec := doJSON(r, http.MethodPost, "/api/auth/signup", `{"email":"ops@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	op := operators.byEmail["ops@example.com"]
	require.NotNil(t, op)
	assert.NoError(t, bcrypt.CompareHashAndPassword(op.HashedPassword, []byte("correct-horse")))

	rec = doJSON(r, http.MethodPost, "/api/auth/signup", `{"email":"ops@example.com","password":"another-pass"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeConflict, decode(t, rec).Error.Code)
}

func TestSignup_Validation(t *testing.T) {
	r := newAuthRouter(newFakeOperatorStore(), utils.NewTokenIssuer("secret", time.Hour))

	rec := doJSON(r, http.MethodPost, "/api/auth/signup", `{"email":"not-an-email","password":"short"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInvalidData, decode(t, rec).Error.Code)
}

func TestLogin(t *testing.T) {
	tokens := utils.NewTokenIssuer("secret", 2*time.Hour)
	operators := newFakeOperatorStore()
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = operators.CreateOperator(context.Background(), "ops@example.com", hashed)
	require.NoError(t, err)
	r := newAuthRouter(operators, tokens)

	rec := doJSON(r, http.MethodPost, "/api/auth/login", `{"email":"ops@example.com","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.TokenCookie, cookies[0].Name)
	assert.Equal(t, 7200, cookies[0].MaxAge)
	assert.True(t, cookies[0].HttpOnly)

	claims, err := tokens.Validate(cookies[0].Value)
	require.NoError(t, err)
	assert.Equal(t, 1, claims.OperatorID)
}

func TestLogin_Rejections(t *testing.T) {
	operators := newFakeOperatorStore()
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = operators.CreateOperator(context.Background(), "ops@example.com", hashed)
	require.NoError(t, err)
	r := newAuthRouter(operators, utils.NewTokenIssuer("secret", time.Hour))

	rec := doJSON(r, http.MethodPost, "/api/auth/login", `{"email":"ops@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(r, http.MethodPost, "/api/auth/login", `{"email":"nobody@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	operators.err = errors.New("db down")
	rec = doJSON(r, http.MethodPost, "/api/auth/login", `{"email":"ops@example.com","password":"correct-horse"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLogout(t *testing.T) {
	r := newAuthRouter(newFakeOperatorStore(), utils.NewTokenIssuer("secret", time.Hour))

	rec := doJSON(r, http.MethodPost, "/api/auth/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.TokenCookie, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}
