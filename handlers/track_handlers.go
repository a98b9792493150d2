package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"sitestats/api/aggregator"
	"sitestats/api/cache"
	"sitestats/api/ingest"
	"sitestats/api/models"
	"sitestats/api/utils"
)

// EventReader is the windowed query side of the event store.
type EventReader interface {
	EventsSince(ctx context.Context, since time.Time, limit int) ([]models.Event, error)
}

// ReportRecorder observes metrics report computation.
type ReportRecorder interface {
	ReportComputed(rangeName string, events int)
	CacheHit()
	CacheMiss()
}

type AnalyticsHandlers struct {
	Ingest     *ingest.Service
	Events     EventReader
	Reports    *cache.ReportCache
	Recorder   ReportRecorder
	QueryLimit int
	logger     *logrus.Logger
	now        func() time.Time
}

func NewAnalyticsHandlers(svc *ingest.Service, events EventReader, reports *cache.ReportCache, recorder ReportRecorder, queryLimit int, logger *logrus.Logger) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		Ingest:     svc,
		Events:     events,
		Reports:    reports,
		Recorder:   recorder,
		QueryLimit: queryLimit,
		logger:     logger,
		now:        time.Now,
	}
}

// TrackEvent accepts one page-view event from the tracking script.
func (h *AnalyticsHandlers) TrackEvent(c *gin.Context) {
	var input models.EventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.logger.WithError(err).Debug("rejecting malformed tracking payload")
		respondError(c, http.StatusBadRequest, CodeInvalidData, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	err := h.Ingest.Track(ctx, input)
	switch {
	case err == nil:
		respondData(c, http.StatusOK, gin.H{"success": true})
	case errors.Is(err, models.ErrInvalidData):
		respondError(c, http.StatusBadRequest, CodeInvalidData, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, CodeTrackingFailed, err.Error())
	}
}

// GetMetrics aggregates the events of the requested range into a report.
func (h *AnalyticsHandlers) GetMetrics(c *gin.Context) {
	rangeName := c.DefaultQuery("range", utils.DefaultRange)

	since, err := utils.RangeStart(rangeName, h.now())
	if err != nil {
		respondError(c, http.StatusBadRequest, CodeInvalidRange, err.Error())
		return
	}

	if report, ok := h.Reports.Get(rangeName); ok {
		h.Recorder.CacheHit()
		respondData(c, http.StatusOK, report)
		return
	}
	h.Recorder.CacheMiss()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	events, err := h.Events.EventsSince(ctx, since, h.QueryLimit)
	if err != nil {
		h.logger.WithError(err).WithField("range", rangeName).Error("querying analytics events failed")
		respondError(c, http.StatusInternalServerError, CodeQueryFailed, "failed to fetch analytics events")
		return
	}

	report := aggregator.Aggregate(events)
	h.Recorder.ReportComputed(rangeName, len(events))
	h.Reports.Add(rangeName, report)

	respondData(c, http.StatusOK, report)
}

// Health reports liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
