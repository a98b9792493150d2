// Package cache keeps recently computed metrics reports so repeated
// dashboard loads do not re-read the whole window from the event store.
package cache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"sitestats/api/models"
)

// ReportCache is a TTL cache of reports keyed by range name. A zero TTL
// disables caching.
type ReportCache struct {
	cache *lru.LRU[string, models.MetricsReport]
}

func NewReportCache(ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		return &ReportCache{}
	}
	return &ReportCache{
		// one entry per range name
		cache: lru.NewLRU[string, models.MetricsReport](8, nil, ttl),
	}
}

func (c *ReportCache) Get(rangeName string) (models.MetricsReport, bool) {
	if c.cache == nil {
		return models.MetricsReport{}, false
	}
	return c.cache.Get(rangeName)
}

func (c *ReportCache) Add(rangeName string, report models.MetricsReport) {
	if c.cache == nil {
		return
	}
	c.cache.Add(rangeName, report)
}
