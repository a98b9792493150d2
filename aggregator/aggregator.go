// Package aggregator turns a window of stored page-view events into a
// metrics report. It performs no I/O and keeps no state between calls.
package aggregator

import (
	"math"
	"sort"
	"time"

	"sitestats/api/classifier"
	"sitestats/api/models"
)

const (
	TopPagesLimit       = 10
	RecentActivityLimit = 20
)

type pageGroup struct {
	url      string
	title    string
	views    int
	visitors map[string]struct{}
}

type dayGroup struct {
	views    int
	visitors map[string]struct{}
}

// tally counts occurrences per key and remembers first-seen order.
type tally struct {
	order  []string
	counts map[string]int
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) add(key string) {
	if _, ok := t.counts[key]; !ok {
		t.order = append(t.order, key)
	}
	t.counts[key]++
}

// sorted returns keys by descending count; ties keep first-seen order.
func (t *tally) sorted() []string {
	keys := append([]string(nil), t.order...)
	sort.SliceStable(keys, func(i, j int) bool {
		return t.counts[keys[i]] > t.counts[keys[j]]
	})
	return keys
}

// Aggregate computes every metric of the report in a single pass over events.
// events are expected newest first; only RecentActivity depends on that order.
func Aggregate(events []models.Event) models.MetricsReport {
	visitors := make(map[string]struct{})
	sessionViews := make(map[string]int)
	var totalDuration float64

	var pageOrder []*pageGroup
	pages := make(map[string]*pageGroup)
	days := make(map[string]*dayGroup)
	sources := newTally()
	devices := newTally()
	browsers := newTally()

	for _, e := range events {
		visitors[e.VisitorID] = struct{}{}
		sessionViews[e.SessionID]++
		if e.DurationSeconds != nil {
			totalDuration += *e.DurationSeconds
		}

		p, ok := pages[e.PageURL]
		if !ok {
			p = &pageGroup{url: e.PageURL, visitors: make(map[string]struct{})}
			pages[e.PageURL] = p
			pageOrder = append(pageOrder, p)
		}
		if p.title == "" {
			p.title = e.PageTitle
		}
		p.views++
		p.visitors[e.VisitorID] = struct{}{}

		date := e.CreatedAt.UTC().Format(time.DateOnly)
		d, ok := days[date]
		if !ok {
			d = &dayGroup{visitors: make(map[string]struct{})}
			days[date] = d
		}
		d.views++
		d.visitors[e.VisitorID] = struct{}{}

		sources.add(classifier.TrafficSource(e.Referrer))
		devices.add(orUnknown(e.DeviceType))
		browsers.add(orUnknown(e.Browser))
	}

	return models.MetricsReport{
		Metrics: models.Summary{
			TotalPageViews:     len(events),
			UniqueVisitors:     len(visitors),
			AvgSessionDuration: avgSessionDuration(totalDuration, len(sessionViews)),
			BounceRate:         bounceRate(sessionViews),
		},
		TopPages:         topPages(pageOrder),
		TrafficSources:   sourceCounts(sources),
		DeviceBreakdown:  deviceCounts(devices),
		BrowserBreakdown: browserCounts(browsers),
		TrafficOverTime:  trafficOverTime(days),
		RecentActivity:   recentActivity(events),
	}
}

func orUnknown(s string) string {
	if s == "" {
		return models.Unknown
	}
	return s
}

// bounceRate is the percentage of sessions with exactly one view, to one decimal place.
func bounceRate(sessionViews map[string]int) float64 {
	if len(sessionViews) == 0 {
		return 0
	}
	bounced := 0
	for _, n := range sessionViews {
		if n == 1 {
			bounced++
		}
	}
	return math.Round(float64(bounced)/float64(len(sessionViews))*1000) / 10
}

// avgSessionDuration divides total recorded duration by the number of sessions
// seen in the window, including sessions that reported no duration at all.
func avgSessionDuration(total float64, sessions int) int64 {
	if sessions == 0 {
		return 0
	}
	return int64(math.Round(total / float64(sessions)))
}

func topPages(groups []*pageGroup) []models.TopPage {
	sorted := append([]*pageGroup(nil), groups...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].views > sorted[j].views
	})
	if len(sorted) > TopPagesLimit {
		sorted = sorted[:TopPagesLimit]
	}

	out := make([]models.TopPage, 0, len(sorted))
	for _, p := range sorted {
		title := p.title
		if title == "" {
			title = p.url
		}
		out = append(out, models.TopPage{
			URL:            p.url,
			Title:          title,
			Views:          p.views,
			UniqueVisitors: len(p.visitors),
		})
	}
	return out
}

func sourceCounts(t *tally) []models.SourceCount {
	out := make([]models.SourceCount, 0, len(t.order))
	for _, k := range t.sorted() {
		out = append(out, models.SourceCount{Source: k, Count: t.counts[k]})
	}
	return out
}

func deviceCounts(t *tally) []models.DeviceCount {
	out := make([]models.DeviceCount, 0, len(t.order))
	for _, k := range t.sorted() {
		out = append(out, models.DeviceCount{Device: k, Count: t.counts[k]})
	}
	return out
}

func browserCounts(t *tally) []models.BrowserCount {
	out := make([]models.BrowserCount, 0, len(t.order))
	for _, k := range t.sorted() {
		out = append(out, models.BrowserCount{Browser: k, Count: t.counts[k]})
	}
	return out
}

func trafficOverTime(days map[string]*dayGroup) []models.DailyTraffic {
	out := make([]models.DailyTraffic, 0, len(days))
	for date, d := range days {
		out = append(out, models.DailyTraffic{
			Date:           date,
			Views:          d.views,
			UniqueVisitors: len(d.visitors),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func recentActivity(events []models.Event) []models.Activity {
	n := min(len(events), RecentActivityLimit)
	out := make([]models.Activity, 0, n)
	for _, e := range events[:n] {
		title := e.PageTitle
		if title == "" {
			title = e.PageURL
		}
		out = append(out, models.Activity{
			Timestamp:  e.CreatedAt.UTC().Format(time.RFC3339Nano),
			PageURL:    e.PageURL,
			PageTitle:  title,
			DeviceType: e.DeviceType,
		})
	}
	return out
}
