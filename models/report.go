package models

// Summary holds the headline numbers of a metrics report.
type Summary struct {
	TotalPageViews     int     `json:"totalPageViews"`
	UniqueVisitors     int     `json:"uniqueVisitors"`
	AvgSessionDuration int64   `json:"avgSessionDuration"`
	BounceRate         float64 `json:"bounceRate"`
}

type TopPage struct {
	URL            string `json:"url"`
	Title          string `json:"title"`
	Views          int    `json:"views"`
	UniqueVisitors int    `json:"unique_visitors"`
}

type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

type DeviceCount struct {
	Device string `json:"device"`
	Count  int    `json:"count"`
}

type BrowserCount struct {
	Browser string `json:"browser"`
	Count   int    `json:"count"`
}

// DailyTraffic is one point of the traffic time series, keyed by UTC date (YYYY-MM-DD).
type DailyTraffic struct {
	Date           string `json:"date"`
	Views          int    `json:"views"`
	UniqueVisitors int    `json:"unique_visitors"`
}

// Activity is a projection of a single recent event.
type Activity struct {
	Timestamp  string `json:"timestamp"`
	PageURL    string `json:"page_url"`
	PageTitle  string `json:"page_title"`
	DeviceType string `json:"device_type"`
}

// MetricsReport is the full result of aggregating one window of events.
type MetricsReport struct {
	Metrics          Summary        `json:"metrics"`
	TopPages         []TopPage      `json:"topPages"`
	TrafficSources   []SourceCount  `json:"trafficSources"`
	DeviceBreakdown  []DeviceCount  `json:"deviceBreakdown"`
	BrowserBreakdown []BrowserCount `json:"browserBreakdown"`
	TrafficOverTime  []DailyTraffic `json:"trafficOverTime"`
	RecentActivity   []Activity     `json:"recentActivity"`
}
