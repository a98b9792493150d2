package models

import (
	"time"
)

// DefaultEventType is stored when a submitted event does not name its type.
const DefaultEventType = "page_view"

// Device classes produced by the classifier.
const (
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceDesktop = "desktop"
)

// Unknown is used for undetected browsers, operating systems and empty breakdown buckets.
const Unknown = "Unknown"

// EventInput is the JSON body accepted by the ingestion endpoint.
// Pointer fields distinguish "absent" from "zero".
type EventInput struct {
	PageURL         string   `json:"page_url"`
	PageTitle       string   `json:"page_title"`
	Referrer        string   `json:"referrer"`
	UserAgent       string   `json:"user_agent"`
	DeviceType      string   `json:"device_type"`
	Browser         string   `json:"browser"`
	BrowserVersion  string   `json:"browser_version"`
	OS              string   `json:"os"`
	SessionID       string   `json:"session_id"`
	VisitorID       string   `json:"visitor_id"`
	EventType       *string  `json:"event_type,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
}

// Event is a validated page-view record as stored in the event store.
// CreatedAt is assigned by the store at insert time.
type Event struct {
	ID              string    `json:"id,omitempty"`
	PageURL         string    `json:"page_url"`
	PageTitle       string    `json:"page_title"`
	Referrer        string    `json:"referrer"`
	UserAgent       string    `json:"user_agent"`
	DeviceType      string    `json:"device_type"`
	Browser         string    `json:"browser"`
	BrowserVersion  string    `json:"browser_version"`
	OS              string    `json:"os"`
	Country         string    `json:"country"`
	City            string    `json:"city"`
	SessionID       string    `json:"session_id"`
	VisitorID       string    `json:"visitor_id"`
	EventType       string    `json:"event_type"`
	DurationSeconds *float64  `json:"duration_seconds"`
	CreatedAt       time.Time `json:"created_at"`
}
