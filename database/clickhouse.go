package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/sirupsen/logrus"
)

// ClickHouseOptions identifies the ClickHouse server holding analytics events.
type ClickHouseOptions struct {
	Addr     string
	Database string
	Username string
	Password string
}

type ClickHouseClient struct {
	Conn   clickhouse.Conn
	logger *logrus.Logger
}

func NewClickHouseDB(opts ClickHouseOptions, logger *logrus.Logger) (*ClickHouseClient, error) {
	options := &clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{{Name: "sitestats-api", Version: "1.0.0"}},
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: time.Second * 5,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse via Native TCP: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger.WithField("addr", opts.Addr).Info("connected to ClickHouse")
	return &ClickHouseClient{Conn: conn, logger: logger}, nil
}

// createEventsTable mirrors the Postgres analytics_events migration.
// created_at is assigned by the server at insert time.
const createEventsTable = `
	CREATE TABLE IF NOT EXISTS analytics_events (
		id               UUID DEFAULT generateUUIDv4(),
		page_url         String,
		page_title       String,
		referrer         String,
		user_agent       String,
		device_type      LowCardinality(String),
		browser          LowCardinality(String),
		browser_version  String,
		os               LowCardinality(String),
		country          String,
		city             String,
		session_id       String,
		visitor_id       String,
		event_type       LowCardinality(String),
		duration_seconds Nullable(Float64),
		created_at       DateTime64(3, 'UTC') DEFAULT now64(3)
	)
	ENGINE = MergeTree
	ORDER BY (created_at, session_id)
`

// EnsureSchema creates the analytics_events table if it does not exist.
func (c *ClickHouseClient) EnsureSchema(ctx context.Context) error {
	if err := c.Conn.Exec(ctx, createEventsTable); err != nil {
		return fmt.Errorf("failed to create analytics_events table: %w", err)
	}
	return nil
}

func (c *ClickHouseClient) Close() {
	if c.Conn != nil {
		c.Conn.Close()
		c.logger.Info("ClickHouse connection closed")
	}
}
