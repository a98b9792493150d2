package database

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrations embed.FS

type DBClient struct {
	DB     *sql.DB
	logger *logrus.Logger
}

// NewPostgresDB opens and pings the Postgres database at dbURL.
func NewPostgresDB(dbURL string, logger *logrus.Logger) (*DBClient, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("error opening database connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database (ping failed): %w", err)
	}

	logger.Info("connected to PostgreSQL")
	return &DBClient{DB: db, logger: logger}, nil
}

// Migrate runs all pending Postgres migrations.
func (c *DBClient) Migrate() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(c.logger)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}

	if err := goose.Up(c.DB, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

func (c *DBClient) Close() {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.logger.WithError(err).Error("closing PostgreSQL connection")
		} else {
			c.logger.Info("PostgreSQL connection closed")
		}
	}
}
