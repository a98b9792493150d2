// Command trackview submits a single page view through the tracker client.
// It is used for smoke-testing a deployment; with REDIS_URL set, successive
// runs share a visitor and a rolling session like a returning browser would.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"sitestats/api/identity"
	"sitestats/api/logging"
	"sitestats/api/tracker"
)

type settings struct {
	Endpoint string `env:"TRACK_ENDPOINT" envDefault:"http://localhost:8080/api/track"`
	RedisURL string `env:"REDIS_URL"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	_ = godotenv.Load()

	var s settings
	if err := env.Parse(&s); err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	logger := logging.New(s.LogLevel, "text", os.Stderr)

	pv := tracker.PageView{}
	flag.StringVar(&pv.URL, "url", "", "page URL (required)")
	flag.StringVar(&pv.Title, "title", "", "page title")
	flag.StringVar(&pv.Referrer, "referrer", "", "referrer URL")
	flag.StringVar(&pv.UserAgent, "ua", "", "user-agent string")
	flag.Parse()

	if pv.URL == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var kv identity.Store = identity.NewMemoryStore()
	if s.RedisURL != "" {
		opts := identity.DefaultRedisStoreOptions()
		opts.URL = s.RedisURL
		rs, err := identity.NewRedisStore(ctx, opts)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect identity store")
		}
		defer rs.Close()
		kv = rs
	}

	t := tracker.New(s.Endpoint, identity.NewManager(kv, identity.WithLogger(logger)), nil, logger)
	in := t.Event(ctx, pv)
	if err := t.Send(ctx, in); err != nil {
		logger.WithError(err).Error("page view rejected")
		os.Exit(1)
	}

	logger.WithFields(logrus.Fields{
		"visitor_id": in.VisitorID,
		"session_id": in.SessionID,
		"device":     in.DeviceType,
		"browser":    in.Browser,
	}).Info("page view tracked")
}
