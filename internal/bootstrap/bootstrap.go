// Package bootstrap constructs the process graphs behind the CLI
// commands: the httpd control plane, the crawl worker, and the one-shot
// developer commands. Wiring is explicit and ordered so a failed
// dependency names itself before anything starts serving.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/config"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/server"
)

const (
	// connectTimeout bounds every dependency dial during startup.
	connectTimeout = 15 * time.Second
	// readyPingTimeout bounds each downstream ping behind /readyz.
	readyPingTimeout = 5 * time.Second
)

// Options carries the global CLI flags into process construction.
type Options struct {
	ConfigFile string
	Debug      bool
	Version    string
}

// env is what every process shares: parsed configuration and a logger.
type env struct {
	cfg *config.Config
	log *logger.Logger
}

func load(opts Options) (*env, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.Debug {
		cfg.App.Debug = true
		cfg.Logger.Level = "debug"
	}
	if opts.Version != "" {
		cfg.App.Version = opts.Version
	}

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &env{cfg: cfg, log: log}, nil
}

// consumerID derives a stream-consumer name unique to this process so
// Redis can tell group members apart across restarts and replicas.
func consumerID(role string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = uuid.NewString()[:8]
	}
	return fmt.Sprintf("%s-%s-%d", role, host, os.Getpid())
}

// pingCheck adapts a context-taking ping into a readiness checker with
// its own deadline, so one slow dependency cannot wedge /readyz.
func pingCheck(ping func(context.Context) error) server.HealthChecker {
	return server.PingChecker(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), readyPingTimeout)
		defer cancel()
		return ping(ctx)
	})
}
