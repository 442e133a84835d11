package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress        string
	DatabaseURI       string
	OrderAPIAddress   string
	OrderAPIToken     string
	WebhookSecret     string
	HashSalt          string
	GroupPollInterval time.Duration
	WorkerPoolSize    int
	ShutdownTimeout   time.Duration
	MaxGroupsBatch    int
}

const (
	defaultRunAddress        = ":8080"
	defaultHashSalt          = "dev-salt"
	defaultGroupPollInterval = 5 * time.Second
	defaultWorkerPoolSize    = 4
	defaultShutdownTimeout   = 10 * time.Second
	defaultMaxGroupsBatch    = 16
)

// Load parses configuration from flags and environment variables. A .env file
// in the working directory is folded into the environment when present.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:        getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:       getString(lookup, "DATABASE_URI", ""),
		OrderAPIAddress:   getString(lookup, "ORDER_API_ADDRESS", ""),
		OrderAPIToken:     getString(lookup, "ORDER_API_TOKEN", ""),
		WebhookSecret:     getString(lookup, "WEBHOOK_SECRET", ""),
		HashSalt:          getString(lookup, "HASH_SALT", defaultHashSalt),
		GroupPollInterval: getDuration(lookup, "GROUP_POLL_INTERVAL", defaultGroupPollInterval),
		WorkerPoolSize:    getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		ShutdownTimeout:   getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		MaxGroupsBatch:    getInt(lookup, "POLL_BATCH_SIZE", defaultMaxGroupsBatch),
	}

	fs := flag.NewFlagSet("ordermerge", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		pollIntervalStr    = cfg.GroupPollInterval.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.OrderAPIAddress, "r", cfg.OrderAPIAddress, "Order management API base URL")
	fs.StringVar(&cfg.OrderAPIToken, "api-token", cfg.OrderAPIToken, "Bearer token for the order management API")
	fs.StringVar(&cfg.WebhookSecret, "webhook-secret", cfg.WebhookSecret, "Shared secret for webhook signatures")
	fs.StringVar(&cfg.HashSalt, "hash-salt", cfg.HashSalt, "Master salt for fingerprinting")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent merge workers")
	fs.StringVar(&pollIntervalStr, "poll-interval", pollIntervalStr, "Interval between pending group polls")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.IntVar(&cfg.MaxGroupsBatch, "poll-batch", cfg.MaxGroupsBatch, "Maximum merge groups per polling batch")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.GroupPollInterval, err = time.ParseDuration(pollIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid poll interval: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if secretFile, ok := lookup("WEBHOOK_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read webhook secret file: %w", err)
		}
		cfg.WebhookSecret = string(content)
	}

	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}

	if cfg.MaxGroupsBatch <= 0 {
		cfg.MaxGroupsBatch = defaultMaxGroupsBatch
	}

	if cfg.GroupPollInterval <= 0 {
		cfg.GroupPollInterval = defaultGroupPollInterval
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.OrderAPIAddress == "" {
		return nil, fmt.Errorf("order API address must be provided")
	}

	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("webhook secret must be provided")
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
