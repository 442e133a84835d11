package config

import (
	"testing"
	"time"
)

func lookupFrom(env map[string]string) envLookup {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoadRequiresDatabaseURI(t *testing.T) {
	_, err := load(nil, lookupFrom(map[string]string{
		"ORDER_API_ADDRESS": "http://api.local",
		"WEBHOOK_SECRET":    "s3cret",
	}))
	if err == nil {
		t.Fatal("expected error for missing database URI")
	}
}

func TestLoadRequiresOrderAPIAddress(t *testing.T) {
	_, err := load(nil, lookupFrom(map[string]string{
		"DATABASE_URI":   "postgres://localhost/ordermerge",
		"WEBHOOK_SECRET": "s3cret",
	}))
	if err == nil {
		t.Fatal("expected error for missing order API address")
	}
}

func TestLoadRequiresWebhookSecret(t *testing.T) {
	_, err := load(nil, lookupFrom(map[string]string{
		"DATABASE_URI":      "postgres://localhost/ordermerge",
		"ORDER_API_ADDRESS": "http://api.local",
	}))
	if err == nil {
		t.Fatal("expected error for missing webhook secret")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(nil, lookupFrom(map[string]string{
		"DATABASE_URI":      "postgres://localhost/ordermerge",
		"ORDER_API_ADDRESS": "http://api.local",
		"WEBHOOK_SECRET":    "s3cret",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RunAddress != defaultRunAddress {
		t.Fatalf("unexpected run address %s", cfg.RunAddress)
	}
	if cfg.HashSalt != defaultHashSalt {
		t.Fatalf("unexpected hash salt %s", cfg.HashSalt)
	}
	if cfg.GroupPollInterval != defaultGroupPollInterval {
		t.Fatalf("unexpected poll interval %s", cfg.GroupPollInterval)
	}
	if cfg.WorkerPoolSize != defaultWorkerPoolSize {
		t.Fatalf("unexpected worker pool size %d", cfg.WorkerPoolSize)
	}
}

func TestLoadFlagsOverrideEnvironment(t *testing.T) {
	cfg, err := load(
		[]string{"-a", ":9090", "-poll-interval", "250ms", "-worker-pool", "2"},
		lookupFrom(map[string]string{
			"RUN_ADDRESS":       ":8081",
			"DATABASE_URI":      "postgres://localhost/ordermerge",
			"ORDER_API_ADDRESS": "http://api.local",
			"WEBHOOK_SECRET":    "s3cret",
		}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RunAddress != ":9090" {
		t.Fatalf("expected flag to win, got %s", cfg.RunAddress)
	}
	if cfg.GroupPollInterval != 250*time.Millisecond {
		t.Fatalf("unexpected poll interval %s", cfg.GroupPollInterval)
	}
	if cfg.WorkerPoolSize != 2 {
		t.Fatalf("unexpected worker pool size %d", cfg.WorkerPoolSize)
	}
}

func TestLoadRejectsBadDurations(t *testing.T) {
	if _, err := load([]string{"-poll-interval", "nope"}, lookupFrom(map[string]string{
		"DATABASE_URI":      "postgres://localhost/ordermerge",
		"ORDER_API_ADDRESS": "http://api.local",
		"WEBHOOK_SECRET":    "s3cret",
	})); err == nil {
		t.Fatal("expected error for invalid poll interval")
	}
}

func TestLoadNormalizesNonPositiveValues(t *testing.T) {
	cfg, err := load(nil, lookupFrom(map[string]string{
		"DATABASE_URI":      "postgres://localhost/ordermerge",
		"ORDER_API_ADDRESS": "http://api.local",
		"WEBHOOK_SECRET":    "s3cret",
		"WORKER_POOL_SIZE":  "-1",
		"POLL_BATCH_SIZE":   "0",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.WorkerPoolSize != defaultWorkerPoolSize {
		t.Fatalf("expected worker pool default, got %d", cfg.WorkerPoolSize)
	}
	if cfg.MaxGroupsBatch != defaultMaxGroupsBatch {
		t.Fatalf("expected batch default, got %d", cfg.MaxGroupsBatch)
	}
}
