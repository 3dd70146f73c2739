package config

import (
	"fmt"
	"time"
)

// ClientAdapter holds settings of the client transport to the replication
// endpoint.
type ClientAdapter struct {
	// HTTPAddress is the base address of the replication endpoint.
	// Env: ADAPTER_ADDRESS
	HTTPAddress string `env:"ADDRESS"`
	// RequestTimeout bounds every single push or pull request.
	// Env: ADAPTER_REQUEST_TIMEOUT
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT"`
	// RetryCount caps retries of transient failures.
	// Env: ADAPTER_RETRY_COUNT
	RetryCount int `env:"RETRY_COUNT"`
	// RetryWaitTime is the initial backoff.
	// Env: ADAPTER_RETRY_WAIT_TIME
	RetryWaitTime time.Duration `env:"RETRY_WAIT_TIME"`
	// RetryMaxWaitTime caps the backoff.
	// Env: ADAPTER_RETRY_MAX_WAIT_TIME
	RetryMaxWaitTime time.Duration `env:"RETRY_MAX_WAIT_TIME"`
}

// ClientDB contains local database connection settings for the client.
type ClientDB struct {
	// DSN is the SQLite database file path.
	// Env: STORAGE_DB_DATABASE_URI
	DSN string `env:"DATABASE_URI"`
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	DB ClientDB `envPrefix:"DB_"`
	// FallbackPath is the JSON file backing the fallback queue.
	// Env: STORAGE_FALLBACK_PATH
	FallbackPath string `env:"FALLBACK_PATH"`
	// FallbackCapacity is the per-entity-type cap of the fallback queue.
	// Env: STORAGE_FALLBACK_CAPACITY
	FallbackCapacity int `env:"FALLBACK_CAPACITY"`
}

// ClientWorkers contains sync scheduling settings.
type ClientWorkers struct {
	// SyncInterval is the period of the background sync trigger.
	SyncInterval time.Duration `env:"SYNC_INTERVAL"`
	// Debounce is the quiet period after a local change before a sync runs.
	Debounce time.Duration `env:"DEBOUNCE"`
	// PushBatchSize is the number of records per push request.
	PushBatchSize int `env:"PUSH_BATCH_SIZE"`
	// PullPageSize is the number of entries requested per pull page.
	PullPageSize int `env:"PULL_PAGE_SIZE"`
}

// ClientAuth stands in for the external authentication flow: it carries the
// bearer token and passphrase the sync engine needs.
type ClientAuth struct {
	Token      string `env:"TOKEN"`
	Passphrase string `env:"PASSPHRASE"`
	// SaltFile stores the per-user key derivation salt. When empty, the
	// legacy static salt is used.
	SaltFile string `env:"SALT_FILE"`
}

// ClientLog configures the client log file.
type ClientLog struct {
	File  string `env:"FILE"`
	Level string `env:"LEVEL"`
}

// ClientConfig is the top-level client configuration.
type ClientConfig struct {
	Adapter ClientAdapter `envPrefix:"ADAPTER_"`
	Storage ClientStorage `envPrefix:"STORAGE_"`
	Workers ClientWorkers `envPrefix:"WORKERS_"`
	Auth    ClientAuth    `envPrefix:"AUTH_"`
	Log     ClientLog     `envPrefix:"LOG_"`

	// ConfigFilePath is the optional JSON or YAML config file.
	// Env: CONFIG
	ConfigFilePath string `env:"CONFIG"`
}

func defaultClientConfig() *ClientConfig {
	return &ClientConfig{
		Adapter: ClientAdapter{
			HTTPAddress:      "localhost:8080",
			RequestTimeout:   15 * time.Second,
			RetryCount:       3,
			RetryWaitTime:    500 * time.Millisecond,
			RetryMaxWaitTime: 10 * time.Second,
		},
		Storage: ClientStorage{
			DB:               ClientDB{DSN: "health-keeper.db"},
			FallbackPath:     "health-keeper.fallback.json",
			FallbackCapacity: 200,
		},
		Workers: ClientWorkers{
			SyncInterval:  5 * time.Minute,
			Debounce:      2 * time.Second,
			PushBatchSize: 100,
			PullPageSize:  500,
		},
		Log: ClientLog{
			File:  "health-keeper.log",
			Level: "info",
		},
	}
}

// GetClientConfig builds and validates the client configuration.
//
// Sources in increasing priority: built-in defaults, the JSON/YAML file,
// environment variables (after loading .env), and overrides (usually filled
// from command-line flags; may be nil).
func GetClientConfig(overrides *ClientConfig) (*ClientConfig, error) {
	cfg, err := newConfigBuilder[ClientConfig]().
		withDefaults(defaultClientConfig()).
		withDotEnv(".env").
		withEnv().
		with(overrides).
		withFile(func(c *ClientConfig) string { return c.ConfigFilePath }, parseClientFile).
		build()
	if err != nil {
		return nil, fmt.Errorf("error get client config: %w", err)
	}

	return cfg, cfg.validate()
}
