package config

import "time"

// Config holds the runtime settings of the CLI client.
type Config struct {
	// ServerURL is the base URL of the penalty API, e.g. "https://host:8443".
	ServerURL string

	// DatabasePath is the SQLite file holding the local store, the change
	// journal and sync metadata.
	DatabasePath string

	// RequestTimeout bounds every single API call.
	RequestTimeout time.Duration

	// OnlineCheckInterval is how often the client probes server reachability.
	OnlineCheckInterval time.Duration

	// SyncBatchSize bounds how many journal entries one drain pass loads.
	SyncBatchSize int

	// SyncAttemptCeiling is the per-entry delivery attempt limit.
	SyncAttemptCeiling int

	// SyncInitialBackoff and SyncMaxBackoff bound the retry schedule after a
	// transient sync failure.
	SyncInitialBackoff time.Duration
	SyncMaxBackoff     time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DatabasePath = "cashcow.db"
	c.RequestTimeout = 10 * time.Second
	c.OnlineCheckInterval = 30 * time.Second
	c.SyncBatchSize = 50
	c.SyncAttemptCeiling = 5
	c.SyncInitialBackoff = time.Second
	c.SyncMaxBackoff = 5 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
