package config

import (
	"encoding/json"
	"os"

	"github.com/Psheikomaniac/cashcow-go/internal/flagx"
	"github.com/Psheikomaniac/cashcow-go/internal/timex"
)

// JsonConfig is the DTO for the optional JSON config file. Durations accept
// either strings like "30s" or integer nanoseconds.
type JsonConfig struct {
	ServerURL           string         `json:"server_url"`
	DatabasePath        string         `json:"database_path"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	SyncBatchSize       int            `json:"sync_batch_size"`
	SyncAttemptCeiling  int            `json:"sync_attempt_ceiling"`
	SyncInitialBackoff  timex.Duration `json:"sync_initial_backoff"`
	SyncMaxBackoff      timex.Duration `json:"sync_max_backoff"`
}

// parseJson overlays cfg with values from the JSON file named by the -c or
// -config flag. Absent file path means no JSON stage; zero values in the file
// leave the previous stage untouched.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.SyncBatchSize > 0 {
		cfg.SyncBatchSize = jc.SyncBatchSize
	}
	if jc.SyncAttemptCeiling > 0 {
		cfg.SyncAttemptCeiling = jc.SyncAttemptCeiling
	}
	if jc.SyncInitialBackoff.Duration > 0 {
		cfg.SyncInitialBackoff = jc.SyncInitialBackoff.Duration
	}
	if jc.SyncMaxBackoff.Duration > 0 {
		cfg.SyncMaxBackoff = jc.SyncMaxBackoff.Duration
	}
}
