package config

import (
	"encoding/json"
	"os"

	"queuecast/internal/constants"
	"queuecast/internal/models"
)

var (
	ErrMissingGatewayURL = models.ConfigError{Message: "missing gateway API URL"}
	ErrMissingDataDir    = models.ConfigError{Message: "missing data directory"}
	ErrMissingMediaDir   = models.ConfigError{Message: "missing media cache directory"}
)

// LoadConfig reads the JSON configuration file, applies defaults and
// environment overrides, and validates the result.
func LoadConfig(path string) (*models.Config, error) {
	file, err := os.ReadFile(path) // #nosec G304 - operator-supplied config path
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Gateway.APIBaseURL == "" {
		return ErrMissingGatewayURL
	}
	if c.Storage.DataDir == "" {
		return ErrMissingDataDir
	}
	if c.Media.CacheDir == "" {
		return ErrMissingMediaDir
	}

	if c.Gateway.TimeoutSec <= 0 {
		c.Gateway.TimeoutSec = constants.DefaultGatewayTimeoutSec
	}
	if c.Media.MaxFileSizeMB <= 0 {
		c.Media.MaxFileSizeMB = constants.DefaultMaxFileSizeMB
	}
	if c.Media.DownloadTimeoutSec <= 0 {
		c.Media.DownloadTimeoutSec = constants.DefaultDownloadTimeoutSec
	}
	if c.Scheduler.TickIntervalSec <= 0 {
		c.Scheduler.TickIntervalSec = constants.DefaultTickIntervalSec
	}
	if c.Scheduler.CleanupIntervalHours <= 0 {
		c.Scheduler.CleanupIntervalHours = constants.DefaultCleanupIntervalHours
	}
	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = constants.DefaultRetentionDays
	}
	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultBackoffInitialMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultBackoffMaxMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultHistoryRetryAttempts
	}
	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if url := os.Getenv("QUEUECAST_GATEWAY_URL"); url != "" {
		c.Gateway.APIBaseURL = url
	}
	if dir := os.Getenv("QUEUECAST_DATA_DIR"); dir != "" {
		c.Storage.DataDir = dir
	}
	if dir := os.Getenv("QUEUECAST_MEDIA_DIR"); dir != "" {
		c.Media.CacheDir = dir
	}
	if path := os.Getenv("QUEUECAST_HISTORY_DB"); path != "" {
		c.Storage.HistoryDBPath = path
	}
}
