package models

// Config holds the application configuration.
type Config struct {
	Gateway       GatewayConfig `json:"gateway"`
	Storage       StorageConfig `json:"storage"`
	Media         MediaConfig   `json:"media"`
	Scheduler     TickConfig    `json:"scheduler"`
	Server        ServerConfig  `json:"server"`
	Retry         RetryConfig   `json:"retry"`
	Tracing       TracingConfig `json:"tracing"`
	LogLevel      string        `json:"log_level"`
	RetentionDays int           `json:"retentionDays"`
}

// GatewayConfig holds chat-gateway related configuration.
type GatewayConfig struct {
	APIBaseURL string `json:"api_base_url"`
	TimeoutSec int    `json:"timeoutSec"`
}

// StorageConfig holds persistence related configuration.
type StorageConfig struct {
	DataDir       string `json:"data_dir"`
	HistoryDBPath string `json:"history_db_path"`
}

// MediaConfig holds attachment store configuration.
type MediaConfig struct {
	CacheDir           string `json:"cache_dir"`
	MaxFileSizeMB      int    `json:"maxFileSizeMB"`
	DownloadTimeoutSec int    `json:"downloadTimeoutSec"`
}

// TickConfig controls the periodic drivers. TickIntervalSec is the publish
// tick cadence and is independent of the per-queue posting interval.
type TickConfig struct {
	TickIntervalSec      int `json:"tickIntervalSec"`
	CleanupIntervalHours int `json:"cleanupIntervalHours"`
}

// ServerConfig holds admin API server configuration.
type ServerConfig struct {
	Port int `json:"port"`
}

// RetryConfig holds startup retry configuration.
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

// TracingConfig holds OpenTelemetry configuration.
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"service_name"`
	ServiceVersion string  `json:"service_version"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate"`
	UseStdout      bool    `json:"use_stdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
