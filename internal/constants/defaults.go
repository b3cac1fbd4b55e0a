package constants

// Default scheduling configuration values
const (
	DefaultIntervalMinutes      = 120
	DefaultTickIntervalSec      = 60
	DefaultCleanupIntervalHours = 6
	DefaultRetentionDays        = 7
	DefaultQueuePreviewLimit    = 5
)

// Default attachment configuration values
const (
	MaxAttachmentsPerMessage  = 10
	DefaultMaxFileSizeMB      = 25
	DefaultDownloadTimeoutSec = 30
)

// Default timeout values
const (
	DefaultPublishTimeoutSec     = 30
	DefaultGatewayTimeoutSec     = 30
	DefaultServerPort            = 8084
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	DefaultHistoryRetryAttempts  = 3
	DefaultBackoffInitialMs      = 500
	DefaultBackoffMaxMs          = 5000
	ServerErrorChannelSize       = 1
)

// Gateway circuit breaker defaults
const (
	DefaultBreakerMaxFailures = 5
	DefaultBreakerCooldownSec = 120
)

// Display limits for queue listings
const (
	ContentPreviewLength = 100
)
