package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"     validate:"required"`
	Backend    BackendConfig    `mapstructure:"backend"    validate:"required"`
	Processing ProcessingConfig `mapstructure:"processing" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
}

// ServerConfig contains all HTTP server related settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`

	// MaxUploadBytes bounds the total multipart body size for batch starts.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"required,gt=0"`

	// StreamIntervalSeconds is the cadence of the status stream snapshots.
	StreamIntervalSeconds int `mapstructure:"stream_interval_seconds" validate:"required,gt=0"`
}

// BackendConfig contains settings for the external analysis workflow service.
type BackendConfig struct {
	// BaseURL is the API root of the workflow service, including any
	// version prefix (e.g. https://dify.example.com/v1).
	BaseURL string `mapstructure:"base_url" validate:"required,url"`
	APIKey  string `mapstructure:"api_key"  validate:"required"`

	// User identifies this application to the workflow service.
	User string `mapstructure:"user" validate:"required"`

	// ConnectTimeoutSeconds bounds connection establishment; the read phase
	// gets its own, much longer bound because workflows can run for minutes.
	ConnectTimeoutSeconds int `mapstructure:"connect_timeout_seconds" validate:"required,gt=0"`
	ReadTimeoutSeconds    int `mapstructure:"read_timeout_seconds"    validate:"required,gt=0"`

	// MaxRetries bounds the adapter's inner retry loop for transient
	// transport failures. RetryDelaySeconds is the base of the growing
	// delay between those retries.
	MaxRetries        int `mapstructure:"max_retries"         validate:"gte=0"`
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds" validate:"required,gt=0"`
}

// ProcessingConfig contains settings for the sequential batch processor and
// the background task runner.
type ProcessingConfig struct {
	// MaxAttempts is the outer per-file attempt bound, independent of the
	// adapter's inner transport retries.
	MaxAttempts int `mapstructure:"max_attempts" validate:"required,gt=0"`

	// RetryBackoffSeconds is the base of the growing delay between outer
	// attempts on the same file.
	RetryBackoffSeconds int `mapstructure:"retry_backoff_seconds" validate:"required,gt=0"`

	// FileDelaySeconds is the fixed pause between files within one batch,
	// throttling against backend rate limits.
	FileDelaySeconds int `mapstructure:"file_delay_seconds" validate:"gte=0"`

	// WorkerCount and QueueSize shape the background task runner. Each
	// active batch occupies one worker for its whole run, so WorkerCount
	// is effectively the number of concurrently processed batches.
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize   int `mapstructure:"queue_size"   validate:"required,gt=0"`
}

// DatabaseConfig contains settings for the extracted-record store. The
// database is optional; with an empty URL the record endpoints are disabled.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}
