package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load configuration from environment variables and optionally a config file.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config.yaml next to the binary or in the working directory.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables: BATCHSCAN_SERVER_PORT, BATCHSCAN_BACKEND_API_KEY, ...
	v.SetEnvPrefix("BATCHSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers defaults for every key so AutomaticEnv picks the
// keys up even when no config file is present.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.max_upload_bytes", 32<<20)
	v.SetDefault("server.stream_interval_seconds", 1)

	v.SetDefault("backend.base_url", "")
	v.SetDefault("backend.api_key", "")
	v.SetDefault("backend.user", "batchscan-api")
	v.SetDefault("backend.connect_timeout_seconds", 10)
	v.SetDefault("backend.read_timeout_seconds", 300)
	v.SetDefault("backend.max_retries", 3)
	v.SetDefault("backend.retry_delay_seconds", 5)

	v.SetDefault("processing.max_attempts", 3)
	v.SetDefault("processing.retry_backoff_seconds", 5)
	v.SetDefault("processing.file_delay_seconds", 2)
	v.SetDefault("processing.worker_count", 4)
	v.SetDefault("processing.queue_size", 100)

	v.SetDefault("database.url", "")
}
