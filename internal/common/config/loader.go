// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like HRAPI_TOKEN
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// 1. Load base config
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// 2. Merge environment-specific config
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	// 3. Expand ${VAR} placeholders
	expandEnvVars(viper.GetViper())

	// 4. Unmarshal final config
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	// 5. Direct override if still empty
	overrideEmptyConfig(&cfg)

	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Load .env from multiple possible locations so tests and the binary
// can run from different working directories.
func loadEnvFile() {
	possiblePaths := []string{
		".env",          // Current directory
		"../.env",       // Parent directory
		"../../.env",    // Two levels up (for tests in test/e2e/)
		"../../../.env", // Three levels up
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				fmt.Printf("Loaded .env from: %s\n", path)
				return
			}
		}
	}

	fmt.Printf(".env file not found in any location, using system environment variables\n")
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars replaces ${VAR} style values with environment variables.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.HRAPI.Token == "" {
		if val := os.Getenv("HRAPI_TOKEN"); val != "" {
			cfg.HRAPI.Token = val
		}
	}
	if cfg.HRAPI.BaseURL == "" {
		if val := os.Getenv("HRAPI_BASE_URL"); val != "" {
			cfg.HRAPI.BaseURL = val
		}
	}

	if cfg.AI.APIKey == "" {
		if val := os.Getenv("AI_API_KEY"); val != "" {
			cfg.AI.APIKey = val
		}
	}

	if cfg.OAuth.ClientSecret == "" {
		if val := os.Getenv("OAUTH_CLIENT_SECRET"); val != "" {
			cfg.OAuth.ClientSecret = val
		}
	}

	if cfg.Notifications.Operator.TopicARN == "" {
		if val := os.Getenv("OPERATOR_TOPIC_ARN"); val != "" {
			cfg.Notifications.Operator.TopicARN = val
		}
	}

	// Database overrides
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile() // Load env file first

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// Expand environment variables before unmarshal
	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	// Store defaults
	if cfg.Store.KeyPrefix == "" {
		cfg.Store.KeyPrefix = "subject:"
	}
	if cfg.Store.UpdateRetries == 0 {
		cfg.Store.UpdateRetries = 3
	}

	// Queue defaults
	if cfg.Queue.Capacity == 0 {
		cfg.Queue.Capacity = 500
	}
	if cfg.Queue.Workers == 0 {
		cfg.Queue.Workers = 4
	}
	if cfg.Queue.JobTimeout == 0 {
		cfg.Queue.JobTimeout = 300000
	}

	// Database defaults
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	// Elasticsearch fallbacks
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "screened-candidates"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// External API timeout defaults
	if cfg.HRAPI.Timeout == 0 {
		cfg.HRAPI.Timeout = 10000
	}
	if cfg.HRAPI.PassedState == "" {
		cfg.HRAPI.PassedState = "video_requested"
	}
	if cfg.OAuth.Timeout == 0 {
		cfg.OAuth.Timeout = 5000
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 60000
	}
	if cfg.AI.MaxRetries == 0 {
		cfg.AI.MaxRetries = 2
	}
	if cfg.AI.PassingScore == 0 {
		cfg.AI.PassingScore = 70
	}

	// Authorization poll defaults
	if cfg.AuthPoll.MaxAttempts == 0 {
		cfg.AuthPoll.MaxAttempts = 30
	}
	if cfg.AuthPoll.Interval == 0 {
		cfg.AuthPoll.Interval = 6000
	}

	// Media defaults
	if cfg.Media.MaxVideoSeconds == 0 {
		cfg.Media.MaxVideoSeconds = 60
	}
	if cfg.Media.MaxVideoBytes == 0 {
		cfg.Media.MaxVideoBytes = 50 * 1024 * 1024
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}

	if cfg.Notifications.Email.Subject == "" {
		cfg.Notifications.Email.Subject = "Hiring pipeline update"
	}
	if cfg.Notifications.AWS.Region == "" {
		cfg.Notifications.AWS.Region = "us-east-1"
	}

	// Sweep defaults: every known kind enabled unless configured off
	if cfg.Sweeps == nil {
		cfg.Sweeps = map[string]SweepConfig{}
	}
	for _, kind := range []string{"sourcing", "score-applications", "refresh-videos", "recommend-candidates"} {
		if _, exists := cfg.Sweeps[kind]; !exists {
			cfg.Sweeps[kind] = SweepConfig{Enabled: true}
		}
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}

	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if cfg.HRAPI.BaseURL == "" {
		return fmt.Errorf("hrapi.base_url is required")
	}
	if cfg.AI.BaseURL == "" {
		return fmt.Errorf("ai.base_url is required")
	}
	if cfg.OAuth.BaseURL == "" {
		return fmt.Errorf("oauth.base_url is required")
	}

	if cfg.Queue.Capacity < 1 {
		return fmt.Errorf("queue.capacity must be at least 1")
	}
	if cfg.Queue.Workers < 1 {
		return fmt.Errorf("queue.workers must be at least 1")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// IsSweepEnabled checks if a specific sweep kind is enabled
func IsSweepEnabled(cfg *Config, kind string) bool {
	if sweep, exists := cfg.Sweeps[kind]; exists {
		return sweep.Enabled
	}
	return true
}
