// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig              `mapstructure:"app"`
	Database      DatabaseConfig         `mapstructure:"database"`
	Store         StoreConfig            `mapstructure:"store"`
	Queue         QueueConfig            `mapstructure:"queue"`
	Sweeps        map[string]SweepConfig `mapstructure:"sweeps"`
	HRAPI         HRAPIConfig            `mapstructure:"hrapi"`
	OAuth         OAuthConfig            `mapstructure:"oauth"`
	AI            AIConfig               `mapstructure:"ai"`
	AuthPoll      AuthPollConfig         `mapstructure:"auth_poll"`
	Media         MediaConfig            `mapstructure:"media"`
	Logging       LoggingConfig          `mapstructure:"logging"`
	Notifications NotificationConfig     `mapstructure:"notifications"`
	Server        ServerConfig           `mapstructure:"server"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	Index      string   `mapstructure:"index"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StoreConfig holds settings for the persisted record store.
type StoreConfig struct {
	KeyPrefix     string `mapstructure:"key_prefix"`
	UpdateRetries int    `mapstructure:"update_retries"` // retries of a store write after a successful side effect
}

// QueueConfig holds settings for the background task queue.
type QueueConfig struct {
	Capacity   int `mapstructure:"capacity"`
	Workers    int `mapstructure:"workers"`
	JobTimeout int `mapstructure:"job_timeout"` // milliseconds
}

// SweepConfig holds per-kind settings for bulk sweeps.
type SweepConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// --- Specific Configuration Sections ---

// HRAPIConfig holds settings for the external HR system client.
type HRAPIConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	Token       string `mapstructure:"token"`
	Timeout     int    `mapstructure:"timeout"` // milliseconds
	PassedState string `mapstructure:"passed_state"`
}

// OAuthConfig holds settings for the HR system's authorization endpoint.
type OAuthConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Timeout      int    `mapstructure:"timeout"` // milliseconds
}

// AIConfig holds settings for the AI scoring service.
type AIConfig struct {
	BaseURL      string  `mapstructure:"base_url"`
	APIKey       string  `mapstructure:"api_key"`
	Timeout      int     `mapstructure:"timeout"` // milliseconds
	MaxRetries   int     `mapstructure:"max_retries"`
	PassingScore float64 `mapstructure:"passing_score"`
}

// AuthPollConfig bounds the authorization-completion poll.
type AuthPollConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
	Interval    int `mapstructure:"interval"` // milliseconds
}

// MediaConfig holds validation limits for recorded videos.
type MediaConfig struct {
	MaxVideoSeconds int   `mapstructure:"max_video_seconds"`
	MaxVideoBytes   int64 `mapstructure:"max_video_bytes"`
}

// NotificationConfig holds settings for the notification sink.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
		Subject   string `mapstructure:"subject"`
	} `mapstructure:"email"`
	Operator struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"operator"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// ServerConfig holds settings for the health/metrics/admin HTTP server.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}
