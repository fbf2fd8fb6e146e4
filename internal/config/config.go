package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket"`
	AI         AIConfig         `mapstructure:"ai"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Security   SecurityConfig   `mapstructure:"security"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Backend        string `mapstructure:"backend"`
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
	Seed           bool   `mapstructure:"seed"`
	SeedFile       string `mapstructure:"seed_file"`
}

type AuthConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret"`
	TokenExpiry int    `mapstructure:"token_expiry"`
	BcryptCost  int    `mapstructure:"bcrypt_cost"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type WebSocketConfig struct {
	PingInterval int `mapstructure:"ping_interval"`
	PongTimeout  int `mapstructure:"pong_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

// AIConfig contains LLM provider configuration
type AIConfig struct {
	Providers       []AIProviderConfig `mapstructure:"providers"`
	FallbackEnabled bool               `mapstructure:"fallback_enabled"`
	Timeout         string             `mapstructure:"timeout"`
	Voice           string             `mapstructure:"voice"`
	BreakerFailures int                `mapstructure:"breaker_failures"`
	BreakerReset    string             `mapstructure:"breaker_reset"`
}

// AIProviderConfig contains configuration for a single provider
type AIProviderConfig struct {
	Type         string `mapstructure:"type"`
	Enabled      bool   `mapstructure:"enabled"`
	URL          string `mapstructure:"url"`
	APIKey       string `mapstructure:"api_key"`
	DefaultModel string `mapstructure:"default_model"`
	SpeechModel  string `mapstructure:"speech_model"`
	MaxTokens    int    `mapstructure:"max_tokens"`
	Priority     int    `mapstructure:"priority"`
}

// TimeoutDuration parses Timeout, defaulting to 30s
func (c AIConfig) TimeoutDuration() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// BreakerResetDuration parses BreakerReset, defaulting to 30s
func (c AIConfig) BreakerResetDuration() time.Duration {
	return parseDuration(c.BreakerReset, 30*time.Second)
}

// MQTTConfig configures the optional device state publisher
type MQTTConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Broker    string `mapstructure:"broker"`
	ClientID  string `mapstructure:"client_id"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	TopicRoot string `mapstructure:"topic_root"`
	QoS       int    `mapstructure:"qos"`
}

type SecurityConfig struct {
	AllowedOrigins []string          `mapstructure:"allowed_origins"`
	LoginRateLimit RateLimitSettings `mapstructure:"login_rate_limit"`
}

type RateLimitSettings struct {
	Enabled  bool   `mapstructure:"enabled"`
	Requests int    `mapstructure:"requests"`
	Window   string `mapstructure:"window"`
}

// WindowDuration parses Window, defaulting to one minute
func (r RateLimitSettings) WindowDuration() time.Duration {
	return parseDuration(r.Window, time.Minute)
}

type MonitoringConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Load reads config.yaml from ./configs or the working directory and applies
// environment overrides. A missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(viper.New(), "")
}

// LoadFrom loads configuration into v, reading the named file when path is set
func LoadFrom(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.mode", "GIN_MODE")
	v.BindEnv("database.backend", "DATABASE_BACKEND")
	v.BindEnv("database.path", "DATABASE_PATH")
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("mqtt.enabled", "MQTT_ENABLED")
	v.BindEnv("mqtt.broker", "MQTT_BROKER")
	v.BindEnv("mqtt.username", "MQTT_USERNAME")
	v.BindEnv("mqtt.password", "MQTT_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	applyProviderEnv(config.AI.Providers)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Provider lists do not bind through viper's env lookup, so API keys and
// endpoints are overlaid by provider type.
func applyProviderEnv(providers []AIProviderConfig) {
	for i := range providers {
		switch providers[i].Type {
		case "gemini":
			if key := os.Getenv("GEMINI_API_KEY"); key != "" {
				providers[i].APIKey = key
			}
		case "ollama":
			if url := os.Getenv("OLLAMA_URL"); url != "" {
				providers[i].URL = url
			}
		}
	}
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.mode", "development")

	// Database defaults
	v.SetDefault("database.backend", BackendSQLite)
	v.SetDefault("database.path", "./data/panel.db")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.seed", true)

	// Auth defaults
	v.SetDefault("auth.token_expiry", 86400)
	v.SetDefault("auth.bcrypt_cost", 10)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// WebSocket defaults
	v.SetDefault("websocket.ping_interval", 30)
	v.SetDefault("websocket.pong_timeout", 60)
	v.SetDefault("websocket.write_timeout", 10)

	// AI defaults
	v.SetDefault("ai.fallback_enabled", true)
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.voice", "Algenib")
	v.SetDefault("ai.breaker_failures", 5)
	v.SetDefault("ai.breaker_reset", "30s")
	v.SetDefault("ai.providers", []map[string]interface{}{
		{
			"type":          "gemini",
			"enabled":       true,
			"url":           "https://generativelanguage.googleapis.com/v1beta",
			"default_model": "gemini-2.0-flash",
			"speech_model":  "gemini-2.5-flash-preview-tts",
			"max_tokens":    2048,
			"priority":      1,
		},
		{
			"type":          "ollama",
			"enabled":       false,
			"url":           "http://localhost:11434",
			"default_model": "llama3.1",
			"priority":      2,
		},
	})

	// MQTT defaults
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "home-panel")
	v.SetDefault("mqtt.topic_root", "homepanel")
	v.SetDefault("mqtt.qos", 1)

	// Security defaults
	v.SetDefault("security.allowed_origins", []string{"http://localhost:3000", "http://localhost:9002"})
	v.SetDefault("security.login_rate_limit.enabled", true)
	v.SetDefault("security.login_rate_limit.requests", 10)
	v.SetDefault("security.login_rate_limit.window", "1m")

	// Monitoring defaults
	v.SetDefault("monitoring.enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
}

// Validate checks the loaded configuration for values the server cannot run with
func (c *Config) Validate() error {
	var errors []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errors = append(errors, "server.port must be between 1 and 65535")
	}
	if c.Server.Host == "" {
		errors = append(errors, "server.host is required")
	}

	switch c.Database.Backend {
	case BackendMemory:
	case BackendSQLite, BackendBolt:
		if c.Database.Path == "" {
			errors = append(errors, "database.path is required for the "+c.Database.Backend+" backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("database.backend must be one of memory, sqlite, bolt (got %q)", c.Database.Backend))
	}

	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == "your-secret-key-here" {
		errors = append(errors, "auth.jwt_secret must be set to a secure value")
	}
	if c.Auth.TokenExpiry <= 0 {
		errors = append(errors, "auth.token_expiry must be greater than 0")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			errors = append(errors, "mqtt.broker is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errors = append(errors, "mqtt.qos must be 0, 1 or 2")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", strings.Join(errors, "; "))
	}
	return nil
}
