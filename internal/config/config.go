// Package config loads service configuration from an optional YAML file
// and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	BearerToken   string `yaml:"bearer_token"`
	MaxTextLength int    `yaml:"max_text_length"`
}

// DashScopeConfig holds settings for the realtime synthesis endpoint.
type DashScopeConfig struct {
	URL                 string `yaml:"url"`
	APIKey              string `yaml:"api_key"`
	DefaultVoice        string `yaml:"default_voice"`
	SynthesisTimeoutMS  int    `yaml:"synthesis_timeout_ms"`
	StreamItemTimeoutMS int    `yaml:"stream_item_timeout_ms"`
}

// SynthesisTimeout is the bound on the whole blocking synthesis call.
func (c DashScopeConfig) SynthesisTimeout() time.Duration {
	return time.Duration(c.SynthesisTimeoutMS) * time.Millisecond
}

// StreamItemTimeout is the bound on waiting for each streamed item.
func (c DashScopeConfig) StreamItemTimeout() time.Duration {
	return time.Duration(c.StreamItemTimeoutMS) * time.Millisecond
}

// StorageConfig holds artifact persistence settings.
type StorageConfig struct {
	EnableSave    bool   `yaml:"enable_save"`
	Type          string `yaml:"type"` // local or oss
	OutputDir     string `yaml:"output_dir"`
	PublicBaseURL string `yaml:"public_base_url"`

	// Object storage settings, used when Type is "oss".
	OSSEndpoint         string `yaml:"oss_endpoint"`
	OSSBucket           string `yaml:"oss_bucket"`
	OSSAccessKey        string `yaml:"oss_access_key"`
	OSSSecretKey        string `yaml:"oss_secret_key"`
	OSSUseSSL           bool   `yaml:"oss_use_ssl"`
	OSSURLMode          string `yaml:"oss_url_mode"` // public or signed
	OSSPublicPrefix     string `yaml:"oss_public_prefix"`
	OSSSignedTTLSeconds int    `yaml:"oss_signed_ttl_seconds"`
}

// OSSSignedTTL is the lifetime of presigned artifact URLs.
func (c StorageConfig) OSSSignedTTL() time.Duration {
	return time.Duration(c.OSSSignedTTLSeconds) * time.Second
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	DashScope DashScopeConfig `yaml:"dashscope"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:          "0.0.0.0",
			Port:          9000,
			MaxTextLength: 4096,
		},
		DashScope: DashScopeConfig{
			URL:                 "wss://dashscope.aliyuncs.com/api-ws/v1/realtime",
			DefaultVoice:        "Cherry",
			SynthesisTimeoutMS:  60_000,
			StreamItemTimeoutMS: 30_000,
		},
		Storage: StorageConfig{
			EnableSave:          true,
			Type:                "local",
			OutputDir:           "output",
			OSSUseSSL:           true,
			OSSURLMode:          "public",
			OSSSignedTTLSeconds: 3600,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads configuration from an optional YAML file, applies environment
// variable overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// AuthDisabled returns true if bearer token authentication is disabled.
func (c *Config) AuthDisabled() bool {
	return c.Server.BearerToken == ""
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("server port must be between 1 and 65535")
	}

	if c.Server.MaxTextLength < 1 {
		return errors.New("max_text_length must be at least 1")
	}

	if c.DashScope.URL == "" {
		return errors.New("dashscope url must be set")
	}

	if c.DashScope.SynthesisTimeoutMS <= 0 {
		return errors.New("synthesis_timeout_ms must be positive")
	}

	if c.DashScope.StreamItemTimeoutMS <= 0 {
		return errors.New("stream_item_timeout_ms must be positive")
	}

	switch c.Storage.Type {
	case "local":
	case "oss":
		if c.Storage.EnableSave {
			if c.Storage.OSSEndpoint == "" {
				return errors.New("oss_endpoint must be set for oss storage")
			}
			if c.Storage.OSSBucket == "" {
				return errors.New("oss_bucket must be set for oss storage")
			}
		}
	default:
		return errors.New("storage type must be one of: local, oss")
	}

	if c.Storage.OSSURLMode != "public" && c.Storage.OSSURLMode != "signed" {
		return errors.New("oss_url_mode must be one of: public, signed")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return errors.New("log level must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.Logging.Format] {
		return errors.New("log format must be one of: text, json")
	}

	return nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.Server.Host, "SERVER_HOST")
	overrideInt(&cfg.Server.Port, "SERVER_PORT")
	overrideString(&cfg.Server.BearerToken, "BEARER_TOKEN")
	overrideInt(&cfg.Server.MaxTextLength, "MAX_TEXT_LENGTH")

	overrideString(&cfg.DashScope.URL, "DASHSCOPE_URL")
	overrideString(&cfg.DashScope.APIKey, "DASHSCOPE_API_KEY")
	overrideString(&cfg.DashScope.DefaultVoice, "DASHSCOPE_DEFAULT_VOICE")
	overrideInt(&cfg.DashScope.SynthesisTimeoutMS, "SYNTHESIS_TIMEOUT_MS")
	overrideInt(&cfg.DashScope.StreamItemTimeoutMS, "STREAM_ITEM_TIMEOUT_MS")

	overrideBool(&cfg.Storage.EnableSave, "ENABLE_SAVE")
	overrideString(&cfg.Storage.Type, "STORAGE_TYPE")
	overrideString(&cfg.Storage.OutputDir, "OUTPUT_DIR")
	overrideString(&cfg.Storage.PublicBaseURL, "PUBLIC_BASE_URL")
	overrideString(&cfg.Storage.OSSEndpoint, "OSS_ENDPOINT")
	overrideString(&cfg.Storage.OSSBucket, "OSS_BUCKET")
	overrideString(&cfg.Storage.OSSAccessKey, "OSS_ACCESS_KEY")
	overrideString(&cfg.Storage.OSSSecretKey, "OSS_SECRET_KEY")
	overrideBool(&cfg.Storage.OSSUseSSL, "OSS_USE_SSL")
	overrideString(&cfg.Storage.OSSURLMode, "OSS_URL_MODE")
	overrideString(&cfg.Storage.OSSPublicPrefix, "OSS_PUBLIC_PREFIX")
	overrideInt(&cfg.Storage.OSSSignedTTLSeconds, "OSS_SIGNED_TTL_SECONDS")

	overrideString(&cfg.Logging.Level, "LOG_LEVEL")
	overrideString(&cfg.Logging.Format, "LOG_FORMAT")
}

func overrideString(target *string, key string) {
	if value := os.Getenv(key); value != "" {
		*target = value
	}
}

func overrideInt(target *int, key string) {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			*target = intVal
		}
	}
}

func overrideBool(target *bool, key string) {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			*target = boolVal
		}
	}
}
