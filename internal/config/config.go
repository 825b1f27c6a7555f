package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	Stores    StoresConfig    `yaml:"stores"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	APNs      APNsConfig      `yaml:"apns"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	DBName      string `yaml:"dbname"`
	SSLMode     string `yaml:"sslmode"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// StorageConfig selects and configures the blob store driver
type StorageConfig struct {
	Driver        string        `yaml:"driver"` // "s3" or "minio"
	Region        string        `yaml:"region"`
	Bucket        string        `yaml:"bucket"`
	AccessKey     string        `yaml:"access_key"`
	SecretKey     string        `yaml:"secret_key"`
	Endpoint      string        `yaml:"endpoint"`
	DisableSSL    bool          `yaml:"disable_ssl"`
	PublicBaseURL string        `yaml:"public_base_url"`
	Buckets       BucketsConfig `yaml:"buckets"`
}

// BucketsConfig names the logical buckets used by each store
type BucketsConfig struct {
	Slides  string `yaml:"slides"`
	Gallery string `yaml:"gallery"`
	Leaders string `yaml:"leaders"`
	Events  string `yaml:"events"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// StoresConfig tunes the domain stores
type StoresConfig struct {
	LoadTimeout      time.Duration `yaml:"load_timeout"`
	UploadTimeout    time.Duration `yaml:"upload_timeout"`
	MaxImageBytes    int64         `yaml:"max_image_bytes"`
	ReconnectInitial time.Duration `yaml:"reconnect_initial"`
	ReconnectMax     time.Duration `yaml:"reconnect_max"`
}

// RateLimitConfig limits public message submissions per client IP
type RateLimitConfig struct {
	MessagesPerMinute int `yaml:"messages_per_minute"`
}

// APNsConfig configures push notifications to admin devices
type APNsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	KeyPath    string `yaml:"key_path"`
	KeyID      string `yaml:"key_id"`
	TeamID     string `yaml:"team_id"`
	Topic      string `yaml:"topic"`
	Production bool   `yaml:"production"`
}

// BootstrapConfig creates the first dashboard account on startup
type BootstrapConfig struct {
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "s3"
	}
	if c.Storage.Buckets.Slides == "" {
		c.Storage.Buckets.Slides = "slides"
	}
	if c.Storage.Buckets.Gallery == "" {
		c.Storage.Buckets.Gallery = "gallery"
	}
	if c.Storage.Buckets.Leaders == "" {
		c.Storage.Buckets.Leaders = "leaders"
	}
	if c.Storage.Buckets.Events == "" {
		c.Storage.Buckets.Events = "events"
	}
	if c.JWT.SessionTTL == 0 {
		c.JWT.SessionTTL = 7 * 24 * time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Stores.LoadTimeout == 0 {
		c.Stores.LoadTimeout = 3 * time.Second
	}
	if c.Stores.UploadTimeout == 0 {
		c.Stores.UploadTimeout = 60 * time.Second
	}
	if c.Stores.MaxImageBytes == 0 {
		c.Stores.MaxImageBytes = 5 * 1024 * 1024
	}
	if c.Stores.ReconnectInitial == 0 {
		c.Stores.ReconnectInitial = 500 * time.Millisecond
	}
	if c.Stores.ReconnectMax == 0 {
		c.Stores.ReconnectMax = 30 * time.Second
	}
	if c.RateLimit.MessagesPerMinute == 0 {
		c.RateLimit.MessagesPerMinute = 5
	}
}

// Validate checks that required settings are present
func (c *Config) Validate() error {
	var errs []error
	if c.Database.Host == "" || c.Database.DBName == "" {
		errs = append(errs, errors.New("database host and dbname are required"))
	}
	if c.Storage.Driver != "s3" && c.Storage.Driver != "minio" {
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("storage bucket is required"))
	}
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis addr is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt secret is required"))
	}
	if c.Stores.ReconnectMax < c.Stores.ReconnectInitial {
		errs = append(errs, errors.New("stores.reconnect_max must not be below reconnect_initial"))
	}
	if c.APNs.Enabled && (c.APNs.KeyPath == "" || c.APNs.KeyID == "" || c.APNs.TeamID == "" || c.APNs.Topic == "") {
		errs = append(errs, errors.New("apns key_path, key_id, team_id and topic are required when enabled"))
	}
	return errors.Join(errs...)
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
