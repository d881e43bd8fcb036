// Package config loads process configuration from an optional .env file, an
// optional YAML file named by CONFIG_FILE and the environment, in increasing
// order of precedence.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config is the complete process configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	Query     QueryConfig     `yaml:"query"`
	Logging   LoggingConfig   `yaml:"logging"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Audit     AuditConfig     `yaml:"audit"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"HTTP_ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
}

type AuthConfig struct {
	SecretKey  string        `yaml:"secret_key" env:"SECRET_KEY"`
	TokenTTL   time.Duration `yaml:"token_ttl" env:"TOKEN_TTL"`
	BcryptCost int           `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
}

// StorageConfig selects the character and credential backends. An empty
// CredentialsDriver reuses Driver.
type StorageConfig struct {
	Driver            string `yaml:"driver" env:"STORAGE_DRIVER"`
	CredentialsDriver string `yaml:"credentials_driver" env:"CREDENTIALS_DRIVER"`
	CharactersFile    string `yaml:"characters_file" env:"CHARACTERS_FILE"`
	UsersFile         string `yaml:"users_file" env:"USERS_FILE"`
	SQLitePath        string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	PostgresDSN       string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
	AutoMigrate       bool   `yaml:"auto_migrate" env:"POSTGRES_AUTO_MIGRATE"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
	Prefix   string `yaml:"prefix" env:"REDIS_PREFIX"`
}

type QueryConfig struct {
	SampleSize   int `yaml:"sample_size" env:"DEFAULT_SAMPLE_SIZE"`
	DefaultLimit int `yaml:"default_limit" env:"DEFAULT_LIMIT"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// CORSConfig holds a comma separated origin list. Empty or "*" allows all.
type CORSConfig struct {
	AllowedOrigins string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
}

// Origins splits AllowedOrigins.
func (c CORSConfig) Origins() []string {
	var out []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			out = append(out, origin)
		}
	}
	return out
}

// RateLimitConfig throttles each client. RPS <= 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps" env:"RATE_LIMIT_RPS"`
	Burst int     `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

type AuditConfig struct {
	File string `yaml:"file" env:"AUDIT_LOG_FILE"`
	Size int    `yaml:"size" env:"AUDIT_LOG_SIZE"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":5000",
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Auth: AuthConfig{TokenTTL: time.Hour},
		Storage: StorageConfig{
			Driver:         DriverFile,
			CharactersFile: "characters.json",
			UsersFile:      "users.json",
			SQLitePath:     "thrones.db",
			AutoMigrate:    true,
		},
		Redis:     RedisConfig{Addr: "localhost:6379", Prefix: "thrones"},
		Query:     QueryConfig{SampleSize: 20, DefaultLimit: 20},
		Logging:   LoggingConfig{Level: "info", Format: "json"},
		RateLimit: RateLimitConfig{RPS: 20, Burst: 40},
		Audit:     AuditConfig{Size: 200},
	}
}

// Load reads .env from the working directory, then CONFIG_FILE, then the
// environment.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit dotenv path. A missing dotenv file is
// not an error.
func LoadFrom(envFile string) (*Config, error) {
	cfg, err := Read(envFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read merges every source like LoadFrom but skips validation. Tooling that
// only needs a subset of settings, such as migrations, starts here.
func Read(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeYAML(path); err != nil {
			return nil, err
		}
	}

	// StrictDecode reports ErrInvalidTarget when no variable is set.
	if err := envdecode.StrictDecode(cfg); err != nil && !stderrors.Is(err, envdecode.ErrInvalidTarget) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) mergeYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// CredentialsDriver resolves the effective credential backend.
func (c *Config) CredentialsDriver() string {
	if c.Storage.CredentialsDriver != "" {
		return c.Storage.CredentialsDriver
	}
	return c.Storage.Driver
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Auth.SecretKey == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}

	switch c.Storage.Driver {
	case DriverFile, DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	switch c.CredentialsDriver() {
	case DriverFile, DriverMemory, DriverSQLite, DriverPostgres, DriverRedis:
	default:
		return fmt.Errorf("unsupported CREDENTIALS_DRIVER %q", c.CredentialsDriver())
	}

	if c.Storage.Driver == DriverPostgres || c.CredentialsDriver() == DriverPostgres {
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres driver")
		}
	}
	if c.CredentialsDriver() == DriverRedis && c.Redis.Addr == "" {
		return fmt.Errorf("REDIS_ADDR is required for the redis driver")
	}

	if c.Query.SampleSize <= 0 {
		return fmt.Errorf("DEFAULT_SAMPLE_SIZE must be positive")
	}
	if c.Query.DefaultLimit <= 0 {
		return fmt.Errorf("DEFAULT_LIMIT must be positive")
	}
	return nil
}
