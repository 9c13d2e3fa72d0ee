package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// envPrefix namespaces every environment variable, e.g. THEMEKEYS_SERVER_PORT.
const envPrefix = "THEMEKEYS"

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Database DatabaseConfig `yaml:"database" envconfig:"DATABASE"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	License  LicenseConfig  `yaml:"license" envconfig:"LICENSE"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig contains registry store configuration. Driver selects the
// backing store: "postgres" for production, "memory" for local development.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver" envconfig:"DRIVER" default:"postgres"`
	DSN             string        `yaml:"dsn" envconfig:"DSN" default:"host=localhost user=themekeys password=themekeys dbname=themekeys port=5432 sslmode=disable"`
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"CONN_MAX_LIFETIME" default:"1h"`
}

// SecurityConfig contains security-related configuration. AdminToken gates
// the generation and listing endpoints; it must be set explicitly, there is
// no usable default.
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	AdminToken     string          `yaml:"admin_token" envconfig:"ADMIN_TOKEN"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/licensed.log"`
}

// LicenseConfig parameterizes the activation engine. DomainSuffix is the
// storefront platform suffix accepted domains must carry; KeyPrefix is the
// product prefix of issued keys.
type LicenseConfig struct {
	KeyPrefix    string `yaml:"key_prefix" envconfig:"KEY_PREFIX" default:"TL"`
	DomainSuffix string `yaml:"domain_suffix" envconfig:"DOMAIN_SUFFIX" default:".myshopify.com"`
	MaxGenerate  int    `yaml:"max_generate" envconfig:"MAX_GENERATE" default:"100"`
}

// Load loads configuration from a .env file (if present), environment
// variables, and an optional YAML file. Environment variables win over the
// file for any field they set.
func Load() (*Config, error) {
	// Best effort; absence of a .env file is the normal case in production.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if path := configFilePath(); path != "" {
		fileCfg, err := loadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = merge(*fileCfg, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// merge overlays env config on top of file config; env wins for any field it
// actually set, file values fill the gaps envconfig left at defaults or zero.
func merge(fileCfg, envCfg Config) Config {
	out := envCfg
	if fileCfg.Server.Port != 0 && !envSet("SERVER_PORT") {
		out.Server.Port = fileCfg.Server.Port
	}
	if fileCfg.Database.DSN != "" && !envSet("DATABASE_DSN") {
		out.Database.DSN = fileCfg.Database.DSN
	}
	if fileCfg.Database.Driver != "" && !envSet("DATABASE_DRIVER") {
		out.Database.Driver = fileCfg.Database.Driver
	}
	if fileCfg.Security.AdminToken != "" && !envSet("SECURITY_ADMIN_TOKEN") {
		out.Security.AdminToken = fileCfg.Security.AdminToken
	}
	if len(fileCfg.Security.AllowedOrigins) > 0 && !envSet("SECURITY_ALLOWED_ORIGINS") {
		out.Security.AllowedOrigins = fileCfg.Security.AllowedOrigins
	}
	if fileCfg.Logging.Level != "" && !envSet("LOGGING_LEVEL") {
		out.Logging.Level = fileCfg.Logging.Level
	}
	if fileCfg.License.KeyPrefix != "" && !envSet("LICENSE_KEY_PREFIX") {
		out.License.KeyPrefix = fileCfg.License.KeyPrefix
	}
	if fileCfg.License.DomainSuffix != "" && !envSet("LICENSE_DOMAIN_SUFFIX") {
		out.License.DomainSuffix = fileCfg.License.DomainSuffix
	}
	if fileCfg.License.MaxGenerate != 0 && !envSet("LICENSE_MAX_GENERATE") {
		out.License.MaxGenerate = fileCfg.License.MaxGenerate
	}
	return out
}

func envSet(suffix string) bool {
	_, ok := os.LookupEnv(envPrefix + "_" + suffix)
	return ok
}

func configFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "memory" {
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required for the postgres driver")
	}
	if c.License.KeyPrefix == "" {
		return fmt.Errorf("license key prefix must not be empty")
	}
	if !strings.HasPrefix(c.License.DomainSuffix, ".") {
		return fmt.Errorf("license domain suffix must start with a dot: %q", c.License.DomainSuffix)
	}
	if c.License.MaxGenerate < 1 || c.License.MaxGenerate > 1000 {
		return fmt.Errorf("license max generate out of range: %d", c.License.MaxGenerate)
	}
	return nil
}

// Default returns the built-in configuration, used by tests.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "memory",
			MaxOpenConns:    20,
			MaxIdleConns:    10,
			ConnMaxLifetime: time.Hour,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "stdout",
			FilePath: "logs/licensed.log",
		},
		License: LicenseConfig{
			KeyPrefix:    "TL",
			DomainSuffix: ".myshopify.com",
			MaxGenerate:  100,
		},
	}
}
