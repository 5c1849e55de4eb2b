package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Mail       MailConfig       `yaml:"mail"`
	Credential CredentialConfig `yaml:"credential"`
	Session    SessionConfig    `yaml:"session"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	GRPC       GRPCConfig       `yaml:"grpc"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Port    string `yaml:"port"`
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`
	TLSCA   string `yaml:"tls_ca"`
}

// TLSEnabled reports whether certificates were configured
func (s ServerConfig) TLSEnabled() bool { return s.TLSCert != "" }

type StoreConfig struct {
	Type         string `yaml:"type"` // "sqlite" | "postgres" | "memory"
	DBPath       string `yaml:"db_path"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// MailConfig is the alert relay. An empty host means alerts are only logged.
type MailConfig struct {
	Host      string        `yaml:"host"`
	Port      int           `yaml:"port"`
	Username  string        `yaml:"username"`
	Password  string        `yaml:"password"`
	From      string        `yaml:"from"`
	To        string        `yaml:"to"`
	Plaintext bool          `yaml:"plaintext"`
	Timeout   time.Duration `yaml:"timeout"`
}

// CredentialConfig seeds the operator login on first start
type CredentialConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type SessionConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type RateLimitConfig struct {
	Backend       string      `yaml:"backend"` // "memory" | "redis" | "off"
	RedisAddr     string      `yaml:"redis_addr"`
	RedisPassword string      `yaml:"redis_password"`
	RedisDB       int         `yaml:"redis_db"`
	Default       LimitConfig `yaml:"default"`
	Dashboard     LimitConfig `yaml:"dashboard"`
}

type LimitConfig struct {
	Count  int           `yaml:"count"`
	Window time.Duration `yaml:"window"`
}

type GRPCConfig struct {
	Addr           string        `yaml:"addr"`
	HealthInterval time.Duration `yaml:"health_interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" | "json"
}

// Load reads the YAML file at path (skipped when path is empty), then
// applies defaults and environment overrides and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "5000"
	}
	if c.Store.Type == "" {
		c.Store.Type = "sqlite"
	}
	if c.Store.DBPath == "" {
		c.Store.DBPath = "./temperatures.db"
	}
	if c.Store.MaxOpenConns == 0 {
		c.Store.MaxOpenConns = 10
	}
	if c.Store.MaxIdleConns == 0 {
		c.Store.MaxIdleConns = 5
	}
	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	if c.Mail.Timeout == 0 {
		c.Mail.Timeout = 15 * time.Second
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 12 * time.Hour
	}
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = "memory"
	}
	if c.RateLimit.Default.Count == 0 {
		c.RateLimit.Default.Count = 5
	}
	if c.RateLimit.Default.Window == 0 {
		c.RateLimit.Default.Window = time.Minute
	}
	if c.RateLimit.Dashboard.Count == 0 {
		c.RateLimit.Dashboard.Count = 1
	}
	if c.RateLimit.Dashboard.Window == 0 {
		c.RateLimit.Dashboard.Window = time.Second
	}
	if c.GRPC.Addr == "" {
		c.GRPC.Addr = ":50051"
	}
	if c.GRPC.HealthInterval == 0 {
		c.GRPC.HealthInterval = 15 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// applyEnv lets deployments override the file without editing it
func (c *Config) applyEnv() error {
	overrides := []struct {
		env string
		dst *string
	}{
		{"PORT", &c.Server.Port},
		{"TLS_CERT", &c.Server.TLSCert},
		{"TLS_KEY", &c.Server.TLSKey},
		{"TLS_CA", &c.Server.TLSCA},
		{"REPO_TYPE", &c.Store.Type},
		{"DB_PATH", &c.Store.DBPath},
		{"FERMPI_DSN", &c.Store.DSN},
		{"FERMPI_SMTP_HOST", &c.Mail.Host},
		{"FERMPI_SMTP_PASSWORD", &c.Mail.Password},
		{"FERMPI_ALERT_TO", &c.Mail.To},
		{"FERMPI_ADMIN_USER", &c.Credential.Username},
		{"FERMPI_ADMIN_PASSWORD", &c.Credential.Password},
		{"FERMPI_RATE_LIMIT_BACKEND", &c.RateLimit.Backend},
		{"FERMPI_REDIS_ADDR", &c.RateLimit.RedisAddr},
		{"FERMPI_GRPC_ADDR", &c.GRPC.Addr},
		{"FERMPI_LOG_LEVEL", &c.Log.Level},
		{"FERMPI_LOG_FORMAT", &c.Log.Format},
	}
	for _, s := range overrides {
		if v, ok := os.LookupEnv(s.env); ok && v != "" {
			*s.dst = v
		}
	}

	if v := os.Getenv("FERMPI_SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FERMPI_SMTP_PORT: %w", err)
		}
		c.Mail.Port = port
	}
	if v := os.Getenv("FERMPI_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("FERMPI_SESSION_TTL: %w", err)
		}
		c.Session.TTL = d
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Store.Type {
	case "sqlite":
		if c.Store.DBPath == "" {
			return fmt.Errorf("store.db_path is required for sqlite")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store.type %q", c.Store.Type)
	}

	if c.Server.TLSEnabled() && (c.Server.TLSKey == "" || c.Server.TLSCA == "") {
		return fmt.Errorf("server.tls_key and server.tls_ca are required with server.tls_cert")
	}

	if c.Mail.Host != "" && (c.Mail.From == "" || c.Mail.To == "") {
		return fmt.Errorf("mail.from and mail.to are required with mail.host")
	}

	if (c.Credential.Username == "") != (c.Credential.Password == "") {
		return fmt.Errorf("credential.username and credential.password must be set together")
	}

	if c.Session.TTL < 0 {
		return fmt.Errorf("session.ttl must be positive")
	}

	switch c.RateLimit.Backend {
	case "memory", "off":
	case "redis":
		if c.RateLimit.RedisAddr == "" {
			return fmt.Errorf("rate_limit.redis_addr is required for redis")
		}
	default:
		return fmt.Errorf("unknown rate_limit.backend %q", c.RateLimit.Backend)
	}
	for name, l := range map[string]LimitConfig{"default": c.RateLimit.Default, "dashboard": c.RateLimit.Dashboard} {
		if l.Count < 0 || l.Window < 0 {
			return fmt.Errorf("rate_limit.%s must be positive", name)
		}
	}

	if c.GRPC.HealthInterval <= 0 {
		return fmt.Errorf("grpc.health_interval must be positive")
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	return nil
}
