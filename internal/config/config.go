package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
	Forum     ForumConfig     `mapstructure:"forum"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Twilio    TwilioConfig    `mapstructure:"twilio"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port         string `mapstructure:"port"`
	Mode         string `mapstructure:"mode"`
	LegacyErrors bool   `mapstructure:"legacy_errors"`
}

type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DBName       string `mapstructure:"dbname"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogLevel     string `mapstructure:"log_level"`
}

// DSN renders the key/value connection string understood by pgx.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
		d.Host, d.User, d.Password, d.DBName, d.Port, d.SSLMode,
	)
}

type JWTConfig struct {
	Secret        string `mapstructure:"secret"`
	ExpireMinutes int    `mapstructure:"expire_minutes"`
}

func (j JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpireMinutes) * time.Minute
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type ForumConfig struct {
	AcceptedDeletePolicy string   `mapstructure:"accepted_delete_policy"`
	AdminEmails          []string `mapstructure:"admin_emails"`
}

type ReconcileConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type TwilioConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"`
}

func (t TwilioConfig) Enabled() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.From != ""
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
	ServiceName       string  `mapstructure:"service_name"`
	SampleRatio       float64 `mapstructure:"sample_ratio"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.legacy_errors", false)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "stackit")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("jwt.expire_minutes", 30)
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/app.log")

	v.SetDefault("forum.accepted_delete_policy", "keep")
	v.SetDefault("reconcile.interval", "0s")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "stackit-api")
	v.SetDefault("tracing.sample_ratio", 1.0)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("STACKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// Database
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("jwt.expire_minutes", "ACCESS_TOKEN_EXPIRE_MINUTES")

	// CORS
	v.BindEnv("cors.allowed_origins", "FRONTEND_URL")

	// Twilio
	v.BindEnv("twilio.account_sid", "TWILIO_ACCOUNT_SID")
	v.BindEnv("twilio.auth_token", "TWILIO_AUTH_TOKEN")
	v.BindEnv("twilio.from", "TWILIO_FROM_NUMBER")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")
	v.BindEnv("tracing.sample_ratio", "TRACING_SAMPLE_RATIO")
}

// Load reads .env (if present), then configs/config.yaml (if present), then the
// environment. Later sources win.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins)
	cfg.Forum.AdminEmails = splitList(cfg.Forum.AdminEmails)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("database.driver must be postgres or memory, got %q", c.Database.Driver)
	}
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if c.JWT.ExpireMinutes <= 0 {
		return fmt.Errorf("jwt.expire_minutes must be positive, got %d", c.JWT.ExpireMinutes)
	}
	if c.Reconcile.Interval < 0 {
		return fmt.Errorf("reconcile.interval must not be negative, got %s", c.Reconcile.Interval)
	}
	if c.Tracing.Enabled && c.Tracing.CollectorEndpoint == "" {
		return errors.New("tracing.collector_endpoint is required when tracing is enabled")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0, 1], got %v", c.Tracing.SampleRatio)
	}
	return nil
}

// splitList accepts both yaml lists and comma separated env values.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
