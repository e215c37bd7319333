package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Alignment AlignmentConfig `mapstructure:"alignment"`
	Guide     GuideConfig     `mapstructure:"guide"`
	Sun       SunConfig       `mapstructure:"sun"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	AllowOrigins string `mapstructure:"allow_origins"`
	// AdminToken guards PUT /v1/guide/location. Empty disables the check.
	AdminToken string `mapstructure:"admin_token"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string  `mapstructure:"service_name"`
	OTLPAddr    string  `mapstructure:"otlp_addr"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	Enabled     bool    `mapstructure:"enabled"`
}

// AlignmentConfig tunes new tracking sessions.
type AlignmentConfig struct {
	ThresholdDegrees  float64 `mapstructure:"threshold_degrees"`
	ExitMarginDegrees float64 `mapstructure:"exit_margin_degrees"`
	// SmoothingAlpha is applied per sample, so its effect depends on the
	// sensor cadence (0.25 suits roughly 10-60 Hz).
	SmoothingAlpha    float64 `mapstructure:"smoothing_alpha"`
	SessionTTLSeconds int     `mapstructure:"session_ttl_seconds"`
}

type GuideConfig struct {
	StaleAfterMinutes int `mapstructure:"stale_after_minutes"`
}

type SunConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// TelegramConfig configures the guide's bot. ChatID is the only chat allowed
// to move the target, and the one sun reminders go to.
type TelegramConfig struct {
	BotToken    string `mapstructure:"bot_token"`
	SecretToken string `mapstructure:"secret_token"`
	ChatID      int64  `mapstructure:"chat_id"`
	BaseURL     string `mapstructure:"base_url"`
}

// Enabled reports whether the bot is configured.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != ""
}

type TemporalConfig struct {
	HostPort            string `mapstructure:"host_port"`
	Namespace           string `mapstructure:"namespace"`
	TaskQueue           string `mapstructure:"task_queue"`
	ReminderLeadMinutes int    `mapstructure:"reminder_lead_minutes"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: DARSHANAM_DATABASE_HOST → database.host
	v.SetEnvPrefix("DARSHANAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("server.admin_token", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "darshanam")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "darshanam")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_addr", "tempo:4317")
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("alignment.threshold_degrees", 15.0)
	v.SetDefault("alignment.exit_margin_degrees", 0.0)
	v.SetDefault("alignment.smoothing_alpha", 0.25)
	v.SetDefault("alignment.session_ttl_seconds", 600)
	v.SetDefault("guide.stale_after_minutes", 60)
	v.SetDefault("sun.base_url", "https://api.sunrisesunset.io")
	v.SetDefault("sun.timeout_seconds", 10)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.secret_token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("telegram.base_url", "https://api.telegram.org")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "darshanam-reminders")
	v.SetDefault("temporal.reminder_lead_minutes", 20)
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if t := c.Alignment.ThresholdDegrees; t <= 0 || t > 180 {
		errs = append(errs, fmt.Sprintf("alignment.threshold_degrees must be in (0, 180], got %g", t))
	}
	if c.Alignment.ExitMarginDegrees < 0 {
		errs = append(errs, "alignment.exit_margin_degrees must not be negative")
	}
	if a := c.Alignment.SmoothingAlpha; a <= 0 || a >= 1 {
		errs = append(errs, fmt.Sprintf("alignment.smoothing_alpha must be in (0, 1), got %g", a))
	}
	if c.Alignment.SessionTTLSeconds <= 0 {
		errs = append(errs, "alignment.session_ttl_seconds must be positive")
	}
	if c.Guide.StaleAfterMinutes <= 0 {
		errs = append(errs, "guide.stale_after_minutes must be positive")
	}
	if c.Sun.BaseURL == "" {
		errs = append(errs, "sun.base_url is required")
	}
	if c.Telegram.Enabled() && c.Telegram.ChatID == 0 {
		errs = append(errs, "telegram.chat_id is required when telegram.bot_token is set")
	}
	if c.Temporal.TaskQueue == "" {
		errs = append(errs, "temporal.task_queue is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
