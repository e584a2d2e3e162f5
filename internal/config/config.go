package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the worker.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Mailbox  MailboxConfig
	Ingest   IngestConfig
	SMTP     SMTPConfig
	Alert    AlertConfig
	SLA      SLAConfig
	Cursor   CursorConfig
}

// AppConfig controls process level behavior.
type AppConfig struct {
	Name    string
	Env     string
	Host    string
	Port    string
	Version string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// MailboxConfig describes the monitored IMAP mailbox. Username and Password
// are mandatory; the poller cannot run without credentials.
type MailboxConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Folder       string
	PollInterval time.Duration
	RetryDelay   time.Duration
	IOTimeout    time.Duration
	ProcessAll   bool
}

// IngestConfig is the static allow-list the message filter evaluates.
// StrictRecipients enables the recipient-header check; with it off the filter
// degrades to a flat sender allow-set. SendAck enables acknowledgement replies
// to the requester.
type IngestConfig struct {
	AllowedSenders      []string
	AllowedDomains      []string
	MonitoredRecipients []string
	InternalDomain      string
	StrictRecipients    bool
	SendAck             bool
}

// SMTPConfig holds outbound mail submission values for acknowledgement
// replies.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// AlertConfig holds the outbound chat webhook. An empty URL soft-disables
// alerts at call time.
type AlertConfig struct {
	WebhookURL string
}

// SLAConfig controls the overdue sweep.
type SLAConfig struct {
	DefaultHours  int
	SweepInterval time.Duration
}

// CursorConfig selects where the last-processed mailbox marker lives.
// Backend is "file" or "redis".
type CursorConfig struct {
	Backend  string
	FilePath string
	RedisKey string
}

// Load reads configuration from environment variables, applying defaults
// where possible. Missing mailbox credentials are a hard error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "ticket-ingest-worker"),
			Env:     getEnv("APP_ENV", "development"),
			Host:    getEnv("APP_HOST", "0.0.0.0"),
			Port:    getEnv("APP_PORT", "8081"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Mailbox: MailboxConfig{
			Host:         getEnv("MAILBOX_HOST", "imap.gmail.com"),
			Port:         getEnv("MAILBOX_PORT", "993"),
			Username:     os.Getenv("MAILBOX_USERNAME"),
			Password:     os.Getenv("MAILBOX_PASSWORD"),
			Folder:       getEnv("MAILBOX_FOLDER", "INBOX"),
			PollInterval: getEnvAsDuration("MAILBOX_POLL_INTERVAL", 10*time.Second),
			RetryDelay:   getEnvAsDuration("MAILBOX_RETRY_DELAY", 10*time.Second),
			IOTimeout:    getEnvAsDuration("MAILBOX_IO_TIMEOUT", 30*time.Second),
			ProcessAll:   getEnvAsBool("MAILBOX_PROCESS_ALL", false),
		},
		Ingest: IngestConfig{
			AllowedSenders:      getEnvAsList("INGEST_ALLOWED_SENDERS"),
			AllowedDomains:      getEnvAsList("INGEST_ALLOWED_DOMAINS"),
			MonitoredRecipients: getEnvAsList("INGEST_MONITORED_RECIPIENTS"),
			InternalDomain:      getEnv("INGEST_INTERNAL_DOMAIN", ""),
			StrictRecipients:    getEnvAsBool("INGEST_STRICT_RECIPIENTS", true),
			SendAck:             getEnvAsBool("INGEST_SEND_ACK", false),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", ""),
		},
		Alert: AlertConfig{
			WebhookURL: getEnv("ALERT_WEBHOOK_URL", ""),
		},
		SLA: SLAConfig{
			DefaultHours:  getEnvAsInt("SLA_DEFAULT_HOURS", 72),
			SweepInterval: getEnvAsDuration("SLA_SWEEP_INTERVAL", 5*time.Minute),
		},
		Cursor: CursorConfig{
			Backend:  getEnv("CURSOR_BACKEND", "file"),
			FilePath: getEnv("CURSOR_FILE_PATH", "last_uid.txt"),
			RedisKey: getEnv("CURSOR_REDIS_KEY", "ticket-ingest:last-uid"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Mailbox.Username == "" || c.Mailbox.Password == "" {
		return errors.New("MAILBOX_USERNAME and MAILBOX_PASSWORD are required")
	}
	if c.Ingest.SendAck && (c.SMTP.Host == "" || c.SMTP.From == "") {
		return errors.New("INGEST_SEND_ACK requires SMTP_HOST and SMTP_FROM")
	}
	switch c.Cursor.Backend {
	case "file", "redis":
	default:
		return fmt.Errorf("invalid CURSOR_BACKEND %q", c.Cursor.Backend)
	}
	return nil
}

// Addr returns the IMAP dial address.
func (m MailboxConfig) Addr() string {
	return fmt.Sprintf("%s:%s", m.Host, m.Port)
}

// Addr returns the HTTP bind address for the health server.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// Addr returns the SMTP dial address.
func (s SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
