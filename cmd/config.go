package cmd

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"orderflow/internal/core/application/dispatcher"
	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/jobs"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	// JWTSecret enables bearer authentication. When empty, callers identify
	// themselves with the X-Actor-Id and X-Actor-Role headers.
	JWTSecret string

	TelegramToken        string
	TelegramFallbackChat int64

	Dispatcher          dispatcher.Config
	CollaboratorTimeout time.Duration

	RedispatchSchedule string
	RetrySchedule      string
	ExpirySchedule     string
	PaymentTimeout     time.Duration
	AcceptanceTimeout  time.Duration
	RedispatchGrace    time.Duration
	RetryMaxAttempts   int
}

// DSN is the PostgreSQL connection string for both gorm and the NOTIFY listener.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

// LoadConfig reads .env when present and then the process environment. Unset
// tuning variables keep their defaults; malformed ones are an error.
func LoadConfig(envFile string) (Config, error) {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	p := envParser{}
	defaults := dispatcher.DefaultConfig()
	cfg := Config{
		HTTPPort:   p.str("HTTP_PORT", "8080"),
		DBHost:     p.str("DB_HOST", "localhost"),
		DBPort:     p.str("DB_PORT", "5432"),
		DBUser:     p.str("DB_USER", "postgres"),
		DBPassword: p.str("DB_PASSWORD", ""),
		DBName:     p.str("DB_NAME", "orderflow"),
		DBSslMode:  p.str("DB_SSLMODE", "disable"),

		JWTSecret: p.str("JWT_SECRET", ""),

		TelegramToken:        p.str("TELEGRAM_TOKEN", ""),
		TelegramFallbackChat: p.number64("TELEGRAM_FALLBACK_CHAT_ID", 0),

		Dispatcher: dispatcher.Config{
			Workers:         p.number("DISPATCHER_WORKERS", defaults.Workers),
			QueueSize:       p.number("DISPATCHER_QUEUE_SIZE", defaults.QueueSize),
			MaxSubscribers:  defaults.MaxSubscribers,
			Timeout:         p.duration("DISPATCHER_TIMEOUT", defaults.Timeout),
			MaxAttempts:     p.number("DISPATCHER_MAX_ATTEMPTS", defaults.MaxAttempts),
			InitialInterval: defaults.InitialInterval,
			MaxInterval:     defaults.MaxInterval,
		},
		CollaboratorTimeout: p.duration("COLLABORATOR_TIMEOUT", commands.DefaultCollaboratorTimeout),

		RedispatchSchedule: p.str("REDISPATCH_SCHEDULE", jobs.DefaultRedispatchSchedule),
		RetrySchedule:      p.str("RETRY_SCHEDULE", jobs.DefaultRetrySchedule),
		ExpirySchedule:     p.str("EXPIRY_SCHEDULE", jobs.DefaultExpirySchedule),
		PaymentTimeout:     p.duration("PAYMENT_TIMEOUT", commands.DefaultPaymentTimeout),
		AcceptanceTimeout:  p.duration("ACCEPTANCE_TIMEOUT", commands.DefaultAcceptanceTimeout),
		RedispatchGrace:    p.duration("REDISPATCH_GRACE", commands.DefaultRedispatchGrace),
		RetryMaxAttempts:   p.number("RETRY_MAX_ATTEMPTS", commands.DefaultRetryMaxAttempts),
	}
	if p.err != nil {
		return Config{}, p.err
	}
	return cfg, nil
}

// envParser keeps the first parse error so LoadConfig can report it once.
type envParser struct {
	err error
}

func (p *envParser) str(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func (p *envParser) number(key string, fallback int) int {
	return int(p.number64(key, int64(fallback)))
}

func (p *envParser) number64(key string, fallback int64) int64 {
	v := p.str(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return n
}

func (p *envParser) duration(key string, fallback time.Duration) time.Duration {
	v := p.str(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
		return fallback
	}
	return d
}

func (p *envParser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
}
