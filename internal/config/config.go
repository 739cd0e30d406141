package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App        AppConfig
	Telegram   TelegramConfig
	Flow       FlowConfig
	Moderation ModerationConfig
	Store      StoreConfig
	Worker     WorkerConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// TelegramConfig holds the bot credential and the chats the bot talks to.
type TelegramConfig struct {
	Token              string `validate:"required"`
	ChannelID          string `validate:"required"`
	ChannelHandle      string
	ModChatID          int64  `validate:"required"`
	WebhookURL         string `validate:"omitempty,url"`
	WebhookSecret      string
	PollTimeoutSeconds int `validate:"gte=0"`
	BreakerMaxFailures int `validate:"gte=1"`
}

// FlowConfig tunes the sell flow.
type FlowConfig struct {
	AgentContact     string
	ContactURL       string
	TableTemplateURL string
	InviteThreshold  int `validate:"gte=1"`
	MaxPhotos        int `validate:"gte=1,lte=10"`
}

// ModerationConfig defines who may moderate and for how long a reject waits for its reason.
type ModerationConfig struct {
	ModeratorIDs            []int64
	RejectContextTTLMinutes int `validate:"gte=1"`
}

// StoreConfig selects the backing of sessions, referrals and the moderation queue.
type StoreConfig struct {
	Backend         string `validate:"oneof=redis memory"`
	KeyPrefix       string `validate:"required"`
	SessionTTLHours int    `validate:"gte=0"`
}

// WorkerConfig sizes the per-user dispatcher.
type WorkerConfig struct {
	Lanes  int `validate:"gte=1"`
	Buffer int `validate:"gte=1"`
}

// PostgresConfig holds DB connection values. An empty DSN keeps submissions in memory.
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

// AuthConfig defines admin API authentication parameters.
type AuthConfig struct {
	JWTSecret             string `validate:"required"`
	AccessTokenTTLMinutes int    `validate:"gte=1"`
}

var validate = validator.New()

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	modChatID, err := parseInt64("MOD_CHAT_ID")
	if err != nil {
		return nil, err
	}
	moderators, err := getEnvAsInt64List("MODERATOR_IDS")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "listing-bot"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Telegram: TelegramConfig{
			Token:              os.Getenv("BOT_TOKEN"),
			ChannelID:          os.Getenv("CHANNEL_ID"),
			ChannelHandle:      strings.TrimPrefix(os.Getenv("CHANNEL_USERNAME"), "@"),
			ModChatID:          modChatID,
			WebhookURL:         os.Getenv("TELEGRAM_WEBHOOK_URL"),
			WebhookSecret:      os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
			PollTimeoutSeconds: getEnvAsInt("TELEGRAM_POLL_TIMEOUT_SECONDS", 30),
			BreakerMaxFailures: getEnvAsInt("TELEGRAM_BREAKER_MAX_FAILURES", 5),
		},
		Flow: FlowConfig{
			AgentContact:     getEnv("AGENT_CONTACT", "@Ultanovr"),
			ContactURL:       getEnv("CONTACT_URL", "https://t.me/Ultanovr"),
			TableTemplateURL: os.Getenv("TABLE_TEMPLATE_URL"),
			InviteThreshold:  getEnvAsInt("INVITE_THRESHOLD", 5),
			MaxPhotos:        getEnvAsInt("MAX_PHOTOS", 10),
		},
		Moderation: ModerationConfig{
			ModeratorIDs:            moderators,
			RejectContextTTLMinutes: getEnvAsInt("REJECT_CONTEXT_TTL_MINUTES", 60),
		},
		Store: StoreConfig{
			Backend:         getEnv("STORE_BACKEND", "redis"),
			KeyPrefix:       getEnv("STORE_KEY_PREFIX", "listingbot"),
			SessionTTLHours: getEnvAsInt("SESSION_TTL_HOURS", 0),
		},
		Worker: WorkerConfig{
			Lanes:  getEnvAsInt("WORKER_LANES", 16),
			Buffer: getEnvAsInt("WORKER_BUFFER", 64),
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
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", defaultJWTSecret),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 720),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const defaultJWTSecret = "dev-secret"

// Validate checks required values and bounds.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.App.Env == "production" && c.Auth.JWTSecret == defaultJWTSecret {
		return errors.New("invalid configuration: AUTH_JWT_SECRET must be set in production")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// ChannelUsername is the public handle of the channel, without the leading "@".
// It falls back to CHANNEL_ID when that is a handle; numeric ids without CHANNEL_USERNAME have none.
func (t TelegramConfig) ChannelUsername() string {
	if t.ChannelHandle != "" {
		return t.ChannelHandle
	}
	if name, ok := strings.CutPrefix(t.ChannelID, "@"); ok {
		return name
	}
	return ""
}

// PollTimeout returns the long-polling timeout.
func (t TelegramConfig) PollTimeout() time.Duration {
	return time.Duration(t.PollTimeoutSeconds) * time.Second
}

// RejectContextTTL returns how long a moderator's pending reject stays valid.
func (m ModerationConfig) RejectContextTTL() time.Duration {
	return time.Duration(m.RejectContextTTLMinutes) * time.Minute
}

// IsModerator reports whether the user id was configured as a moderator.
func (m ModerationConfig) IsModerator(userID int64) bool {
	for _, id := range m.ModeratorIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// SessionTTL returns the idle expiry of sessions; zero keeps them forever.
func (s StoreConfig) SessionTTL() time.Duration {
	return time.Duration(s.SessionTTLHours) * time.Hour
}

// AccessTokenTTL returns the lifetime of admin tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
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

func parseInt64(key string) (int64, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return 0, nil
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvAsInt64List(key string) ([]int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return nil, nil
	}
	var out []int64
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", key, part, err)
		}
		out = append(out, id)
	}
	return out, nil
}
