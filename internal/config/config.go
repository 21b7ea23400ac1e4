// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Discord DiscordConfig
	State   StateConfig
	Relay   RelayConfig
	DLQ     DLQConfig
	Retry   RetryConfig
	Logging LoggingConfig
	Service ServiceConfig
}

// ChannelSelector picks a channel either by ID or by name.
// ID wins when both are set.
type ChannelSelector struct {
	ID   string
	Name string
}

// ByName reports whether the selector resolves by channel name
func (s ChannelSelector) ByName() bool {
	return s.ID == "" && s.Name != ""
}

// IsZero reports whether neither ID nor name is set
func (s ChannelSelector) IsZero() bool {
	return s.ID == "" && s.Name == ""
}

func (s ChannelSelector) String() string {
	if s.ID != "" {
		return s.ID
	}
	return "#" + s.Name
}

// Trigger selects which gateway events the relay listens to.
// A closed ticket produces both a transcript and a channel deletion, so
// exactly one of them is observed per deployment.
type Trigger string

const (
	TriggerMessage       Trigger = "message"
	TriggerChannelDelete Trigger = "channel_delete"
)

// Messages reports whether message-creation events are observed.
// The zero value behaves like TriggerMessage.
func (t Trigger) Messages() bool { return t == TriggerMessage || t == "" }

// ChannelDeletes reports whether channel-deletion events are observed
func (t Trigger) ChannelDeletes() bool { return t == TriggerChannelDelete }

// DiscordConfig holds the bot token and the channels it works with
type DiscordConfig struct {
	Token               string
	TranscriptChannel   ChannelSelector
	LogChannel          ChannelSelector
	ReviewChannel       ChannelSelector
	Trigger             Trigger
	TicketChannelPrefix string
}

// StateConfig holds watermark persistence settings
type StateConfig struct {
	Backend       string // "file" or "redis"
	File          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

// RelayConfig holds notification behaviour settings
type RelayConfig struct {
	IgnoreUsers []string
	BotName     string
	AuditFooter string
	DMTemplate  string
	DedupSize   int
	QueueSize   int
	WorkerCount int
}

// DLQConfig holds the optional failure stream settings.
// An empty broker list disables the stream.
type DLQConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether failed outcomes are published to Kafka
func (c DLQConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// RetryConfig holds backoff settings for connecting to the gateway
type RetryConfig struct {
	MaxAttempts int
	BaseDelayMs time.Duration
	MaxDelayMs  time.Duration
	Multiplier  float64
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string
	Format string
}

// ServiceConfig holds service settings
type ServiceConfig struct {
	Name        string
	MetricsPort string
}

// ReviewPlaceholder is replaced by the review channel mention in DM_TEMPLATE
const ReviewPlaceholder = "{review_channel}"

// DefaultDMTemplate is the review request text
const DefaultDMTemplate = "Hi! Thank you for using our service — could you please leave a review in " + ReviewPlaceholder + "? 🔥"

// Load reads configuration from environment variables.
// envFile is optional; an empty value loads ./.env if present.
func Load(envFile string) (*Config, error) {
	// Try to load .env file (optional)
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else {
		godotenv.Load()
	}

	cfg := &Config{}

	cfg.Discord.Token = os.Getenv("DISCORD_TOKEN")
	if cfg.Discord.Token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN is required")
	}

	var err error
	if cfg.Discord.TranscriptChannel, err = selector("TRANSCRIPT_CHANNEL"); err != nil {
		return nil, err
	}
	if cfg.Discord.LogChannel, err = selector("LOG_CHANNEL"); err != nil {
		return nil, err
	}
	if cfg.Discord.ReviewChannel, err = selector("REVIEW_CHANNEL"); err != nil {
		return nil, err
	}

	cfg.Discord.Trigger = Trigger(strings.ToLower(getEnv("TRIGGER", string(TriggerMessage))))
	switch cfg.Discord.Trigger {
	case TriggerMessage, TriggerChannelDelete:
	default:
		return nil, fmt.Errorf("TRIGGER must be message or channel_delete; got %q", cfg.Discord.Trigger)
	}
	cfg.Discord.TicketChannelPrefix = getEnv("TICKET_CHANNEL_PREFIX", "ticket-")

	// State configuration
	cfg.State.Backend = strings.ToLower(getEnv("STATE_BACKEND", "file"))
	cfg.State.File = getEnv("STATE_FILE", "./lastMessage.json")
	switch cfg.State.Backend {
	case "file":
	case "redis":
		cfg.State.RedisAddr = os.Getenv("REDIS_ADDR")
		if cfg.State.RedisAddr == "" {
			return nil, fmt.Errorf("REDIS_ADDR is required when STATE_BACKEND=redis")
		}
		cfg.State.RedisPassword = os.Getenv("REDIS_PASSWORD")
		if cfg.State.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
			return nil, err
		}
		cfg.State.RedisKey = getEnv("REDIS_KEY", "review-relay:watermark")
	default:
		return nil, fmt.Errorf("STATE_BACKEND must be file or redis; got %q", cfg.State.Backend)
	}

	// Relay configuration
	cfg.Relay.IgnoreUsers = splitList(os.Getenv("IGNORE_USERS"))
	cfg.Relay.BotName = getEnv("BOT_NAME", "MFG Review Bot")
	cfg.Relay.AuditFooter = getEnv("AUDIT_FOOTER", "MaxFramesGained • Reviews")
	cfg.Relay.DMTemplate = getEnv("DM_TEMPLATE", DefaultDMTemplate)
	if cfg.Relay.DedupSize, err = getInt("DEDUP_SIZE", 1024); err != nil {
		return nil, err
	}
	if cfg.Relay.QueueSize, err = getInt("QUEUE_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.Relay.WorkerCount, err = getInt("WORKER_COUNT", 1); err != nil {
		return nil, err
	}
	// Deleted channels carry no watermark, the dedup set is their only replay guard
	if cfg.Discord.Trigger.ChannelDeletes() && cfg.Relay.DedupSize <= 0 {
		return nil, fmt.Errorf("DEDUP_SIZE must be greater than 0 when TRIGGER=channel_delete")
	}
	if cfg.Relay.QueueSize <= 0 {
		return nil, fmt.Errorf("QUEUE_SIZE must be greater than 0")
	}
	if cfg.Relay.WorkerCount <= 0 {
		return nil, fmt.Errorf("WORKER_COUNT must be greater than 0")
	}

	// Failure stream configuration
	cfg.DLQ.Brokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.DLQ.Topic = getEnv("KAFKA_DLQ_TOPIC", "review-relay-dlq")

	// Gateway connect retry configuration
	if cfg.Retry.MaxAttempts, err = getInt("GATEWAY_RETRY_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if cfg.Retry.BaseDelayMs, err = getDuration("GATEWAY_RETRY_BASE_DELAY", time.Second); err != nil {
		return nil, err
	}
	if cfg.Retry.MaxDelayMs, err = getDuration("GATEWAY_RETRY_MAX_DELAY", 30*time.Second); err != nil {
		return nil, err
	}
	cfg.Retry.Multiplier = 2.0

	// Logging configuration
	cfg.Logging.Level = getEnv("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnv("LOG_FORMAT", "json")

	// Service configuration
	cfg.Service.Name = getEnv("SERVICE_NAME", "review-relay")
	cfg.Service.MetricsPort = os.Getenv("METRICS_PORT")

	return cfg, nil
}

// selector reads <prefix>_ID and <prefix>_NAME; at least one is required
func selector(prefix string) (ChannelSelector, error) {
	sel := ChannelSelector{
		ID:   strings.TrimSpace(os.Getenv(prefix + "_ID")),
		Name: strings.TrimPrefix(strings.TrimSpace(os.Getenv(prefix+"_NAME")), "#"),
	}
	if sel.IsZero() {
		return sel, fmt.Errorf("%s_ID or %s_NAME is required", prefix, prefix)
	}
	return sel, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return d, nil
}

// splitList parses a comma-separated list, dropping empty entries
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
