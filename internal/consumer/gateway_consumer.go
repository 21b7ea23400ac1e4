// Package consumer feeds gateway events into the processing queue
package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/config"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/discord"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/obs"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/queue"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/retry"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/types"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Gateway is the subset of *discordgo.Session the consumer drives
type Gateway interface {
	AddHandler(handler interface{}) func()
	Open() error
	Close() error
}

// ChannelNamer looks up channel names for name-based transcript selectors
type ChannelNamer interface {
	ChannelName(ctx context.Context, channelID string) (string, error)
}

// Intents are the gateway intents the relay needs
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent |
	discordgo.IntentsDirectMessages

// Consumer represents a gateway consumer
type Consumer struct {
	gateway  Gateway
	namer    ChannelNamer
	queue    *queue.Queue
	trigger  config.Trigger
	byName   bool
	retryCfg config.RetryConfig
	metrics  *obs.Metrics
	health   *obs.Health
	logger   *zap.Logger
	now      func() time.Time

	ctx      context.Context
	removers []func()
}

// Options configures a Consumer. Namer, Metrics and Health are optional.
type Options struct {
	Gateway Gateway
	Namer   ChannelNamer
	Queue   *queue.Queue
	Config  *config.Config
	Metrics *obs.Metrics
	Health  *obs.Health
	Logger  *zap.Logger
}

// NewConsumer creates a new gateway consumer instance
func NewConsumer(opts Options) (*Consumer, error) {
	switch {
	case opts.Gateway == nil:
		return nil, fmt.Errorf("gateway cannot be nil")
	case opts.Queue == nil:
		return nil, fmt.Errorf("queue cannot be nil")
	case opts.Config == nil:
		return nil, fmt.Errorf("config cannot be nil")
	case opts.Logger == nil:
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Consumer{
		gateway:  opts.Gateway,
		namer:    opts.Namer,
		queue:    opts.Queue,
		trigger:  opts.Config.Discord.Trigger,
		byName:   opts.Config.Discord.TranscriptChannel.ByName(),
		retryCfg: opts.Config.Retry,
		metrics:  opts.Metrics,
		health:   opts.Health,
		logger:   opts.Logger,
		now:      time.Now,
		ctx:      context.Background(),
	}, nil
}

// Start registers the event handlers, connects to the gateway and blocks
// until ctx is cancelled. Connecting is retried with backoff.
func (c *Consumer) Start(ctx context.Context) error {
	c.ctx = ctx
	c.removers = append(c.removers, c.gateway.AddHandler(c.onReady))
	if c.trigger.Messages() {
		c.removers = append(c.removers, c.gateway.AddHandler(c.onMessageCreate))
	}
	if c.trigger.ChannelDeletes() {
		c.removers = append(c.removers, c.gateway.AddHandler(c.onChannelDelete))
	}

	c.logger.Info("Connecting to gateway",
		zap.String("trigger", string(c.trigger)),
	)

	err := retry.DoWithRetryNotify(ctx, &c.retryCfg, c.gateway.Open, func(attempt int, err error, delay time.Duration) {
		if c.metrics != nil {
			c.metrics.IncrementRetryAttempts()
		}
		c.logger.Warn("Gateway connect failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	})
	if err != nil {
		c.removeHandlers()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("failed to open gateway session: %w", err)
	}

	<-ctx.Done()
	c.logger.Info("Context cancelled, stopping consumer")
	return ctx.Err()
}

func (c *Consumer) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	if c.health != nil {
		c.health.SetReady(true)
	}
	fields := []zap.Field{zap.Int("guilds", len(r.Guilds))}
	if r.User != nil {
		fields = append(fields, zap.String("user", r.User.Username))
	}
	c.logger.Info("Logged in to gateway", fields...)
}

func (c *Consumer) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Message == nil {
		return
	}
	name := ""
	if c.byName && c.namer != nil && m.GuildID != "" {
		var err error
		if name, err = c.namer.ChannelName(c.ctx, m.ChannelID); err != nil {
			c.logger.Debug("Failed to look up channel name",
				zap.String("channelId", m.ChannelID),
				zap.Error(err),
			)
		}
	}
	c.enqueue(discord.MessageToEvent(m.Message, name))
}

func (c *Consumer) onChannelDelete(_ *discordgo.Session, d *discordgo.ChannelDelete) {
	if d == nil || d.Channel == nil {
		return
	}
	c.enqueue(discord.ChannelToEvent(d.Channel, c.now()))
}

// enqueue blocks while the queue is full, which holds back the gateway
// handler goroutine that delivered the event
func (c *Consumer) enqueue(event *types.TranscriptEvent) {
	if err := c.queue.Enqueue(c.ctx, event); err != nil {
		c.logger.Warn("Failed to enqueue event",
			zap.Error(err),
			zap.String("eventId", event.ID),
			zap.Stringer("kind", event.Kind),
		)
		return
	}

	c.logger.Debug("Enqueued event",
		zap.String("eventId", event.ID),
		zap.Stringer("kind", event.Kind),
		zap.String("channelId", event.Channel.ID),
		zap.Int("queueDepth", c.queue.Depth()),
	)
}

func (c *Consumer) removeHandlers() {
	for _, remove := range c.removers {
		remove()
	}
	c.removers = nil
}

// Close detaches the handlers and closes the gateway session
func (c *Consumer) Close() error {
	c.removeHandlers()
	if c.health != nil {
		c.health.SetReady(false)
	}
	c.logger.Info("Closing gateway session")
	if err := c.gateway.Close(); err != nil {
		return fmt.Errorf("failed to close gateway session: %w", err)
	}
	return nil
}
