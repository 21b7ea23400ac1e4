// Command transcripts posts synthetic ticket transcripts into a channel so a
// staging relay can be exercised end to end.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type options struct {
	token         string
	channelID     string
	owners        []string
	batchSize     int
	rate          int
	duration      time.Duration
	malformedEach int
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Try to load .env file (optional)
	godotenv.Load()

	var opts options
	flagSet := pflag.NewFlagSet("transcripts", pflag.ContinueOnError)
	flagSet.StringVar(&opts.token, "token", getEnv("LOADTEST_TOKEN", os.Getenv("DISCORD_TOKEN")), "bot token used to post transcripts")
	flagSet.StringVar(&opts.channelID, "channel", os.Getenv("TRANSCRIPT_CHANNEL_ID"), "transcript channel ID")
	flagSet.StringSliceVar(&opts.owners, "owners", nil, "ticket owner user IDs to mention, round-robin")
	flagSet.IntVar(&opts.batchSize, "batch", 10, "number of transcripts to post (0 = infinite)")
	flagSet.IntVar(&opts.rate, "rate", 1, "transcripts per second (0 = as fast as possible)")
	flagSet.DurationVar(&opts.duration, "duration", 0, "duration to run (e.g. 30s, 5m); overrides batch")
	flagSet.IntVar(&opts.malformedEach, "malformed-every", 0, "make every Nth transcript carry an unparsable owner (0 = never)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if opts.token == "" || opts.channelID == "" {
		return fmt.Errorf("--token and --channel are required")
	}
	if len(opts.owners) == 0 {
		return fmt.Errorf("--owners needs at least one user ID")
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	session, err := discordgo.New("Bot " + opts.token)
	if err != nil {
		return fmt.Errorf("failed to create discord session: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}

	logger.Info("Starting transcript producer",
		zap.String("channel", opts.channelID),
		zap.Int("batch_size", opts.batchSize),
		zap.Int("rate", opts.rate),
		zap.Duration("duration", opts.duration),
		zap.Int("owners", len(opts.owners)),
	)

	produced := produce(ctx, session, opts, logger)
	logger.Info("Producer stopped", zap.Int("total_produced", produced))
	return nil
}

// produce posts transcripts sequentially; Discord rate limits are handled by
// discordgo, the ticker only sets the target pace
func produce(ctx context.Context, session *discordgo.Session, opts options, logger *zap.Logger) int {
	var ticker *time.Ticker
	if opts.rate > 0 {
		ticker = time.NewTicker(time.Second / time.Duration(opts.rate))
		defer ticker.Stop()
	}

	produced := 0
	for n := 0; opts.duration > 0 || opts.batchSize == 0 || n < opts.batchSize; n++ {
		if ctx.Err() != nil {
			return produced
		}
		if ticker != nil {
			select {
			case <-ctx.Done():
				return produced
			case <-ticker.C:
			}
		}

		owner := opts.owners[n%len(opts.owners)]
		malformed := opts.malformedEach > 0 && (n+1)%opts.malformedEach == 0
		msg := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{transcriptEmbed(n, owner, malformed)}}

		if _, err := session.ChannelMessageSendComplex(opts.channelID, msg, discordgo.WithContext(ctx)); err != nil {
			logger.Error("Failed to post transcript", zap.Int("index", n), zap.Error(err))
			continue
		}
		produced++
		if produced%10 == 0 {
			logger.Info("Posted transcripts", zap.Int("count", produced))
		}
	}
	return produced
}

// transcriptEmbed mimics the embed a ticketing bot posts when a ticket closes
func transcriptEmbed(n int, ownerID string, malformed bool) *discordgo.MessageEmbed {
	owner := "<@" + ownerID + ">"
	if malformed {
		owner = "former member"
	}
	ticket := fmt.Sprintf("ticket-%04d", n+1)
	return &discordgo.MessageEmbed{
		Title: "Ticket Closed",
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Ticket Owner", Value: owner, Inline: true},
			{Name: "Ticket Name", Value: ticket, Inline: true},
			{Name: "Panel Name", Value: "Load test", Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
