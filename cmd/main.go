// Package main is the entry point for ReviewRelay.
// ReviewRelay watches a Discord guild for closed-ticket transcripts, sends the
// ticket owner a one-time review request by DM, and logs every outcome to an
// audit channel. Progress is kept in a durable watermark so restarts never
// message anyone twice.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/audit"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/config"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/consumer"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/dedup"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/discord"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/dlq"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/ignore"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/logger"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/obs"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/pipeline"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/queue"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/watermark"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/worker"
	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const drainTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var envFile, stateFile, logLevel string

	flagSet := pflag.NewFlagSet("review-relay", pflag.ContinueOnError)
	flagSet.StringVar(&envFile, "env-file", "", "load environment from this file instead of ./.env")
	flagSet.StringVar(&stateFile, "state-file", "", "watermark file path (overrides STATE_FILE)")
	flagSet.StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(envFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if stateFile != "" {
		cfg.State.File = stateFile
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Logger.With(zap.String("service", cfg.Service.Name))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := obs.NewMetrics(cfg.Service.Name, prometheus.DefaultRegisterer)
	health := &obs.Health{}
	if cfg.Service.MetricsPort != "" {
		go func() {
			mux := obs.NewMux(prometheus.DefaultGatherer, health)
			if err := obs.StartMetricsServer(ctx, cfg.Service.MetricsPort, mux, log); err != nil {
				log.Error("Metrics server failed", zap.Error(err))
			}
		}()
	}

	store, closeStore, err := openStore(cfg.State)
	if err != nil {
		return err
	}
	defer closeStore()

	tracker := watermark.Open(ctx, store, time.Now(), log)
	log.Info("Watermark loaded",
		zap.String("backend", cfg.State.Backend),
		zap.Time("startedAt", tracker.StartedAt()),
		zap.String("lastProcessedId", tracker.LastProcessedID()),
	)

	seen, err := dedup.New(cfg.Relay.DedupSize)
	if err != nil {
		return err
	}

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = consumer.Intents

	client, err := discord.NewClient(session, session.State, cfg.Discord.ReviewChannel, log)
	if err != nil {
		return err
	}
	auditLog, err := audit.NewLogger(client, cfg.Discord.LogChannel, cfg.Relay, log)
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Tracker: tracker,
		Seen:    seen,
		Ignore:  ignore.New(cfg.Relay.IgnoreUsers),
		Channels: pipeline.ChannelMatcher{
			Trigger:      cfg.Discord.Trigger,
			Transcript:   cfg.Discord.TranscriptChannel,
			TicketPrefix: cfg.Discord.TicketChannelPrefix,
		},
		Directory:  client,
		Messenger:  client,
		Review:     client,
		Audit:      auditLog,
		DMTemplate: cfg.Relay.DMTemplate,
		Metrics:    metrics,
		Logger:     log,
	}
	if cfg.DLQ.Enabled() {
		producer, err := dlq.NewProducer(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to create failure stream producer: %w", err)
		}
		defer producer.Close()
		opts.Failures = producer
	}

	processor, err := pipeline.NewProcessor(opts)
	if err != nil {
		return err
	}

	q := queue.NewQueue(cfg.Relay.QueueSize, metrics)
	pool, err := worker.NewPool(cfg.Relay.WorkerCount, q, processor, log)
	if err != nil {
		return err
	}
	// Workers outlive the signal context so buffered events can drain
	if err := pool.Start(context.Background()); err != nil {
		return err
	}

	gateway, err := consumer.NewConsumer(consumer.Options{
		Gateway: session,
		Namer:   client,
		Queue:   q,
		Config:  cfg,
		Metrics: metrics,
		Health:  health,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	log.Info("Listening for ticket transcripts",
		zap.String("transcriptChannel", cfg.Discord.TranscriptChannel.String()),
		zap.String("trigger", string(cfg.Discord.Trigger)),
		zap.Int("ignoredUsers", len(cfg.Relay.IgnoreUsers)),
	)

	startErr := gateway.Start(ctx)

	if err := gateway.Close(); err != nil {
		log.Warn("Failed to close gateway", zap.Error(err))
	}
	q.Close()
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := pool.Wait(drainCtx); err != nil {
		log.Warn("Queue not drained before shutdown", zap.Int("remaining", q.Depth()))
	}
	pool.Stop()

	if startErr != nil && !errors.Is(startErr, context.Canceled) {
		return startErr
	}
	log.Info("Shutdown complete", zap.String("lastProcessedId", tracker.LastProcessedID()))
	return nil
}

// openStore builds the configured watermark backend
func openStore(cfg config.StateConfig) (watermark.Store, func(), error) {
	switch cfg.Backend {
	case "redis":
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.RedisAddr},
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return watermark.NewRedisStore(rdb, cfg.RedisKey), func() { rdb.Close() }, nil
	case "file":
		return watermark.NewFileStore(cfg.File), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}
