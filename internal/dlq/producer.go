// Package dlq publishes unsuccessful notification outcomes to a Kafka topic
// so they can be followed up by hand
package dlq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/config"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/types"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const maxPublishAttempts = 3

// Record is the JSON value of a failure message
type Record struct {
	EventID    string    `json:"eventId"`
	Kind       string    `json:"kind"`
	GuildID    string    `json:"guildId"`
	ChannelID  string    `json:"channelId"`
	UserID     string    `json:"userId"`
	UserTag    string    `json:"userTag"`
	TicketName string    `json:"ticketName"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurredAt"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer handles publishing failed outcomes to the failure topic
type Producer struct {
	writer     messageWriter
	logger     *zap.Logger
	topic      string
	retryDelay time.Duration
	now        func() time.Time
}

// NewProducer creates a new failure stream producer
func NewProducer(cfg *config.Config, logger *zap.Logger) (*Producer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if !cfg.DLQ.Enabled() {
		return nil, fmt.Errorf("no Kafka brokers configured")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.DLQ.Brokers...),
		Topic:        cfg.DLQ.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	return &Producer{
		writer:     writer,
		logger:     logger,
		topic:      cfg.DLQ.Topic,
		retryDelay: 100 * time.Millisecond,
		now:        time.Now,
	}, nil
}

// Publish sends one failed outcome. The message key is the event ID so
// replays of the same event land on the same partition.
func (p *Producer) Publish(ctx context.Context, event *types.TranscriptEvent, entry types.AuditEntry) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	now := p.now()
	value, err := json.Marshal(Record{
		EventID:    event.ID,
		Kind:       event.Kind.String(),
		GuildID:    event.GuildID,
		ChannelID:  event.Channel.ID,
		UserID:     entry.UserID,
		UserTag:    entry.UserTag,
		TicketName: entry.TicketName,
		Reason:     entry.Outcome.Reason,
		OccurredAt: now.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode failure record: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "error_message", Value: []byte(entry.Outcome.Reason)},
			{Key: "event_kind", Value: []byte(event.Kind.String())},
			{Key: "timestamp", Value: []byte(now.Format(time.RFC3339))},
		},
		Time: now,
	}

	var lastErr error
	for attempt := range maxPublishAttempts {
		lastErr = p.writer.WriteMessages(ctx, msg)
		if lastErr == nil {
			p.logger.Info("Failed outcome published",
				zap.String("topic", p.topic),
				zap.String("eventId", event.ID),
				zap.String("reason", entry.Outcome.Reason),
			)
			return nil
		}
		if ctx.Err() != nil {
			break
		}

		p.logger.Warn("Failed to publish failed outcome, will retry",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxPublishAttempts),
			zap.Error(lastErr),
		)

		if attempt < maxPublishAttempts-1 {
			select {
			case <-ctx.Done():
			case <-time.After(p.retryDelay):
			}
		}
	}

	return fmt.Errorf("failed to publish to %s after %d attempts: %w", p.topic, maxPublishAttempts, lastErr)
}

// Close closes the producer and releases resources
func (p *Producer) Close() error {
	if p.writer != nil {
		p.logger.Info("Closing failure stream producer")
		return p.writer.Close()
	}
	return nil
}
