// Package audit posts one embed per notification outcome to the log channel
package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/config"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/types"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	colorSent   = 0x00B060
	colorFailed = 0xFF0000

	titleSent   = "📩 Review DM Sent"
	titleFailed = "🚫 Review DM Failed"
)

// ErrNoLogChannel is returned when the log channel cannot be resolved in a guild
var ErrNoLogChannel = errors.New("log channel not found or not text-based")

// Channels resolves and posts to guild channels
type Channels interface {
	ResolveChannel(ctx context.Context, guildID string, sel config.ChannelSelector) (string, error)
	PostMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) error
}

// Logger renders audit entries and posts them to the configured channel
type Logger struct {
	channels Channels
	target   config.ChannelSelector
	botName  string
	footer   string
	now      func() time.Time
	logger   *zap.Logger
}

// NewLogger creates an audit Logger posting to target
func NewLogger(channels Channels, target config.ChannelSelector, relay config.RelayConfig, logger *zap.Logger) (*Logger, error) {
	if channels == nil {
		return nil, fmt.Errorf("channels cannot be nil")
	}
	if target.IsZero() {
		return nil, fmt.Errorf("log channel must be set")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &Logger{
		channels: channels,
		target:   target,
		botName:  relay.BotName,
		footer:   relay.AuditFooter,
		now:      time.Now,
		logger:   logger,
	}, nil
}

// Log posts entry for event. The caller decides what a failure means.
func (l *Logger) Log(ctx context.Context, event *types.TranscriptEvent, entry types.AuditEntry) error {
	channelID, err := l.channels.ResolveChannel(ctx, event.GuildID, l.target)
	if err != nil {
		return fmt.Errorf("resolve log channel %s: %w", l.target, err)
	}
	if channelID == "" {
		return fmt.Errorf("resolve log channel %s: %w", l.target, ErrNoLogChannel)
	}

	if err := l.channels.PostMessage(ctx, channelID, l.Render(event, entry)); err != nil {
		return fmt.Errorf("post audit entry to %s: %w", channelID, err)
	}

	l.logger.Debug("Posted audit entry",
		zap.String("eventId", event.ID),
		zap.String("channelId", channelID),
		zap.Bool("ok", entry.Outcome.OK),
	)
	return nil
}

// Render builds the audit message. Message events get a link back to the
// transcript; deleted channels have nothing left to link to.
func (l *Logger) Render(event *types.TranscriptEvent, entry types.AuditEntry) *discordgo.MessageSend {
	title, color, status := titleSent, colorSent, "✅ "+types.ReasonDelivered
	if !entry.Outcome.OK {
		title, color, status = titleFailed, colorFailed, "❌ "+entry.Outcome.Reason
	}

	embed := &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{Name: l.botName},
		Title:  title,
		Color:  color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: fmt.Sprintf("%s (ID: %s)", entry.UserTag, entry.UserID)},
			{Name: "Ticket", Value: entry.TicketName, Inline: true},
			{Name: "Time", Value: fmt.Sprintf("<t:%d:f>", l.now().Unix()), Inline: true},
			{Name: "Status", Value: status},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: l.footer},
	}

	msg := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
	if url := TranscriptURL(event); url != "" {
		msg.Components = []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{Label: "View Transcript", Style: discordgo.LinkButton, URL: url},
			}},
		}
	}
	return msg
}

// TranscriptURL links to the transcript message, "" for non-message events
func TranscriptURL(event *types.TranscriptEvent) string {
	if event == nil || event.Kind != types.KindMessageCreate || event.GuildID == "" {
		return ""
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", event.GuildID, event.Channel.ID, event.ID)
}
