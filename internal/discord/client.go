// Package discord adapts a discordgo session to the interfaces the relay
// pipeline and audit logger depend on.
package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/config"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/types"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// API is the subset of *discordgo.Session the client calls
type API interface {
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// Client implements user lookup, direct messages and channel resolution
type Client struct {
	api    API
	state  *discordgo.State
	review config.ChannelSelector
	logger *zap.Logger

	mu    sync.RWMutex
	names map[string]string // guildID + "/" + lowercased name -> channel ID
}

// NewClient wraps api. state may be nil; it is only used as a read-through
// cache for channel lookups.
func NewClient(api API, state *discordgo.State, review config.ChannelSelector, logger *zap.Logger) (*Client, error) {
	if api == nil {
		return nil, fmt.Errorf("discord api cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &Client{
		api:    api,
		state:  state,
		review: review,
		logger: logger,
		names:  make(map[string]string),
	}, nil
}

// FetchUser resolves a user by ID
func (c *Client) FetchUser(ctx context.Context, userID string) (*types.User, error) {
	u, err := c.api.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, apiError(err)
	}
	return &types.User{ID: u.ID, Username: u.Username, Discriminator: u.Discriminator}, nil
}

// SendDirectMessage opens a DM channel with userID and sends content
func (c *Client) SendDirectMessage(ctx context.Context, userID, content string) error {
	ch, err := c.api.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return apiError(err)
	}
	if _, err := c.api.ChannelMessageSend(ch.ID, content, discordgo.WithContext(ctx)); err != nil {
		return apiError(err)
	}
	return nil
}

// ReviewMention renders the review channel as a clickable mention. A channel
// configured by name that cannot be resolved falls back to plain "#name".
func (c *Client) ReviewMention(ctx context.Context, guildID string) string {
	id, err := c.ResolveChannel(ctx, guildID, c.review)
	if err != nil || id == "" {
		if err != nil {
			c.logger.Warn("Failed to resolve review channel",
				zap.String("guildId", guildID),
				zap.String("channel", c.review.String()),
				zap.Error(err),
			)
		}
		return "#" + c.review.Name
	}
	return "<#" + id + ">"
}

// ResolveChannel returns the channel ID sel points at in guildID.
// It returns "" and no error when a name matches no text channel.
func (c *Client) ResolveChannel(ctx context.Context, guildID string, sel config.ChannelSelector) (string, error) {
	if !sel.ByName() {
		return sel.ID, nil
	}

	key := guildID + "/" + strings.ToLower(sel.Name)
	c.mu.RLock()
	id, ok := c.names[key]
	c.mu.RUnlock()
	if ok {
		return id, nil
	}

	channels, err := c.api.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", apiError(err)
	}
	for _, ch := range channels {
		if !isText(ch) || !strings.EqualFold(ch.Name, sel.Name) {
			continue
		}
		c.mu.Lock()
		c.names[key] = ch.ID
		c.mu.Unlock()
		return ch.ID, nil
	}
	return "", nil
}

// PostMessage sends a rich message to channelID
func (c *Client) PostMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) error {
	if _, err := c.api.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx)); err != nil {
		return apiError(err)
	}
	return nil
}

// ChannelName returns the name of channelID, preferring the gateway cache
func (c *Client) ChannelName(ctx context.Context, channelID string) (string, error) {
	if c.state != nil {
		if ch, err := c.state.Channel(channelID); err == nil {
			return ch.Name, nil
		}
	}
	ch, err := c.api.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return "", apiError(err)
	}
	return ch.Name, nil
}

func isText(ch *discordgo.Channel) bool {
	return ch.Type == discordgo.ChannelTypeGuildText || ch.Type == discordgo.ChannelTypeGuildNews
}

// apiError reduces a REST error to the platform's human-readable message,
// which is what ends up in audit entries
func apiError(err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil && restErr.Message.Message != "" {
		return errors.New(restErr.Message.Message)
	}
	return err
}
