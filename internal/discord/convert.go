package discord

import (
	"time"

	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/types"
	"github.com/bwmarrin/discordgo"
)

// MessageToEvent converts a gateway message. Only the first embed is kept.
// channelName may be empty when it is not known.
func MessageToEvent(m *discordgo.Message, channelName string) *types.TranscriptEvent {
	event := &types.TranscriptEvent{
		Kind:      types.KindMessageCreate,
		ID:        m.ID,
		GuildID:   m.GuildID,
		Channel:   types.ChannelRef{ID: m.ChannelID, Name: channelName},
		CreatedAt: m.Timestamp,
	}
	if event.CreatedAt.IsZero() {
		if ts, err := discordgo.SnowflakeTimestamp(m.ID); err == nil {
			event.CreatedAt = ts
		}
	}
	if len(m.Embeds) > 0 && m.Embeds[0] != nil {
		event.Embed = convertEmbed(m.Embeds[0])
	}
	return event
}

// ChannelToEvent converts a deleted channel. Deletion has no timestamp of its
// own, so the receipt time is used.
func ChannelToEvent(ch *discordgo.Channel, received time.Time) *types.TranscriptEvent {
	return &types.TranscriptEvent{
		Kind:      types.KindChannelDelete,
		ID:        ch.ID,
		GuildID:   ch.GuildID,
		Channel:   types.ChannelRef{ID: ch.ID, Name: ch.Name, Topic: ch.Topic},
		CreatedAt: received,
	}
}

func convertEmbed(e *discordgo.MessageEmbed) *types.Embed {
	out := &types.Embed{Title: e.Title, Description: e.Description}
	for _, f := range e.Fields {
		if f == nil {
			continue
		}
		out.Fields = append(out.Fields, types.EmbedField{Name: f.Name, Value: f.Value})
	}
	return out
}
