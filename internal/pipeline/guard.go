// Package pipeline implements the transcript event processor:
// guards -> extract -> resolve -> filter -> notify -> audit -> advance.
package pipeline

import (
	"strings"

	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/config"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/types"
)

// Skip reasons, also used as metric labels.
const (
	SkipNoGuild     = "no_guild"
	SkipBeforeStart = "before_start"
	SkipDuplicate   = "duplicate"
	SkipChannel     = "channel"
)

// ChannelMatcher decides whether an event comes from a channel the relay watches.
// Only the event kind selected by Trigger is accepted. Message events must
// come from the transcript channel; channel-deletion events must be ticket
// channels, recognised by name prefix.
type ChannelMatcher struct {
	Trigger      config.Trigger
	Transcript   config.ChannelSelector
	TicketPrefix string
}

// Matches reports whether event's channel is watched
func (m ChannelMatcher) Matches(event *types.TranscriptEvent) bool {
	switch event.Kind {
	case types.KindChannelDelete:
		if !m.Trigger.ChannelDeletes() {
			return false
		}
		if m.TicketPrefix == "" {
			return true
		}
		return strings.HasPrefix(strings.ToLower(event.Channel.Name), strings.ToLower(m.TicketPrefix))
	default:
		if !m.Trigger.Messages() {
			return false
		}
		if m.Transcript.ByName() {
			return event.Channel.Name != "" && strings.EqualFold(event.Channel.Name, m.Transcript.Name)
		}
		return event.Channel.ID != "" && event.Channel.ID == m.Transcript.ID
	}
}

// admit runs the guards in order and returns the reason the event is skipped,
// or "" when it should be processed. The last guard reserves the event in the
// dedup set, so a redelivery that arrives while the first copy is still in
// flight is skipped.
func (p *Processor) admit(event *types.TranscriptEvent) string {
	if event.GuildID == "" {
		return SkipNoGuild
	}
	if event.CreatedAt.Before(p.tracker.StartedAt()) {
		return SkipBeforeStart
	}
	// Channel IDs order by creation, not deletion, so only message events
	// are held against the watermark
	if event.Kind == types.KindMessageCreate && !p.tracker.IsNew(event.ID) {
		return SkipDuplicate
	}
	if !p.channels.Matches(event) {
		return SkipChannel
	}
	if !p.seen.Reserve(dedupKey(event)) {
		return SkipDuplicate
	}
	return ""
}

func dedupKey(event *types.TranscriptEvent) string {
	return event.Kind.String() + ":" + event.ID
}
