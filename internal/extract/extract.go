// Package extract resolves the ticket owner from transcript content.
// Every function here is pure: identical input gives identical output.
package extract

import (
	"regexp"
	"strings"

	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/types"
)

// Audit reasons for extraction misses
const (
	ReasonNoOwner      = "No Ticket Owner found"
	ReasonNoMention    = "No valid mention in Ticket Owner"
	ReasonNoTopicOwner = "No user ID in channel topic"
)

var (
	ownerLinePattern = regexp.MustCompile(`(?i)Ticket Owner[:\s]+(.+)`)
	mentionPattern   = regexp.MustCompile(`<@!?(\d{10,})>`)
	topicIDPattern   = regexp.MustCompile(`\d{17,19}`)
)

// Owner is the resolved ticket owner
type Owner struct {
	UserID string
	// Candidate is the raw text the ID was taken from
	Candidate string
}

// Strategy extracts an owner from one kind of event
type Strategy interface {
	Owner(event *types.TranscriptEvent) (Owner, error)
	// HasContent reports whether the event carries anything to extract from.
	// Events without content are processed silently.
	HasContent(event *types.TranscriptEvent) bool
}

// EmbedStrategy reads the owner from a transcript embed: the "Ticket Owner"
// field first, then a "Ticket Owner: ..." line in the description
type EmbedStrategy struct{}

// HasContent reports whether the event has an embed
func (EmbedStrategy) HasContent(event *types.TranscriptEvent) bool {
	return event.HasEmbed()
}

// Owner extracts the mention from the embed
func (EmbedStrategy) Owner(event *types.TranscriptEvent) (Owner, error) {
	if !event.HasEmbed() {
		return Owner{}, &MissError{Reason: ReasonNoOwner}
	}
	candidate, ok := OwnerCandidate(event.Embed)
	if !ok {
		return Owner{}, &MissError{Reason: ReasonNoOwner}
	}
	id, ok := MentionID(candidate)
	if !ok {
		return Owner{}, &MissError{Reason: ReasonNoMention, Candidate: candidate}
	}
	return Owner{UserID: id, Candidate: candidate}, nil
}

// TopicStrategy reads a bare user ID from a ticket channel's topic, as set
// by ticketing tools that store the opener there
type TopicStrategy struct{}

// HasContent reports whether the channel has a topic
func (TopicStrategy) HasContent(event *types.TranscriptEvent) bool {
	return event != nil && strings.TrimSpace(event.Channel.Topic) != ""
}

// Owner extracts the first 17-19 digit run from the topic
func (TopicStrategy) Owner(event *types.TranscriptEvent) (Owner, error) {
	if event == nil {
		return Owner{}, &MissError{Reason: ReasonNoTopicOwner}
	}
	id, ok := TopicID(event.Channel.Topic)
	if !ok {
		return Owner{}, &MissError{Reason: ReasonNoTopicOwner, Candidate: event.Channel.Topic}
	}
	return Owner{UserID: id, Candidate: event.Channel.Topic}, nil
}

// OwnerCandidate returns the owner mention text from the embed.
// A field whose name contains "ticket owner" wins over the description.
func OwnerCandidate(embed *types.Embed) (string, bool) {
	if embed == nil {
		return "", false
	}
	for _, f := range embed.Fields {
		if strings.Contains(strings.ToLower(f.Name), "ticket owner") {
			if f.Value != "" {
				return f.Value, true
			}
			break
		}
	}
	if embed.Description != "" {
		if m := ownerLinePattern.FindStringSubmatch(embed.Description); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// MentionID returns the user ID of the first <@id> or <@!id> token in text
func MentionID(text string) (string, bool) {
	m := mentionPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// TopicID returns the first 17-19 digit run in topic.
// Longer digit runs are not user IDs and are skipped.
func TopicID(topic string) (string, bool) {
	for _, loc := range topicIDPattern.FindAllStringIndex(topic, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && isDigit(topic[start-1]) {
			continue
		}
		if end < len(topic) && isDigit(topic[end]) {
			continue
		}
		return topic[start:end], true
	}
	return "", false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// TicketName picks a display name for the audit entry: the first field whose
// name contains "ticket", then the embed title, then the channel name
func TicketName(event *types.TranscriptEvent) string {
	if event == nil {
		return "N/A"
	}
	if event.Embed != nil {
		for _, f := range event.Embed.Fields {
			if strings.Contains(strings.ToLower(f.Name), "ticket") {
				if f.Value != "" {
					return f.Value
				}
				break
			}
		}
		if event.Embed.Title != "" {
			return event.Embed.Title
		}
	}
	if event.Channel.Name != "" {
		return event.Channel.Name
	}
	return "N/A"
}

// ForKind returns the strategy used for an event kind
func ForKind(kind types.EventKind) Strategy {
	if kind == types.KindChannelDelete {
		return TopicStrategy{}
	}
	return EmbedStrategy{}
}
