// Package types defines shared types used across the application
package types

import "time"

// EventKind identifies which gateway event produced a TranscriptEvent
type EventKind int

const (
	// KindMessageCreate is a message posted in a channel (the transcript record)
	KindMessageCreate EventKind = iota
	// KindChannelDelete is a ticket channel being deleted on close
	KindChannelDelete
)

func (k EventKind) String() string {
	switch k {
	case KindMessageCreate:
		return "message_create"
	case KindChannelDelete:
		return "channel_delete"
	default:
		return "unknown"
	}
}

// ChannelRef identifies the channel an event belongs to.
// Name and Topic are filled when known; ID is always set for gateway events.
type ChannelRef struct {
	ID    string
	Name  string
	Topic string
}

// EmbedField is a single name/value pair of an embed
type EmbedField struct {
	Name  string
	Value string
}

// Embed is the structured payload a ticketing integration attaches to a transcript
type Embed struct {
	Title       string
	Description string
	Fields      []EmbedField
}

// TranscriptEvent is one inbound event from the gateway, already converted
// away from the client library's types
type TranscriptEvent struct {
	Kind      EventKind
	ID        string
	GuildID   string
	Channel   ChannelRef
	CreatedAt time.Time
	// Embed is nil when the message carried no embedded content
	Embed *Embed
}

// HasEmbed reports whether the event carries structured content
func (e *TranscriptEvent) HasEmbed() bool {
	return e != nil && e.Embed != nil
}

// User is a resolved platform user
type User struct {
	ID            string
	Username      string
	Discriminator string
}

// Tag returns "username#discriminator", defaulting the discriminator to "0"
// for accounts migrated off discriminators
func (u *User) Tag() string {
	disc := u.Discriminator
	if disc == "" {
		disc = "0"
	}
	return u.Username + "#" + disc
}

// DeliveryOutcome is the result of one notification attempt
type DeliveryOutcome struct {
	OK     bool
	Reason string
}

// ReasonDelivered is the outcome reason for a successful direct message
const ReasonDelivered = "Delivered"

// AuditEntry is one line of the audit channel: who was (or could not be)
// notified about which ticket, and how it went
type AuditEntry struct {
	Outcome    DeliveryOutcome
	UserTag    string
	UserID     string
	TicketName string
}

// UnknownUser is shown in audit entries when no user could be resolved
const UnknownUser = "Unknown"
