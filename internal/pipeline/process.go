// Package pipeline implements the transcript event processor:
// guards -> extract -> resolve -> filter -> notify -> audit -> advance.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/config"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/dedup"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/extract"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/ignore"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/obs"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/types"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/watermark"
	"go.uber.org/zap"
)

// ReasonUserNotFound is the audit reason when an extracted ID resolves to no user
const ReasonUserNotFound = "Could not fetch user"

// State is the final state of one event
type State int

const (
	// StateSkip means a guard filtered the event out; nothing changed
	StateSkip State = iota
	// StateNoContent means the event carried nothing to extract from
	StateNoContent
	// StateNoOwner means no user could be identified; an audit entry was posted
	StateNoOwner
	// StateIgnored means the owner is in the ignore set
	StateIgnored
	// StateSent means the direct message was delivered
	StateSent
	// StateFailed means the direct message was rejected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSkip:
		return "skip"
	case StateNoContent:
		return "no_content"
	case StateNoOwner:
		return "no_owner"
	case StateIgnored:
		return "ignored"
	case StateSent:
		return "sent"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Processed reports whether the state advances the watermark
func (s State) Processed() bool { return s != StateSkip }

// Directory resolves user IDs to users
type Directory interface {
	FetchUser(ctx context.Context, userID string) (*types.User, error)
}

// Messenger delivers direct messages
type Messenger interface {
	SendDirectMessage(ctx context.Context, userID, content string) error
}

// ReviewChannel renders the review destination for a DM in a guild
type ReviewChannel interface {
	ReviewMention(ctx context.Context, guildID string) string
}

// AuditLogger posts audit entries. Errors are reported, never fatal.
type AuditLogger interface {
	Log(ctx context.Context, event *types.TranscriptEvent, entry types.AuditEntry) error
}

// FailureSink receives unsuccessful outcomes for follow-up
type FailureSink interface {
	Publish(ctx context.Context, event *types.TranscriptEvent, entry types.AuditEntry) error
}

// Options wires a Processor. Seen, Ignore, Failures and Metrics are optional.
type Options struct {
	Tracker    *watermark.Tracker
	Seen       *dedup.Set
	Ignore     *ignore.Set
	Channels   ChannelMatcher
	Directory  Directory
	Messenger  Messenger
	Review     ReviewChannel
	Audit      AuditLogger
	Failures   FailureSink
	DMTemplate string
	Metrics    *obs.Metrics
	Logger     *zap.Logger
}

// Processor runs the per-event state machine. It holds no state of its own
// beyond the tracker and dedup set it was given.
type Processor struct {
	tracker    *watermark.Tracker
	seen       *dedup.Set
	ignore     *ignore.Set
	channels   ChannelMatcher
	directory  Directory
	messenger  Messenger
	review     ReviewChannel
	audit      AuditLogger
	failures   FailureSink
	dmTemplate string
	metrics    *obs.Metrics
	logger     *zap.Logger
}

// NewProcessor validates opts and builds a Processor
func NewProcessor(opts Options) (*Processor, error) {
	switch {
	case opts.Tracker == nil:
		return nil, fmt.Errorf("tracker cannot be nil")
	case opts.Directory == nil:
		return nil, fmt.Errorf("directory cannot be nil")
	case opts.Messenger == nil:
		return nil, fmt.Errorf("messenger cannot be nil")
	case opts.Review == nil:
		return nil, fmt.Errorf("review channel cannot be nil")
	case opts.Audit == nil:
		return nil, fmt.Errorf("audit logger cannot be nil")
	case opts.Logger == nil:
		return nil, fmt.Errorf("logger cannot be nil")
	}
	tmpl := opts.DMTemplate
	if tmpl == "" {
		tmpl = config.DefaultDMTemplate
	}
	return &Processor{
		tracker:    opts.Tracker,
		seen:       opts.Seen,
		ignore:     opts.Ignore,
		channels:   opts.Channels,
		directory:  opts.Directory,
		messenger:  opts.Messenger,
		review:     opts.Review,
		audit:      opts.Audit,
		failures:   opts.Failures,
		dmTemplate: tmpl,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
	}, nil
}

// Process runs one event through the state machine. The returned error is
// non-nil only when the event could not be evaluated at all; every outcome
// past the guards, successful or not, returns a Processed state and nil.
func (p *Processor) Process(ctx context.Context, event *types.TranscriptEvent) (State, error) {
	if err := ctx.Err(); err != nil {
		return StateSkip, ErrContextCanceled
	}
	if event == nil {
		return StateSkip, &ProcessError{Err: errors.New("event is nil")}
	}

	if reason := p.admit(event); reason != "" {
		p.logger.Debug("Skipped event",
			zap.String("eventId", event.ID),
			zap.Stringer("kind", event.Kind),
			zap.String("reason", reason),
		)
		if p.metrics != nil {
			p.metrics.ObserveSkip(reason)
		}
		return StateSkip, nil
	}

	state := p.handle(ctx, event)
	p.complete(ctx, event, state)
	return state, nil
}

// handle performs the side effects for an admitted event
func (p *Processor) handle(ctx context.Context, event *types.TranscriptEvent) State {
	strategy := extract.ForKind(event.Kind)
	if !strategy.HasContent(event) {
		return StateNoContent
	}

	ticket := extract.TicketName(event)
	owner, err := strategy.Owner(event)
	if err != nil {
		reason := extract.ReasonNoOwner
		var miss *extract.MissError
		if errors.As(err, &miss) {
			reason = miss.Reason
		}
		p.logger.Info("No ticket owner in transcript",
			zap.String("eventId", event.ID),
			zap.String("reason", reason),
		)
		p.record(ctx, event, types.AuditEntry{
			Outcome:    types.DeliveryOutcome{OK: false, Reason: reason},
			UserTag:    types.UnknownUser,
			UserID:     types.UnknownUser,
			TicketName: ticket,
		})
		return StateNoOwner
	}

	user, err := p.directory.FetchUser(ctx, owner.UserID)
	if err == nil && user == nil {
		err = errors.New("user not found")
	}
	if err != nil {
		lookupErr := &LookupError{UserID: owner.UserID, Err: err}
		p.logger.Warn("Failed to resolve ticket owner",
			zap.String("eventId", event.ID),
			zap.Error(lookupErr),
		)
		p.record(ctx, event, types.AuditEntry{
			Outcome:    types.DeliveryOutcome{OK: false, Reason: ReasonUserNotFound},
			UserTag:    types.UnknownUser,
			UserID:     owner.UserID,
			TicketName: ticket,
		})
		return StateNoOwner
	}

	if p.ignore.Contains(user) {
		p.logger.Info("Ticket owner is ignored",
			zap.String("eventId", event.ID),
			zap.String("userId", user.ID),
		)
		return StateIgnored
	}

	outcome := types.DeliveryOutcome{OK: true, Reason: types.ReasonDelivered}
	if err := p.messenger.SendDirectMessage(ctx, user.ID, p.dmText(ctx, event.GuildID)); err != nil {
		deliveryErr := &DeliveryError{UserID: user.ID, Err: err}
		outcome = types.DeliveryOutcome{OK: false, Reason: deliveryErr.Reason()}
		p.logger.Warn("Review DM failed",
			zap.String("eventId", event.ID),
			zap.String("userId", user.ID),
			zap.Error(deliveryErr),
		)
	} else {
		p.logger.Info("Review DM sent",
			zap.String("eventId", event.ID),
			zap.String("userId", user.ID),
			zap.String("ticket", ticket),
		)
	}

	p.record(ctx, event, types.AuditEntry{
		Outcome:    outcome,
		UserTag:    user.Tag(),
		UserID:     user.ID,
		TicketName: ticket,
	})
	if outcome.OK {
		return StateSent
	}
	return StateFailed
}

// record posts the audit entry and, for failures, forwards it to the failure
// sink. Neither can change the outcome of the event.
func (p *Processor) record(ctx context.Context, event *types.TranscriptEvent, entry types.AuditEntry) {
	if err := p.audit.Log(ctx, event, entry); err != nil {
		p.logger.Warn("Failed to post audit entry",
			zap.String("eventId", event.ID),
			zap.Error(err),
		)
		if p.metrics != nil {
			p.metrics.IncrementAuditFailures()
		}
	}

	if entry.Outcome.OK || p.failures == nil {
		return
	}
	if err := p.failures.Publish(ctx, event, entry); err != nil {
		p.logger.Warn("Failed to publish failed outcome",
			zap.String("eventId", event.ID),
			zap.Error(err),
		)
		return
	}
	if p.metrics != nil {
		p.metrics.IncrementDLQMessages()
	}
}

// complete advances the watermark past the event, whatever its outcome.
// The dedup entry was already reserved by admit.
func (p *Processor) complete(ctx context.Context, event *types.TranscriptEvent, state State) {
	if event.Kind == types.KindMessageCreate {
		p.tracker.Advance(ctx, event.ID)
	}
	if p.metrics != nil {
		p.metrics.ObserveOutcome(state.String())
	}
}

func (p *Processor) dmText(ctx context.Context, guildID string) string {
	return strings.ReplaceAll(p.dmTemplate, config.ReviewPlaceholder, p.review.ReviewMention(ctx, guildID))
}
