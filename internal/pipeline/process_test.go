package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/config"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/dedup"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/extract"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/ignore"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/obs"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/types"
	"github.com/Sheliakhin-Golang-portfolio/ReviewRelay/internal/watermark"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	guildID      = "900000000000000001"
	transcriptID = "900000000000000010"
	ownerID      = "123456789012345678"
)

var started = time.UnixMilli(1700000000000)

type fakeDirectory struct {
	mu    sync.Mutex
	users map[string]*types.User
	err   error
	calls []string
}

func (d *fakeDirectory) FetchUser(_ context.Context, userID string) (*types.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, userID)
	if d.err != nil {
		return nil, d.err
	}
	u, ok := d.users[userID]
	if !ok {
		return nil, errors.New("Unknown User")
	}
	return u, nil
}

type sentDM struct {
	userID  string
	content string
}

// fakeMessenger records DMs; delay holds each send open to widen the window
// in which a redelivered event can arrive
type fakeMessenger struct {
	mu    sync.Mutex
	delay time.Duration
	err   error
	sent  []sentDM
}

func (m *fakeMessenger) SendDirectMessage(_ context.Context, userID, content string) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentDM{userID: userID, content: content})
	return m.err
}

type fakeReview struct{}

func (fakeReview) ReviewMention(context.Context, string) string { return "<#700000000000000000>" }

type fakeAudit struct {
	mu      sync.Mutex
	err     error
	entries []types.AuditEntry
}

func (a *fakeAudit) Log(_ context.Context, _ *types.TranscriptEvent, entry types.AuditEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return a.err
}

type fakeSink struct {
	mu      sync.Mutex
	entries []types.AuditEntry
}

func (s *fakeSink) Publish(_ context.Context, _ *types.TranscriptEvent, entry types.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

type harness struct {
	proc      *Processor
	store     *watermark.MemoryStore
	tracker   *watermark.Tracker
	directory *fakeDirectory
	messenger *fakeMessenger
	audit     *fakeAudit
	sink      *fakeSink
	metrics   *obs.Metrics
	logs      *observer.ObservedLogs
}

func newHarness(t *testing.T, ignoreList ...string) *harness {
	t.Helper()
	return newHarnessFor(t, config.TriggerMessage, ignoreList...)
}

func newHarnessFor(t *testing.T, trigger config.Trigger, ignoreList ...string) *harness {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	store := watermark.NewMemoryStore(&watermark.Record{StartedAt: started.UnixMilli()})
	tracker := watermark.Open(context.Background(), store, started, logger)
	seen, err := dedup.New(64)
	if err != nil {
		t.Fatalf("dedup.New: %v", err)
	}

	h := &harness{
		store:   store,
		tracker: tracker,
		directory: &fakeDirectory{users: map[string]*types.User{
			ownerID: {ID: ownerID, Username: "customer"},
		}},
		messenger: &fakeMessenger{},
		audit:     &fakeAudit{},
		sink:      &fakeSink{},
		metrics:   obs.NewMetrics("test", prometheus.NewRegistry()),
		logs:      logs,
	}
	h.proc, err = NewProcessor(Options{
		Tracker:   tracker,
		Seen:      seen,
		Ignore:    ignore.New(ignoreList),
		Channels:  ChannelMatcher{Trigger: trigger, Transcript: config.ChannelSelector{ID: transcriptID}, TicketPrefix: "ticket-"},
		Directory: h.directory,
		Messenger: h.messenger,
		Review:    fakeReview{},
		Audit:     h.audit,
		Failures:  h.sink,
		Metrics:   h.metrics,
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("NewProcessor: %v", err)
	}
	return h
}

func transcript(id string, embed *types.Embed) *types.TranscriptEvent {
	return &types.TranscriptEvent{
		Kind:      types.KindMessageCreate,
		ID:        id,
		GuildID:   guildID,
		Channel:   types.ChannelRef{ID: transcriptID, Name: "transcripts"},
		CreatedAt: started.Add(time.Minute),
		Embed:     embed,
	}
}

func ownerEmbed(value string) *types.Embed {
	return &types.Embed{
		Title:  "Ticket closed",
		Fields: []types.EmbedField{{Name: "Ticket Owner", Value: value}},
	}
}

func TestProcess_ScenarioA_Delivered(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	state, err := h.proc.Process(context.Background(), transcript("1000000000000000001", ownerEmbed("<@"+ownerID+">")))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if state != StateSent {
		t.Fatalf("Expected %v, got %v", StateSent, state)
	}
	if len(h.messenger.sent) != 1 || h.messenger.sent[0].userID != ownerID {
		t.Fatalf("Expected one DM to %s, got %+v", ownerID, h.messenger.sent)
	}
	want := "Hi! Thank you for using our service — could you please leave a review in <#700000000000000000>? 🔥"
	if h.messenger.sent[0].content != want {
		t.Errorf("Unexpected DM text: %q", h.messenger.sent[0].content)
	}
	if len(h.audit.entries) != 1 {
		t.Fatalf("Expected one audit entry, got %d", len(h.audit.entries))
	}
	entry := h.audit.entries[0]
	if !entry.Outcome.OK || entry.Outcome.Reason != types.ReasonDelivered {
		t.Errorf("Expected delivered outcome, got %+v", entry.Outcome)
	}
	if entry.UserTag != "customer#0" || entry.UserID != ownerID {
		t.Errorf("Unexpected user in audit entry: %+v", entry)
	}
	if h.tracker.LastProcessedID() != "1000000000000000001" {
		t.Errorf("Expected watermark to advance, got %q", h.tracker.LastProcessedID())
	}
	if len(h.sink.entries) != 0 {
		t.Errorf("Expected no failure records, got %d", len(h.sink.entries))
	}
	if got := testutil.ToFloat64(h.metrics.OutcomesTotal.WithLabelValues("sent")); got != 1 {
		t.Errorf("Expected sent outcome metric 1, got %v", got)
	}
	if h.logs.FilterMessage("Review DM sent").Len() != 1 {
		t.Error("Expected delivery log entry")
	}
}

func TestProcess_ScenarioB_NoEmbed(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	state, err := h.proc.Process(context.Background(), transcript("1000000000000000002", nil))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if state != StateNoContent {
		t.Fatalf("Expected %v, got %v", StateNoContent, state)
	}
	if len(h.messenger.sent) != 0 || len(h.audit.entries) != 0 || len(h.directory.calls) != 0 {
		t.Errorf("Expected no side effects, got dms=%d audit=%d lookups=%d",
			len(h.messenger.sent), len(h.audit.entries), len(h.directory.calls))
	}
	if h.tracker.LastProcessedID() != "1000000000000000002" {
		t.Errorf("Expected watermark to advance, got %q", h.tracker.LastProcessedID())
	}
}

func TestProcess_ScenarioC_MalformedMention(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	state, err := h.proc.Process(context.Background(), transcript("1000000000000000003", ownerEmbed("someone")))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if state != StateNoOwner {
		t.Fatalf("Expected %v, got %v", StateNoOwner, state)
	}
	if len(h.audit.entries) != 1 || h.audit.entries[0].Outcome.Reason != extract.ReasonNoMention {
		t.Fatalf("Expected audit entry with %q, got %+v", extract.ReasonNoMention, h.audit.entries)
	}
	if h.audit.entries[0].UserID != types.UnknownUser {
		t.Errorf("Expected unknown user, got %q", h.audit.entries[0].UserID)
	}
	if len(h.messenger.sent) != 0 {
		t.Error("Expected no DM")
	}
	if len(h.sink.entries) != 1 {
		t.Errorf("Expected failure record, got %d", len(h.sink.entries))
	}
	if h.tracker.LastProcessedID() != "1000000000000000003" {
		t.Errorf("Expected watermark to advance, got %q", h.tracker.LastProcessedID())
	}
}

func TestProcess_ScenarioD_IgnoredUser(t *testing.T) {
	t.Parallel()

	for _, entry := range []string{ownerID, "CUSTOMER", "customer#0"} {
		t.Run(entry, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, entry)

			state, err := h.proc.Process(context.Background(), transcript("1000000000000000004", ownerEmbed("<@"+ownerID+">")))
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if state != StateIgnored {
				t.Fatalf("Expected %v, got %v", StateIgnored, state)
			}
			if len(h.messenger.sent) != 0 || len(h.audit.entries) != 0 {
				t.Errorf("Expected no DM and no audit entry, got dms=%d audit=%d", len(h.messenger.sent), len(h.audit.entries))
			}
			if h.tracker.LastProcessedID() != "1000000000000000004" {
				t.Errorf("Expected watermark to advance, got %q", h.tracker.LastProcessedID())
			}
		})
	}
}

func TestProcess_ScenarioE_DeliveryRejected(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.messenger.err = errors.New("Cannot send messages to this user")

	state, err := h.proc.Process(context.Background(), transcript("1000000000000000005", ownerEmbed("<@!"+ownerID+">")))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if state != StateFailed {
		t.Fatalf("Expected %v, got %v", StateFailed, state)
	}
	if len(h.messenger.sent) != 1 {
		t.Errorf("Expected exactly one DM attempt, got %d", len(h.messenger.sent))
	}
	if len(h.audit.entries) != 1 {
		t.Fatalf("Expected one audit entry, got %d", len(h.audit.entries))
	}
	got := h.audit.entries[0].Outcome
	if got.OK || got.Reason != "Cannot send messages to this user" {
		t.Errorf("Expected rejected outcome with platform reason, got %+v", got)
	}
	if len(h.sink.entries) != 1 {
		t.Errorf("Expected failure record, got %d", len(h.sink.entries))
	}
	if h.tracker.LastProcessedID() != "1000000000000000005" {
		t.Errorf("Expected watermark to advance, got %q", h.tracker.LastProcessedID())
	}
}

func TestProcess_UserLookupFails(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	state, err := h.proc.Process(context.Background(), transcript("1000000000000000006", ownerEmbed("<@2222222222>")))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if state != StateNoOwner {
		t.Fatalf("Expected %v, got %v", StateNoOwner, state)
	}
	if len(h.audit.entries) != 1 {
		t.Fatalf("Expected one audit entry, got %d", len(h.audit.entries))
	}
	entry := h.audit.entries[0]
	if entry.Outcome.Reason != ReasonUserNotFound || entry.UserID != "2222222222" {
		t.Errorf("Unexpected audit entry: %+v", entry)
	}
	if len(h.messenger.sent) != 0 {
		t.Error("Expected no DM")
	}
}

func TestProcess_NoOwnerField(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	embed := &types.Embed{Title: "Transcript", Fields: []types.EmbedField{{Name: "Panel", Value: "support"}}}
	state, _ := h.proc.Process(context.Background(), transcript("1000000000000000007", embed))
	if state != StateNoOwner {
		t.Fatalf("Expected %v, got %v", StateNoOwner, state)
	}
	if len(h.audit.entries) != 1 || h.audit.entries[0].Outcome.Reason != extract.ReasonNoOwner {
		t.Fatalf("Expected %q audit entry, got %+v", extract.ReasonNoOwner, h.audit.entries)
	}
	if h.audit.entries[0].TicketName != "Transcript" {
		t.Errorf("Expected ticket name from title, got %q", h.audit.entries[0].TicketName)
	}
}

func TestProcess_Guards(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*types.TranscriptEvent)
		reason string
	}{
		{name: "no_guild", mutate: func(e *types.TranscriptEvent) { e.GuildID = "" }, reason: SkipNoGuild},
		{name: "before_start", mutate: func(e *types.TranscriptEvent) { e.CreatedAt = started.Add(-time.Second) }, reason: SkipBeforeStart},
		{name: "other_channel", mutate: func(e *types.TranscriptEvent) { e.Channel.ID = "1" }, reason: SkipChannel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)

			event := transcript("1000000000000000010", ownerEmbed("<@"+ownerID+">"))
			tt.mutate(event)
			state, err := h.proc.Process(context.Background(), event)
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if state != StateSkip {
				t.Fatalf("Expected skip, got %v", state)
			}
			if len(h.messenger.sent) != 0 || len(h.audit.entries) != 0 {
				t.Error("Expected no side effects")
			}
			if h.tracker.LastProcessedID() != "" {
				t.Errorf("Expected watermark untouched, got %q", h.tracker.LastProcessedID())
			}
			if got := testutil.ToFloat64(h.metrics.EventsSkippedTotal.WithLabelValues(tt.reason)); got != 1 {
				t.Errorf("Expected skip metric %s=1, got %v", tt.reason, got)
			}
		})
	}
}

func TestProcess_DuplicateDeliveryIsNoOp(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	if state, _ := h.proc.Process(ctx, transcript("1000000000000000020", ownerEmbed("<@"+ownerID+">"))); state != StateSent {
		t.Fatalf("Expected first delivery to send, got %v", state)
	}
	saves := h.store.Saves()

	for _, id := range []string{"1000000000000000020", "1000000000000000019", "999999999999999999"} {
		state, err := h.proc.Process(ctx, transcript(id, ownerEmbed("<@"+ownerID+">")))
		if err != nil || state != StateSkip {
			t.Fatalf("Expected %s to be skipped, got %v, %v", id, state, err)
		}
	}
	if len(h.messenger.sent) != 1 || len(h.audit.entries) != 1 {
		t.Errorf("Expected no additional side effects, got dms=%d audit=%d", len(h.messenger.sent), len(h.audit.entries))
	}
	if h.store.Saves() != saves {
		t.Errorf("Expected no state change, saves went %d -> %d", saves, h.store.Saves())
	}
	if h.tracker.LastProcessedID() != "1000000000000000020" {
		t.Errorf("Expected watermark unchanged, got %q", h.tracker.LastProcessedID())
	}
}

func TestProcess_WatermarkStrictlyIncreases(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	ctx := context.Background()

	ids := []string{"999999999999999998", "999999999999999999", "1000000000000000000", "1000000000000000001"}
	prev := ""
	for _, id := range ids {
		if _, err := h.proc.Process(ctx, transcript(id, nil)); err != nil {
			t.Fatalf("Process(%s): %v", id, err)
		}
		cur := h.tracker.LastProcessedID()
		if !watermark.IsAfter(cur, prev) {
			t.Fatalf("Watermark did not increase: %q -> %q", prev, cur)
		}
		prev = cur
	}
	saved, _ := h.store.Snapshot()
	if saved.Last() != ids[len(ids)-1] {
		t.Errorf("Expected persisted watermark %s, got %s", ids[len(ids)-1], saved.Last())
	}
}

func TestProcess_AuditFailureDoesNotChangeOutcome(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.audit.err = errors.New("Missing Access")

	state, err := h.proc.Process(context.Background(), transcript("1000000000000000030", ownerEmbed("<@"+ownerID+">")))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if state != StateSent {
		t.Fatalf("Expected %v, got %v", StateSent, state)
	}
	if h.tracker.LastProcessedID() != "1000000000000000030" {
		t.Errorf("Expected watermark to advance, got %q", h.tracker.LastProcessedID())
	}
	if got := testutil.ToFloat64(h.metrics.AuditFailuresTotal); got != 1 {
		t.Errorf("Expected audit failure metric 1, got %v", got)
	}
	if h.logs.FilterMessage("Failed to post audit entry").Len() != 1 {
		t.Error("Expected audit warning")
	}
}

func TestProcess_ChannelDeleteTopic(t *testing.T) {
	t.Parallel()
	h := newHarnessFor(t, config.TriggerChannelDelete)
	h.tracker.Advance(context.Background(), "1000000000000000099")

	event := &types.TranscriptEvent{
		Kind:      types.KindChannelDelete,
		ID:        "1000000000000000050",
		GuildID:   guildID,
		Channel:   types.ChannelRef{ID: "1000000000000000050", Name: "ticket-0042", Topic: "Owner: " + ownerID},
		CreatedAt: started.Add(time.Hour),
	}
	state, err := h.proc.Process(context.Background(), event)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if state != StateSent {
		t.Fatalf("Expected deletion below the message watermark to be processed, got %v", state)
	}
	if h.audit.entries[0].TicketName != "ticket-0042" {
		t.Errorf("Expected channel name as ticket, got %q", h.audit.entries[0].TicketName)
	}
	if h.tracker.LastProcessedID() != "1000000000000000099" {
		t.Errorf("Expected deletions to leave the watermark alone, got %q", h.tracker.LastProcessedID())
	}

	state, _ = h.proc.Process(context.Background(), event)
	if state != StateSkip {
		t.Errorf("Expected replayed deletion to be skipped, got %v", state)
	}
	if len(h.messenger.sent) != 1 {
		t.Errorf("Expected a single DM, got %d", len(h.messenger.sent))
	}
}

// closedTicket returns the two gateway events one closed ticket produces:
// the transcript posted by the ticketing bot and the deletion of the ticket
// channel, both naming the same owner
func closedTicket() (*types.TranscriptEvent, *types.TranscriptEvent) {
	message := transcript("1000000000000000060", &types.Embed{
		Title: "Ticket closed",
		Fields: []types.EmbedField{
			{Name: "Ticket Name", Value: "ticket-0060"},
			{Name: "Ticket Owner", Value: "<@" + ownerID + ">"},
		},
	})
	deletion := &types.TranscriptEvent{
		Kind:      types.KindChannelDelete,
		ID:        "1000000000000000055",
		GuildID:   guildID,
		Channel:   types.ChannelRef{ID: "1000000000000000055", Name: "ticket-0060", Topic: "Owner: " + ownerID},
		CreatedAt: started.Add(time.Minute),
	}
	return message, deletion
}

func TestProcess_ClosedTicketNotifiesOnce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		trigger config.Trigger
		want    types.EventKind
	}{
		{trigger: config.TriggerMessage, want: types.KindMessageCreate},
		{trigger: config.TriggerChannelDelete, want: types.KindChannelDelete},
	}

	for _, tt := range tests {
		t.Run(string(tt.trigger), func(t *testing.T) {
			t.Parallel()
			h := newHarnessFor(t, tt.trigger)
			ctx := context.Background()
			message, deletion := closedTicket()

			for _, event := range []*types.TranscriptEvent{message, deletion} {
				state, err := h.proc.Process(ctx, event)
				if err != nil {
					t.Fatalf("Process(%v): %v", event.Kind, err)
				}
				wantState := StateSkip
				if event.Kind == tt.want {
					wantState = StateSent
				}
				if state != wantState {
					t.Errorf("Expected %v for %v, got %v", wantState, event.Kind, state)
				}
			}

			if len(h.messenger.sent) != 1 {
				t.Fatalf("Expected exactly one DM for one closed ticket, got %d", len(h.messenger.sent))
			}
			if len(h.audit.entries) != 1 || h.audit.entries[0].TicketName != "ticket-0060" {
				t.Errorf("Expected one audit entry for ticket-0060, got %+v", h.audit.entries)
			}
			if got := testutil.ToFloat64(h.metrics.EventsSkippedTotal.WithLabelValues(SkipChannel)); got != 1 {
				t.Errorf("Expected the unselected event kind to be skipped as %s, got %v", SkipChannel, got)
			}
		})
	}
}

func TestProcess_ConcurrentRedelivery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		trigger config.Trigger
		event   func() *types.TranscriptEvent
	}{
		{name: "message", trigger: config.TriggerMessage, event: func() *types.TranscriptEvent {
			m, _ := closedTicket()
			return m
		}},
		{name: "channel_delete", trigger: config.TriggerChannelDelete, event: func() *types.TranscriptEvent {
			_, d := closedTicket()
			return d
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := newHarnessFor(t, tt.trigger)
			h.messenger.delay = 50 * time.Millisecond

			const copies = 4
			states := make([]State, copies)
			var wg sync.WaitGroup
			for i := range copies {
				wg.Add(1)
				go func() {
					defer wg.Done()
					state, err := h.proc.Process(context.Background(), tt.event())
					if err != nil {
						t.Errorf("Process: %v", err)
					}
					states[i] = state
				}()
			}
			wg.Wait()

			sent := 0
			for _, state := range states {
				if state == StateSent {
					sent++
				} else if state != StateSkip {
					t.Errorf("Expected sent or skip, got %v", state)
				}
			}
			if sent != 1 || len(h.messenger.sent) != 1 {
				t.Errorf("Expected one delivery, got %d sent states and %d DMs", sent, len(h.messenger.sent))
			}
			if len(h.audit.entries) != 1 {
				t.Errorf("Expected one audit entry, got %d", len(h.audit.entries))
			}
			if got := testutil.ToFloat64(h.metrics.EventsSkippedTotal.WithLabelValues(SkipDuplicate)); got != copies-1 {
				t.Errorf("Expected %d duplicate skips, got %v", copies-1, got)
			}
		})
	}
}

func TestChannelMatcher_Trigger(t *testing.T) {
	t.Parallel()

	message, deletion := closedTicket()
	byTrigger := map[config.Trigger][2]bool{
		"":                          {true, false},
		config.TriggerMessage:       {true, false},
		config.TriggerChannelDelete: {false, true},
	}
	for trigger, want := range byTrigger {
		m := ChannelMatcher{Trigger: trigger, Transcript: config.ChannelSelector{ID: transcriptID}, TicketPrefix: "ticket-"}
		if got := m.Matches(message); got != want[0] {
			t.Errorf("trigger %q: expected message match %v, got %v", trigger, want[0], got)
		}
		if got := m.Matches(deletion); got != want[1] {
			t.Errorf("trigger %q: expected deletion match %v, got %v", trigger, want[1], got)
		}
	}
}

func TestProcess_ChannelDeleteNotATicket(t *testing.T) {
	t.Parallel()
	h := newHarnessFor(t, config.TriggerChannelDelete)

	event := &types.TranscriptEvent{
		Kind:      types.KindChannelDelete,
		ID:        "1000000000000000051",
		GuildID:   guildID,
		Channel:   types.ChannelRef{ID: "1000000000000000051", Name: "general", Topic: ownerID},
		CreatedAt: started.Add(time.Hour),
	}
	if state, _ := h.proc.Process(context.Background(), event); state != StateSkip {
		t.Errorf("Expected non-ticket channel to be skipped, got %v", state)
	}
}

func TestProcess_InvalidInput(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, err := h.proc.Process(context.Background(), nil)
	var pe *ProcessError
	if !errors.As(err, &pe) {
		t.Errorf("Expected *ProcessError for nil event, got %T (%v)", err, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.proc.Process(ctx, transcript("1", nil)); !errors.Is(err, ErrContextCanceled) {
		t.Errorf("Expected ErrContextCanceled, got %v", err)
	}
}

func TestNewProcessor_RequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := NewProcessor(Options{}); err == nil {
		t.Fatal("Expected error for empty options, got nil")
	}
}

func TestChannelMatcher_ByName(t *testing.T) {
	t.Parallel()

	m := ChannelMatcher{Transcript: config.ChannelSelector{Name: "Transcripts"}}
	if !m.Matches(&types.TranscriptEvent{Channel: types.ChannelRef{ID: "1", Name: "transcripts"}}) {
		t.Error("Expected case-insensitive name match")
	}
	if m.Matches(&types.TranscriptEvent{Channel: types.ChannelRef{ID: "1"}}) {
		t.Error("Expected unknown channel name not to match")
	}
}
