package watermark

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Tracker owns the in-memory record and writes it through to a Store.
// Persistence failures are logged, never returned: the in-memory record
// remains the source of truth for the rest of the process.
type Tracker struct {
	mu     sync.Mutex
	store  Store
	rec    Record
	logger *zap.Logger
}

// Open loads the record from store. A read or decode failure starts from a
// fresh record. A record without a start time gets now, saved immediately;
// that time bounds which events the relay will ever act on.
func Open(ctx context.Context, store Store, now time.Time, logger *zap.Logger) *Tracker {
	t := &Tracker{store: store, logger: logger}

	rec, err := store.Load(ctx)
	if err != nil {
		logger.Warn("Failed to load watermark, starting fresh", zap.Error(err))
		rec = freshRecord(now)
		t.rec = rec
		t.persist(ctx)
		return t
	}

	t.rec = rec
	if t.rec.StartedAt == 0 {
		t.rec.StartedAt = now.UnixMilli()
		t.persist(ctx)
	}
	return t
}

// StartedAt returns the replay boundary
func (t *Tracker) StartedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rec.Started()
}

// LastProcessedID returns the current watermark, "" when unset
func (t *Tracker) LastProcessedID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rec.Last()
}

// IsNew reports whether id is strictly past the watermark
func (t *Tracker) IsNew(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return IsAfter(id, t.rec.Last())
}

// Advance moves the watermark to id and persists it synchronously.
// It never moves backwards; an older id is a no-op and returns false.
func (t *Tracker) Advance(ctx context.Context, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !IsAfter(id, t.rec.Last()) {
		return false
	}
	next := id
	t.rec.LastProcessedID = &next
	t.persist(ctx)
	return true
}

// Snapshot returns a copy of the in-memory record
func (t *Tracker) Snapshot() Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return copyRecord(t.rec)
}

// persist saves the current record; callers hold mu or own t exclusively
func (t *Tracker) persist(ctx context.Context) {
	if err := t.store.Save(ctx, copyRecord(t.rec)); err != nil {
		t.logger.Warn("Failed to save watermark",
			zap.String("lastProcessedId", t.rec.Last()),
			zap.Error(err),
		)
	}
}
