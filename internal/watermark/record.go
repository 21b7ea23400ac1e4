// Package watermark persists the last processed transcript event so the
// relay can resume after a restart without re-notifying anyone.
package watermark

import (
	"math/big"
	"time"
)

// Record is the persisted relay state.
// LastProcessedID is nil until the first event is processed.
type Record struct {
	LastProcessedID *string `json:"lastProcessedId"`
	StartedAt       int64   `json:"startedAt"` // unix milliseconds
}

// Started returns StartedAt as a time.Time
func (r Record) Started() time.Time {
	return time.UnixMilli(r.StartedAt)
}

// Last returns the watermark or "" when unset
func (r Record) Last() string {
	if r.LastProcessedID == nil {
		return ""
	}
	return *r.LastProcessedID
}

// freshRecord is the fallback used whenever stored state cannot be read
func freshRecord(now time.Time) Record {
	return Record{StartedAt: now.UnixMilli()}
}

// IsAfter reports whether snowflake a is strictly greater than b.
// Snowflakes are compared numerically, not lexically. An empty b means no
// watermark yet, and unparsable input is treated as newer so a corrupt
// watermark can never block processing.
func IsAfter(a, b string) bool {
	if b == "" {
		return true
	}
	x, ok := new(big.Int).SetString(a, 10)
	if !ok {
		return true
	}
	y, ok := new(big.Int).SetString(b, 10)
	if !ok {
		return true
	}
	return x.Cmp(y) > 0
}
