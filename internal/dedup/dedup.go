// Package dedup suppresses repeated or too-frequent alerts before any
// advisory spend happens. The store is the only shared mutable state in
// the pipeline, so acceptance is a single atomic check-and-set: once an
// alert is accepted the entry stays committed even if the request that
// carried it is later aborted. Dropping an alert is always preferred to
// double-firing a trade.
package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tv-consensus-bot/internal/types"
)

// Key identifies one alert for deduplication. BarTime is zero when the
// payload carried no bar identity; those keys fall back to a minimum-gap
// timer per (symbol, timeframe).
type Key struct {
	Symbol    string
	Timeframe types.Timeframe
	BarTime   time.Time
}

// KeyFor builds the dedup key for a parsed alert.
func KeyFor(snap *types.AlertSnapshot) Key {
	return Key{Symbol: snap.Symbol, Timeframe: snap.Timeframe, BarTime: snap.BarTime}
}

func (k Key) barID() string {
	return fmt.Sprintf("%s|%s|%d", k.Symbol, k.Timeframe, k.BarTime.Unix())
}

func (k Key) gapID() string {
	return fmt.Sprintf("%s|%s", k.Symbol, k.Timeframe)
}

// HasBar reports whether the key carries bar identity.
func (k Key) HasBar() bool {
	return !k.BarTime.IsZero()
}

// Store decides whether an alert should be processed, committing the
// acceptance as a side effect. Implementations must be safe for
// concurrent use.
type Store interface {
	ShouldProcess(ctx context.Context, key Key, now time.Time) (bool, error)
}

// MemoryStore is the in-process store used by default and in tests.
type MemoryStore struct {
	mu           sync.Mutex
	minGap       time.Duration
	horizon      time.Duration
	bars         map[string]time.Time
	lastAccepted map[string]time.Time
	lastPurge    time.Time
}

// NewMemoryStore builds a store with the given burst gap and eviction
// horizon. The horizon bounds memory, it is not a correctness window:
// within it an exact bar is rejected forever.
func NewMemoryStore(minGap, horizon time.Duration) *MemoryStore {
	return &MemoryStore{
		minGap:       minGap,
		horizon:      horizon,
		bars:         make(map[string]time.Time),
		lastAccepted: make(map[string]time.Time),
	}
}

// ShouldProcess accepts a bar-keyed alert iff that exact bar has not been
// seen; a barless alert is accepted iff the per-instrument gap elapsed.
func (s *MemoryStore) ShouldProcess(_ context.Context, key Key, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeLocked(now)

	if key.HasBar() {
		if _, seen := s.bars[key.barID()]; seen {
			return false, nil
		}
		s.bars[key.barID()] = now
		s.lastAccepted[key.gapID()] = now
		return true, nil
	}

	if last, ok := s.lastAccepted[key.gapID()]; ok && now.Sub(last) < s.minGap {
		return false, nil
	}
	s.lastAccepted[key.gapID()] = now
	return true, nil
}

// purgeLocked evicts entries older than the horizon. Runs at most once
// per minute; housekeeping, not correctness.
func (s *MemoryStore) purgeLocked(now time.Time) {
	if now.Sub(s.lastPurge) < time.Minute {
		return
	}
	s.lastPurge = now
	cutoff := now.Add(-s.horizon)
	for id, at := range s.bars {
		if at.Before(cutoff) {
			delete(s.bars, id)
		}
	}
	for id, at := range s.lastAccepted {
		if at.Before(cutoff) {
			delete(s.lastAccepted, id)
		}
	}
}
