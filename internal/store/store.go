// Package store holds the single latest orientation sample and the
// live/synthetic mode flag shared between the ingest, generator, and
// broadcast loops.
package store

import (
	"time"

	"github.com/skyframe-data/orientation.relay/internal/orientation"
	"github.com/skyframe-data/orientation.relay/internal/timeutil"

	"sync/atomic"
)

// Store is the single point of concurrent contention in the relay. Updates
// replace the whole sample pointer, so readers always observe a fully
// constructed sample. The live flag is monotonic: it flips from synthetic to
// live exactly once per process lifetime and never reverts, even if the
// upstream source goes quiet.
type Store struct {
	clock  timeutil.Clock
	start  time.Time
	sample atomic.Pointer[orientation.Sample]
	live   atomic.Bool
}

// New creates an empty Store in synthetic mode. A nil clock uses the real
// wall clock.
func New(clock timeutil.Clock) *Store {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Store{clock: clock, start: clock.Now()}
}

// PublishLive replaces the latest sample and flips the relay into live mode.
// The flip is idempotent once live.
func (s *Store) PublishLive(sample *orientation.Sample) {
	s.sample.Store(sample)
	s.live.Store(true)
}

// PublishSynthetic replaces the latest sample only while the relay is still
// in synthetic mode; once live, generator output no longer reaches the
// store. It reports whether the write happened. A live datagram racing the
// mode check can still land between check and store; that window is a single
// tick and the transition is monotonic, so the stale synthetic write is
// immediately superseded.
func (s *Store) PublishSynthetic(sample *orientation.Sample) bool {
	if s.live.Load() {
		return false
	}
	s.sample.Store(sample)
	return true
}

// Latest returns the most recent sample, or nil before the first write.
func (s *Store) Latest() *orientation.Sample {
	return s.sample.Load()
}

// Live reports whether at least one valid upstream datagram has arrived.
func (s *Store) Live() bool {
	return s.live.Load()
}

// HasData reports whether any sample has ever been published.
func (s *Store) HasData() bool {
	return s.sample.Load() != nil
}

// Uptime returns the duration since the store was constructed at process
// start.
func (s *Store) Uptime() time.Duration {
	return s.clock.Since(s.start)
}
