package store

import (
	"sync"
	"testing"
	"time"

	"gonum.org/v1/gonum/num/quat"

	"github.com/skyframe-data/orientation.relay/internal/orientation"
	"github.com/skyframe-data/orientation.relay/internal/timeutil"
)

func sampleAt(w float64, at time.Time) *orientation.Sample {
	return orientation.NewSample(quat.Number{Real: w, Imag: 1 - w}, 40, at)
}

func TestNewStoreStartsSynthetic(t *testing.T) {
	s := New(nil)
	if s.Live() {
		t.Error("new store reports live mode")
	}
	if s.HasData() {
		t.Error("new store reports data before any publish")
	}
	if s.Latest() != nil {
		t.Error("Latest() != nil on empty store")
	}
}

func TestPublishLiveFlipsMode(t *testing.T) {
	s := New(nil)
	now := time.Now()

	s.PublishLive(sampleAt(1, now))
	if !s.Live() {
		t.Fatal("store not live after PublishLive")
	}
	if !s.HasData() {
		t.Fatal("store has no data after PublishLive")
	}

	// idempotent: a second live publish keeps live mode and replaces the sample
	second := sampleAt(0.5, now)
	s.PublishLive(second)
	if s.Latest() != second {
		t.Error("Latest() did not observe replacement")
	}
	if !s.Live() {
		t.Error("live mode reverted")
	}
}

func TestPublishSyntheticGatedByMode(t *testing.T) {
	s := New(nil)
	now := time.Now()

	if !s.PublishSynthetic(sampleAt(1, now)) {
		t.Fatal("synthetic publish refused in synthetic mode")
	}

	live := sampleAt(0.9, now)
	s.PublishLive(live)

	if s.PublishSynthetic(sampleAt(0.1, now)) {
		t.Fatal("synthetic publish accepted after live transition")
	}
	if s.Latest() != live {
		t.Error("synthetic publish overwrote the live sample")
	}
}

func TestUptime(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	s := New(clock)
	clock.Advance(90 * time.Second)
	if got := s.Uptime(); got != 90*time.Second {
		t.Errorf("Uptime() = %v, want 90s", got)
	}
}

// TestConcurrentPublish exercises the store under the same contention shape
// as production: one live writer, one synthetic writer, many readers. Run
// with -race.
func TestConcurrentPublish(t *testing.T) {
	s := New(nil)
	now := time.Now()

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.PublishSynthetic(sampleAt(0.3, now))
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.PublishLive(sampleAt(0.7, now))
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if latest := s.Latest(); latest != nil && latest.FOVDeg != 40 {
					t.Error("observed torn sample")
					return
				}
			}
		}()
	}

	// writers finish first, then release the readers
	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()
	time.Sleep(50 * time.Millisecond)
	close(stop)
	<-done

	if !s.Live() {
		t.Error("store not live after live writes")
	}
}
