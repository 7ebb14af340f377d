// Package synth fabricates a continuously varying orientation stream so
// consumers see plausible motion while no live source is sending.
package synth

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/num/quat"

	"github.com/skyframe-data/orientation.relay/internal/config"
	"github.com/skyframe-data/orientation.relay/internal/monitoring"
	"github.com/skyframe-data/orientation.relay/internal/orientation"
	"github.com/skyframe-data/orientation.relay/internal/store"
	"github.com/skyframe-data/orientation.relay/internal/timeutil"
)

// Generator produces synthetic orientation samples at a fixed tick rate.
// It is stateless between ticks: wall-clock time is its only input, so two
// generators with the same parameters agree on the motion.
type Generator struct {
	store    *store.Store
	clock    timeutil.Clock
	interval time.Duration
	params   config.SyntheticSettings
}

// New creates a Generator writing to st at hz ticks per second. A nil clock
// uses the real wall clock.
func New(st *store.Store, params config.SyntheticSettings, hz int, clock timeutil.Clock) *Generator {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if hz <= 0 {
		hz = 60
	}
	return &Generator{
		store:    st,
		clock:    clock,
		interval: time.Second / time.Duration(hz),
		params:   params,
	}
}

// Run ticks until the context is cancelled. Each tick publishes a sample
// through the store's synthetic gate; once the relay goes live the ticks
// keep coming but the writes stop landing.
func (g *Generator) Run(ctx context.Context) error {
	ticker := g.clock.NewTicker(g.interval)
	defer ticker.Stop()

	monitoring.Logf("synthetic generator started at %v per tick", g.interval)
	for {
		select {
		case <-ctx.Done():
			monitoring.Logf("synthetic generator stopping")
			return ctx.Err()
		case now := <-ticker.C():
			g.store.PublishSynthetic(g.Sample(now))
		}
	}
}

// Sample evaluates the synthetic motion at the given instant: a steady yaw
// about the vertical axis with a sinusoidal pitch perturbation, composed via
// quaternion multiplication, plus an oscillating field of view and a fixed
// illustrative geolocation.
func (g *Generator) Sample(now time.Time) *orientation.Sample {
	t := float64(now.UnixNano()) / float64(time.Second)

	yaw := orientation.RotationY(g.params.YawRate * t)
	pitch := orientation.RotationX(g.params.PitchAmplitude * math.Sin(g.params.PitchRate*t))
	q := quat.Mul(yaw, pitch)

	fov := g.params.FOVBase + g.params.FOVAmplitude*math.Sin(g.params.FOVRate*t)

	s := orientation.NewSample(q, fov, now)
	lat, lon, alt := g.params.Lat, g.params.Lon, g.params.AltM
	s.Lat, s.Lon, s.AltM = &lat, &lon, &alt
	return s
}
