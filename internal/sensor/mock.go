package sensor

import (
	"math"

	"gonum.org/v1/gonum/num/quat"

	"github.com/skyframe-data/orientation.relay/internal/orientation"
	"github.com/skyframe-data/orientation.relay/internal/timeutil"
)

// MockSource generates a smooth synthetic quaternion for benches without an
// IMU: a slow yaw sweep with a gentle pitch wobble.
type MockSource struct {
	clock  timeutil.Clock
	fovDeg float64
}

// NewMockSource creates a mock orientation source. A nil clock uses the
// real wall clock.
func NewMockSource(clock timeutil.Clock, fovDeg float64) *MockSource {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &MockSource{clock: clock, fovDeg: fovDeg}
}

// Next returns the motion evaluated at the current instant. It never fails.
func (m *MockSource) Next() (Reading, error) {
	t := float64(m.clock.Now().UnixNano()) / 1e9

	yaw := orientation.RotationY(0.3 * t)
	pitch := orientation.RotationX(0.15 * math.Sin(0.7*t))
	return Reading{
		Q:      orientation.Unit(quat.Mul(yaw, pitch)),
		FOVDeg: m.fovDeg,
	}, nil
}

// Close is a no-op.
func (m *MockSource) Close() error { return nil }
