// Package orientation defines the canonical orientation sample and the
// normalization of untrusted upstream payloads into it.
package orientation

import (
	"math"
	"time"

	"gonum.org/v1/gonum/num/quat"
)

// Field-of-view bounds in degrees. Values outside the range are clamped,
// absent values fall back to DefaultFOV.
const (
	MinFOV     = 10.0
	MaxFOV     = 120.0
	DefaultFOV = 40.0
)

// Sample is the canonical orientation record flowing through the relay.
// It is immutable once constructed; a newer sample replaces it wholesale.
type Sample struct {
	TimestampMS int64      `json:"ts_unix_ms"`
	Q           [4]float64 `json:"q"` // unit quaternion, order w,x,y,z
	FOVDeg      float64    `json:"fov_deg"`
	Lat         *float64   `json:"lat,omitempty"`
	Lon         *float64   `json:"lon,omitempty"`
	AltM        *float64   `json:"alt_m,omitempty"`
}

// NewSample builds a canonical sample from a quaternion and field of view,
// stamped with the given time. The quaternion is L2-normalized and the field
// of view clamped, so every Sample constructed here satisfies the unit-norm
// and FOV-range invariants.
func NewSample(q quat.Number, fovDeg float64, at time.Time) *Sample {
	u := Unit(q)
	return &Sample{
		TimestampMS: at.UnixMilli(),
		Q:           [4]float64{u.Real, u.Imag, u.Jmag, u.Kmag},
		FOVDeg:      ClampFOV(fovDeg),
	}
}

// Unit returns q scaled to unit magnitude. A zero-magnitude quaternion maps
// to the identity rotation rather than producing NaNs downstream.
func Unit(q quat.Number) quat.Number {
	mag := quat.Abs(q)
	if mag == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/mag, q)
}

// ClampFOV restricts a field-of-view value to [MinFOV, MaxFOV] degrees.
func ClampFOV(v float64) float64 {
	return math.Max(MinFOV, math.Min(MaxFOV, v))
}

// RotationY returns the unit quaternion for a rotation about the vertical
// (yaw) axis by angle radians.
func RotationY(angle float64) quat.Number {
	return quat.Number{Real: math.Cos(angle / 2), Jmag: math.Sin(angle / 2)}
}

// RotationX returns the unit quaternion for a rotation about the transverse
// (pitch) axis by angle radians.
func RotationX(angle float64) quat.Number {
	return quat.Number{Real: math.Cos(angle / 2), Imag: math.Sin(angle / 2)}
}
