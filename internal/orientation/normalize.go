package orientation

import (
	"fmt"

	"gonum.org/v1/gonum/num/quat"

	"github.com/skyframe-data/orientation.relay/internal/timeutil"
)

// ErrInvalidQuaternion reports a payload whose q field is missing, has the
// wrong arity, or contains non-numeric values.
var ErrInvalidQuaternion = fmt.Errorf("invalid quaternion")

// Normalizer converts untrusted decoded payloads into canonical samples.
// Timestamps come from its clock, never from the sender.
type Normalizer struct {
	clock timeutil.Clock
}

// NewNormalizer returns a Normalizer stamping samples from clock. A nil
// clock uses the real wall clock.
func NewNormalizer(clock timeutil.Clock) *Normalizer {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Normalizer{clock: clock}
}

// Normalize validates and canonicalizes a decoded upstream record:
//
//  1. raw["q"] must hold exactly 4 numeric values, order w,x,y,z.
//  2. The quaternion is L2-normalized; zero magnitude maps to identity.
//  3. fov_deg defaults to DefaultFOV when missing or non-numeric and is
//     clamped to [MinFOV, MaxFOV].
//  4. ts_unix_ms is stamped from the Normalizer's clock.
//  5. lat, lon, alt_m pass through when present and numeric.
//
// Rejection is an error value for the caller to log and discard; Normalize
// never panics on malformed input.
func (n *Normalizer) Normalize(raw map[string]interface{}) (*Sample, error) {
	qv, ok := raw["q"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: missing or non-array q", ErrInvalidQuaternion)
	}
	if len(qv) != 4 {
		return nil, fmt.Errorf("%w: got %d components, want 4", ErrInvalidQuaternion, len(qv))
	}

	var comps [4]float64
	for i, v := range qv {
		f, ok := numeric(v)
		if !ok {
			return nil, fmt.Errorf("%w: component %d is not a number", ErrInvalidQuaternion, i)
		}
		comps[i] = f
	}

	fov := DefaultFOV
	if v, ok := numeric(raw["fov_deg"]); ok {
		fov = v
	}

	q := quat.Number{Real: comps[0], Imag: comps[1], Jmag: comps[2], Kmag: comps[3]}
	sample := NewSample(q, fov, n.clock.Now())

	if v, ok := numeric(raw["lat"]); ok {
		sample.Lat = &v
	}
	if v, ok := numeric(raw["lon"]); ok {
		sample.Lon = &v
	}
	if v, ok := numeric(raw["alt_m"]); ok {
		sample.AltM = &v
	}

	return sample, nil
}

// numeric reports v as a float64 when it decoded from JSON as a number.
func numeric(v interface{}) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}
