// Package sensor provides orientation sources for the publisher tool: a
// serial-attached IMU and a synthetic fallback for benches without
// hardware.
package sensor

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/num/quat"

	"github.com/skyframe-data/orientation.relay/internal/orientation"
)

// Reading is one orientation measurement from a source.
type Reading struct {
	Q      quat.Number
	FOVDeg float64
}

// Source yields successive orientation readings.
type Source interface {
	// Next blocks until the next reading is available.
	Next() (Reading, error)
	// Close releases the source.
	Close() error
}

// ParseLine parses one IMU bridge line, four comma-separated floats in
// w,x,y,z order, into a unit quaternion.
func ParseLine(line string) (quat.Number, error) {
	segments := strings.Split(strings.TrimSpace(line), ",")
	if len(segments) != 4 {
		return quat.Number{}, fmt.Errorf("invalid reading %q: expected 4 segments, got %d", line, len(segments))
	}

	var comps [4]float64
	for i, seg := range segments {
		v, err := strconv.ParseFloat(strings.TrimSpace(seg), 64)
		if err != nil {
			return quat.Number{}, fmt.Errorf("invalid reading %q: segment %d: %w", line, i, err)
		}
		comps[i] = v
	}

	return orientation.Unit(quat.Number{
		Real: comps[0], Imag: comps[1], Jmag: comps[2], Kmag: comps[3],
	}), nil
}
