package sensor

import (
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"gonum.org/v1/gonum/num/quat"

	"github.com/skyframe-data/orientation.relay/internal/monitoring"
	"github.com/skyframe-data/orientation.relay/internal/timeutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

func TestParseLine(t *testing.T) {
	q, err := ParseLine("1,0,0,0")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if q != (quat.Number{Real: 1}) {
		t.Errorf("ParseLine = %+v, want identity", q)
	}

	// scaled input comes out unit-norm
	q, err = ParseLine(" 2, 0, 0, 0 ")
	if err != nil {
		t.Fatalf("ParseLine with spaces: %v", err)
	}
	if d := math.Abs(quat.Abs(q) - 1); d > 1e-12 {
		t.Errorf("magnitude off by %g", d)
	}
}

func TestParseLineRejects(t *testing.T) {
	for _, line := range []string{
		"",
		"1,0,0",
		"1,0,0,0,0",
		"1,0,zero,0",
	} {
		if _, err := ParseLine(line); err == nil {
			t.Errorf("ParseLine(%q) accepted malformed input", line)
		}
	}
}

type closableReader struct {
	io.Reader
	closed bool
}

func (c *closableReader) Close() error {
	c.closed = true
	return nil
}

func TestSerialSourceSkipsGarbledLines(t *testing.T) {
	stream := &closableReader{Reader: strings.NewReader(
		"garbage\n\n0,1,0,0\n1,0,0,0\n",
	)}
	src := NewSerialSource(stream, 40)
	defer src.Close()

	r, err := src.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if r.Q != (quat.Number{Imag: 1}) {
		t.Errorf("first reading = %+v, want (0,1,0,0)", r.Q)
	}
	if r.FOVDeg != 40 {
		t.Errorf("FOVDeg = %v, want 40", r.FOVDeg)
	}

	r, err = src.Next()
	if err != nil {
		t.Fatalf("second Next: %v", err)
	}
	if r.Q != (quat.Number{Real: 1}) {
		t.Errorf("second reading = %+v, want identity", r.Q)
	}

	if _, err = src.Next(); err != io.EOF {
		t.Errorf("exhausted source returned %v, want io.EOF", err)
	}
}

func TestSerialSourceClose(t *testing.T) {
	stream := &closableReader{Reader: strings.NewReader("")}
	src := NewSerialSource(stream, 40)
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !stream.closed {
		t.Error("Close did not release the port")
	}
}

func TestMockSourceUnitNorm(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1700000000, 0))
	src := NewMockSource(clock, 40)

	for i := 0; i < 10; i++ {
		r, err := src.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if d := math.Abs(quat.Abs(r.Q) - 1); d > 1e-9 {
			t.Errorf("tick %d: magnitude off by %g", i, d)
		}
		clock.Advance(time.Second)
	}
}

func TestMockSourceVaries(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1700000000, 0))
	src := NewMockSource(clock, 40)

	a, _ := src.Next()
	clock.Advance(time.Second)
	b, _ := src.Next()
	if a.Q == b.Q {
		t.Error("mock source static across a second of motion")
	}
}
