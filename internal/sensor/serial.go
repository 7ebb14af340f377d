package sensor

import (
	"bufio"
	"fmt"
	"io"

	"go.bug.st/serial"

	"github.com/skyframe-data/orientation.relay/internal/monitoring"
)

// SerialSource reads quaternion lines from a serial-attached IMU bridge.
// The bridge emits one "w,x,y,z" CSV line per measurement.
type SerialSource struct {
	port   io.ReadCloser
	scan   *bufio.Scanner
	fovDeg float64
}

// OpenSerial opens the IMU bridge at the given device path.
func OpenSerial(device string, baud int, fovDeg float64) (*SerialSource, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", device, err)
	}
	return NewSerialSource(port, fovDeg), nil
}

// NewSerialSource wraps an already-open line stream. Split out from
// OpenSerial so tests can feed it without hardware.
func NewSerialSource(port io.ReadCloser, fovDeg float64) *SerialSource {
	return &SerialSource{
		port:   port,
		scan:   bufio.NewScanner(port),
		fovDeg: fovDeg,
	}
}

// Next returns the next parseable reading. Garbled lines are logged and
// skipped; the stream only ends on a read error or EOF.
func (s *SerialSource) Next() (Reading, error) {
	for s.scan.Scan() {
		line := s.scan.Text()
		if line == "" {
			continue
		}
		q, err := ParseLine(line)
		if err != nil {
			monitoring.Logf("skipping sensor line: %v", err)
			continue
		}
		return Reading{Q: q, FOVDeg: s.fovDeg}, nil
	}
	if err := s.scan.Err(); err != nil {
		return Reading{}, err
	}
	return Reading{}, io.EOF
}

// Close releases the serial port.
func (s *SerialSource) Close() error {
	return s.port.Close()
}
