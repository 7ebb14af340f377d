// Package config loads the relay's optional JSON configuration file.
// Fields omitted from the file keep their defaults, so partial configs are
// safe to ship.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Settings are the fully resolved runtime parameters of the relay.
type Settings struct {
	HTTPListen       string
	UDPListen        string
	BroadcastHz      int
	UDPReceiveBuffer int
	Synthetic        SyntheticSettings
}

// SyntheticSettings parameterize the synthetic orientation generator. Rates
// are radians (or degrees for FOV) per second of wall-clock time.
type SyntheticSettings struct {
	YawRate        float64
	PitchAmplitude float64
	PitchRate      float64
	FOVBase        float64
	FOVAmplitude   float64
	FOVRate        float64
	Lat            float64
	Lon            float64
	AltM           float64
}

// Defaults returns the built-in settings: the well-known ports and the
// reference synthetic motion profile.
func Defaults() Settings {
	return Settings{
		HTTPListen:       ":8000",
		UDPListen:        ":9001",
		BroadcastHz:      60,
		UDPReceiveBuffer: 262144,
		Synthetic: SyntheticSettings{
			YawRate:        0.5,
			PitchAmplitude: 0.2,
			PitchRate:      0.3,
			FOVBase:        40,
			FOVAmplitude:   10,
			FOVRate:        0.1,
			Lat:            42.6977,
			Lon:            23.3219,
			AltM:           600,
		},
	}
}

// RelayConfig is the on-disk JSON schema. All fields are optional; nil
// means "keep the default".
type RelayConfig struct {
	HTTPListen       *string          `json:"http_listen,omitempty"`
	UDPListen        *string          `json:"udp_listen,omitempty"`
	BroadcastHz      *int             `json:"broadcast_hz,omitempty"`
	UDPReceiveBuffer *int             `json:"udp_receive_buffer,omitempty"`
	Synthetic        *SyntheticConfig `json:"synthetic,omitempty"`
}

// SyntheticConfig mirrors SyntheticSettings with optional fields.
type SyntheticConfig struct {
	YawRate        *float64 `json:"yaw_rate,omitempty"`
	PitchAmplitude *float64 `json:"pitch_amplitude,omitempty"`
	PitchRate      *float64 `json:"pitch_rate,omitempty"`
	FOVBase        *float64 `json:"fov_base,omitempty"`
	FOVAmplitude   *float64 `json:"fov_amplitude,omitempty"`
	FOVRate        *float64 `json:"fov_rate,omitempty"`
	Lat            *float64 `json:"lat,omitempty"`
	Lon            *float64 `json:"lon,omitempty"`
	AltM           *float64 `json:"alt_m,omitempty"`
}

const maxConfigSize = 1 << 20 // 1MB

// Load reads a RelayConfig from a JSON file. The path must carry a .json
// extension and stay under the size cap.
func Load(path string) (*RelayConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg RelayConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", cleanPath, err)
	}
	return &cfg, nil
}

// Apply overlays the non-nil fields of the config onto s.
func (c *RelayConfig) Apply(s *Settings) {
	if c == nil {
		return
	}
	if c.HTTPListen != nil {
		s.HTTPListen = *c.HTTPListen
	}
	if c.UDPListen != nil {
		s.UDPListen = *c.UDPListen
	}
	if c.BroadcastHz != nil {
		s.BroadcastHz = *c.BroadcastHz
	}
	if c.UDPReceiveBuffer != nil {
		s.UDPReceiveBuffer = *c.UDPReceiveBuffer
	}
	if c.Synthetic == nil {
		return
	}
	syn := c.Synthetic
	if syn.YawRate != nil {
		s.Synthetic.YawRate = *syn.YawRate
	}
	if syn.PitchAmplitude != nil {
		s.Synthetic.PitchAmplitude = *syn.PitchAmplitude
	}
	if syn.PitchRate != nil {
		s.Synthetic.PitchRate = *syn.PitchRate
	}
	if syn.FOVBase != nil {
		s.Synthetic.FOVBase = *syn.FOVBase
	}
	if syn.FOVAmplitude != nil {
		s.Synthetic.FOVAmplitude = *syn.FOVAmplitude
	}
	if syn.FOVRate != nil {
		s.Synthetic.FOVRate = *syn.FOVRate
	}
	if syn.Lat != nil {
		s.Synthetic.Lat = *syn.Lat
	}
	if syn.Lon != nil {
		s.Synthetic.Lon = *syn.Lon
	}
	if syn.AltM != nil {
		s.Synthetic.AltM = *syn.AltM
	}
}
