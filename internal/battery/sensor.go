package battery

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Sensor samples the battery.
type Sensor interface {
	Read() (Reading, error)
}

// DefaultSysfsRoot is where Linux exposes power supplies.
const DefaultSysfsRoot = "/sys/class/power_supply"

// SysfsSensor reads a Linux power supply (voltage_now, current_now, status).
type SysfsSensor struct {
	dir string
}

// NewSysfsSensor creates a sensor for the named supply under root.
func NewSysfsSensor(root, name string) *SysfsSensor {
	if root == "" {
		root = DefaultSysfsRoot
	}
	return &SysfsSensor{dir: filepath.Join(root, name)}
}

// Read samples voltage and current. The kernel reports microvolts and microamps;
// the current sign is taken from the status file since drivers disagree on it.
func (s *SysfsSensor) Read() (Reading, error) {
	microVolts, err := s.readInt("voltage_now")
	if err != nil {
		return Reading{}, err
	}

	// Not every driver exposes current_now.
	microAmps, err := s.readInt("current_now")
	if err != nil {
		microAmps = 0
	}
	if microAmps < 0 {
		microAmps = -microAmps
	}

	current := float64(microAmps) / 1e6
	status, _ := os.ReadFile(filepath.Join(s.dir, "status"))
	if strings.TrimSpace(string(status)) != "Charging" {
		current = -current
	}

	return Reading{
		Voltage: float64(microVolts) / 1e6,
		Current: current,
	}, nil
}

func (s *SysfsSensor) readInt(name string) (int64, error) {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}

	v, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}
	return v, nil
}

// FixedSensor always returns the same reading. Used on hosts without a battery.
type FixedSensor struct {
	Reading Reading
}

// Read returns the fixed reading.
func (s FixedSensor) Read() (Reading, error) {
	return s.Reading, nil
}
