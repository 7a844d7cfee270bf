// Package battery reads the handheld's battery and derives the charge percentage.
package battery

import (
	"math"
)

// Voltage bounds of the LiPo cell used for the percentage estimate.
const (
	MinVoltage = 3.2
	MaxVoltage = 4.2
)

// Reading is a single battery sample. It is recomputed on demand and never cached.
type Reading struct {
	Voltage float64 `json:"voltage"`
	// Current is positive while charging and negative while discharging.
	Current float64 `json:"current"`
}

// Percentage maps the voltage linearly onto 0-100, rounded and clamped.
func (r Reading) Percentage() int {
	return Percentage(r.Voltage)
}

// Charging reports whether current is flowing into the cell.
func (r Reading) Charging() bool {
	return r.Current > 0
}

// Level returns the display level for the reading.
func (r Reading) Level() Level {
	return LevelFor(r.Percentage())
}

// Percentage returns clamp(round((v-MinVoltage)/(MaxVoltage-MinVoltage)*100), 0, 100).
func Percentage(voltage float64) int {
	p := int(math.Round((voltage - MinVoltage) / (MaxVoltage - MinVoltage) * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Level is the coarse charge bucket used to pick the glyph color.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// LevelFor buckets a percentage: below 30 is low, below 50 medium, otherwise high.
func LevelFor(percentage int) Level {
	switch {
	case percentage < 30:
		return LevelLow
	case percentage < 50:
		return LevelMedium
	default:
		return LevelHigh
	}
}
