// Package display renders feedback on the handheld's screen.
//
// The controller drives a Display as a passive sink of instructions and never
// depends on what ends up on screen.
package display

import "github.com/unlock-remote/device/internal/battery"

// Color is a text color understood by every Display.
type Color string

const (
	White  Color = "white"
	Green  Color = "green"
	Red    Color = "red"
	Yellow Color = "yellow"
)

// Display is the screen surface.
type Display interface {
	// Clear blanks the screen and moves the cursor below the battery glyph.
	Clear()
	// SetBacklight clears the screen and switches between active and dimmed mode.
	SetBacklight(on bool)
	SetTextColor(c Color)
	Print(text string)
	DrawBattery(percentage int, charging bool)
}

// LevelColor maps a battery level onto the glyph color.
func LevelColor(l battery.Level) Color {
	switch l {
	case battery.LevelLow:
		return Red
	case battery.LevelMedium:
		return Yellow
	default:
		return Green
	}
}

// ShowBattery draws the glyph for a reading.
func ShowBattery(d Display, r battery.Reading) {
	d.DrawBattery(r.Percentage(), r.Charging())
}
