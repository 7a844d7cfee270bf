package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/unlock-remote/device/internal/battery"
)

const (
	clearSequence = "\033[H\033[2J"
	glyphCells    = 10
)

var palette = map[Color]lipgloss.Color{
	White:  lipgloss.Color("15"),
	Green:  lipgloss.Color("10"),
	Red:    lipgloss.Color("9"),
	Yellow: lipgloss.Color("11"),
}

// Terminal renders the screen on a terminal using ANSI styling.
type Terminal struct {
	out      io.Writer
	renderer *lipgloss.Renderer

	mu     sync.Mutex
	color  Color
	dimmed bool
}

// NewTerminal creates a terminal display writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{
		out:      w,
		renderer: lipgloss.NewRenderer(w),
		color:    White,
		dimmed:   true,
	}
}

// Clear blanks the screen.
func (t *Terminal) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	io.WriteString(t.out, clearSequence)
}

// SetBacklight clears the screen and toggles dimmed rendering.
func (t *Terminal) SetBacklight(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	io.WriteString(t.out, clearSequence)
	t.dimmed = !on
}

// SetTextColor sets the color for subsequent Print calls.
func (t *Terminal) SetTextColor(c Color) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.color = c
}

// Print writes text in the current color. Newlines are kept.
func (t *Terminal) Print(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	style := t.style(t.color)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			io.WriteString(t.out, style.Render(line))
		}
		if i < len(lines)-1 {
			io.WriteString(t.out, "\n")
		}
	}
}

// DrawBattery renders a bar glyph such as [######    ]  62% +.
func (t *Terminal) DrawBattery(percentage int, charging bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	filled := glyphCells * percentage / 100
	glyph := fmt.Sprintf("[%s%s] %3d%%", strings.Repeat("#", filled), strings.Repeat(" ", glyphCells-filled), percentage)
	if charging {
		glyph += " +"
	}

	style := t.style(LevelColor(battery.LevelFor(percentage)))
	io.WriteString(t.out, style.Render(glyph)+"\n")
}

func (t *Terminal) style(c Color) lipgloss.Style {
	fg, ok := palette[c]
	if !ok {
		fg = palette[White]
	}
	return t.renderer.NewStyle().Foreground(fg).Faint(t.dimmed)
}
