package input

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
)

// Keyboard reads one button per line (a/1 for unlock, b/2 for battery).
type Keyboard struct {
	in         io.Reader
	dispatcher *Dispatcher
}

// NewKeyboard creates a keyboard source feeding dispatcher.
func NewKeyboard(in io.Reader, dispatcher *Dispatcher) *Keyboard {
	return &Keyboard{in: in, dispatcher: dispatcher}
}

// Run reads until EOF or ctx is done. Blank lines are ignored.
func (k *Keyboard) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(k.in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		button, err := ParseButton(line)
		if err != nil {
			log.Printf("Ignoring keyboard input: %v", err)
			continue
		}

		if err := k.dispatcher.Press(button, "keyboard"); err != nil && !errors.Is(err, ErrBusy) && !errors.Is(err, ErrDebounced) {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading keyboard: %w", err)
	}
	return nil
}
