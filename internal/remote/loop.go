package remote

import (
	"context"
	"log"

	"github.com/unlock-remote/device/internal/input"
)

// Run handles events one at a time until ctx is done or events is closed. Each
// event runs to completion before the next is received.
func (c *Controller) Run(ctx context.Context, events <-chan input.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			c.Handle(ctx, ev)
		}
	}
}

// Handle dispatches a single event.
func (c *Controller) Handle(ctx context.Context, ev input.Event) {
	switch ev.Button {
	case input.ButtonA:
		log.Printf("Unlock requested via %s", ev.Source)
		c.Unlock(ctx)
	case input.ButtonB:
		c.ShowBattery(ctx)
	default:
		log.Printf("Ignoring unknown button %q", ev.Button)
	}
}
