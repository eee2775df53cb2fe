package app

import (
	"time"

	"github.com/dokzlo13/deckcolor/internal/eventbus"
)

// busLoop runs button work on the event bus so it never overlaps with host
// events.
type busLoop struct {
	bus *eventbus.Bus
}

// After posts fn to the loop once delay has passed.
func (l busLoop) After(delay time.Duration, button string, fn func()) {
	time.AfterFunc(delay, func() {
		l.bus.Publish(eventbus.Event{
			Type:     eventbus.EventTypeLongPressTimer,
			Context:  button,
			Callback: fn,
		})
	})
}

// Await runs blocking on its own goroutine and posts the returned
// continuation to the loop.
func (l busLoop) Await(button string, blocking func() func()) {
	go func() {
		cont := blocking()
		l.bus.Publish(eventbus.Event{
			Type:     eventbus.EventTypeColorPicked,
			Context:  button,
			Callback: cont,
		})
	}()
}
