package button

import (
	"context"
	"time"

	"github.com/dokzlo13/deckcolor/internal/color"
	"github.com/dokzlo13/deckcolor/internal/dispatch"
	"github.com/dokzlo13/deckcolor/internal/ledger"
	"github.com/dokzlo13/deckcolor/internal/settings"
)

// Picker obtains a new color from the user.
type Picker interface {
	Pick(ctx context.Context) (color.RGB, error)
}

// Dispatcher sends a color to a button's lights without waiting for them.
type Dispatcher interface {
	Dispatch(ctx context.Context, button string, rgb color.RGB, source dispatch.Source, target dispatch.Target) string
}

// Display updates what a key shows.
type Display interface {
	SetTitle(ctx context.Context, button, title string) error
	SetImage(ctx context.Context, button, image string) error
}

// Loop runs work on the plugin's event loop.
type Loop interface {
	// After runs fn on the loop once delay has passed. It cannot be cancelled.
	After(delay time.Duration, button string, fn func())
	// Await runs blocking off the loop, then runs the continuation it returns
	// on the loop.
	Await(button string, blocking func() func())
}

// Recorder appends to the event ledger.
type Recorder interface {
	Append(eventType ledger.EventType, idempotencyKey, source, button string, payload map[string]any) error
}

// Rememberer is implemented by stores that can accept settings delivered by
// the host without pushing them back.
type Rememberer interface {
	Remember(id string, state settings.ButtonState)
}

// Deps groups the collaborators of a Handler.
type Deps struct {
	Store      settings.Store
	Picker     Picker
	Dispatcher Dispatcher
	Display    Display
	Loop       Loop
	Recorder   Recorder // optional
}

// Options are the configured defaults.
type Options struct {
	Defaults      settings.Defaults
	ThumbnailSize int
}
