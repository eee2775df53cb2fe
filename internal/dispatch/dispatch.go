// Package dispatch fans a color out to every light configured on a button.
// Each light gets its own goroutine; outcomes are logged and recorded but
// never reported back to the caller.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/deckcolor/internal/color"
	"github.com/dokzlo13/deckcolor/internal/ledger"
)

// Source says why a color is being sent.
type Source string

const (
	SourcePick   Source = "pick"
	SourceReplay Source = "replay"
)

// Backend turns on one light with a color.
type Backend interface {
	Name() string
	TurnOn(ctx context.Context, url, token, light string, rgb color.RGB) error
}

// Recorder persists per-light outcomes.
type Recorder interface {
	Append(eventType ledger.EventType, idempotencyKey, source, button string, payload map[string]any) error
}

// Transformer may rewrite the color before it is sent.
type Transformer interface {
	Transform(c color.RGB, source string) (color.RGB, error)
}

// Target is where a button's color goes.
type Target struct {
	URL    string
	Token  string
	Lights []string
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithRecorder records every outcome in a ledger.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithTransformer runs every color through t before sending.
func WithTransformer(t Transformer) Option {
	return func(d *Dispatcher) { d.transformer = t }
}

// WithTimeout bounds each light's request. Zero means no extra bound.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// Dispatcher sends colors through a Backend.
type Dispatcher struct {
	backend     Backend
	recorder    Recorder
	transformer Transformer
	timeout     time.Duration

	wg sync.WaitGroup
}

// New creates a Dispatcher.
func New(backend Backend, opts ...Option) *Dispatcher {
	d := &Dispatcher{backend: backend}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch starts one request per light and returns immediately with the
// dispatch id. A failing light does not affect the others. ctx bounds the
// requests; it should outlive the caller's event handling.
func (d *Dispatcher) Dispatch(ctx context.Context, button string, rgb color.RGB, source Source, target Target) string {
	id := uuid.NewString()

	logger := log.With().
		Str("dispatch_id", id).
		Str("button", button).
		Str("source", string(source)).
		Str("backend", d.backend.Name()).
		Logger()

	if len(target.Lights) == 0 {
		logger.Warn().Msg("No lights configured, nothing to dispatch")
		return id
	}

	if err := rgb.Validate(); err != nil {
		logger.Error().Err(err).Msg("Refusing to dispatch invalid color")
		return id
	}

	if d.transformer != nil {
		out, err := d.transformer.Transform(rgb, string(source))
		if err != nil {
			logger.Warn().Err(err).Str("color", rgb.Hex()).Msg("Color script failed, sending original color")
		} else if out != rgb {
			logger.Debug().Str("from", rgb.Hex()).Str("to", out.Hex()).Msg("Color rewritten by script")
			rgb = out
		}
	}

	logger.Info().
		Str("color", rgb.Hex()).
		Strs("lights", target.Lights).
		Msg("Dispatching color")

	for _, light := range target.Lights {
		d.wg.Add(1)
		go func(light string) {
			defer d.wg.Done()
			d.send(ctx, id, button, light, rgb, source, target)
		}(light)
	}

	return id
}

func (d *Dispatcher) send(ctx context.Context, id, button, light string, rgb color.RGB, source Source, target Target) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	err := d.backend.TurnOn(ctx, target.URL, target.Token, light, rgb)
	elapsed := time.Since(start)

	payload := map[string]any{
		"light":      light,
		"color":      rgb.Hex(),
		"source":     string(source),
		"elapsed_ms": elapsed.Milliseconds(),
	}
	eventType := ledger.EventDispatchCompleted

	if err != nil {
		eventType = ledger.EventDispatchFailed
		payload["error"] = err.Error()
		log.Error().
			Err(err).
			Str("dispatch_id", id).
			Str("button", button).
			Str("light", light).
			Dur("elapsed", elapsed).
			Msg("Dispatch to light failed")
	} else {
		log.Debug().
			Str("dispatch_id", id).
			Str("light", light).
			Dur("elapsed", elapsed).
			Msg("Dispatch to light completed")
	}

	if d.recorder != nil {
		key := id + "/" + light
		if err := d.recorder.Append(eventType, key, d.backend.Name(), button, payload); err != nil {
			log.Warn().Err(err).Str("dispatch_id", id).Msg("Failed to record dispatch outcome")
		}
	}
}

// Wait blocks until every in-flight request has finished or ctx is done.
// It exists for shutdown; callers of Dispatch never wait on their own
// requests.
func (d *Dispatcher) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Msg("Timed out waiting for in-flight dispatches")
	}
}
