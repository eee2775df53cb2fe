package streamdeck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	defaultWriteTimeout = 5 * time.Second
	maxMessageSize      = 1 << 20
)

// ErrClosed is returned when writing to a closed connection.
var ErrClosed = errors.New("streamdeck connection closed")

// Conn is a registered connection to the host.
// gorilla/websocket allows one concurrent writer; writes are serialized by writeMu.
type Conn struct {
	ws *websocket.Conn

	writeMu sync.Mutex
	closed  bool
}

// Dial connects to the host on 127.0.0.1:port and registers the plugin.
func Dial(ctx context.Context, port int, registerEvent, pluginUUID string) (*Conn, error) {
	u := url.URL{Scheme: "ws", Host: "127.0.0.1:" + strconv.Itoa(port)}
	return DialURL(ctx, u.String(), registerEvent, pluginUUID)
}

// DialURL connects to an explicit WebSocket URL and registers the plugin.
func DialURL(ctx context.Context, wsURL, registerEvent, pluginUUID string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Stream Deck host: %w", err)
	}
	ws.SetReadLimit(maxMessageSize)

	c := &Conn{ws: ws}
	if err := c.writeJSON(ctx, registration{Event: registerEvent, UUID: pluginUUID}); err != nil {
		ws.Close()
		return nil, fmt.Errorf("failed to register plugin: %w", err)
	}

	log.Info().Str("url", wsURL).Str("register_event", registerEvent).Msg("Registered with Stream Deck host")
	return c, nil
}

// Run reads events until the host closes the connection or ctx is cancelled.
// handle is called synchronously for every decoded event.
func (c *Conn) Run(ctx context.Context, handle func(InboundEvent)) error {
	stop := context.AfterFunc(ctx, func() {
		_ = c.Close()
	})
	defer stop()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info().Msg("Stream Deck host closed the connection")
				return nil
			}
			return fmt.Errorf("failed to read from Stream Deck host: %w", err)
		}

		var ev InboundEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Warn().Err(err).Int("len", len(data)).Msg("Dropping malformed host message")
			continue
		}
		handle(ev)
	}
}

// SetSettings persists a button's settings on the host.
func (c *Conn) SetSettings(ctx context.Context, buttonContext string, settings any) error {
	return c.writeJSON(ctx, command{Event: CommandSetSettings, Context: buttonContext, Payload: settings})
}

// GetSettings asks the host to send didReceiveSettings for a button.
func (c *Conn) GetSettings(ctx context.Context, buttonContext string) error {
	return c.writeJSON(ctx, command{Event: CommandGetSettings, Context: buttonContext})
}

// SetTitle sets the title shown on a key.
func (c *Conn) SetTitle(ctx context.Context, buttonContext, title string) error {
	return c.writeJSON(ctx, command{
		Event:   CommandSetTitle,
		Context: buttonContext,
		Payload: titlePayload{Title: title, Target: TargetBoth},
	})
}

// SetImage sets the key image. image is a data URL or SVG string.
func (c *Conn) SetImage(ctx context.Context, buttonContext, image string) error {
	return c.writeJSON(ctx, command{
		Event:   CommandSetImage,
		Context: buttonContext,
		Payload: imagePayload{Image: image, Target: TargetBoth},
	})
}

// LogMessage writes a line to the host's plugin log.
func (c *Conn) LogMessage(ctx context.Context, message string) error {
	return c.writeJSON(ctx, command{Event: CommandLogMessage, Payload: logPayload{Message: message}})
}

// Close sends a close frame and closes the socket. Safe to call more than once.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	_ = c.ws.SetWriteDeadline(time.Now().Add(time.Second))
	_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.ws.Close()
}

func (c *Conn) writeJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	deadline := time.Now().Add(defaultWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed {
		return ErrClosed
	}
	_ = c.ws.SetWriteDeadline(deadline)
	return c.ws.WriteMessage(websocket.TextMessage, data)
}
