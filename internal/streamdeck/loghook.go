package streamdeck

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// logWriter is the part of Conn the hook needs.
type logWriter interface {
	LogMessage(ctx context.Context, message string) error
}

// LogHook mirrors zerolog messages at or above MinLevel into the host log.
// Write failures are dropped silently; logging them would recurse.
type LogHook struct {
	conn     logWriter
	minLevel zerolog.Level
}

// NewLogHook creates a hook writing to conn.
func NewLogHook(conn logWriter, minLevel zerolog.Level) LogHook {
	return LogHook{conn: conn, minLevel: minLevel}
}

// Run implements zerolog.Hook.
func (h LogHook) Run(_ *zerolog.Event, level zerolog.Level, msg string) {
	if level < h.minLevel || level == zerolog.NoLevel || msg == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = h.conn.LogMessage(ctx, "["+level.String()+"] "+msg)
}
