// Package picker runs the external color-picker program and parses the color
// it prints.
package picker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/deckcolor/internal/color"
)

// Error is returned for every picker failure: spawn, non-zero exit, timeout
// or unparseable output.
type Error struct {
	Op     string // "run", "timeout", "parse"
	Path   string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("color picker %s failed (%s): %v", e.Op, e.Path, e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Picker runs the configured executable with no arguments.
type Picker struct {
	path    string
	dir     string
	timeout time.Duration
}

// New creates a Picker. A zero timeout means the process is only bounded by
// ctx.
func New(path, dir string, timeout time.Duration) *Picker {
	return &Picker{
		path:    path,
		dir:     dir,
		timeout: timeout,
	}
}

// Path returns the executable path.
func (p *Picker) Path() string {
	return p.path
}

// Pick runs the picker and returns the color it printed as [r, g, b].
func (p *Picker) Pick(ctx context.Context) (color.RGB, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.path)
	if p.dir != "" {
		cmd.Dir = p.dir
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return color.RGB{}, &Error{Op: "timeout", Path: p.path, Err: ctx.Err()}
		}
		return color.RGB{}, &Error{
			Op:     "run",
			Path:   p.path,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}

	c, err := color.ParseJSON(stdout.Bytes())
	if err != nil {
		return color.RGB{}, &Error{Op: "parse", Path: p.path, Err: err}
	}

	log.Debug().
		Str("path", p.path).
		Dur("elapsed", elapsed).
		Str("color", c.Hex()).
		Msg("Color picked")

	return c, nil
}
