// Package paneio defines the narrow contract the monitoring engine uses to
// read and write a terminal-multiplexer pane. Concrete drivers (e.g. the
// tmux CLI wrapper in paneio/tmux) live in subpackages; the engine depends
// only on this interface.
package paneio

import (
	"context"
	"errors"
)

// ErrTimeout is returned by PaneExists when the liveness probe does not
// answer within its hard deadline; the engine treats it the same as "gone".
var ErrTimeout = errors.New("paneio: pane-exists probe timed out")

// Adapter is the capability set the engine requires from any pane binding.
type Adapter interface {
	// CapturePlain returns the full visible pane content with escape
	// sequences stripped.
	CapturePlain(ctx context.Context, paneID string) (string, error)

	// CaptureColored returns the same content with escape sequences intact.
	CaptureColored(ctx context.Context, paneID string) (string, error)

	// PaneExists reports whether the pane is still alive. It must enforce
	// its own hard timeout (~5s); a timeout is reported as (false, nil) or
	// (false, ErrTimeout) — either is treated as "pane gone" by the caller.
	PaneExists(ctx context.Context, paneID string) (bool, error)

	// SendCooked types text followed by a submit keystroke.
	SendCooked(ctx context.Context, paneID, text string) error

	// SendRaw types literal keys ('1', 'Enter', 'C-u') without appending a
	// submit key.
	SendRaw(ctx context.Context, paneID, token string) error

	// SendContinueSequence clears the input line, pauses briefly, types
	// "continue", pauses again, then submits.
	SendContinueSequence(ctx context.Context, paneID string) error
}
