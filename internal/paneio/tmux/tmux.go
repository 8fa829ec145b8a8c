// Package tmux implements paneio.Adapter by shelling out to the tmux CLI.
package tmux

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/watchpane/sessionwatch/internal/paneio"
)

// Client drives tmux panes through the tmux binary. The zero value is not
// ready to use; construct with New.
type Client struct {
	bin string

	mu            sync.Mutex
	lastCommandAt time.Time
	minInterval   time.Duration

	commandTimeout time.Duration
	existsTimeout  time.Duration
}

// New returns a Client rate-limited to one tmux invocation per minInterval,
// with commandTimeout applied to capture/send calls and a 5s hard deadline
// on PaneExists regardless of caller context.
func New(minInterval, commandTimeout time.Duration) *Client {
	return &Client{
		bin:            "tmux",
		minInterval:    minInterval,
		commandTimeout: commandTimeout,
		existsTimeout:  5 * time.Second,
	}
}

// DefaultClient is a Client with sane defaults for production use.
var DefaultClient = New(50*time.Millisecond, 5*time.Second)

var _ paneio.Adapter = (*Client)(nil)

func (c *Client) waitForInterval() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if wait := c.minInterval - time.Since(c.lastCommandAt); wait > 0 {
		time.Sleep(wait)
	}
	c.lastCommandAt = time.Now()
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	c.waitForInterval()

	ctx, cancel := context.WithTimeout(ctx, c.commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return "", wrapError(args, stderr.String(), err)
	}
	return stdout.String(), nil
}

func wrapError(args []string, stderr string, cause error) error {
	stderr = strings.TrimSpace(stderr)
	switch {
	case strings.Contains(stderr, "can't find pane"):
		return fmt.Errorf("tmux %s: %w", strings.Join(args, " "), ErrPaneNotFound)
	case strings.Contains(stderr, "no server running"):
		return fmt.Errorf("tmux %s: %w", strings.Join(args, " "), ErrNoServer)
	case stderr != "":
		return fmt.Errorf("tmux %s: %s: %w", strings.Join(args, " "), stderr, cause)
	default:
		return fmt.Errorf("tmux %s: %w", strings.Join(args, " "), cause)
	}
}

// Sentinel errors surfaced by Client's tmux invocations.
var (
	ErrPaneNotFound = errors.New("tmux: pane not found")
	ErrNoServer     = errors.New("tmux: no server running")
)

// CapturePlain implements paneio.Adapter.
func (c *Client) CapturePlain(ctx context.Context, paneID string) (string, error) {
	return c.run(ctx, "capture-pane", "-t", paneID, "-p", "-S", "-200")
}

// CaptureColored implements paneio.Adapter.
func (c *Client) CaptureColored(ctx context.Context, paneID string) (string, error) {
	return c.run(ctx, "capture-pane", "-t", paneID, "-e", "-p", "-S", "-200")
}

// PaneExists implements paneio.Adapter with a hard 5s deadline independent
// of the caller's context, per the contract in paneio.Adapter.
func (c *Client) PaneExists(ctx context.Context, paneID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.existsTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := c.run(ctx, "has-session", "-t", paneID)
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			return true, nil
		}
		if errors.Is(err, ErrPaneNotFound) || errors.Is(err, ErrNoServer) {
			return false, nil
		}
		return false, err
	case <-ctx.Done():
		return false, paneio.ErrTimeout
	}
}

// SendCooked implements paneio.Adapter.
func (c *Client) SendCooked(ctx context.Context, paneID, text string) error {
	_, err := c.run(ctx, "send-keys", "-t", paneID, "-l", text)
	if err != nil {
		return err
	}
	_, err = c.run(ctx, "send-keys", "-t", paneID, "Enter")
	return err
}

// SendRaw implements paneio.Adapter. token is passed to tmux send-keys
// unescaped, so named keys ("Enter", "C-u") and literal characters both work.
func (c *Client) SendRaw(ctx context.Context, paneID, token string) error {
	_, err := c.run(ctx, "send-keys", "-t", paneID, token)
	return err
}

// SendContinueSequence implements paneio.Adapter: clear the input line,
// pause, type "continue", pause, submit.
func (c *Client) SendContinueSequence(ctx context.Context, paneID string) error {
	if err := c.SendRaw(ctx, paneID, "C-u"); err != nil {
		return err
	}
	time.Sleep(200 * time.Millisecond)
	if _, err := c.run(ctx, "send-keys", "-t", paneID, "-l", "continue"); err != nil {
		return err
	}
	time.Sleep(200 * time.Millisecond)
	return c.SendRaw(ctx, paneID, "Enter")
}
