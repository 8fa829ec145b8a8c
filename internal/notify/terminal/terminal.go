// Package terminal implements notify.Notifier by writing an OSC escape
// sequence that sets the terminal window/tab title, so a user glancing at
// their taskbar sees which session needs attention.
package terminal

import (
	"fmt"
	"io"
	"os"

	"github.com/watchpane/sessionwatch/internal/notify"
)

// Notifier sets the terminal title to describe the most recent notification.
type Notifier struct {
	out io.Writer
}

// New returns a Notifier writing OSC sequences to w. A nil w defaults to
// os.Stdout.
func New(w io.Writer) *Notifier {
	if w == nil {
		w = os.Stdout
	}
	return &Notifier{out: w}
}

var _ notify.Notifier = (*Notifier)(nil)

// Notify implements notify.Notifier.
func (n *Notifier) Notify(note notify.Notification) error {
	title := fmt.Sprintf("%s: %s", note.SessionName, note.Message)
	_, err := fmt.Fprintf(n.out, "\x1b]0;%s\x07", title)
	return err
}
