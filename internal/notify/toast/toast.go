// Package toast implements notify.Notifier with Windows desktop toast
// notifications via go-toast/toast. On non-Windows hosts, Notify is a
// logged no-op: the library's underlying PowerShell call only works on
// Windows, and the engine's other channels (terminal, webhooks) cover
// those hosts.
package toast

import (
	"log"
	"runtime"

	gotoast "github.com/go-toast/toast"

	"github.com/watchpane/sessionwatch/internal/notify"
)

// Notifier posts a Windows toast for every notification it receives.
type Notifier struct {
	appID  string
	logger *log.Logger
}

// New returns a Notifier that identifies itself to Windows as appID.
func New(appID string, logger *log.Logger) *Notifier {
	if logger == nil {
		logger = log.Default()
	}
	return &Notifier{appID: appID, logger: logger}
}

var _ notify.Notifier = (*Notifier)(nil)

// Notify implements notify.Notifier.
func (n *Notifier) Notify(note notify.Notification) error {
	if runtime.GOOS != "windows" {
		n.logger.Printf("[TOAST] skipped on %s: %s: %s", runtime.GOOS, note.SessionName, note.Message)
		return nil
	}
	t := gotoast.Notification{
		AppID:   n.appID,
		Title:   note.SessionName,
		Message: note.Message,
	}
	return t.Push()
}
