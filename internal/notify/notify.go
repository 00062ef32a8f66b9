// Package notify delivers best-effort desktop notifications.
//
// On macOS notifications go through osascript, on Linux through notify-send.
// Everywhere else delivery is a no-op. Failures are logged and swallowed;
// callers never depend on delivery.
package notify

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// SystemNotifier implements contracts.Notifier using the platform's native
// notification mechanism.
type SystemNotifier struct {
	logger hclog.Logger
}

// NewSystemNotifier creates a notifier for the current platform.
func NewSystemNotifier(logger hclog.Logger) (*SystemNotifier, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &SystemNotifier{
		logger: logger.Named("notify"),
	}, nil
}

// Notify sends a desktop notification. Delivery is fire-and-forget.
func (n *SystemNotifier) Notify(title string, message string) {
	n.send(title, message, "")
}

// NotifyWithSound sends a desktop notification with a named alert sound.
// The sound name is only honored on macOS.
func (n *SystemNotifier) NotifyWithSound(title string, message string, sound string) {
	n.send(title, message, sound)
}

func (n *SystemNotifier) send(title string, message string, sound string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escape(message), escape(title))
		if sound != "" {
			script += fmt.Sprintf(` sound name "%s"`, escape(sound))
		}
		cmd = exec.Command("osascript", "-e", script)
	case "linux":
		cmd = exec.Command("notify-send", title, message)
	default:
		n.logger.Debug("notifications unsupported on this platform", "os", runtime.GOOS)
		return
	}

	if err := cmd.Run(); err != nil {
		n.logger.Debug("failed to deliver notification", "title", title, "error", err)
	}
}

func escape(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
