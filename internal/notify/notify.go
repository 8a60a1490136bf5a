// Package notify delivers best-effort desktop alerts. Delivery failures
// are logged and swallowed; no caller blocks on the sink.
package notify

import (
	"log/slog"
	"os/exec"
	"runtime"
	"sync"
)

type Sink interface {
	Notify(title, body string)
}

// Desktop shells out to the platform notifier. Missing tooling degrades
// to a log line.
type Desktop struct {
	log *slog.Logger
}

func NewDesktop(log *slog.Logger) *Desktop {
	return &Desktop{log: log}
}

func (d *Desktop) Notify(title, body string) {
	cmd := desktopCommand(title, body)
	if cmd == nil {
		d.log.Info("notification", "title", title, "body", body)
		return
	}
	if err := cmd.Run(); err != nil {
		d.log.Warn("notification delivery failed", "title", title, "error", err)
	}
}

func desktopCommand(title, body string) *exec.Cmd {
	switch runtime.GOOS {
	case "darwin":
		script := "display notification " + appleQuote(body) + " with title " + appleQuote(title)
		return exec.Command("osascript", "-e", script)
	case "linux":
		if _, err := exec.LookPath("notify-send"); err != nil {
			return nil
		}
		return exec.Command("notify-send", title, body)
	default:
		return nil
	}
}

func appleQuote(s string) string {
	out := make([]rune, 0, len(s)+2)
	out = append(out, '"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(append(out, '"'))
}

// Logger writes notifications to the log only. Used when the host has no
// notification tooling and in headless runs.
type Logger struct {
	log *slog.Logger
}

func NewLogger(log *slog.Logger) *Logger {
	return &Logger{log: log}
}

func (l *Logger) Notify(title, body string) {
	l.log.Info("notification", "title", title, "body", body)
}

// Notification is a captured alert.
type Notification struct {
	Title string
	Body  string
}

// Memory records notifications for assertions in tests.
type Memory struct {
	mu    sync.Mutex
	items []Notification
}

func (m *Memory) Notify(title, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, Notification{Title: title, Body: body})
}

func (m *Memory) Items() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Notification, len(m.items))
	copy(out, m.items)
	return out
}

func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
}
