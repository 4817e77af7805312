// Package trigger decides which foreground events may start a capture cycle.
package trigger

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// EventKind is the kind of foreground notification.
type EventKind string

const (
	WindowStateChanged   EventKind = "window_state_changed"
	WindowContentChanged EventKind = "window_content_changed"
)

// ParseKind maps a wire name to a kind; unknown names are returned as-is and
// never trigger a capture.
func ParseKind(s string) EventKind {
	return EventKind(strings.ToLower(strings.TrimSpace(s)))
}

// Signal is one foreground notification.
type Signal struct {
	Package string    `json:"package"`
	Kind    EventKind `json:"kind"`
}

// Gate applies the target-package filter and the cooldown between accepted
// triggers.
type Gate struct {
	mu       sync.Mutex
	enabled  bool
	cooldown time.Duration
	packages []string
	last     time.Time
	now      func() time.Time
}

// NewGate creates a gate. packages are lowercase substrings matched against
// the foreground package.
func NewGate(cooldown time.Duration, packages []string, enabled bool) *Gate {
	lowered := make([]string, 0, len(packages))
	for _, p := range packages {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	return &Gate{
		enabled:  enabled,
		cooldown: cooldown,
		packages: lowered,
		now:      time.Now,
	}
}

// WithClock replaces the time source (tests).
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Targets reports whether pkg belongs to a monitored driver app.
func (g *Gate) Targets(pkg string) bool {
	p := strings.ToLower(pkg)
	for _, sub := range g.packages {
		if strings.Contains(p, sub) {
			return true
		}
	}
	return false
}

// Check returns true when s should start a capture cycle. An accepted signal
// starts a new cooldown window; rejected ones do not.
func (g *Gate) Check(s Signal) bool {
	if s.Kind != WindowStateChanged && s.Kind != WindowContentChanged {
		return false
	}
	if !g.Targets(s.Package) {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.enabled {
		return false
	}
	now := g.now()
	if !g.last.IsZero() && now.Sub(g.last) <= g.cooldown {
		return false
	}
	g.last = now
	return true
}

// Reset forgets the last accepted trigger.
func (g *Gate) Reset() {
	g.mu.Lock()
	g.last = time.Time{}
	g.mu.Unlock()
}

// SetEnabled enables/disables triggering
func (g *Gate) SetEnabled(enabled bool) {
	g.mu.Lock()
	g.enabled = enabled
	g.mu.Unlock()
	slog.Info("monitoring state changed", "enabled", enabled)
}

// IsEnabled returns current enabled state
func (g *Gate) IsEnabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}
