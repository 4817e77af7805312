package server

import (
	"time"

	"github.com/motoristapro/offerwatch/internal/orchestrator"
	"github.com/motoristapro/offerwatch/internal/overlay"
	"github.com/motoristapro/offerwatch/internal/timer"
)

// Message types.
type Message struct {
	Type string `json:"type"`
}

// SignalMessage forwards a foreground notification from the device shell.
type SignalMessage struct {
	Type    string `json:"type"`
	Package string `json:"package"`
	Kind    string `json:"kind"`
	TraceID string `json:"trace_id,omitempty"`
}

type HideMessage struct {
	Type string `json:"type"`
}

type MonitoringMessage struct {
	Type    string `json:"type"`
	Enabled bool   `json:"enabled"`
}

// TimerCommand drives the trip timer. StartTS and ElapsedMS are only read by
// the "sync" action.
type TimerCommand struct {
	Type      string `json:"type"`
	Action    string `json:"action"`
	State     string `json:"state,omitempty"`
	StartTS   int64  `json:"start_ts,omitempty"`
	ElapsedMS int64  `json:"elapsed,omitempty"`
}

type OverlayMessage struct {
	Type  string        `json:"type"`
	Event overlay.Event `json:"event"`
}

// TimerMessage mirrors timer state to clients in epoch milliseconds.
type TimerMessage struct {
	Type      string       `json:"type"`
	State     timer.Status `json:"state"`
	StartTS   int64        `json:"start_ts"`
	ElapsedMS int64        `json:"elapsed"`
}

type StatusMessage struct {
	Type   string              `json:"type"`
	Status orchestrator.Status `json:"status"`
	Timer  TimerMessage        `json:"timer"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newTimerMessage(s timer.Snapshot) TimerMessage {
	msg := TimerMessage{Type: "timer", State: s.Status, ElapsedMS: s.Elapsed.Milliseconds()}
	if s.Status != timer.Stopped && !s.StartedAt.IsZero() {
		msg.StartTS = s.StartedAt.UnixMilli()
	}
	return msg
}

func (c TimerCommand) startedAt() time.Time {
	if c.StartTS <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(c.StartTS)
}

func (c TimerCommand) elapsed() time.Duration {
	return time.Duration(c.ElapsedMS) * time.Millisecond
}
