// Package orchestrator decides when to capture the screen and runs capture
// cycles through extraction, validation and classification to the overlay.
package orchestrator

import "time"

// Orchestrator configuration constants
const (
	// Minimum time between two accepted triggers
	DefaultCooldown = 1000 * time.Millisecond

	// Wait after an accepted trigger so the host UI finishes rendering
	DefaultSettleDelay = 500 * time.Millisecond

	// Wait after the hide-self broadcast before the screenshot
	DefaultHideSelfDelay = 300 * time.Millisecond

	// Wait before the single retry when the first attempt found no price
	DefaultRetryDelay = 700 * time.Millisecond

	// Visible lifetime of a decision card
	DefaultAutoHide = 7 * time.Second

	// Buffered foreground signals; further signals are dropped
	SignalBuffer = 64
)
