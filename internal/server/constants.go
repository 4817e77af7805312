// Package server provides HTTP and WebSocket handlers
package server

import "time"

// Server configuration constants
const (
	// Text truncation limit for API responses
	TextPreviewLimit = 500

	// Per-connection WebSocket rate limiting
	RateLimitMessages = 20
	RateLimitWindow   = time.Second

	// Bounds for GET /api/readings
	DefaultReadingsLimit = 20
	MaxReadingsLimit     = 200

	// Largest accepted JSON request body
	MaxBodyBytes = 1 << 16

	// Per-message write deadline for broadcasts
	WriteTimeout = 5 * time.Second
)
