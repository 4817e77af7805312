package overlay

// Bus defaults
const (
	DefaultMaxCards    = 30
	DefaultEventBuffer = 100
)
