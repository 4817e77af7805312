package orchestrator

import (
	"fmt"

	"github.com/motoristapro/offerwatch/internal/orchestrator/pipeline"
)

// State is the capture state machine position.
type State int32

const (
	Idle State = iota
	CooldownWait
	Capturing
	Preprocessing
	Recognizing
	RetryScheduled
)

var stateNames = [...]string{"idle", "cooldown_wait", "capturing", "preprocessing", "recognizing", "retry_scheduled"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

func stageState(st pipeline.Stage) State {
	switch st {
	case pipeline.StagePreprocessing:
		return Preprocessing
	case pipeline.StageRecognizing:
		return Recognizing
	default:
		return Capturing
	}
}
