package offer

import "sync"

// Validator accepts complete readings and suppresses repeats of the last one.
type Validator struct {
	mu   sync.Mutex
	last *RideReading
}

// NewValidator creates an armed validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Accept returns the reading built from p when it is actionable and differs
// from the last accepted reading. The accepted reading becomes the new last.
func (v *Validator) Accept(p PartialReading) (RideReading, bool) {
	if !p.Actionable() {
		return RideReading{}, false
	}
	r := RideReading{Price: p.Price, DistanceKM: p.TotalDistance(), DurationMin: p.TotalTime()}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.last != nil && v.last.Equal(r) {
		return RideReading{}, false
	}
	v.last = &r
	return r, true
}

// Clear forgets the last reading so the next distinct reading is new again.
func (v *Validator) Clear() {
	v.mu.Lock()
	v.last = nil
	v.mu.Unlock()
}

// Last returns the last accepted reading, if any.
func (v *Validator) Last() (RideReading, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.last == nil {
		return RideReading{}, false
	}
	return *v.last, true
}
