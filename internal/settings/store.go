// Package settings persists the user's profitability thresholds and the
// history of classified offers.
package settings

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/motoristapro/offerwatch/internal/offer"
)

// Persisted threshold keys.
const (
	KeyGoodKm   = "good_km"
	KeyBadKm    = "bad_km"
	KeyGoodHour = "good_hour"
	KeyBadHour  = "bad_hour"
)

// DefaultHistoryLimit bounds RecentReadings when the caller passes no limit.
const DefaultHistoryLimit = 50

// Store reads and writes thresholds. Missing or unreadable values fall back
// to the store's defaults (offer.DefaultThresholds unless overridden).
type Store interface {
	Thresholds(ctx context.Context) (offer.ThresholdConfig, error)
	SaveThresholds(ctx context.Context, cfg offer.ThresholdConfig) error
}

// History records classified offers.
type History interface {
	RecordReading(ctx context.Context, r Record) error
	RecentReadings(ctx context.Context, limit int) ([]Record, error)
}

// Record is one classified offer as shown on the overlay.
type Record struct {
	At      time.Time         `json:"at"`
	App     offer.App         `json:"app"`
	Reading offer.RideReading `json:"reading"`
	Verdict offer.Verdict     `json:"verdict"`
	PerKm   decimal.Decimal   `json:"per_km"`
	PerHour decimal.Decimal   `json:"per_hour"`
}

// NewRecord builds a Record from a classification result.
func NewRecord(at time.Time, app offer.App, r offer.RideReading, res offer.Result) Record {
	return Record{At: at, App: app, Reading: r, Verdict: res.Verdict, PerKm: res.PerKm, PerHour: res.PerHour}
}

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	defaults offer.ThresholdConfig
	values   map[string]decimal.Decimal
	history  []Record
	maxItems int
}

// NewMemoryStore creates an empty store; thresholds start at the defaults.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		defaults: offer.DefaultThresholds(),
		values:   make(map[string]decimal.Decimal),
		maxItems: DefaultHistoryLimit,
	}
}

// WithDefaults sets the thresholds reported for keys never saved.
func (m *MemoryStore) WithDefaults(def offer.ThresholdConfig) *MemoryStore {
	m.defaults = def
	return m
}

func (m *MemoryStore) Thresholds(context.Context) (offer.ThresholdConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fromValues(m.defaults, func(key string) (string, bool) {
		v, ok := m.values[key]
		return v.String(), ok
	}), nil
}

func (m *MemoryStore) SaveThresholds(_ context.Context, cfg offer.ThresholdConfig) error {
	if err := validate(cfg); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range toValues(cfg) {
		m.values[k] = v
	}
	return nil
}

func (m *MemoryStore) RecordReading(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, r)
	if len(m.history) > m.maxItems {
		m.history = m.history[len(m.history)-m.maxItems:]
	}
	return nil
}

// RecentReadings returns newest first.
func (m *MemoryStore) RecentReadings(_ context.Context, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.history) {
		limit = len(m.history)
	}
	out := make([]Record, 0, limit)
	for i := len(m.history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.history[i])
	}
	return out, nil
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ History = (*MemoryStore)(nil)
)
