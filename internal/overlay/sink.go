package overlay

import (
	"sync"
	"time"
)

// Sink receives overlay commands. Implementations must not block.
type Sink interface {
	// Show displays a decision card, replacing any visible one.
	Show(Card)
	// Hide removes the card.
	Hide()
	// HideSelf makes every overlay surface invisible so it stays out of the
	// next screenshot.
	HideSelf()
	// Restore undoes HideSelf.
	Restore()
}

// EventKind names an overlay command.
type EventKind string

const (
	EventShow     EventKind = "show"
	EventHide     EventKind = "hide"
	EventHideSelf EventKind = "hide_self"
	EventRestore  EventKind = "restore"
)

// Event is one overlay command as published on the bus.
type Event struct {
	Kind EventKind `json:"kind"`
	Card *View     `json:"card,omitempty"`
	At   time.Time `json:"at"`
}

// Bus is a Sink that publishes events on a channel and remembers recent cards.
type Bus struct {
	mu       sync.RWMutex
	cards    []Card
	visible  bool
	maxCards int
	eventsCh chan Event
	now      func() time.Time
}

// NewBus creates a bus keeping maxCards recent cards.
func NewBus(maxCards, eventBuffer int) *Bus {
	if maxCards <= 0 {
		maxCards = DefaultMaxCards
	}
	if eventBuffer <= 0 {
		eventBuffer = DefaultEventBuffer
	}
	return &Bus{
		cards:    make([]Card, 0, maxCards),
		maxCards: maxCards,
		eventsCh: make(chan Event, eventBuffer),
		now:      time.Now,
	}
}

func (b *Bus) Show(c Card) {
	b.mu.Lock()
	b.cards = append(b.cards, c)
	if len(b.cards) > b.maxCards {
		b.cards = b.cards[len(b.cards)-b.maxCards:]
	}
	b.visible = true
	b.mu.Unlock()

	v := c.View()
	b.emit(Event{Kind: EventShow, Card: &v, At: b.now()})
}

func (b *Bus) Hide() {
	b.mu.Lock()
	b.visible = false
	b.mu.Unlock()
	b.emit(Event{Kind: EventHide, At: b.now()})
}

func (b *Bus) HideSelf() { b.emit(Event{Kind: EventHideSelf, At: b.now()}) }

func (b *Bus) Restore() { b.emit(Event{Kind: EventRestore, At: b.now()}) }

// Events returns the channel of published events.
func (b *Bus) Events() <-chan Event {
	return b.eventsCh
}

// emit drops the event when nobody keeps up.
func (b *Bus) emit(e Event) {
	select {
	case b.eventsCh <- e:
	default:
	}
}

// Current returns the visible card, if any.
func (b *Bus) Current() (Card, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.visible || len(b.cards) == 0 {
		return Card{}, false
	}
	return b.cards[len(b.cards)-1], true
}

// Recent returns a copy of the remembered cards, oldest first.
func (b *Bus) Recent() []Card {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Card, len(b.cards))
	copy(out, b.cards)
	return out
}

// Multi fans every command out to several sinks.
type Multi []Sink

func (m Multi) Show(c Card) {
	for _, s := range m {
		s.Show(c)
	}
}

func (m Multi) Hide() {
	for _, s := range m {
		s.Hide()
	}
}

func (m Multi) HideSelf() {
	for _, s := range m {
		s.HideSelf()
	}
}

func (m Multi) Restore() {
	for _, s := range m {
		s.Restore()
	}
}

var (
	_ Sink = (*Bus)(nil)
	_ Sink = Multi(nil)
)
