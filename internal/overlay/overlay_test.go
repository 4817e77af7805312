package overlay

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/motoristapro/offerwatch/internal/offer"
)

func sampleCard() Card {
	r := offer.RideReading{
		Price:       decimal.RequireFromString("18.5"),
		DistanceKM:  decimal.RequireFromString("4.8"),
		DurationMin: decimal.NewFromInt(15),
	}
	return NewCard(offer.AppUber, r, offer.Classify(r, offer.DefaultThresholds()), time.Unix(0, 0))
}

func TestCardText(t *testing.T) {
	c := sampleCard()
	assert.Equal(t, "R$ 18.50", c.PriceText())
	assert.Equal(t, "4.8 km • 15 min", c.DetailText())
	assert.Equal(t, "R$ 3.85/km • R$ 74/h", c.RateText())
	assert.Equal(t, "ÓTIMA", c.Label())
	assert.Equal(t, "#4ADE80", c.Color())

	v := c.View()
	assert.Equal(t, offer.Good, v.Verdict)
	assert.Equal(t, offer.AppUber, v.App)
}

func TestBusShowHide(t *testing.T) {
	b := NewBus(2, 10)
	_, ok := b.Current()
	assert.False(t, ok)

	b.Show(sampleCard())
	cur, ok := b.Current()
	require.True(t, ok)
	assert.Equal(t, offer.AppUber, cur.App)

	b.Hide()
	_, ok = b.Current()
	assert.False(t, ok)

	e := <-b.Events()
	assert.Equal(t, EventShow, e.Kind)
	require.NotNil(t, e.Card)
	assert.Equal(t, "R$ 18.50", e.Card.Price)
	assert.Equal(t, EventHide, (<-b.Events()).Kind)
}

func TestBusKeepsRecentCards(t *testing.T) {
	b := NewBus(2, 10)
	for range 3 {
		b.Show(sampleCard())
	}
	assert.Len(t, b.Recent(), 2)
}

func TestBusEmitNonBlocking(t *testing.T) {
	b := NewBus(1, 1)
	done := make(chan struct{})
	go func() {
		b.HideSelf()
		b.Restore()
		b.Hide()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on a full channel")
	}
	assert.Equal(t, EventHideSelf, (<-b.Events()).Kind)
}

type recordingSink struct{ calls []string }

func (r *recordingSink) Show(Card) { r.calls = append(r.calls, "show") }
func (r *recordingSink) Hide()     { r.calls = append(r.calls, "hide") }
func (r *recordingSink) HideSelf() { r.calls = append(r.calls, "hide_self") }
func (r *recordingSink) Restore()  { r.calls = append(r.calls, "restore") }

func TestMulti(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := Multi{a, b}
	m.HideSelf()
	m.Restore()
	m.Show(sampleCard())
	m.Hide()
	want := []string{"hide_self", "restore", "show", "hide"}
	assert.Equal(t, want, a.calls)
	assert.Equal(t, want, b.calls)
}

func TestTerminalRender(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf)
	term.Show(sampleCard())
	term.HideSelf()

	out := buf.String()
	for _, s := range []string{"ÓTIMA", "UBER", "R$ 18.50", "4.8 km", "R$ 3.85/km"} {
		assert.True(t, strings.Contains(out, s), "missing %q in %q", s, out)
	}
}
