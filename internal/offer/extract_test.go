package offer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

const testHeight = 1000

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func line(text string, h, y int) TextLine {
	return TextLine{Text: text, FontHeight: h, Y: y}
}

func assertDec(t *testing.T, want string, got decimal.Decimal, label ...string) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "%v want %s, got %s", label, want, got)
}

func TestExtractPriceTieBreak(t *testing.T) {
	t.Run("larger font wins", func(t *testing.T) {
		got := Extract([]TextLine{line("R$12.00", 40, 500), line("R$8.00", 60, 520)}, testHeight, DefaultIgnoreTopFraction)
		assertDec(t, "8.00", got.Price)
	})
	t.Run("equal font prefers larger value", func(t *testing.T) {
		got := Extract([]TextLine{line("R$12.00", 50, 500), line("R$20.00", 50, 520)}, testHeight, DefaultIgnoreTopFraction)
		assertDec(t, "20.00", got.Price)
	})
	t.Run("smaller font later does not replace", func(t *testing.T) {
		got := Extract([]TextLine{line("R$ 25,90", 80, 500), line("R$ 99,00", 30, 520)}, testHeight, DefaultIgnoreTopFraction)
		assertDec(t, "25.90", got.Price)
	})
}

func TestExtractPriceBounds(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"below floor", "R$3.00", "0"},
		{"at floor", "R$4.50", "0"},
		{"above ceiling", "R$2500.00", "0"},
		{"inside", "R$ 7.25", "7.25"},
		{"rs prefix", "RS 31,40", "31.40"},
		{"no fraction", "R$ 42", "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract([]TextLine{line(tt.text, 40, 500)}, testHeight, DefaultIgnoreTopFraction)
			assertDec(t, tt.want, got.Price)
		})
	}
}

func TestExtractFallbackPrice(t *testing.T) {
	got := Extract([]TextLine{line("23,90", 80, 500)}, testHeight, DefaultIgnoreTopFraction)
	assertDec(t, "23.90", got.Price)

	got = Extract([]TextLine{line("23,90", 70, 500)}, testHeight, DefaultIgnoreTopFraction)
	assert.True(t, got.Price.IsZero(), "small font bare number is not a price")

	got = Extract([]TextLine{line("650.00", 90, 500)}, testHeight, DefaultIgnoreTopFraction)
	assert.True(t, got.Price.IsZero(), "fallback band is narrower")

	got = Extract([]TextLine{line("R$ 14,00", 40, 500), line("55.00", 90, 520)}, testHeight, DefaultIgnoreTopFraction)
	assertDec(t, "14.00", got.Price, "fallback only applies without a winner")
}

func TestExtractDistanceDedup(t *testing.T) {
	got := Extract([]TextLine{
		line("5.2 km", 30, 500),
		line("5.2 km", 30, 550),
		line("3.1 km", 30, 600),
	}, testHeight, DefaultIgnoreTopFraction)
	assertDec(t, "5.2", got.PickupDistance)
	assertDec(t, "3.1", got.TripDistance)
	assertDec(t, "8.3", got.TotalDistance())
}

func TestExtractDistance(t *testing.T) {
	tests := []struct {
		name  string
		lines []TextLine
		want  string
	}{
		{"meters converted", []TextLine{line("(800 m)", 30, 500)}, "0.8"},
		{"two legs on one line", []TextLine{line("2,5 km (10 min) 7 km", 30, 500)}, "9.5"},
		{"third distinct value extends trip", []TextLine{line("1 km", 30, 500), line("4 km", 30, 520), line("2 km", 30, 540)}, "7"},
		{"third repeated value ignored", []TextLine{line("1 km", 30, 500), line("4 km", 30, 520), line("4 km", 30, 540)}, "5"},
		{"word starting with m is not meters", []TextLine{line("2 metros", 30, 500)}, "0"},
		{"minutes are not meters", []TextLine{line("15 min", 30, 500)}, "0"},
		{"out of range", []TextLine{line("900 km", 30, 500)}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.lines, testHeight, DefaultIgnoreTopFraction)
			assertDec(t, tt.want, got.TotalDistance())
		})
	}
}

func TestExtractTime(t *testing.T) {
	tests := []struct {
		name   string
		lines  []TextLine
		pickup string
		trip   string
	}{
		{"single minute value is pickup", []TextLine{line("15 min", 30, 500)}, "15", "0"},
		{"second minute value is trip", []TextLine{line("4 min", 30, 500), line("22 min", 30, 520)}, "4", "22"},
		{"third minute value adds to trip", []TextLine{line("4 min", 30, 500), line("22 min", 30, 520), line("3 min", 30, 540)}, "4", "25"},
		{"hour then minutes", []TextLine{line("1 h 20 min", 30, 500)}, "60", "20"},
		{"second hour adds to trip", []TextLine{line("1 hora", 30, 500), line("2 horas", 30, 520)}, "60", "120"},
		{"clock stripped", []TextLine{line("Chegada 12:45", 30, 500), line("8 min", 30, 520)}, "8", "0"},
		{"plural minutes", []TextLine{line("12 minutos", 30, 500)}, "12", "0"},
		{"minute out of range", []TextLine{line("700 min", 30, 500)}, "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract(tt.lines, testHeight, DefaultIgnoreTopFraction)
			assertDec(t, tt.pickup, got.PickupTime, "pickup")
			assertDec(t, tt.trip, got.TripTime, "trip")
		})
	}
}

func TestExtractIgnoresChromeAndHeader(t *testing.T) {
	lines := []TextLine{
		line("R$ 99,00", 120, 50),
		line("[12:00:01] Lido: R$ 50.00", 90, 300),
		line("Ganhe R$ 100,00 extras", 90, 320),
		line("R$ 3,85/km", 90, 340),
		line("Motorista Pro", 90, 360),
		line("R$ 14,50", 60, 400),
	}
	got := Extract(lines, testHeight, DefaultIgnoreTopFraction)
	assertDec(t, "14.50", got.Price)
}

func TestExtractEmpty(t *testing.T) {
	got := Extract(nil, testHeight, DefaultIgnoreTopFraction)
	assert.False(t, got.HasPrice())
	assert.False(t, got.Actionable())
}

func TestExtractEndToEnd(t *testing.T) {
	lines := []TextLine{
		line("R$18.50", 90, 400),
		line("4.8 km", 30, 600),
		line("15 min", 30, 650),
	}
	p := Extract(lines, 2000, 0.1)
	assertDec(t, "18.50", p.Price)
	assertDec(t, "4.8", p.TotalDistance())
	assertDec(t, "15", p.TotalTime())

	r, ok := NewValidator().Accept(p)
	assert.True(t, ok)

	res := Classify(r, DefaultThresholds())
	assert.Equal(t, Good, res.Verdict)
	assert.Equal(t, "3.85", res.PerKm.StringFixed(2))
	assert.Equal(t, "74", res.PerHour.StringFixed(0))
}
