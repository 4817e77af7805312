package offer

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	apperrors "github.com/motoristapro/offerwatch/internal/errors"
)

func reading(price, dist, mins string) RideReading {
	return RideReading{Price: dec(price), DistanceKM: dec(dist), DurationMin: dec(mins)}
}

func TestClassifyDefaults(t *testing.T) {
	tests := []struct {
		name    string
		r       RideReading
		want    Verdict
		perKm   string
		perHour string
	}{
		{"good", reading("20", "5", "15"), Good, "4", "80"},
		{"reject", reading("5", "5", "20"), Reject, "1", "15"},
		{"mixed is neutral", reading("10", "5", "15"), Neutral, "2", "40"},
		{"good km but slow", reading("30", "5", "60"), Neutral, "6", "30"},
		{"at bad boundary", reading("7.5", "5", "11.25"), Reject, "1.5", "40"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Classify(tt.r, DefaultThresholds())
			assert.Equal(t, tt.want, res.Verdict)
			assertDec(t, tt.perKm, res.PerKm, "perKm")
			assertDec(t, tt.perHour, res.PerHour, "perHour")
		})
	}
}

func TestClassifyZeroFloors(t *testing.T) {
	res := Classify(reading("10", "0", "0"), DefaultThresholds())
	assertDec(t, "100", res.PerKm)
	assertDec(t, "600", res.PerHour)
	assert.Equal(t, Good, res.Verdict)

	res = Classify(reading("0", "0", "0"), DefaultThresholds())
	assert.Equal(t, Reject, res.Verdict)
}

func TestClassifyInvertedThresholdsNotClamped(t *testing.T) {
	inverted := ThresholdConfig{
		GoodPerKm:   decimal.NewFromInt(1),
		BadPerKm:    decimal.NewFromInt(3),
		GoodPerHour: decimal.NewFromInt(20),
		BadPerHour:  decimal.NewFromInt(50),
	}
	// 2/km and 30/h satisfies both rules; GOOD is checked first.
	res := Classify(reading("10", "5", "20"), inverted)
	assert.Equal(t, Good, res.Verdict)
	assert.Error(t, inverted.Validate())
}

func TestVerdictPresentation(t *testing.T) {
	assert.Equal(t, "ÓTIMA", Good.Label())
	assert.Equal(t, "ANALISAR", Neutral.Label())
	assert.Equal(t, "RECUSAR", Reject.Label())
	assert.Equal(t, "#4ADE80", Good.Color())
	assert.Equal(t, "#FACC15", Neutral.Color())
	assert.Equal(t, "#F87171", Reject.Color())

	b, err := Reject.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "reject", string(b))

	var v Verdict
	assert.NoError(t, v.UnmarshalText([]byte("GOOD")))
	assert.Equal(t, Good, v)
	assert.NoError(t, v.UnmarshalText([]byte("whatever")))
	assert.Equal(t, Neutral, v)
}

func TestThresholdValidate(t *testing.T) {
	assert.NoError(t, DefaultThresholds().Validate())

	neg := DefaultThresholds()
	neg.BadPerHour = decimal.NewFromInt(-1)
	assert.ErrorContains(t, neg.Validate(), "bad_per_hour must not be negative")
	assert.True(t, apperrors.IsCode(neg.Validate(), apperrors.CodeInvalidArgument))

	inverted := DefaultThresholds()
	inverted.BadPerKm = decimal.NewFromInt(5)
	assert.ErrorContains(t, inverted.Validate(), "bad_per_km exceeds good_per_km")
}

func TestDetectApp(t *testing.T) {
	assert.Equal(t, AppUber, DetectApp("com.ubercab.driver"))
	assert.Equal(t, App99, DetectApp("com.taxis99"))
	assert.Equal(t, App99, DetectApp("com.didiglobal.driver"))
	assert.Equal(t, AppUber, DetectApp(""))
}
