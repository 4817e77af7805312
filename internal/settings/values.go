package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/motoristapro/offerwatch/internal/offer"
	"github.com/motoristapro/offerwatch/internal/trace"
)

func toValues(cfg offer.ThresholdConfig) map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		KeyGoodKm:   cfg.GoodPerKm,
		KeyBadKm:    cfg.BadPerKm,
		KeyGoodHour: cfg.GoodPerHour,
		KeyBadHour:  cfg.BadPerHour,
	}
}

// fromValues resolves each key independently; a missing or malformed value
// takes the default for that key only.
func fromValues(def offer.ThresholdConfig, lookup func(key string) (string, bool)) offer.ThresholdConfig {
	get := func(key string, fallback decimal.Decimal) decimal.Decimal {
		raw, ok := lookup(key)
		if !ok {
			return fallback
		}
		d, err := ParseAmount(raw)
		if err != nil {
			trace.Logger(context.Background()).Warn("unreadable threshold, using default", "key", key, "value", raw)
			return fallback
		}
		return d
	}
	return offer.ThresholdConfig{
		GoodPerKm:   get(KeyGoodKm, def.GoodPerKm),
		BadPerKm:    get(KeyBadKm, def.BadPerKm),
		GoodPerHour: get(KeyGoodHour, def.GoodPerHour),
		BadPerHour:  get(KeyBadHour, def.BadPerHour),
	}
}

// ParseAmount reads a non-negative decimal written with either a dot or a
// comma as the decimal separator.
func ParseAmount(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."))
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %s", raw)
	}
	return d, nil
}

func validate(cfg offer.ThresholdConfig) error {
	return cfg.Validate()
}
