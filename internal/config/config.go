// Package config handles service configuration
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/motoristapro/offerwatch/internal/offer"
)

// EnvPrefix is prepended to every environment override, e.g. OFFERWATCH_HTTP_ADDR.
const EnvPrefix = "OFFERWATCH"

type Config struct {
	HTTPAddr string

	OCREngine    string // grpc | tesseract
	OCRAddr      string
	OCRLanguages []string
	OCRTimeout   time.Duration

	CaptureBackend string // auto | adb | native
	ADBSerial      string

	PollInterval  time.Duration
	Cooldown      time.Duration
	SettleDelay   time.Duration
	HideSelfDelay time.Duration
	RetryDelay    time.Duration
	AutoHide      time.Duration

	IgnoreTopFraction float64
	TargetPackages    []string

	SettingsPath string
	DiagLogPath  string

	LogLevel  string
	LogFormat string

	Thresholds offer.ThresholdConfig
}

var defaults = map[string]any{
	"http.addr":                ":8000",
	"ocr.engine":               "grpc",
	"ocr.addr":                 "localhost:50051",
	"ocr.languages":            []string{"por", "eng"},
	"ocr.timeout":              "5s",
	"capture.backend":          "auto",
	"capture.adb_serial":       "",
	"capture.poll_interval":    "1s",
	"capture.cooldown":         "1000ms",
	"capture.settle_delay":     "500ms",
	"capture.hide_self_delay":  "300ms",
	"capture.retry_delay":      "700ms",
	"overlay.auto_hide":        "7s",
	"extract.ignore_top":       offer.DefaultIgnoreTopFraction,
	"trigger.packages":         []string{"uber", "99"},
	"settings.path":            "offerwatch.db",
	"diag.path":                "offerwatch-diag.log",
	"logging.level":            "info",
	"logging.format":           "text",
	"thresholds.good_per_km":   "2.0",
	"thresholds.bad_per_km":    "1.5",
	"thresholds.good_per_hour": "60",
	"thresholds.bad_per_hour":  "40",
}

// New returns a viper instance with defaults and environment binding applied.
func New() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from defaults, an optional YAML file and the environment.
// An empty path searches ./offerwatch.yaml and tolerates its absence.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("offerwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return FromViper(v), nil
}

// FromViper builds a Config from an already populated viper instance.
// Unparseable values fall back to their defaults with a warning.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{
		HTTPAddr:          v.GetString("http.addr"),
		OCREngine:         strings.ToLower(v.GetString("ocr.engine")),
		OCRAddr:           v.GetString("ocr.addr"),
		OCRLanguages:      getList(v, "ocr.languages"),
		OCRTimeout:        getDuration(v, "ocr.timeout"),
		CaptureBackend:    strings.ToLower(v.GetString("capture.backend")),
		ADBSerial:         v.GetString("capture.adb_serial"),
		PollInterval:      getDuration(v, "capture.poll_interval"),
		Cooldown:          getDuration(v, "capture.cooldown"),
		SettleDelay:       getDuration(v, "capture.settle_delay"),
		HideSelfDelay:     getDuration(v, "capture.hide_self_delay"),
		RetryDelay:        getDuration(v, "capture.retry_delay"),
		AutoHide:          getDuration(v, "overlay.auto_hide"),
		IgnoreTopFraction: getFraction(v, "extract.ignore_top"),
		TargetPackages:    getList(v, "trigger.packages"),
		SettingsPath:      v.GetString("settings.path"),
		DiagLogPath:       v.GetString("diag.path"),
		LogLevel:          strings.ToLower(v.GetString("logging.level")),
		LogFormat:         strings.ToLower(v.GetString("logging.format")),
	}
	cfg.Thresholds = thresholds(v)
	return cfg
}

// SlogLevel maps the configured level name to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getDuration(v *viper.Viper, key string) time.Duration {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		def, _ := time.ParseDuration(defaults[key].(string))
		slog.Warn("invalid duration, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return d
}

func getFraction(v *viper.Viper, key string) float64 {
	f := v.GetFloat64(key)
	if f < 0 || f >= 1 {
		def := defaults[key].(float64)
		slog.Warn("fraction out of range, using default", "key", key, "value", f, "default", def)
		return def
	}
	return f
}

// getList accepts both YAML lists and comma-separated environment values.
func getList(v *viper.Viper, key string) []string {
	raw := v.GetStringSlice(key)
	if len(raw) == 1 && strings.Contains(raw[0], ",") {
		raw = strings.Split(raw[0], ",")
	}
	result := make([]string, 0, len(raw))
	for _, p := range raw {
		if t := strings.TrimSpace(p); t != "" {
			result = append(result, t)
		}
	}
	return result
}

func thresholds(v *viper.Viper) offer.ThresholdConfig {
	def := offer.DefaultThresholds()
	t := offer.ThresholdConfig{
		GoodPerKm:   getDecimal(v, "thresholds.good_per_km", def.GoodPerKm),
		BadPerKm:    getDecimal(v, "thresholds.bad_per_km", def.BadPerKm),
		GoodPerHour: getDecimal(v, "thresholds.good_per_hour", def.GoodPerHour),
		BadPerHour:  getDecimal(v, "thresholds.bad_per_hour", def.BadPerHour),
	}
	if err := t.Validate(); err != nil {
		slog.Warn("invalid thresholds, using defaults", "error", err)
		return def
	}
	return t
}

func getDecimal(v *viper.Viper, key string, def decimal.Decimal) decimal.Decimal {
	raw := strings.ReplaceAll(strings.TrimSpace(v.GetString(key)), ",", ".")
	d, err := decimal.NewFromString(raw)
	if err != nil {
		slog.Warn("invalid decimal, using default", "key", key, "value", raw, "default", def)
		return def
	}
	return d
}
