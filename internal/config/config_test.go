package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/motoristapro/offerwatch/internal/offer"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTPAddr != ":8000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8000")
	}
	if cfg.OCREngine != "grpc" {
		t.Errorf("OCREngine = %q, want grpc", cfg.OCREngine)
	}
	if cfg.Cooldown != time.Second {
		t.Errorf("Cooldown = %v, want 1s", cfg.Cooldown)
	}
	if cfg.PollInterval != time.Second {
		t.Errorf("PollInterval = %v, want 1s", cfg.PollInterval)
	}
	if cfg.SettleDelay != 500*time.Millisecond {
		t.Errorf("SettleDelay = %v, want 500ms", cfg.SettleDelay)
	}
	if cfg.HideSelfDelay != 300*time.Millisecond {
		t.Errorf("HideSelfDelay = %v, want 300ms", cfg.HideSelfDelay)
	}
	if cfg.RetryDelay != 700*time.Millisecond {
		t.Errorf("RetryDelay = %v, want 700ms", cfg.RetryDelay)
	}
	if cfg.AutoHide != 7*time.Second {
		t.Errorf("AutoHide = %v, want 7s", cfg.AutoHide)
	}
	if cfg.IgnoreTopFraction != offer.DefaultIgnoreTopFraction {
		t.Errorf("IgnoreTopFraction = %v", cfg.IgnoreTopFraction)
	}
	if len(cfg.TargetPackages) != 2 || cfg.TargetPackages[0] != "uber" || cfg.TargetPackages[1] != "99" {
		t.Errorf("TargetPackages = %v", cfg.TargetPackages)
	}
	def := offer.DefaultThresholds()
	if !cfg.Thresholds.GoodPerKm.Equal(def.GoodPerKm) || !cfg.Thresholds.BadPerHour.Equal(def.BadPerHour) {
		t.Errorf("Thresholds = %+v, want defaults", cfg.Thresholds)
	}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("SlogLevel = %v", cfg.SlogLevel())
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OFFERWATCH_HTTP_ADDR", ":9000")
	t.Setenv("OFFERWATCH_OCR_ENGINE", "Tesseract")
	t.Setenv("OFFERWATCH_CAPTURE_COOLDOWN", "2s")
	t.Setenv("OFFERWATCH_TRIGGER_PACKAGES", "ubercab, taxis99")
	t.Setenv("OFFERWATCH_THRESHOLDS_GOOD_PER_KM", "2,5")
	t.Setenv("OFFERWATCH_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPAddr != ":9000" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.OCREngine != "tesseract" {
		t.Errorf("OCREngine = %q", cfg.OCREngine)
	}
	if cfg.Cooldown != 2*time.Second {
		t.Errorf("Cooldown = %v", cfg.Cooldown)
	}
	if len(cfg.TargetPackages) != 2 || cfg.TargetPackages[1] != "taxis99" {
		t.Errorf("TargetPackages = %v", cfg.TargetPackages)
	}
	if !cfg.Thresholds.GoodPerKm.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("GoodPerKm = %s", cfg.Thresholds.GoodPerKm)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel = %v", cfg.SlogLevel())
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OFFERWATCH_CAPTURE_SETTLE_DELAY", "soon")
	t.Setenv("OFFERWATCH_EXTRACT_IGNORE_TOP", "1.5")
	t.Setenv("OFFERWATCH_THRESHOLDS_BAD_PER_KM", "abc")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SettleDelay != 500*time.Millisecond {
		t.Errorf("SettleDelay = %v, want default", cfg.SettleDelay)
	}
	if cfg.IgnoreTopFraction != offer.DefaultIgnoreTopFraction {
		t.Errorf("IgnoreTopFraction = %v, want default", cfg.IgnoreTopFraction)
	}
	if !cfg.Thresholds.BadPerKm.Equal(offer.DefaultThresholds().BadPerKm) {
		t.Errorf("BadPerKm = %s, want default", cfg.Thresholds.BadPerKm)
	}
}

func TestLoadInvertedThresholdsUseDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OFFERWATCH_THRESHOLDS_BAD_PER_HOUR", "90")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Thresholds.BadPerHour.Equal(decimal.NewFromInt(40)) {
		t.Errorf("BadPerHour = %s, want 40", cfg.Thresholds.BadPerHour)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	body := "http:\n  addr: \":7070\"\ncapture:\n  backend: adb\n  adb_serial: emulator-5554\nocr:\n  languages: [por]\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPAddr != ":7070" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.CaptureBackend != "adb" || cfg.ADBSerial != "emulator-5554" {
		t.Errorf("capture = %q/%q", cfg.CaptureBackend, cfg.ADBSerial)
	}
	if len(cfg.OCRLanguages) != 1 || cfg.OCRLanguages[0] != "por" {
		t.Errorf("OCRLanguages = %v", cfg.OCRLanguages)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}
