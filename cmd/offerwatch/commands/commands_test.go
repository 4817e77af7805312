package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeLines(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lines.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractCommandJSON(t *testing.T) {
	path := writeLines(t, `[
		{"text": "R$18.50", "h": 90, "y": 400},
		{"text": "4.8 km", "h": 30, "y": 600},
		{"text": "15 min", "h": 30, "y": 650}
	]`)

	out, err := run(t, "extract", path, "--height", "2000", "--json")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	var ev struct {
		Accepted bool `json:"accepted"`
		Card     struct {
			Verdict string `json:"verdict"`
		} `json:"card"`
	}
	if err := json.Unmarshal([]byte(out), &ev); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if !ev.Accepted {
		t.Errorf("offer not accepted: %s", out)
	}
	if ev.Card.Verdict != "good" {
		t.Errorf("verdict = %q, want good", ev.Card.Verdict)
	}
}

func TestExtractCommandNoOffer(t *testing.T) {
	path := writeLines(t, `[{"text": "Ficar offline", "h": 30, "y": 900}]`)

	out, err := run(t, "extract", path, "--json=false")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(out, "no actionable offer") {
		t.Errorf("output = %q", out)
	}
}

func TestExtractCommandBadInput(t *testing.T) {
	if _, err := run(t, "extract", writeLines(t, `{not json`)); err == nil {
		t.Error("malformed lines accepted")
	}
	if _, err := run(t, "extract", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "offerwatch ") {
		t.Errorf("version output = %q", out)
	}
}

func TestThresholdsSetAndShow(t *testing.T) {
	t.Setenv("OFFERWATCH_SETTINGS_PATH", filepath.Join(t.TempDir(), "settings.db"))

	out, err := run(t, "thresholds", "set", "--good-km", "2,50", "--bad-km", "1.20")
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !strings.Contains(out, "2.50/1.20") {
		t.Errorf("set output = %q", out)
	}

	out, err = run(t, "thresholds", "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got["good_per_km"] != "2.5" || got["bad_per_km"] != "1.2" {
		t.Errorf("stored thresholds = %v", got)
	}
}
