package screen

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	apperrors "github.com/motoristapro/offerwatch/internal/errors"
)

type fakeRun struct {
	out   []byte
	err   error
	calls [][]string
}

func (f *fakeRun) run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.out, f.err
}

func newFakeADB(serial string, f *fakeRun) *ADB {
	b := &adbBackend{serial: serial, run: f.run}
	return &ADB{baseCapturer: newBase(b, ""), adb: b}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.New(w, h, color.White), imaging.PNG); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestADBCapture(t *testing.T) {
	f := &fakeRun{out: pngBytes(t, 108, 240)}
	c := newFakeADB("emulator-5554", f)
	defer c.Close()

	img, err := c.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}
	if img.Bounds().Dx() != 108 || img.Bounds().Dy() != 240 {
		t.Errorf("bounds = %v", img.Bounds())
	}
	want := "adb -s emulator-5554 exec-out screencap -p"
	if got := strings.Join(f.calls[0], " "); got != want {
		t.Errorf("command = %q, want %q", got, want)
	}
}

func TestADBCaptureNoSerial(t *testing.T) {
	f := &fakeRun{out: pngBytes(t, 4, 4)}
	c := newFakeADB("", f)
	if _, err := c.Capture(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(f.calls[0], " "); got != "adb exec-out screencap -p" {
		t.Errorf("command = %q", got)
	}
}

func TestCaptureErrors(t *testing.T) {
	tests := []struct {
		name string
		f    *fakeRun
		want apperrors.Code
	}{
		{"tool failure", &fakeRun{err: errors.New("device offline")}, apperrors.CodeCaptureFailed},
		{"empty output", &fakeRun{}, apperrors.CodeCaptureFailed},
		{"garbage output", &fakeRun{out: []byte("not an image")}, apperrors.CodeCaptureFailed},
		{"typed error passes through", &fakeRun{err: apperrors.New(apperrors.CodeCaptureUnsupported, "x")}, apperrors.CodeCaptureUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newFakeADB("", tt.f).Capture(context.Background())
			if !apperrors.IsCode(err, tt.want) {
				t.Errorf("Capture() error = %v, want code %v", err, tt.want)
			}
		})
	}
}

func TestCaptureCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newFakeADB("", &fakeRun{err: errors.New("killed")}).Capture(ctx)
	if !apperrors.IsCode(err, apperrors.CodeCancelled) {
		t.Errorf("error = %v, want CANCELLED", err)
	}
}

func TestForegroundPackage(t *testing.T) {
	dump := "  mCurrentFocus=Window{1a2b3c u0 com.ubercab.driver/com.ubercab.driver.MainActivity}\n" +
		"  mFocusedApp=ActivityRecord{9f u0 com.ubercab.driver/.MainActivity t42}\n"
	c := newFakeADB("", &fakeRun{out: []byte(dump)})

	pkg, err := c.ForegroundPackage(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if pkg != "com.ubercab.driver" {
		t.Errorf("package = %q", pkg)
	}

	c = newFakeADB("", &fakeRun{out: []byte("nothing useful")})
	if _, err := c.ForegroundPackage(context.Background()); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestReadTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shot.png")
	data := pngBytes(t, 2, 2)
	run := func(_ context.Context, name string, args ...string) ([]byte, error) {
		return nil, os.WriteFile(path, data, 0o600)
	}

	got, err := readTemp(context.Background(), run, path, "screencapture", path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Error("file contents mismatch")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("temp screenshot should be removed")
	}
}

func TestBaseCloseRemovesTempDir(t *testing.T) {
	dir := makeTempDir()
	if dir == "" {
		t.Skip("temp dir unavailable")
	}
	c := newBase(&adbBackend{run: (&fakeRun{}).run}, dir)
	c.Close()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("temp directory should be removed after Close")
	}
}

func TestNewBackends(t *testing.T) {
	c, err := New(Options{Backend: BackendADB, ADBSerial: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*ADB); !ok {
		t.Errorf("adb backend = %T", c)
	}

	if _, err := New(Options{Backend: "carrier-pigeon"}); !apperrors.IsCode(err, apperrors.CodeConfigInvalid) {
		t.Errorf("error = %v, want CONFIG_INVALID", err)
	}
}

func TestStatic(t *testing.T) {
	src := imaging.New(10, 20, color.Black)
	s := NewStatic(src)
	img, err := s.Capture(context.Background())
	if err != nil || img != image.Image(src) {
		t.Errorf("Capture() = %v, %v", img, err)
	}

	path := filepath.Join(t.TempDir(), "frame.png")
	if err := imaging.Save(src, path); err != nil {
		t.Fatal(err)
	}
	opened, err := OpenStatic(path)
	if err != nil {
		t.Fatal(err)
	}
	img, _ = opened.Capture(context.Background())
	if img.Bounds().Dy() != 20 {
		t.Errorf("bounds = %v", img.Bounds())
	}

	if _, err := OpenStatic(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}
