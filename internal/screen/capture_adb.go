package screen

import (
	"context"
	"regexp"

	apperrors "github.com/motoristapro/offerwatch/internal/errors"
)

// focusPattern pulls the package out of dumpsys lines such as
// "mCurrentFocus=Window{1a2b u0 com.ubercab.driver/com.ubercab.MainActivity}".
var focusPattern = regexp.MustCompile(`(?:mCurrentFocus|mFocusedApp)=\S*\{[^}]*?\s([A-Za-z0-9_]+(?:\.[A-Za-z0-9_]+)+)/`)

// ADB captures the screen of an Android device with `adb exec-out screencap -p`.
type ADB struct {
	*baseCapturer
	adb *adbBackend
}

type adbBackend struct {
	serial string
	run    runFunc
}

// NewADB creates an ADB capturer. An empty serial targets the only attached device.
func NewADB(serial string) *ADB {
	b := &adbBackend{serial: serial, run: execRun}
	return &ADB{baseCapturer: newBase(b, ""), adb: b}
}

func (a *adbBackend) args(cmd ...string) []string {
	if a.serial == "" {
		return cmd
	}
	return append([]string{"-s", a.serial}, cmd...)
}

func (a *adbBackend) captureRaw(ctx context.Context) ([]byte, error) {
	return a.run(ctx, "adb", a.args("exec-out", "screencap", "-p")...)
}

func (a *adbBackend) cleanup() {}

// ForegroundPackage reports the package of the focused window on the device.
func (d *ADB) ForegroundPackage(ctx context.Context) (string, error) {
	out, err := d.adb.run(ctx, "adb", d.adb.args("shell", "dumpsys", "window")...)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeUnavailable, "query foreground window")
	}
	m := focusPattern.FindSubmatch(out)
	if m == nil {
		return "", apperrors.New(apperrors.CodeNotFound, "no focused window")
	}
	return string(m[1]), nil
}
