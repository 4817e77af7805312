package trigger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newGate(enabled bool) (*Gate, *clock) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	return NewGate(time.Second, []string{"uber", "99"}, enabled).WithClock(c.now), c
}

func TestGateDisabled(t *testing.T) {
	g, _ := newGate(false)
	if g.Check(Signal{Package: "com.ubercab.driver", Kind: WindowStateChanged}) {
		t.Error("disabled gate should reject")
	}
}

func TestGateTargets(t *testing.T) {
	g, _ := newGate(true)
	tests := []struct {
		pkg  string
		want bool
	}{
		{"com.ubercab.driver", true},
		{"com.taxis99.motorista", true},
		{"COM.UBERCAB.DRIVER", true},
		{"com.whatsapp", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := g.Targets(tt.pkg); got != tt.want {
			t.Errorf("Targets(%q) = %v, want %v", tt.pkg, got, tt.want)
		}
	}
}

func TestGateIgnoresOtherKinds(t *testing.T) {
	g, _ := newGate(true)
	if g.Check(Signal{Package: "com.ubercab.driver", Kind: "view_clicked"}) {
		t.Error("unrelated event kind should not trigger")
	}
	if !g.Check(Signal{Package: "com.ubercab.driver", Kind: ParseKind(" Window_Content_Changed ")}) {
		t.Error("content change should trigger")
	}
}

func TestGateCooldown(t *testing.T) {
	g, c := newGate(true)
	s := Signal{Package: "com.ubercab.driver", Kind: WindowContentChanged}

	if !g.Check(s) {
		t.Fatal("first trigger should pass")
	}
	c.t = c.t.Add(time.Second)
	if g.Check(s) {
		t.Error("trigger exactly at cooldown should be rejected")
	}
	c.t = c.t.Add(time.Millisecond)
	if !g.Check(s) {
		t.Error("trigger after cooldown should pass")
	}

	g.Reset()
	if !g.Check(s) {
		t.Error("reset should re-arm the gate")
	}
}

func TestGateConcurrentChecks(t *testing.T) {
	g, _ := newGate(true)
	s := Signal{Package: "com.ubercab.driver", Kind: WindowStateChanged}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Check(s) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if accepted != 1 {
		t.Errorf("accepted = %d, want 1", accepted)
	}
}

func TestSetEnabled(t *testing.T) {
	g, _ := newGate(false)
	g.SetEnabled(true)
	if !g.IsEnabled() {
		t.Error("should be enabled after SetEnabled(true)")
	}
	g.SetEnabled(false)
	if g.IsEnabled() {
		t.Error("should be disabled after SetEnabled(false)")
	}
}

type scriptedSource struct {
	mu    sync.Mutex
	steps []string
}

func (s *scriptedSource) ForegroundPackage(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.steps) == 0 {
		return "", errors.New("device offline")
	}
	pkg := s.steps[0]
	s.steps = s.steps[1:]
	return pkg, nil
}

func TestPollerEmitsKinds(t *testing.T) {
	src := &scriptedSource{steps: []string{"com.ubercab.driver", "com.ubercab.driver", "com.whatsapp"}}
	got := make(chan Signal, 10)
	p := NewPoller(src, 5*time.Millisecond, func(s Signal) { got <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	want := []Signal{
		{Package: "com.ubercab.driver", Kind: WindowStateChanged},
		{Package: "com.ubercab.driver", Kind: WindowContentChanged},
		{Package: "com.whatsapp", Kind: WindowStateChanged},
	}
	for i, w := range want {
		select {
		case s := <-got:
			if s != w {
				t.Errorf("signal %d = %+v, want %+v", i, s, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for signal %d", i)
		}
	}
}
