package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/motoristapro/offerwatch/internal/config"
	"github.com/motoristapro/offerwatch/internal/diaglog"
	apperrors "github.com/motoristapro/offerwatch/internal/errors"
	"github.com/motoristapro/offerwatch/internal/ocr"
	"github.com/motoristapro/offerwatch/internal/offer"
	"github.com/motoristapro/offerwatch/internal/orchestrator/pipeline"
	"github.com/motoristapro/offerwatch/internal/orchestrator/trigger"
	"github.com/motoristapro/offerwatch/internal/overlay"
	"github.com/motoristapro/offerwatch/internal/screen"
	"github.com/motoristapro/offerwatch/internal/settings"
	"github.com/motoristapro/offerwatch/internal/syncx"
	"github.com/motoristapro/offerwatch/internal/trace"
)

// Signal re-exported for API compatibility
type Signal = trigger.Signal

// EventKind re-exported for API compatibility
type EventKind = trigger.EventKind

const (
	WindowStateChanged   = trigger.WindowStateChanged
	WindowContentChanged = trigger.WindowContentChanged
)

// Options tunes timing and extraction.
type Options struct {
	Cooldown          time.Duration
	SettleDelay       time.Duration
	HideSelfDelay     time.Duration
	RetryDelay        time.Duration
	AutoHide          time.Duration
	IgnoreTopFraction float64
	TargetPackages    []string
	Thresholds        offer.ThresholdConfig
	Monitoring        bool
}

// DefaultOptions returns the production timings with monitoring on.
func DefaultOptions() Options {
	return Options{
		Cooldown:          DefaultCooldown,
		SettleDelay:       DefaultSettleDelay,
		HideSelfDelay:     DefaultHideSelfDelay,
		RetryDelay:        DefaultRetryDelay,
		AutoHide:          DefaultAutoHide,
		IgnoreTopFraction: offer.DefaultIgnoreTopFraction,
		TargetPackages:    []string{"uber", "99"},
		Thresholds:        offer.DefaultThresholds(),
		Monitoring:        true,
	}
}

// OptionsFromConfig maps service configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Cooldown:          cfg.Cooldown,
		SettleDelay:       cfg.SettleDelay,
		HideSelfDelay:     cfg.HideSelfDelay,
		RetryDelay:        cfg.RetryDelay,
		AutoHide:          cfg.AutoHide,
		IgnoreTopFraction: cfg.IgnoreTopFraction,
		TargetPackages:    cfg.TargetPackages,
		Thresholds:        cfg.Thresholds,
		Monitoring:        true,
	}
}

// Deps are the collaborators of a Manager. Store, History and Diag are optional.
type Deps struct {
	Capturer screen.Capturer
	Engine   ocr.Engine
	Sink     overlay.Sink
	Store    settings.Store
	History  settings.History
	Diag     *diaglog.Log
}

// Status is a point-in-time view of the manager.
type Status struct {
	State      State                 `json:"state"`
	Monitoring bool                  `json:"monitoring"`
	Package    string                `json:"package"`
	Last       *offer.RideReading    `json:"last_reading,omitempty"`
	Thresholds offer.ThresholdConfig `json:"thresholds"`
}

type job struct {
	id    string
	pkg   string
	retry bool
	ctx   context.Context
}

// Manager owns all capture state. Signals are handled by one event loop and
// cycles run on one worker; a trigger that finds the worker busy is dropped.
type Manager struct {
	opts       Options
	gate       *trigger.Gate
	proc       *pipeline.Processor
	engine     ocr.Engine
	validator  *offer.Validator
	thresholds *syncx.RWGuard[offer.ThresholdConfig]
	sink       overlay.Sink
	store      settings.Store
	history    settings.History
	diag       *diaglog.Log
	now        func() time.Time

	state    atomic.Int32
	signals  chan Signal
	jobs     chan job
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu        sync.Mutex
	pkg       string
	armCtx    context.Context
	disarm    context.CancelFunc
	timers    map[*time.Timer]struct{}
	hideTimer *time.Timer
	hideGen   uint64
}

// New creates a manager. Call Start to begin processing signals.
func New(deps Deps, opts Options) *Manager {
	sink := deps.Sink
	if sink == nil {
		sink = overlay.Multi(nil)
	}
	m := &Manager{
		opts:       opts,
		gate:       trigger.NewGate(opts.Cooldown, opts.TargetPackages, opts.Monitoring),
		proc:       pipeline.NewProcessor(deps.Capturer, deps.Engine),
		engine:     deps.Engine,
		validator:  offer.NewValidator(),
		thresholds: syncx.NewGuard(opts.Thresholds),
		sink:       sink,
		store:      deps.Store,
		history:    deps.History,
		diag:       deps.Diag,
		now:        time.Now,
		signals:    make(chan Signal, SignalBuffer),
		jobs:       make(chan job),
		stopCh:     make(chan struct{}),
		timers:     make(map[*time.Timer]struct{}),
	}
	if opts.Monitoring {
		m.armCtx, m.disarm = context.WithCancel(context.Background())
	}
	m.thresholds.Watch(func(_, next offer.ThresholdConfig) {
		m.logf("thresholds updated: good %s/km %s/h, bad %s/km %s/h",
			next.GoodPerKm, next.GoodPerHour, next.BadPerKm, next.BadPerHour)
	})
	return m
}

// Start loads persisted thresholds, warms up the OCR engine and begins
// processing signals.
func (m *Manager) Start(ctx context.Context) error {
	log := trace.Logger(ctx)
	if m.store != nil {
		t, err := m.store.Thresholds(ctx)
		if err != nil {
			log.Warn("loading thresholds failed, keeping configured values", "error", err)
		} else if err := m.thresholds.SetValid(t, offer.ThresholdConfig.Validate); err != nil {
			log.Warn("stored thresholds invalid, keeping configured values", "error", err)
		}
	}

	m.wg.Add(2)
	go m.eventLoop(ctx)
	go m.worker(ctx)
	return nil
}

// Stop cancels pending timers and in-flight cycles and waits for the loops.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.mu.Lock()
		m.disarmLocked()
		m.mu.Unlock()
	})
	m.wg.Wait()
}

// HandleSignal queues a foreground signal without blocking. It reports false
// when the signal was dropped because the queue is full.
func (m *Manager) HandleSignal(s Signal) bool {
	select {
	case m.signals <- s:
		return true
	default:
		trace.Logger(context.Background()).Debug("signal queue full, dropping", "package", s.Package, "kind", s.Kind)
		return false
	}
}

func (m *Manager) eventLoop(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case s := <-m.signals:
			m.handleSignal(s)
		}
	}
}

func (m *Manager) handleSignal(s Signal) {
	m.mu.Lock()
	changed := s.Package != "" && s.Package != m.pkg
	if changed {
		m.pkg = s.Package
	}
	m.mu.Unlock()

	if changed {
		m.validator.Clear()
		trace.Logger(context.Background()).Debug("foreground changed", "package", s.Package)
	}
	if !m.gate.Check(s) {
		return
	}

	m.mu.Lock()
	armCtx := m.armCtx
	m.mu.Unlock()
	if armCtx == nil {
		return
	}

	j := job{id: uuid.NewString(), pkg: s.Package, ctx: armCtx}
	m.logf("trigger accepted for %s (%s)", s.Package, s.Kind)
	m.state.CompareAndSwap(int32(Idle), int32(CooldownWait))
	m.schedule(m.opts.SettleDelay, func() { m.dispatch(j) })
}

// dispatch hands j to the worker if it is idle.
func (m *Manager) dispatch(j job) {
	if j.ctx.Err() != nil {
		return
	}
	select {
	case m.jobs <- j:
	default:
		trace.Logger(j.ctx).Debug("worker busy, dropping capture", "cycle", j.id)
		m.state.CompareAndSwap(int32(CooldownWait), int32(Idle))
	}
}

func (m *Manager) worker(ctx context.Context) {
	defer m.wg.Done()
	log := trace.Logger(ctx)
	if m.engine != nil {
		if err := ocr.Warmup(ctx, m.engine); err != nil {
			log.Warn("ocr warm-up failed", "error", err)
		}
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case j := <-m.jobs:
			m.runCycle(j)
		}
	}
}

// runCycle performs one capture attempt. Failures end the cycle only.
func (m *Manager) runCycle(j job) {
	ctx := trace.WithAttrs(j.ctx, "cycle", j.id, "package", j.pkg, "retry", j.retry)
	ctx, span := trace.StartSpan(ctx, "capture_cycle")

	var err error
	next := Idle
	restored := false
	restore := func() {
		if !restored {
			restored = true
			m.sink.Restore()
		}
	}
	defer func() {
		restore()
		m.setState(next)
		span.Finish(ctx, err)
	}()

	m.setState(Capturing)
	m.sink.HideSelf()
	if err = sleepCtx(ctx, m.opts.HideSelfDelay); err != nil {
		return
	}

	frame, err := m.proc.Run(ctx, j.retry, func(st pipeline.Stage) {
		m.setState(stageState(st))
		if st != pipeline.StageCapturing {
			restore()
		}
	})
	if err != nil {
		m.logf("capture failed: %v", err)
		return
	}
	if frame.Unchanged {
		m.logf("retry frame unchanged, giving up")
		return
	}
	span.SetAttr("lines", len(frame.Lines))
	span.SetAttr("dark", frame.Dark)

	partial := offer.Extract(frame.Lines, frame.Height, m.opts.IgnoreTopFraction)
	if !partial.HasPrice() {
		if j.retry {
			m.logf("no price after retry")
			return
		}
		m.logf("no price found, retrying in %s", m.opts.RetryDelay)
		next = RetryScheduled
		m.setState(RetryScheduled)
		retry := j
		retry.retry = true
		m.schedule(m.opts.RetryDelay, func() { m.dispatch(retry) })
		return
	}

	if err = ctx.Err(); err != nil {
		return
	}
	reading, ok := m.validator.Accept(partial)
	if !ok {
		m.logf("reading rejected: price %s, distance %s km, time %s min",
			partial.Price, partial.TotalDistance(), partial.TotalTime())
		return
	}
	if err = ctx.Err(); err != nil {
		// disarmed between the check and Accept; keep the validator re-armed
		m.validator.Clear()
		return
	}

	res := offer.Classify(reading, m.thresholds.Get())
	m.logf("reading accepted: %s", reading)
	m.logf("verdict %s: R$ %s/km, R$ %s/h", res.Verdict, res.PerKm.StringFixed(2), res.PerHour.StringFixed(0))
	span.SetAttr("verdict", res.Verdict.String())

	app := offer.DetectApp(j.pkg)
	restore()
	m.sink.Show(overlay.NewCard(app, reading, res, m.now()))
	m.scheduleAutoHide()

	if m.history != nil {
		if herr := m.history.RecordReading(ctx, settings.NewRecord(m.now(), app, reading, res)); herr != nil {
			trace.Logger(ctx).Warn("recording reading failed", "error", herr)
		}
	}
}

// schedule runs fn after d unless the manager is disarmed first.
func (m *Manager) schedule(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.armCtx == nil {
		return
	}
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		m.mu.Lock()
		_, live := m.timers[t]
		delete(m.timers, t)
		m.mu.Unlock()
		if live {
			fn()
		}
	})
	m.timers[t] = struct{}{}
}

func (m *Manager) scheduleAutoHide() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopAutoHideLocked()
	gen := m.hideGen
	m.hideTimer = time.AfterFunc(m.opts.AutoHide, func() {
		m.mu.Lock()
		current := gen == m.hideGen
		if current {
			m.hideTimer = nil
		}
		m.mu.Unlock()
		if current {
			m.hideCard("auto-hide")
		}
	})
}

func (m *Manager) stopAutoHideLocked() {
	m.hideGen++
	if m.hideTimer != nil {
		m.hideTimer.Stop()
		m.hideTimer = nil
	}
}

// disarmLocked cancels the armed context and every pending timer.
func (m *Manager) disarmLocked() {
	if m.disarm != nil {
		m.disarm()
	}
	m.armCtx, m.disarm = nil, nil
	for t := range m.timers {
		t.Stop()
	}
	clear(m.timers)
	m.stopAutoHideLocked()
}

func (m *Manager) hideCard(reason string) {
	m.sink.Hide()
	m.validator.Clear()
	m.logf("card hidden (%s)", reason)
}

// Hide removes the visible card and re-arms the validator.
func (m *Manager) Hide() {
	m.mu.Lock()
	m.stopAutoHideLocked()
	m.mu.Unlock()
	m.hideCard("command")
}

// SetMonitoring enables/disables capture. Disabling cancels pending and
// in-flight cycles and hides the card.
func (m *Manager) SetMonitoring(enabled bool) {
	m.mu.Lock()
	if enabled && m.armCtx == nil {
		m.armCtx, m.disarm = context.WithCancel(context.Background())
	}
	if !enabled {
		m.disarmLocked()
	}
	m.mu.Unlock()

	m.gate.SetEnabled(enabled)
	if enabled {
		m.gate.Reset()
		m.logf("monitoring started")
		return
	}
	m.hideCard("monitoring stopped")
	m.setState(Idle)
}

// Monitoring reports whether capture is enabled.
func (m *Manager) Monitoring() bool {
	return m.gate.IsEnabled()
}

// State returns the current state machine position.
func (m *Manager) State() State {
	return State(m.state.Load())
}

func (m *Manager) setState(s State) {
	m.state.Store(int32(s))
}

// Thresholds returns the active thresholds.
func (m *Manager) Thresholds() offer.ThresholdConfig {
	return m.thresholds.Get()
}

// SetThresholds validates, persists and activates new thresholds.
func (m *Manager) SetThresholds(ctx context.Context, t offer.ThresholdConfig) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if m.store != nil {
		if err := m.store.SaveThresholds(ctx, t); err != nil {
			return err
		}
	}
	m.thresholds.Set(t)
	return nil
}

// LastReading returns the last accepted reading, if any.
func (m *Manager) LastReading() (offer.RideReading, bool) {
	return m.validator.Last()
}

// ScreenText returns the text of the latest recognized frame.
func (m *Manager) ScreenText() string {
	return m.proc.Text()
}

// Status returns a snapshot of the manager.
func (m *Manager) Status() Status {
	m.mu.Lock()
	pkg := m.pkg
	m.mu.Unlock()

	st := Status{
		State:      m.State(),
		Monitoring: m.Monitoring(),
		Package:    pkg,
		Thresholds: m.Thresholds(),
	}
	if r, ok := m.validator.Last(); ok {
		st.Last = &r
	}
	return st
}

func (m *Manager) logf(format string, args ...any) {
	if m.diag != nil {
		m.diag.Printf(format, args...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return apperrors.Wrap(ctx.Err(), apperrors.CodeCancelled, "cycle cancelled")
	case <-t.C:
		return nil
	}
}
