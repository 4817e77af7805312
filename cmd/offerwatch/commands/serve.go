package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/motoristapro/offerwatch/internal/diaglog"
	"github.com/motoristapro/offerwatch/internal/ocr"
	"github.com/motoristapro/offerwatch/internal/orchestrator"
	"github.com/motoristapro/offerwatch/internal/orchestrator/trigger"
	"github.com/motoristapro/offerwatch/internal/overlay"
	"github.com/motoristapro/offerwatch/internal/screen"
	"github.com/motoristapro/offerwatch/internal/server"
	"github.com/motoristapro/offerwatch/internal/settings"
	"github.com/motoristapro/offerwatch/internal/timer"
)

var (
	serveAddr       string
	serveNoTerminal bool
	serveNoPoll     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch for offers and serve the overlay API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides http.addr)")
	serveCmd.Flags().BoolVar(&serveNoTerminal, "no-terminal", false, "do not print cards to stdout")
	serveCmd.Flags().BoolVar(&serveNoPoll, "no-poll", false, "do not poll the device foreground app; rely on /api/signal")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if serveAddr != "" {
		cfg.HTTPAddr = serveAddr
	}

	capturer, err := screen.New(screen.Options{Backend: cfg.CaptureBackend, ADBSerial: cfg.ADBSerial})
	if err != nil {
		return err
	}
	defer capturer.Close()

	engine, err := ocr.New(ocr.Options{
		Engine:    cfg.OCREngine,
		Addr:      cfg.OCRAddr,
		Languages: cfg.OCRLanguages,
		Timeout:   cfg.OCRTimeout,
	})
	if err != nil {
		slog.Error("failed to create ocr engine", "engine", cfg.OCREngine, "addr", cfg.OCRAddr, "error", err)
		return err
	}
	defer func() { _ = engine.Close() }()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	store, err := settings.OpenSQLite(ctx, cfg.SettingsPath)
	if err != nil {
		return err
	}
	store = store.WithDefaults(cfg.Thresholds)
	defer func() { _ = store.Close() }()

	diag, err := diaglog.Open(cfg.DiagLogPath)
	if err != nil {
		slog.Warn("diagnostic log unavailable", "path", cfg.DiagLogPath, "error", err)
		diag = diaglog.Discard()
	}
	defer func() { _ = diag.Close() }()

	bus := overlay.NewBus(overlay.DefaultMaxCards, overlay.DefaultEventBuffer)
	sinks := overlay.Multi{bus}
	if !serveNoTerminal {
		sinks = append(sinks, overlay.NewTerminal(cmd.OutOrStdout()))
	}

	mgr := orchestrator.New(orchestrator.Deps{
		Capturer: capturer,
		Engine:   engine,
		Sink:     sinks,
		Store:    store,
		History:  store,
		Diag:     diag,
	}, orchestrator.OptionsFromConfig(cfg))
	if err := mgr.Start(ctx); err != nil {
		return err
	}

	if adb, ok := capturer.(*screen.ADB); ok && !serveNoPoll {
		poller := trigger.NewPoller(adb, cfg.PollInterval, func(s trigger.Signal) { mgr.HandleSignal(s) })
		go poller.Run(ctx)
	}

	srv := server.New(mgr, bus, timer.New(), store)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("offerwatch starting", "http", cfg.HTTPAddr, "capture", cfg.CaptureBackend, "ocr", cfg.OCREngine)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
	case err = <-errCh:
		slog.Error("http server error", "error", err)
	}

	slog.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		slog.Error("http shutdown error", "error", serr)
	}

	mgr.Stop()
	slog.Info("shutdown complete")
	return err
}
