// Package daemon wires storage, the clipboard monitor and the IPC and HTTP
// front-ends into one long-running process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/berrythewa/clipvault/internal/api"
	"github.com/berrythewa/clipvault/internal/clipboard"
	"github.com/berrythewa/clipvault/internal/config"
	"github.com/berrythewa/clipvault/internal/history"
	"github.com/berrythewa/clipvault/internal/ipc"
	"github.com/berrythewa/clipvault/internal/storage"
	"go.uber.org/zap"
)

const readyPoll = 10 * time.Millisecond

// ErrAlreadyRunning is returned when another daemon answers on the socket
var ErrAlreadyRunning = errors.New("clipvault daemon already running")

// Options adjusts one run without touching the config file
type Options struct {
	// NoCapture keeps the monitor stopped even when autostart is on.
	NoCapture bool
	// Clipboard replaces the system clipboard. Tests use a memory clipboard.
	Clipboard clipboard.Clipboard
	// Ready, when set, is closed once every listener is up.
	Ready chan<- struct{}
}

// Run blocks until ctx is cancelled or a front-end fails
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) error {
	logger = logger.With(
		zap.String("device_id", cfg.DeviceID),
		zap.String("device_name", cfg.DeviceName))
	socket := cfg.IPC.Socket()

	if _, err := ipc.NewClient(socket).Ping(ctx); err == nil {
		return fmt.Errorf("%w on %s", ErrAlreadyRunning, socket)
	}

	store, err := storage.Open(ctx, storage.OpenConfig{
		DatabaseURL: cfg.Storage.DatabaseURL,
		BoltPath:    cfg.Storage.DBPath,
		Options:     storage.Options{Logger: logger},
	})
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	clip := opts.Clipboard
	if clip == nil {
		clip = systemClipboard(logger)
	}

	monitor := clipboard.NewMonitor(clipboard.MonitorConfig{
		Interval:     cfg.Capture.Interval(),
		IgnoreImages: !cfg.Capture.TrackImages,
	}, clip, store, logger)
	svc := history.New(store, monitor, clip, logger)

	if cfg.Capture.Autostart && !opts.NoCapture {
		svc.StartCapture()
	}
	defer svc.StopCapture()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	running := 0

	ipcServer := ipc.NewServer(socket, svc, logger)
	running++
	go func() {
		errCh <- ipcServer.ListenAndServe(ctx)
	}()

	if cfg.Server.Enabled {
		httpServer := api.NewServer(cfg.Server.Addr(), svc, logger)
		running++
		go func() {
			errCh <- httpServer.ListenAndServe(ctx)
		}()
	}

	if opts.Ready != nil {
		go waitReady(ctx, socket, opts.Ready)
	}

	logger.Info("Daemon running",
		zap.String("backend", store.Backend()),
		zap.String("socket", socket),
		zap.Duration("interval", monitor.Interval()),
		zap.Bool("http", cfg.Server.Enabled),
		zap.Bool("capturing", svc.IsCapturing()))

	var firstErr error
	for i := 0; i < running; i++ {
		err := <-errCh
		if err != nil && firstErr == nil {
			firstErr = err
			logger.Error("Daemon component failed", zap.Error(err))
		}
		// One front-end stopping takes the others down.
		cancel()
	}

	logger.Info("Daemon stopped")
	return firstErr
}

func systemClipboard(logger *zap.Logger) clipboard.Clipboard {
	system := clipboard.NewSystemClipboard()
	if !system.Available() {
		logger.Warn("System clipboard unavailable, using in-memory clipboard")
	}
	return clipboard.NewFallbackClipboard(system, logger)
}

// waitReady closes ready once the IPC socket answers
func waitReady(ctx context.Context, socket string, ready chan<- struct{}) {
	client := ipc.NewClient(socket)
	for ctx.Err() == nil {
		if _, err := client.Ping(ctx); err == nil {
			close(ready)
			return
		}
		select {
		case <-ctx.Done():
		case <-time.After(readyPoll):
		}
	}
}
