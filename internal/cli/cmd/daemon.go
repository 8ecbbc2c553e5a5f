package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/berrythewa/clipvault/internal/config"
	"github.com/berrythewa/clipvault/internal/daemon"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newDaemonCmd() *cobra.Command {
	var (
		enableHTTP bool
		noCapture  bool
		detach     bool
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the clipboard daemon",
		Long: `Run the clipboard monitor with its socket server in the foreground.
Use --detach to start it in the background, and 'clipvault daemon stop' to stop it.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationDaemon: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if enableHTTP {
				cfg.Server.Enabled = true
			}
			if addr != "" {
				if err := cfg.Server.SetAddr(addr); err != nil {
					return fmt.Errorf("invalid --addr %q: %w", addr, err)
				}
				cfg.Server.Enabled = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			dataDir, err := config.DataDir()
			if err != nil {
				return fmt.Errorf("failed to resolve data directory: %w", err)
			}

			if detach && !daemon.IsDetached() {
				pid, err := daemon.Detach(dataDir, os.Args[1:], zapLogger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ClipVault daemon started (PID %d)\n", pid)
				fmt.Fprintf(cmd.OutOrStdout(), "Logs: %s\n", filepath.Join(dataDir, "logs", "daemon.log"))
				return nil
			}
			if daemon.IsDetached() {
				defer daemon.RemovePIDFile(dataDir)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			zapLogger.Info("Starting ClipVault daemon",
				zap.String("version", version),
				zap.Int("pid", os.Getpid()))
			return daemon.Run(ctx, cfg, zapLogger, daemon.Options{NoCapture: noCapture})
		},
	}

	cmd.Flags().BoolVar(&enableHTTP, "http", false, "serve the HTTP API")
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (host:port), implies --http")
	cmd.Flags().BoolVar(&noCapture, "no-capture", false, "start with capture paused")
	cmd.Flags().BoolVarP(&detach, "detach", "d", false, "run in the background")

	cmd.AddCommand(newDaemonStopCmd(), newDaemonStatusCmd())
	return cmd
}

func newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop a detached daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, err := config.DataDir()
			if err != nil {
				return fmt.Errorf("failed to resolve data directory: %w", err)
			}
			pid, err := daemon.Stop(dataDir)
			if errors.Is(err, daemon.ErrNotRunning) {
				fmt.Fprintln(cmd.OutOrStdout(), "ClipVault daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Sent stop signal to ClipVault daemon (PID %d)\n", pid)
			return nil
		},
	}
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the daemon is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			client := newClient()

			ping, err := client.Ping(cmd.Context())
			if err != nil {
				return clientError(err)
			}
			capturing, err := client.CaptureStatus(cmd.Context())
			if err != nil {
				return clientError(err)
			}

			fmt.Fprintf(out, "Daemon:  %s\n", ping.Status)
			fmt.Fprintf(out, "Socket:  %s\n", cfg.IPC.Socket())
			fmt.Fprintf(out, "Backend: %s\n", ping.Backend)
			fmt.Fprintf(out, "Capture: %s\n", captureState(capturing))
			if dataDir, err := config.DataDir(); err == nil {
				if pid, err := daemon.ReadPID(dataDir); err == nil {
					fmt.Fprintf(out, "PID:     %d\n", pid)
				}
			}
			return nil
		},
	}
}
