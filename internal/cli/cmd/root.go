package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/berrythewa/clipvault/internal/common"
	"github.com/berrythewa/clipvault/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "clipvault",
		Short: "Clipboard history with search, favorites and tags",
		Long: `ClipVault records your clipboard in the background and keeps a searchable history:
  • Text and image capture with duplicate suppression
  • Favorites and tags, including #category and @person tags
  • PostgreSQL or SQLite storage with an embedded fallback
  • Unix socket IPC for this CLI and an optional HTTP API`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if zapLogger != nil {
				zapLogger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $CLIPVAULT_CONFIG_DIR/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "", "daemon socket path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "minimize output")

	rootCmd.AddCommand(
		newDaemonCmd(),
		newListCmd(),
		newShowCmd(),
		newAddCmd(),
		newDeleteCmd(),
		newClearCmd(),
		newFavCmd(),
		newCopyCmd(),
		newTagCmd(),
		newCaptureCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs the CLI and exits non-zero on error
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[annotationSkipConfig] == "true" {
		zapLogger = zap.NewNop()
		return nil
	}

	loaded, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if socketPath != "" {
		loaded.IPC.SocketPath = socketPath
	}
	cfg = loaded

	if cmd.Annotations[annotationDaemon] == "true" {
		logCfg := cfg.Log
		switch {
		case verbose:
			logCfg.Level = "debug"
		case quiet:
			logCfg.Level = "warn"
		}
		zapLogger, err = common.NewLogger(logCfg)
		if err != nil {
			return fmt.Errorf("failed to setup logger: %w", err)
		}
		return nil
	}

	zapLogger = newClientLogger()
	return nil
}

// newClientLogger logs to stderr at warn level, or debug with --verbose
func newClientLogger() *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(core)
}
