//go:build linux

package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
)

// Detach re-executes the current binary in a new session with stdout and
// stderr appended to the daemon log. It returns the child's pid.
func Detach(dataDir string, args []string, logger *zap.Logger) (int, error) {
	executable, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}

	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create log directory: %w", err)
	}
	logF, err := os.OpenFile(filepath.Join(logDir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer logF.Close()

	childArgs := filterDetachArgs(args)
	logger.Debug("Starting detached daemon",
		zap.String("executable", executable),
		zap.Strings("args", childArgs))

	cmd := exec.Command(executable, childArgs...)
	cmd.Stdout = logF
	cmd.Stderr = logF
	cmd.Stdin = nil
	cmd.Env = append(os.Environ(), detachedEnv+"=1")

	// Detach from process group and create a new session
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start daemon process: %w", err)
	}

	pid := cmd.Process.Pid
	if err := writePIDFile(dataDir, pid); err != nil {
		return pid, err
	}

	// Release so the parent can exit without leaving a zombie
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("failed to release daemon process: %w", err)
	}

	logger.Info("Daemon started", zap.Int("pid", pid), zap.String("pid_file", PIDFile(dataDir)))
	return pid, nil
}
