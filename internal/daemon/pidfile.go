package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const (
	pidFileName = "clipvault.pid"
	logFileName = "daemon.log"
	// detachedEnv marks a process started by Detach
	detachedEnv = "CLIPVAULT_DAEMON"
)

// ErrNotRunning is returned when no PID file names a live daemon
var ErrNotRunning = errors.New("clipvault daemon is not running")

// PIDFile returns the PID file location under dataDir
func PIDFile(dataDir string) string {
	return filepath.Join(dataDir, "run", pidFileName)
}

// IsDetached reports whether this process was started by Detach
func IsDetached() bool {
	return os.Getenv(detachedEnv) == "1"
}

func writePIDFile(dataDir string, pid int) error {
	path := PIDFile(dataDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create pid directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0644); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	return nil
}

// ReadPID returns the pid recorded under dataDir
func ReadPID(dataDir string) (int, error) {
	data, err := os.ReadFile(PIDFile(dataDir))
	if os.IsNotExist(err) {
		return 0, ErrNotRunning
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID in file: %q", string(data))
	}
	return pid, nil
}

// RemovePIDFile deletes the PID file if it names this process
func RemovePIDFile(dataDir string) {
	if pid, err := ReadPID(dataDir); err == nil && pid == os.Getpid() {
		os.Remove(PIDFile(dataDir))
	}
}

// Stop sends SIGTERM to the daemon recorded under dataDir
func Stop(dataDir string) (int, error) {
	pid, err := ReadPID(dataDir)
	if err != nil {
		return 0, err
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return pid, fmt.Errorf("failed to find process: %w", err)
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		os.Remove(PIDFile(dataDir))
		if errors.Is(err, os.ErrProcessDone) {
			return pid, ErrNotRunning
		}
		return pid, fmt.Errorf("failed to signal process %d: %w", pid, err)
	}
	return pid, nil
}

func filterDetachArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == "--detach" || arg == "--detach=true" {
			continue
		}
		out = append(out, arg)
	}
	return out
}
