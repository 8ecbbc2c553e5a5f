package ipc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"
)

const socketName = "clipvault.sock"

// DefaultTimeout bounds one request/response exchange
const DefaultTimeout = 5 * time.Second

// ErrUnavailable is returned when the daemon cannot be reached
var ErrUnavailable = errors.New("clipvault daemon not available")

var errBadRequest = errors.New("bad request")

// DefaultSocketPath returns the socket under XDG_RUNTIME_DIR, or /tmp when
// that is unset.
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, socketName)
	}
	return filepath.Join(os.TempDir(), socketName)
}

func deadline(ctx context.Context, timeout time.Duration) time.Time {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := time.Now().Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		return ctxDeadline
	}
	return d
}
