//go:build !linux

package daemon

import (
	"fmt"
	"runtime"

	"go.uber.org/zap"
)

// Detach is only implemented on Linux
func Detach(dataDir string, args []string, logger *zap.Logger) (int, error) {
	return 0, fmt.Errorf("detached mode not supported on %s; run the daemon under a service manager", runtime.GOOS)
}
