package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/berrythewa/clipvault/internal/ipc"
	"github.com/berrythewa/clipvault/pkg/format"
)

func newClient() *ipc.Client {
	return ipc.NewClient(cfg.IPC.Socket())
}

// clientError turns an unreachable daemon into an actionable message
func clientError(err error) error {
	if errors.Is(err, ipc.ErrUnavailable) {
		return fmt.Errorf("clipvault daemon not available at %s (start it with 'clipvault daemon')", cfg.IPC.Socket())
	}
	return err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid item id %q", s)
	}
	return id, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// displayFlags are the formatting switches shared by list and show
type displayFlags struct {
	noColors bool
	noIcons  bool
}

func (d displayFlags) apply(opts format.Options) format.Options {
	if d.noColors {
		opts.UseColors = false
	}
	if d.noIcons {
		opts.UseIcons = false
	}
	return opts
}
