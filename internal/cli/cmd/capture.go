package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func captureState(on bool) string {
	if on {
		return "running"
	}
	return "stopped"
}

func newCaptureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Control clipboard capture in the daemon",
	}

	cmd.AddCommand(
		newCaptureActionCmd("start", "Start capturing clipboard changes"),
		newCaptureActionCmd("stop", "Pause capturing clipboard changes"),
		newCaptureActionCmd("status", "Show whether capture is running"),
	)
	return cmd
}

func newCaptureActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := newClient()
			var (
				capturing bool
				err       error
			)
			switch action {
			case "start":
				capturing, err = client.StartCapture(cmd.Context())
			case "stop":
				capturing, err = client.StopCapture(cmd.Context())
			default:
				capturing, err = client.CaptureStatus(cmd.Context())
			}
			if err != nil {
				return clientError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Capture %s\n", captureState(capturing))
			return nil
		},
	}
}
