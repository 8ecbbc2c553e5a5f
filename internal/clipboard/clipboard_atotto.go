package clipboard

import (
	"fmt"

	atottoClip "github.com/atotto/clipboard"
)

// SystemClipboard is the OS clipboard through atotto/clipboard. It only
// handles text; on Linux it needs xclip, xsel or wl-clipboard.
type SystemClipboard struct{}

func NewSystemClipboard() *SystemClipboard {
	return &SystemClipboard{}
}

// Available reports whether the host has a usable clipboard
func (c *SystemClipboard) Available() bool {
	return !atottoClip.Unsupported
}

func (c *SystemClipboard) Read() (Capture, error) {
	if atottoClip.Unsupported {
		return Capture{}, fmt.Errorf("failed to read clipboard: %w", ErrUnsupported)
	}
	text, err := atottoClip.ReadAll()
	if err != nil {
		return Capture{}, fmt.Errorf("failed to read clipboard: %w", err)
	}
	return TextCapture(text), nil
}

func (c *SystemClipboard) Write(capture Capture) error {
	if capture.Kind != KindText {
		return fmt.Errorf("failed to write clipboard: %w", ErrUnsupported)
	}
	if err := atottoClip.WriteAll(capture.Text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}
