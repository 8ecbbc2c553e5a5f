package clipboard

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrUnsupported is returned by backends that cannot handle a content kind
var ErrUnsupported = errors.New("clipboard content kind not supported")

// Kind discriminates a raw clipboard sample
type Kind int

const (
	KindText Kind = iota
	KindImage
)

func (k Kind) String() string {
	if k == KindImage {
		return "image"
	}
	return "text"
}

// Capture is one raw sample of clipboard content
type Capture struct {
	Kind  Kind
	Text  string
	Image []byte
}

func TextCapture(text string) Capture {
	return Capture{Kind: KindText, Text: text}
}

func ImageCapture(data []byte) Capture {
	return Capture{Kind: KindImage, Image: data}
}

// Clipboard is a source and sink of clipboard content
type Clipboard interface {
	Read() (Capture, error)
	Write(Capture) error
}

// MemoryClipboard keeps the last known value in process memory. It never
// fails, which makes it the headless fallback.
type MemoryClipboard struct {
	mu   sync.RWMutex
	last Capture
}

func NewMemoryClipboard() *MemoryClipboard {
	return &MemoryClipboard{}
}

func (c *MemoryClipboard) Read() (Capture, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last, nil
}

func (c *MemoryClipboard) Write(capture Capture) error {
	c.mu.Lock()
	c.last = capture
	c.mu.Unlock()
	return nil
}

// FallbackClipboard reads from the primary backend and falls back to the
// last value it saw when the primary fails.
type FallbackClipboard struct {
	primary Clipboard
	memory  *MemoryClipboard
	logger  *zap.Logger
}

func NewFallbackClipboard(primary Clipboard, logger *zap.Logger) *FallbackClipboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackClipboard{
		primary: primary,
		memory:  NewMemoryClipboard(),
		logger:  logger,
	}
}

func (c *FallbackClipboard) Read() (Capture, error) {
	capture, err := c.primary.Read()
	if err != nil {
		c.logger.Debug("Clipboard read failed, using last known value", zap.Error(err))
		return c.memory.Read()
	}
	c.memory.Write(capture)
	return capture, nil
}

// Write updates the last known value even when the primary rejects the write
func (c *FallbackClipboard) Write(capture Capture) error {
	c.memory.Write(capture)
	if err := c.primary.Write(capture); err != nil {
		c.logger.Warn("Clipboard write failed, kept in memory only",
			zap.String("kind", capture.Kind.String()),
			zap.Error(err))
	}
	return nil
}

// HasChanged forwards change tracking from the primary backend
func (c *FallbackClipboard) HasChanged() bool {
	if tracker, ok := IsChangeTracker(c.primary); ok {
		return tracker.HasChanged()
	}
	return true
}
