package clipboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/berrythewa/clipvault/internal/storage"
	"github.com/berrythewa/clipvault/internal/types"
	"go.uber.org/zap"
)

const DefaultInterval = time.Second

// MonitorConfig holds the polling settings
type MonitorConfig struct {
	Interval time.Duration
	// IgnoreImages drops image captures during polling. Explicit Ingest
	// calls are not affected.
	IgnoreImages bool
}

// Monitor samples the clipboard on a fixed interval and records new
// content. It starts STOPPED.
type Monitor struct {
	interval     time.Duration
	ignoreImages bool
	clipboard    Clipboard
	store        storage.Store
	logger       *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	// ingestMu makes the most-recent check and the insert one step.
	ingestMu sync.Mutex
	// lastSeen is the key of the clipboard content at the previous tick.
	lastSeen string
}

func NewMonitor(cfg MonitorConfig, clip Clipboard, store storage.Store, logger *zap.Logger) *Monitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		interval:     interval,
		ignoreImages: cfg.IgnoreImages,
		clipboard:    clip,
		store:        store,
		logger:       logger,
	}
}

// Start begins sampling. Calling it while running is a no-op.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true

	go m.run(ctx, m.done)

	m.logger.Info("Clipboard monitor started", zap.Duration("interval", m.interval))
}

// Stop halts sampling and waits for an in-flight tick to finish. Calling it
// while stopped is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	m.cancel()
	<-m.done
	m.running = false
	m.cancel = nil
	m.done = nil

	m.logger.Info("Clipboard monitor stopped")
}

func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) Interval() time.Duration {
	return m.interval
}

func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Both channels may be ready; cancellation wins.
			if ctx.Err() != nil {
				return
			}
			m.tick(ctx)
		}
	}
}

// tick performs one sample. Errors are logged, never returned.
func (m *Monitor) tick(ctx context.Context) {
	if tracker, ok := IsChangeTracker(m.clipboard); ok && !tracker.HasChanged() {
		return
	}

	capture, err := m.clipboard.Read()
	if err != nil {
		m.logger.Debug("Error reading clipboard", zap.Error(err))
		return
	}

	draft, ok := Normalize(capture)
	if !ok || (m.ignoreImages && draft.ContentType == types.TypeImage) {
		return
	}

	seen := string(draft.ContentType) + ":" + draft.Key
	m.ingestMu.Lock()
	unchanged := seen == m.lastSeen
	m.ingestMu.Unlock()
	if unchanged {
		return
	}

	if _, _, err := m.ingest(ctx, draft); err != nil {
		m.logger.Error("Failed to record clipboard content", zap.Error(err))
		return
	}

	m.ingestMu.Lock()
	m.lastSeen = seen
	m.ingestMu.Unlock()
}

// Ingest runs a capture through normalization, the duplicate check and the
// insert. It returns the id of the stored item and whether it was new.
// Blank content yields (0, false, nil).
func (m *Monitor) Ingest(ctx context.Context, c Capture) (int64, bool, error) {
	draft, ok := Normalize(c)
	if !ok {
		return 0, false, nil
	}
	return m.ingest(ctx, draft)
}

func (m *Monitor) ingest(ctx context.Context, draft *types.Draft) (int64, bool, error) {
	m.ingestMu.Lock()
	defer m.ingestMu.Unlock()

	recent, err := m.store.MostRecent(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("failed to load most recent item: %w", err)
	}
	if SameContent(draft, recent) {
		return recent.ID, false, nil
	}

	id, err := m.store.Insert(ctx, draft)
	if err != nil {
		return 0, false, fmt.Errorf("failed to insert item: %w", err)
	}

	size := len(draft.Text)
	if draft.ContentType == types.TypeImage {
		size = len(draft.Image)
	}
	m.logger.Info("New clipboard content recorded",
		zap.Int64("id", id),
		zap.String("type", string(draft.ContentType)),
		zap.Int("size", size))

	return id, true, nil
}
