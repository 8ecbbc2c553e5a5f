// Package history exposes the clipboard history operations shared by the
// IPC server, the HTTP API and the daemon.
package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/berrythewa/clipvault/internal/clipboard"
	"github.com/berrythewa/clipvault/internal/storage"
	"github.com/berrythewa/clipvault/internal/types"
	"go.uber.org/zap"
)

// Service is safe for concurrent use
type Service struct {
	store     storage.Store
	monitor   *clipboard.Monitor
	clipboard clipboard.Clipboard
	logger    *zap.Logger
}

func New(store storage.Store, monitor *clipboard.Monitor, clip clipboard.Clipboard, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		monitor:   monitor,
		clipboard: clip,
		logger:    logger,
	}
}

// Backend names the storage backend in use
func (s *Service) Backend() string {
	return s.store.Backend()
}

func (s *Service) StartCapture() {
	s.monitor.Start()
}

func (s *Service) StopCapture() {
	s.monitor.Stop()
}

func (s *Service) IsCapturing() bool {
	return s.monitor.IsRunning()
}

// AddText records text as if it had been captured. Adding the same text as
// the most recent item returns that item's id with inserted false.
func (s *Service) AddText(ctx context.Context, text string) (int64, bool, error) {
	if strings.TrimSpace(text) == "" {
		return 0, false, types.NewValidationError("text", "must not be empty")
	}
	return s.ingest(ctx, clipboard.TextCapture(text))
}

func (s *Service) AddImage(ctx context.Context, data []byte) (int64, bool, error) {
	if len(data) == 0 {
		return 0, false, types.NewValidationError("image", "must not be empty")
	}
	return s.ingest(ctx, clipboard.ImageCapture(data))
}

func (s *Service) ingest(ctx context.Context, c clipboard.Capture) (int64, bool, error) {
	id, inserted, err := s.monitor.Ingest(ctx, c)
	if err != nil {
		return 0, false, err
	}
	if !inserted {
		s.logger.Debug("Duplicate of most recent item ignored", zap.Int64("id", id))
	}
	return id, inserted, nil
}

func (s *Service) List(ctx context.Context, q types.Query) (*types.Page, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	// Blank search means no search; otherwise the text is matched as given.
	if strings.TrimSpace(q.Search) == "" {
		q.Search = ""
	}
	q.Tag = strings.TrimSpace(q.Tag)

	items, total, err := s.store.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return types.NewPage(q, items, total), nil
}

func (s *Service) Get(ctx context.Context, id int64) (*types.Item, error) {
	return s.store.Get(ctx, id)
}

// Delete reports false when no item had the id
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.logger.Info("Item deleted", zap.Int64("id", id))
	}
	return deleted, nil
}

// Clear removes every item, or every non-favorite item when keepFavorites
// is set, and returns the number removed.
func (s *Service) Clear(ctx context.Context, keepFavorites bool) (int, error) {
	return s.store.Clear(ctx, keepFavorites)
}

// ToggleFavorite flips the favorite flag and returns the new value
func (s *Service) ToggleFavorite(ctx context.Context, id int64) (bool, error) {
	return s.store.ToggleFavorite(ctx, id)
}

// AddTag attaches a trimmed tag. An empty tag leaves the set unchanged and
// returns it alongside a validation error.
func (s *Service) AddTag(ctx context.Context, id int64, tag string) ([]string, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		item, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return item.Tags, types.NewValidationError("tag", "must not be empty")
	}

	item, err := s.store.ModifyTags(ctx, id, func(current []string) []string {
		return append(current, tag)
	})
	if err != nil {
		return nil, err
	}
	return item.Tags, nil
}

// RemoveTag detaches a trimmed tag. Removing an absent tag is not an error.
func (s *Service) RemoveTag(ctx context.Context, id int64, tag string) ([]string, error) {
	tag = strings.TrimSpace(tag)
	item, err := s.store.ModifyTags(ctx, id, func(current []string) []string {
		kept := make([]string, 0, len(current))
		for _, t := range current {
			if t != tag {
				kept = append(kept, t)
			}
		}
		return kept
	})
	if err != nil {
		return nil, err
	}
	return item.Tags, nil
}

// SetTags replaces the tag set. Tags are trimmed, empties are dropped and
// duplicates collapse.
func (s *Service) SetTags(ctx context.Context, id int64, tags []string) ([]string, error) {
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	item, err := s.store.UpdateTags(ctx, id, cleaned)
	if err != nil {
		return nil, err
	}
	return item.Tags, nil
}

func (s *Service) AllTags(ctx context.Context) ([]string, error) {
	return s.store.AllTags(ctx)
}

// Copy writes a stored item back to the clipboard
func (s *Service) Copy(ctx context.Context, id int64) (*types.Item, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.clipboard.Write(clipboard.CaptureOf(item)); err != nil {
		return nil, fmt.Errorf("failed to write clipboard: %w", err)
	}
	s.logger.Info("Item copied to clipboard", zap.Int64("id", id))
	return item, nil
}
