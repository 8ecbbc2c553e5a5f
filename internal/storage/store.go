package storage

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/berrythewa/clipvault/internal/types"
	"go.uber.org/zap"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendBolt     = "bolt"
)

// Store is the persistence contract shared by every backend. All mutations
// are durable when the call returns.
type Store interface {
	Insert(ctx context.Context, draft *types.Draft) (int64, error)
	Get(ctx context.Context, id int64) (*types.Item, error)
	UpdateFavorite(ctx context.Context, id int64, favorite bool) (*types.Item, error)
	ToggleFavorite(ctx context.Context, id int64) (bool, error)
	UpdateTags(ctx context.Context, id int64, tags []string) (*types.Item, error)
	// ModifyTags applies fn to the current tag set inside one write
	// transaction, so concurrent callers never lose each other's updates.
	ModifyTags(ctx context.Context, id int64, fn func(current []string) []string) (*types.Item, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Clear(ctx context.Context, keepFavorites bool) (int, error)
	List(ctx context.Context, q types.Query) ([]*types.Item, int, error)
	// MostRecent returns nil without error when the store is empty.
	MostRecent(ctx context.Context) (*types.Item, error)
	AllTags(ctx context.Context) ([]string, error)
	Backend() string
	Close() error
}

// Options carries the dependencies common to all backends
type Options struct {
	Logger *zap.Logger
	// Now stamps created_at on insert. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

func validateDraft(d *types.Draft) error {
	if d == nil {
		return types.NewValidationError("draft", "missing")
	}
	switch d.ContentType {
	case types.TypeText:
		if d.Text == "" {
			return types.NewValidationError("text_content", "empty")
		}
	case types.TypeImage:
		if len(d.Image) == 0 {
			return types.NewValidationError("image_data", "empty")
		}
	default:
		return types.NewValidationError("content_type", "unsupported content type "+string(d.ContentType))
	}
	return nil
}

// uniqueTags returns a sorted copy of tags without duplicates or empty strings
func uniqueTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// persistErr wraps backend failures. Sentinel and validation errors raised
// inside a transaction pass through untouched.
func persistErr(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, types.ErrNotFound) || types.IsValidation(err) || types.IsPersistence(err) {
		return err
	}
	return &types.PersistenceError{Op: op, Backend: backend, Err: err}
}
