package storage

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/berrythewa/clipvault/internal/types"
	"github.com/berrythewa/clipvault/pkg/compression"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var (
	itemsBucket     = []byte("items")
	timeIndexBucket = []byte("items_by_time")
	tagsBucket      = []byte("item_tags")
)

// BoltConfig holds configuration for BoltStorage initialization
type BoltConfig struct {
	DBPath string
	Options
}

// BoltStorage is the embedded store. Layout:
//
//	items          id -> JSON record
//	items_by_time  created_at micros | id -> empty
//	item_tags      id | tag -> empty
//
// Keys are big-endian so cursor order matches list order.
type BoltStorage struct {
	db     *bbolt.DB
	logger *zap.Logger
	now    func() time.Time
}

// boltRecord is the on-disk form of an item. Text and image payloads share
// Data and are gzip-compressed above compression.Threshold.
type boltRecord struct {
	ID          int64             `json:"id"`
	ContentType types.ContentType `json:"content_type"`
	Data        []byte            `json:"data"`
	Compressed  bool              `json:"compressed,omitempty"`
	CreatedAt   int64             `json:"created_at"`
	IsFavorite  bool              `json:"is_favorite"`
}

// NewBoltStorage opens (or creates) the bolt file and its buckets
func NewBoltStorage(cfg BoltConfig) (*BoltStorage, error) {
	opts := cfg.Options.withDefaults()

	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := bbolt.Open(cfg.DBPath, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, persistErr(BackendBolt, "open database", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{itemsBucket, timeIndexBucket, tagsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, persistErr(BackendBolt, "create buckets", err)
	}

	opts.Logger.Debug("BoltStorage initialized", zap.String("db_path", cfg.DBPath))

	return &BoltStorage{
		db:     db,
		logger: opts.Logger,
		now:    opts.Now,
	}, nil
}

func (s *BoltStorage) Backend() string { return BackendBolt }

// Close closes the database file
func (s *BoltStorage) Close() error {
	return s.db.Close()
}

// Insert persists a new item and returns its id
func (s *BoltStorage) Insert(ctx context.Context, draft *types.Draft) (int64, error) {
	if err := validateDraft(draft); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	payload := []byte(draft.Text)
	if draft.ContentType == types.TypeImage {
		payload = draft.Image
	}
	data, compressed, err := compression.Compress(payload)
	if err != nil {
		return 0, persistErr(BackendBolt, "compress item", err)
	}

	rec := boltRecord{
		ContentType: draft.ContentType,
		Data:        data,
		Compressed:  compressed,
		CreatedAt:   types.Timestamp(s.now()).UnixMicro(),
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		items := tx.Bucket(itemsBucket)
		seq, err := items.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate id: %w", err)
		}
		rec.ID = int64(seq)

		if err := putRecord(tx, &rec); err != nil {
			return err
		}
		return tx.Bucket(timeIndexBucket).Put(timeKey(rec.CreatedAt, rec.ID), []byte{})
	})
	if err != nil {
		return 0, persistErr(BackendBolt, "insert item", err)
	}

	s.logger.Debug("Item inserted",
		zap.Int64("id", rec.ID),
		zap.String("type", string(rec.ContentType)),
		zap.Bool("compressed", compressed))

	return rec.ID, nil
}

// Get returns the item with the given id
func (s *BoltStorage) Get(ctx context.Context, id int64) (*types.Item, error) {
	var item *types.Item
	err := s.db.View(func(tx *bbolt.Tx) error {
		rec, err := getRecord(tx, id)
		if err != nil {
			return err
		}
		item, err = rec.toItem(loadTags(tx, id))
		return err
	})
	if err != nil {
		return nil, persistErr(BackendBolt, "get item", err)
	}
	return item, nil
}

// UpdateFavorite sets the favorite flag
func (s *BoltStorage) UpdateFavorite(ctx context.Context, id int64, favorite bool) (*types.Item, error) {
	var item *types.Item
	err := s.db.Update(func(tx *bbolt.Tx) error {
		rec, err := getRecord(tx, id)
		if err != nil {
			return err
		}
		rec.IsFavorite = favorite
		if err := putRecord(tx, rec); err != nil {
			return err
		}
		item, err = rec.toItem(loadTags(tx, id))
		return err
	})
	if err != nil {
		return nil, persistErr(BackendBolt, "update favorite", err)
	}
	return item, nil
}

// ToggleFavorite flips the favorite flag and returns the new state
func (s *BoltStorage) ToggleFavorite(ctx context.Context, id int64) (bool, error) {
	var state bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		rec, err := getRecord(tx, id)
		if err != nil {
			return err
		}
		rec.IsFavorite = !rec.IsFavorite
		state = rec.IsFavorite
		return putRecord(tx, rec)
	})
	if err != nil {
		return false, persistErr(BackendBolt, "toggle favorite", err)
	}
	return state, nil
}

// UpdateTags replaces the tag set of an item
func (s *BoltStorage) UpdateTags(ctx context.Context, id int64, tags []string) (*types.Item, error) {
	return s.ModifyTags(ctx, id, func([]string) []string { return tags })
}

// ModifyTags runs fn against the current tags within a single write transaction
func (s *BoltStorage) ModifyTags(ctx context.Context, id int64, fn func([]string) []string) (*types.Item, error) {
	var item *types.Item
	err := s.db.Update(func(tx *bbolt.Tx) error {
		rec, err := getRecord(tx, id)
		if err != nil {
			return err
		}

		current := loadTags(tx, id)
		next := uniqueTags(fn(append([]string(nil), current...)))

		b := tx.Bucket(tagsBucket)
		for _, tag := range current {
			if err := b.Delete(tagKey(id, tag)); err != nil {
				return err
			}
		}
		for _, tag := range next {
			if err := b.Put(tagKey(id, tag), []byte{}); err != nil {
				return err
			}
		}

		item, err = rec.toItem(next)
		return err
	})
	if err != nil {
		return nil, persistErr(BackendBolt, "update tags", err)
	}
	return item, nil
}

// Delete removes an item with its tag associations. Returns false when the
// id does not exist.
func (s *BoltStorage) Delete(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		rec, err := getRecord(tx, id)
		if err == types.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		deleted = true
		return deleteRecord(tx, rec)
	})
	if err != nil {
		return false, persistErr(BackendBolt, "delete item", err)
	}
	return deleted, nil
}

// Clear removes every item, or every non-favorite item when keepFavorites is set
func (s *BoltStorage) Clear(ctx context.Context, keepFavorites bool) (int, error) {
	var count int
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var doomed []*boltRecord
		err := tx.Bucket(itemsBucket).ForEach(func(k, v []byte) error {
			var rec boltRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode item %d: %w", btoi(k), err)
			}
			if keepFavorites && rec.IsFavorite {
				return nil
			}
			doomed = append(doomed, &rec)
			return nil
		})
		if err != nil {
			return err
		}

		for _, rec := range doomed {
			if err := deleteRecord(tx, rec); err != nil {
				return err
			}
		}
		count = len(doomed)
		return nil
	})
	if err != nil {
		return 0, persistErr(BackendBolt, "clear history", err)
	}

	s.logger.Info("History cleared",
		zap.Int("deleted_items", count),
		zap.Bool("keep_favorites", keepFavorites))
	return count, nil
}

// List walks the time index newest first and pages over the matching items
func (s *BoltStorage) List(ctx context.Context, q types.Query) ([]*types.Item, int, error) {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, 0, err
	}

	search := strings.ToLower(q.Search)
	offset := q.Offset()
	items := make([]*types.Item, 0, q.PageSize)
	var total int

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(timeIndexBucket).Cursor()
		tags := tx.Bucket(tagsBucket)

		for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
			id := btoi(k[8:])
			rec, err := getRecord(tx, id)
			if err != nil {
				return err
			}

			if !matchesFilter(rec, q.Filter) {
				continue
			}
			if q.Tag != "" && tags.Get(tagKey(id, q.Tag)) == nil {
				continue
			}
			if search != "" {
				if rec.ContentType != types.TypeText {
					continue
				}
				text, err := rec.payload()
				if err != nil {
					return err
				}
				if !strings.Contains(strings.ToLower(string(text)), search) {
					continue
				}
			}

			total++
			if total <= offset || len(items) >= q.PageSize {
				continue
			}
			item, err := rec.toItem(loadTags(tx, id))
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, 0, persistErr(BackendBolt, "list items", err)
	}
	return items, total, nil
}

// MostRecent returns the newest item or nil when the store is empty
func (s *BoltStorage) MostRecent(ctx context.Context) (*types.Item, error) {
	var item *types.Item
	err := s.db.View(func(tx *bbolt.Tx) error {
		k, _ := tx.Bucket(timeIndexBucket).Cursor().Last()
		if k == nil {
			return nil
		}
		id := btoi(k[8:])
		rec, err := getRecord(tx, id)
		if err != nil {
			return err
		}
		item, err = rec.toItem(loadTags(tx, id))
		return err
	})
	if err != nil {
		return nil, persistErr(BackendBolt, "get most recent item", err)
	}
	return item, nil
}

// AllTags returns every distinct tag in use
func (s *BoltStorage) AllTags(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(tagsBucket).ForEach(func(k, _ []byte) error {
			seen[string(k[8:])] = struct{}{}
			return nil
		})
	})
	if err != nil {
		return nil, persistErr(BackendBolt, "list tags", err)
	}

	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags, nil
}

func matchesFilter(rec *boltRecord, f types.Filter) bool {
	switch f {
	case types.FilterText:
		return rec.ContentType == types.TypeText
	case types.FilterImage:
		return rec.ContentType == types.TypeImage
	case types.FilterFavorites:
		return rec.IsFavorite
	default:
		return true
	}
}

func (r *boltRecord) payload() ([]byte, error) {
	if !r.Compressed {
		return r.Data, nil
	}
	data, err := compression.Decompress(r.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress item %d: %w", r.ID, err)
	}
	return data, nil
}

func (r *boltRecord) toItem(tags []string) (*types.Item, error) {
	data, err := r.payload()
	if err != nil {
		return nil, err
	}
	if tags == nil {
		tags = []string{}
	}
	item := &types.Item{
		ID:          r.ID,
		ContentType: r.ContentType,
		CreatedAt:   time.UnixMicro(r.CreatedAt).UTC(),
		IsFavorite:  r.IsFavorite,
		Tags:        tags,
	}
	if r.ContentType == types.TypeImage {
		item.Image = data
	} else {
		item.Text = string(data)
	}
	return item, nil
}

func getRecord(tx *bbolt.Tx, id int64) (*boltRecord, error) {
	v := tx.Bucket(itemsBucket).Get(itob(id))
	if v == nil {
		return nil, types.ErrNotFound
	}
	var rec boltRecord
	if err := json.Unmarshal(v, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode item %d: %w", id, err)
	}
	return &rec, nil
}

func putRecord(tx *bbolt.Tx, rec *boltRecord) error {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode item %d: %w", rec.ID, err)
	}
	return tx.Bucket(itemsBucket).Put(itob(rec.ID), encoded)
}

func deleteRecord(tx *bbolt.Tx, rec *boltRecord) error {
	tags := tx.Bucket(tagsBucket)
	for _, tag := range loadTags(tx, rec.ID) {
		if err := tags.Delete(tagKey(rec.ID, tag)); err != nil {
			return err
		}
	}
	if err := tx.Bucket(timeIndexBucket).Delete(timeKey(rec.CreatedAt, rec.ID)); err != nil {
		return err
	}
	return tx.Bucket(itemsBucket).Delete(itob(rec.ID))
}

// loadTags returns the tags of id in byte order, which matches sort.Strings
func loadTags(tx *bbolt.Tx, id int64) []string {
	prefix := itob(id)
	tags := []string{}
	c := tx.Bucket(tagsBucket).Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		tags = append(tags, string(k[len(prefix):]))
	}
	return tags
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b[:8]))
}

func timeKey(micros, id int64) []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[:8], uint64(micros))
	binary.BigEndian.PutUint64(b[8:], uint64(id))
	return b
}

func tagKey(id int64, tag string) []byte {
	return append(itob(id), tag...)
}
