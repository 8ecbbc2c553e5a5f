package storage

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/berrythewa/clipvault/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances by step on every call. A zero step produces ties.
type fakeClock struct {
	mu   sync.Mutex
	t    time.Time
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), step: step}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(c.step)
	return c.t
}

type storeFactory func(t *testing.T, now func() time.Time) Store

func backends(t *testing.T) map[string]storeFactory {
	factories := map[string]storeFactory{
		BackendBolt: func(t *testing.T, now func() time.Time) Store {
			s, err := NewBoltStorage(BoltConfig{
				DBPath:  filepath.Join(t.TempDir(), "history.db"),
				Options: Options{Now: now},
			})
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
		BackendSQLite: func(t *testing.T, now func() time.Time) Store {
			s, err := NewSQLStorage(context.Background(), SQLConfig{
				URL:     "sqlite://" + filepath.Join(t.TempDir(), "history.sqlite"),
				Options: Options{Now: now},
			})
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}

	if url := os.Getenv("CLIPVAULT_TEST_POSTGRES_URL"); url != "" {
		factories[BackendPostgres] = func(t *testing.T, now func() time.Time) Store {
			s, err := NewSQLStorage(context.Background(), SQLConfig{URL: url, Options: Options{Now: now}})
			require.NoError(t, err)
			_, err = s.Clear(context.Background(), false)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		}
	}
	return factories
}

func textDraft(s string) *types.Draft {
	return &types.Draft{ContentType: types.TypeText, Text: s, Key: s}
}

func imageDraft(b []byte) *types.Draft {
	return &types.Draft{ContentType: types.TypeImage, Image: b, Key: fmt.Sprintf("%x", b)}
}

func insertTexts(t *testing.T, s Store, texts ...string) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(texts))
	for _, text := range texts {
		id, err := s.Insert(context.Background(), textDraft(text))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestStoreContract(t *testing.T) {
	for name, factory := range backends(t) {
		factory := factory
		t.Run(name, func(t *testing.T) {
			runStoreContract(t, factory)
		})
	}
}

func runStoreContract(t *testing.T, newStore storeFactory) {
	ctx := context.Background()

	t.Run("InsertAndGet", func(t *testing.T) {
		s := newStore(t, newFakeClock(time.Second).Now)

		textID, err := s.Insert(ctx, textDraft("  Hello World\n"))
		require.NoError(t, err)
		img := bytes.Repeat([]byte{0x89, 'P', 'N', 'G'}, 2048)
		imgID, err := s.Insert(ctx, imageDraft(img))
		require.NoError(t, err)
		assert.Greater(t, imgID, textID)

		item, err := s.Get(ctx, textID)
		require.NoError(t, err)
		assert.Equal(t, types.TypeText, item.ContentType)
		assert.Equal(t, "  Hello World\n", item.Text)
		assert.Nil(t, item.Image)
		assert.False(t, item.IsFavorite)
		assert.Empty(t, item.Tags)
		assert.Equal(t, time.UTC, item.CreatedAt.Location())

		item, err = s.Get(ctx, imgID)
		require.NoError(t, err)
		assert.Equal(t, types.TypeImage, item.ContentType)
		assert.Equal(t, img, item.Image)
		assert.Empty(t, item.Text)
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t, nil)
		_, err := s.Get(ctx, 9999)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("InsertRejectsEmptyDraft", func(t *testing.T) {
		s := newStore(t, nil)
		_, err := s.Insert(ctx, textDraft(""))
		assert.True(t, types.IsValidation(err))
		_, err = s.Insert(ctx, imageDraft(nil))
		assert.True(t, types.IsValidation(err))
		_, err = s.Insert(ctx, &types.Draft{ContentType: "video", Text: "x"})
		assert.True(t, types.IsValidation(err))
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		s := newStore(t, newFakeClock(time.Second).Now)
		ids := insertTexts(t, s, "one", "two", "three")

		items, total, err := s.List(ctx, types.Query{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, items, 3)
		assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, itemIDs(items))
	})

	t.Run("ListTiesBrokenByID", func(t *testing.T) {
		s := newStore(t, newFakeClock(0).Now)
		ids := insertTexts(t, s, "a", "b", "c")

		items, _, err := s.List(ctx, types.Query{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, itemIDs(items))
		assert.True(t, items[0].CreatedAt.Equal(items[2].CreatedAt))
	})

	t.Run("Pagination", func(t *testing.T) {
		s := newStore(t, newFakeClock(time.Second).Now)
		for i := 0; i < 12; i++ {
			insertTexts(t, s, fmt.Sprintf("item %02d", i))
		}

		tests := []struct {
			page int
			want int
		}{{1, 5}, {2, 5}, {3, 2}, {4, 0}, {40, 0}}
		for _, tt := range tests {
			items, total, err := s.List(ctx, types.Query{Page: tt.page, PageSize: 5})
			require.NoError(t, err)
			assert.Equal(t, 12, total, "page %d", tt.page)
			assert.Len(t, items, tt.want, "page %d", tt.page)
		}

		first, _, err := s.List(ctx, types.Query{Page: 1, PageSize: 5})
		require.NoError(t, err)
		assert.Equal(t, "item 11", first[0].Text)
		third, _, err := s.List(ctx, types.Query{Page: 3, PageSize: 5})
		require.NoError(t, err)
		assert.Equal(t, "item 00", third[1].Text)
	})

	t.Run("PageFarPastEnd", func(t *testing.T) {
		s := newStore(t, newFakeClock(time.Second).Now)
		insertTexts(t, s, "a", "b", "c")

		q := types.Query{Page: math.MaxInt / types.MaxPageSize, PageSize: types.MaxPageSize}
		items, total, err := s.List(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Empty(t, items)

		q.Page += 2
		_, _, err = s.List(ctx, q)
		assert.True(t, types.IsValidation(err), "got %v", err)
		assert.False(t, types.IsPersistence(err))
	})

	t.Run("ListIsDeterministic", func(t *testing.T) {
		s := newStore(t, newFakeClock(0).Now)
		insertTexts(t, s, "x", "y", "z", "w")
		q := types.Query{Page: 2, PageSize: 2}

		a, _, err := s.List(ctx, q)
		require.NoError(t, err)
		b, _, err := s.List(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, itemIDs(a), itemIDs(b))
	})

	t.Run("Filters", func(t *testing.T) {
		s := newStore(t, newFakeClock(time.Second).Now)
		ids := insertTexts(t, s, "first", "second")
		imgID, err := s.Insert(ctx, imageDraft([]byte{1, 2, 3}))
		require.NoError(t, err)
		_, err = s.UpdateFavorite(ctx, ids[0], true)
		require.NoError(t, err)

		tests := []struct {
			filter types.Filter
			want   []int64
		}{
			{types.FilterAll, []int64{imgID, ids[1], ids[0]}},
			{types.FilterText, []int64{ids[1], ids[0]}},
			{types.FilterImage, []int64{imgID}},
			{types.FilterFavorites, []int64{ids[0]}},
		}
		for _, tt := range tests {
			t.Run(tt.filter.String(), func(t *testing.T) {
				items, total, err := s.List(ctx, types.Query{Filter: tt.filter, Page: 1, PageSize: 10})
				require.NoError(t, err)
				assert.Equal(t, len(tt.want), total)
				assert.Equal(t, tt.want, itemIDs(items))
			})
		}
	})

	t.Run("SearchIsCaseInsensitive", func(t *testing.T) {
		s := newStore(t, newFakeClock(time.Second).Now)
		ids := insertTexts(t, s, "Hello World", "goodbye", "ÜBER cool")
		_, err := s.Insert(ctx, imageDraft([]byte("hello image bytes")))
		require.NoError(t, err)

		items, total, err := s.List(ctx, types.Query{Search: "hello", Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, []int64{ids[0]}, itemIDs(items))

		items, _, err = s.List(ctx, types.Query{Search: "WORLD", Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, []int64{ids[0]}, itemIDs(items))

		items, _, err = s.List(ctx, types.Query{Search: "über", Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, []int64{ids[2]}, itemIDs(items))

		items, total, err = s.List(ctx, types.Query{Search: "image", Filter: types.FilterImage, Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 0, total)
		assert.Empty(t, items)

		items, _, err = s.List(ctx, types.Query{Search: "100%_", Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("SearchWithFavoritesFilter", func(t *testing.T) {
		s := newStore(t, newFakeClock(time.Second).Now)
		ids := insertTexts(t, s, "alpha note", "alpha draft", "beta")
		_, err := s.UpdateFavorite(ctx, ids[1], true)
		require.NoError(t, err)

		items, total, err := s.List(ctx, types.Query{Filter: types.FilterFavorites, Search: "ALPHA", Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, []int64{ids[1]}, itemIDs(items))
	})

	t.Run("Favorites", func(t *testing.T) {
		s := newStore(t, nil)
		id := insertTexts(t, s, "fav me")[0]

		state, err := s.ToggleFavorite(ctx, id)
		require.NoError(t, err)
		assert.True(t, state)
		state, err = s.ToggleFavorite(ctx, id)
		require.NoError(t, err)
		assert.False(t, state)

		item, err := s.UpdateFavorite(ctx, id, true)
		require.NoError(t, err)
		assert.True(t, item.IsFavorite)

		_, err = s.ToggleFavorite(ctx, 424242)
		assert.ErrorIs(t, err, types.ErrNotFound)
		_, err = s.UpdateFavorite(ctx, 424242, true)
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("Tags", func(t *testing.T) {
		s := newStore(t, newFakeClock(time.Second).Now)
		ids := insertTexts(t, s, "tagged", "other")

		item, err := s.UpdateTags(ctx, ids[0], []string{"work", "#code", "work", "", "Work"})
		require.NoError(t, err)
		assert.Equal(t, []string{"#code", "Work", "work"}, item.Tags)

		item, err = s.ModifyTags(ctx, ids[0], func(cur []string) []string {
			return append(cur, "@home")
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"#code", "@home", "Work", "work"}, item.Tags)

		_, err = s.UpdateTags(ctx, ids[1], []string{"work", "misc"})
		require.NoError(t, err)

		tags, err := s.AllTags(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"#code", "@home", "Work", "misc", "work"}, tags)

		items, total, err := s.List(ctx, types.Query{Tag: "work", Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Equal(t, []int64{ids[1], ids[0]}, itemIDs(items))
		assert.Equal(t, []string{"misc", "work"}, items[0].Tags)

		got, err := s.Get(ctx, ids[0])
		require.NoError(t, err)
		assert.Equal(t, []string{"#code", "@home", "Work", "work"}, got.Tags)

		_, err = s.ModifyTags(ctx, 9999, func(cur []string) []string { return cur })
		assert.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("ConcurrentTagUpdates", func(t *testing.T) {
		s := newStore(t, nil)
		id := insertTexts(t, s, "busy")[0]

		const workers = 16
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				tag := fmt.Sprintf("tag-%02d", i)
				_, err := s.ModifyTags(ctx, id, func(cur []string) []string {
					return append(cur, tag)
				})
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		item, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Len(t, item.Tags, workers)
	})

	t.Run("Delete", func(t *testing.T) {
		s := newStore(t, newFakeClock(time.Second).Now)
		ids := insertTexts(t, s, "keep", "drop")
		_, err := s.UpdateTags(ctx, ids[1], []string{"gone"})
		require.NoError(t, err)

		deleted, err := s.Delete(ctx, ids[1])
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = s.Delete(ctx, ids[1])
		require.NoError(t, err)
		assert.False(t, deleted)

		_, err = s.Get(ctx, ids[1])
		assert.ErrorIs(t, err, types.ErrNotFound)

		tags, err := s.AllTags(ctx)
		require.NoError(t, err)
		assert.Empty(t, tags)

		next := insertTexts(t, s, "after")[0]
		assert.Greater(t, next, ids[1])

		kept, err := s.Get(ctx, ids[0])
		require.NoError(t, err)
		assert.Equal(t, "keep", kept.Text)
	})

	t.Run("Clear", func(t *testing.T) {
		s := newStore(t, newFakeClock(time.Second).Now)
		ids := insertTexts(t, s, "a", "b", "c")
		_, err := s.UpdateFavorite(ctx, ids[1], true)
		require.NoError(t, err)
		_, err = s.UpdateTags(ctx, ids[0], []string{"temp"})
		require.NoError(t, err)
		_, err = s.UpdateTags(ctx, ids[1], []string{"pinned"})
		require.NoError(t, err)

		n, err := s.Clear(ctx, true)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		items, total, err := s.List(ctx, types.Query{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, []int64{ids[1]}, itemIDs(items))

		tags, err := s.AllTags(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"pinned"}, tags)

		n, err = s.Clear(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, total, err = s.List(ctx, types.Query{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 0, total)
	})

	t.Run("MostRecent", func(t *testing.T) {
		s := newStore(t, newFakeClock(time.Second).Now)
		item, err := s.MostRecent(ctx)
		require.NoError(t, err)
		assert.Nil(t, item)

		ids := insertTexts(t, s, "older", "newer")
		item, err = s.MostRecent(ctx)
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.Equal(t, ids[1], item.ID)
		assert.Equal(t, "newer", item.Text)
	})

	t.Run("InvalidQuery", func(t *testing.T) {
		s := newStore(t, nil)
		_, _, err := s.List(ctx, types.Query{Page: -2, PageSize: 5})
		assert.True(t, types.IsValidation(err))
	})
}

func itemIDs(items []*types.Item) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}
