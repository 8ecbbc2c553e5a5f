package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/berrythewa/clipvault/internal/clipboard"
	"github.com/berrythewa/clipvault/internal/history"
	"github.com/berrythewa/clipvault/internal/storage"
	"github.com/berrythewa/clipvault/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type apiEnv struct {
	server *httptest.Server
	svc    *history.Service
	clip   *clipboard.MemoryClipboard
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)

	store, err := storage.NewBoltStorage(storage.BoltConfig{DBPath: filepath.Join(t.TempDir(), "api.db")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clip := clipboard.NewMemoryClipboard()
	monitor := clipboard.NewMonitor(clipboard.MonitorConfig{Interval: 10 * time.Millisecond}, clip, store, logger)
	t.Cleanup(monitor.Stop)
	svc := history.New(store, monitor, clip, logger)

	server := httptest.NewServer(NewRouter(svc, logger))
	t.Cleanup(server.Close)
	return &apiEnv{server: server, svc: svc, clip: clip}
}

func (e *apiEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (e *apiEnv) addText(t *testing.T, text string) int64 {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/items", addRequest{Text: text})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[addResponse](t, resp).ID
}

func TestHealth(t *testing.T) {
	env := newAPIEnv(t)
	resp := env.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, healthResponse{Status: "ok", Backend: storage.BackendBolt}, decode[healthResponse](t, resp))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestItemsFlow(t *testing.T) {
	env := newAPIEnv(t)
	foo := env.addText(t, "foo")
	env.addText(t, "bar")

	resp := env.do(t, http.MethodPost, "/api/items", addRequest{Text: "bar"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[addResponse](t, resp).Inserted)

	resp = env.do(t, http.MethodGet, "/api/items", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[pageResponse](t, resp)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "bar", page.Items[0].Text)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 20, page.PageSize)

	resp = env.do(t, http.MethodPost, "/api/item/"+itoa(foo)+"/favorite", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]bool{"is_favorite": true}, decode[map[string]bool](t, resp))

	resp = env.do(t, http.MethodGet, "/api/items?filter=favorites", nil)
	page = decode[pageResponse](t, resp)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "foo", page.Items[0].Text)

	resp = env.do(t, http.MethodPost, "/api/items/clear", clearRequest{KeepFavorites: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]int{"deleted": 1}, decode[map[string]int](t, resp))

	resp = env.do(t, http.MethodGet, "/api/item/"+itoa(foo), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	item := decode[itemResponse](t, resp)
	assert.True(t, item.IsFavorite)
	assert.Equal(t, []string{}, item.Tags)

	resp = env.do(t, http.MethodPost, "/api/items/clear", clearRequest{KeepFavorites: false})
	assert.Equal(t, map[string]int{"deleted": 1}, decode[map[string]int](t, resp))
}

func TestClearDefaultsToKeepingFavorites(t *testing.T) {
	for name, body := range map[string]any{
		"NoBody":      nil,
		"EmptyObject": map[string]any{},
	} {
		t.Run(name, func(t *testing.T) {
			env := newAPIEnv(t)
			fav := env.addText(t, "keep me")
			env.addText(t, "drop me")
			resp := env.do(t, http.MethodPost, "/api/item/"+itoa(fav)+"/favorite", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			resp = env.do(t, http.MethodPost, "/api/items/clear", body)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, map[string]int{"deleted": 1}, decode[map[string]int](t, resp))

			resp = env.do(t, http.MethodGet, "/api/items", nil)
			page := decode[pageResponse](t, resp)
			require.Len(t, page.Items, 1)
			assert.Equal(t, "keep me", page.Items[0].Text)
		})
	}
}

func TestListQueryParams(t *testing.T) {
	env := newAPIEnv(t)
	for _, s := range []string{"alpha one", "beta", "alpha two"} {
		env.addText(t, s)
	}

	resp := env.do(t, http.MethodGet, "/api/items?search=ALPHA&per_page=1&page=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[pageResponse](t, resp)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "alpha one", page.Items[0].Text)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.TotalPages)

	tests := []struct {
		name  string
		query string
	}{
		{"UnknownFilter", "filter=video"},
		{"BadPage", "page=abc"},
		{"NegativePage", "page=-1"},
		{"HugePage", "per_page=100000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodGet, "/api/items?"+tt.query, nil)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, codeValidation, decode[errorResponse](t, resp).Code)
		})
	}
}

func TestImageItemsUseDataURLs(t *testing.T) {
	env := newAPIEnv(t)
	id, _, err := env.svc.AddImage(context.Background(), []byte{1, 2, 3})
	require.NoError(t, err)

	resp := env.do(t, http.MethodGet, "/api/item/"+itoa(id), nil)
	item := decode[itemResponse](t, resp)
	assert.Equal(t, types.TypeImage, item.ContentType)
	assert.Equal(t, "data:image/png;base64,AQID", item.Image)
	assert.Empty(t, item.Text)
}

func TestTagRoutes(t *testing.T) {
	env := newAPIEnv(t)
	id := env.addText(t, "tag me")
	base := "/api/item/" + itoa(id) + "/tags"

	resp := env.do(t, http.MethodPost, base, tagRequest{Tag: " work "})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"work"}, decode[tagsResponse](t, resp).Tags)

	resp = env.do(t, http.MethodPost, base, tagRequest{Tag: "  "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPut, base, tagsRequest{Tags: []string{"b", "a", "b"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"a", "b"}, decode[tagsResponse](t, resp).Tags)

	resp = env.do(t, http.MethodDelete, base+"/a", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"b"}, decode[tagsResponse](t, resp).Tags)

	resp = env.do(t, http.MethodGet, base, nil)
	assert.Equal(t, []string{"b"}, decode[tagsResponse](t, resp).Tags)

	resp = env.do(t, http.MethodGet, "/api/tags", nil)
	assert.Equal(t, []string{"b"}, decode[tagsResponse](t, resp).Tags)

	resp = env.do(t, http.MethodGet, "/api/items?tag=b", nil)
	assert.Len(t, decode[pageResponse](t, resp).Items, 1)
}

func TestErrors(t *testing.T) {
	env := newAPIEnv(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"MissingItem", http.MethodGet, "/api/item/999", nil, http.StatusNotFound, codeNotFound},
		{"MissingFavorite", http.MethodPost, "/api/item/999/favorite", nil, http.StatusNotFound, codeNotFound},
		{"BadID", http.MethodGet, "/api/item/abc", nil, http.StatusBadRequest, codeBadRequest},
		{"ZeroID", http.MethodDelete, "/api/item/0", nil, http.StatusBadRequest, codeBadRequest},
		{"EmptyText", http.MethodPost, "/api/items", addRequest{Text: " "}, http.StatusBadRequest, codeValidation},
		{"UnknownRoute", http.MethodGet, "/api/nope", nil, http.StatusNotFound, codeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, decode[errorResponse](t, resp).Code)
		})
	}

	t.Run("MalformedJSON", func(t *testing.T) {
		resp, err := env.server.Client().Post(env.server.URL+"/api/items", "application/json", strings.NewReader("{"))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, codeBadRequest, decode[errorResponse](t, resp).Code)
	})

	t.Run("DeleteMissingIsNotAnError", func(t *testing.T) {
		resp := env.do(t, http.MethodDelete, "/api/item/999", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, map[string]bool{"deleted": false}, decode[map[string]bool](t, resp))
	})
}

func TestCopyAndCapture(t *testing.T) {
	env := newAPIEnv(t)
	id := env.addText(t, "paste me")

	resp := env.do(t, http.MethodPost, "/api/item/"+itoa(id)+"/copy", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	got, _ := env.clip.Read()
	assert.Equal(t, "paste me", got.Text)

	resp = env.do(t, http.MethodGet, "/api/capture", nil)
	assert.False(t, decode[captureResponse](t, resp).Running)
	resp = env.do(t, http.MethodPost, "/api/capture/start", nil)
	assert.True(t, decode[captureResponse](t, resp).Running)
	resp = env.do(t, http.MethodPost, "/api/capture/stop", nil)
	assert.False(t, decode[captureResponse](t, resp).Running)
}

func TestServerShutdown(t *testing.T) {
	env := newAPIEnv(t)
	srv := NewServer("127.0.0.1:0", env.svc, zaptest.NewLogger(t))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestListRejectsPageOutOfRange(t *testing.T) {
	env := newAPIEnv(t)
	env.addText(t, "only")

	resp := env.do(t, http.MethodGet, "/api/items?per_page=1000&page=9223372036854777", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, codeValidation, decode[errorResponse](t, resp).Code)
}
