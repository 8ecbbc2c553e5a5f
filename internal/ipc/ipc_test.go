package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
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

// shortTempDir keeps socket paths under the unix path length limit
func shortTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "cv")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

func startServer(t *testing.T) (*Client, *clipboard.MemoryClipboard) {
	t.Helper()
	dir := shortTempDir(t)
	logger := zaptest.NewLogger(t)

	store, err := storage.NewBoltStorage(storage.BoltConfig{DBPath: filepath.Join(dir, "h.db")})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clip := clipboard.NewMemoryClipboard()
	monitor := clipboard.NewMonitor(clipboard.MonitorConfig{Interval: 5 * time.Millisecond}, clip, store, logger)
	t.Cleanup(monitor.Stop)
	svc := history.New(store, monitor, clip, logger)

	socket := filepath.Join(dir, "s.sock")
	srv := NewServer(socket, svc, logger)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-errCh)
		_, err := os.Stat(socket)
		assert.True(t, os.IsNotExist(err), "socket should be removed")
	})

	require.Eventually(t, func() bool {
		_, err := os.Stat(socket)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	return NewClient(socket), clip
}

func TestClientServerRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, clip := startServer(t)

	ping, err := client.Ping(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, ping.Status)
	assert.Equal(t, storage.BackendBolt, ping.Backend)

	foo, err := client.AddText(ctx, "foo")
	require.NoError(t, err)
	assert.True(t, foo.Inserted)

	dup, err := client.AddText(ctx, "foo")
	require.NoError(t, err)
	assert.False(t, dup.Inserted)
	assert.Equal(t, foo.ID, dup.ID)

	img, err := client.AddImage(ctx, []byte{0x89, 'P', 'N', 'G'})
	require.NoError(t, err)
	assert.True(t, img.Inserted)

	page, err := client.List(ctx, types.Query{Filter: types.FilterText})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "foo", page.Items[0].Text)

	item, err := client.Get(ctx, img.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, item.Image)

	fav, err := client.ToggleFavorite(ctx, foo.ID)
	require.NoError(t, err)
	assert.True(t, fav)

	tags, err := client.AddTag(ctx, foo.ID, "work")
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, tags)
	tags, err = client.SetTags(ctx, foo.ID, []string{"b", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tags)
	tags, err = client.RemoveTag(ctx, foo.ID, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, tags)
	tags, err = client.AllTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, tags)

	copied, err := client.Copy(ctx, foo.ID)
	require.NoError(t, err)
	assert.Equal(t, "foo", copied.Text)
	got, _ := clip.Read()
	assert.Equal(t, "foo", got.Text)

	n, err := client.Clear(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	deleted, err := client.Delete(ctx, foo.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = client.Delete(ctx, foo.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestResponseEchoesRequestID(t *testing.T) {
	client, _ := startServer(t)

	req, err := NewRequest(CmdPing, nil)
	require.NoError(t, err)
	require.NotEmpty(t, req.ID)

	resp, err := client.SendRequest(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, req.ID, resp.ID)
	assert.Equal(t, StatusOK, resp.Status)
}

func TestCaptureCommands(t *testing.T) {
	ctx := context.Background()
	client, _ := startServer(t)

	running, err := client.CaptureStatus(ctx)
	require.NoError(t, err)
	assert.False(t, running)

	running, err = client.StartCapture(ctx)
	require.NoError(t, err)
	assert.True(t, running)

	running, err = client.StopCapture(ctx)
	require.NoError(t, err)
	assert.False(t, running)
}

func TestRemoteErrors(t *testing.T) {
	ctx := context.Background()
	client, _ := startServer(t)

	_, err := client.Get(ctx, 404)
	assert.True(t, errors.Is(err, types.ErrNotFound))
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, CodeNotFound, remote.Code)

	_, err = client.AddText(ctx, "   ")
	assert.True(t, types.IsValidation(err))

	_, err = client.List(ctx, types.Query{Page: -2})
	assert.True(t, types.IsValidation(err))

	err = client.Call(ctx, "no.such.command", nil, nil)
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, CodeBadRequest, remote.Code)

	err = client.Call(ctx, CmdGet, nil, nil)
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, CodeBadRequest, remote.Code)
}

func TestMalformedRequest(t *testing.T) {
	client, _ := startServer(t)

	conn, err := net.Dial("unix", client.SocketPath)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("{not json\n"))
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.NewDecoder(conn).Decode(&resp))
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, CodeBadRequest, resp.Code)
}

func TestClientUnavailable(t *testing.T) {
	client := NewClient(filepath.Join(shortTempDir(t), "missing.sock"))
	client.Timeout = 100 * time.Millisecond

	_, err := client.Ping(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestDefaultSocketPath(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	assert.Equal(t, "/run/user/1000/clipvault.sock", DefaultSocketPath())

	t.Setenv("XDG_RUNTIME_DIR", "")
	assert.Equal(t, filepath.Join(os.TempDir(), "clipvault.sock"), DefaultSocketPath())
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, CodeNotFound, ErrorCode(types.ErrNotFound))
	assert.Equal(t, CodeValidation, ErrorCode(types.NewValidationError("x", "y")))
	assert.Equal(t, CodePersistence, ErrorCode(&types.PersistenceError{Op: "insert", Err: errors.New("boom")}))
	assert.Equal(t, CodeUnavailable, ErrorCode(ErrUnavailable))

	resp := &Response{Status: StatusError, Code: CodePersistence, Message: "disk full"}
	assert.True(t, types.IsPersistence(resp.Err()))
	assert.NoError(t, (&Response{Status: StatusOK}).Err())
}

func TestClearWithoutArgsKeepsFavorites(t *testing.T) {
	ctx := context.Background()

	for name, args := range map[string]any{
		"NoArgs":    nil,
		"EmptyArgs": map[string]any{},
		"OptedOut":  ClearArgs{KeepFavorites: false},
	} {
		t.Run(name, func(t *testing.T) {
			client, _ := startServer(t)
			fav, err := client.AddText(ctx, "keep me")
			require.NoError(t, err)
			_, err = client.AddText(ctx, "drop me")
			require.NoError(t, err)
			_, err = client.ToggleFavorite(ctx, fav.ID)
			require.NoError(t, err)

			var res ClearResult
			require.NoError(t, client.Call(ctx, CmdClear, args, &res))

			if name == "OptedOut" {
				assert.Equal(t, 2, res.Deleted)
				return
			}
			assert.Equal(t, 1, res.Deleted)
			item, err := client.Get(ctx, fav.ID)
			require.NoError(t, err)
			assert.True(t, item.IsFavorite)
		})
	}
}
