package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"runtime"
	"time"

	"github.com/berrythewa/clipvault/internal/types"
)

// Client talks to a running daemon. The zero value uses the default socket.
type Client struct {
	SocketPath string
	Timeout    time.Duration
}

func NewClient(socketPath string) *Client {
	return &Client{SocketPath: socketPath, Timeout: DefaultTimeout}
}

// SendRequest connects to the daemon, sends a request, and returns the response.
func (c *Client) SendRequest(ctx context.Context, req *Request) (*Response, error) {
	if runtime.GOOS == "windows" {
		return nil, errors.New("IPC not implemented for Windows yet")
	}
	socketPath := c.SocketPath
	if socketPath == "" {
		socketPath = DefaultSocketPath()
	}

	var d net.Dialer
	dialCtx, cancel := context.WithDeadline(ctx, deadline(ctx, c.Timeout))
	defer cancel()
	conn, err := d.DialContext(dialCtx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer conn.Close()
	conn.SetDeadline(deadline(ctx, c.Timeout))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if req.ID != "" && resp.ID != req.ID {
		return nil, fmt.Errorf("response id %q does not match request %q", resp.ID, req.ID)
	}
	return &resp, nil
}

// Call runs cmd and decodes the response data into out when out is not nil
func (c *Client) Call(ctx context.Context, cmd string, args, out any) error {
	req, err := NewRequest(cmd, args)
	if err != nil {
		return err
	}
	resp, err := c.SendRequest(ctx, req)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", cmd, err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) (*PingResult, error) {
	var res PingResult
	if err := c.Call(ctx, CmdPing, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) captureCall(ctx context.Context, cmd string) (bool, error) {
	var res CaptureStatus
	if err := c.Call(ctx, cmd, nil, &res); err != nil {
		return false, err
	}
	return res.Running, nil
}

func (c *Client) StartCapture(ctx context.Context) (bool, error) {
	return c.captureCall(ctx, CmdCaptureStart)
}

func (c *Client) StopCapture(ctx context.Context) (bool, error) {
	return c.captureCall(ctx, CmdCaptureStop)
}

func (c *Client) CaptureStatus(ctx context.Context) (bool, error) {
	return c.captureCall(ctx, CmdCaptureStatus)
}

func (c *Client) AddText(ctx context.Context, text string) (*AddResult, error) {
	var res AddResult
	if err := c.Call(ctx, CmdAddText, TextArgs{Text: text}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) AddImage(ctx context.Context, data []byte) (*AddResult, error) {
	var res AddResult
	if err := c.Call(ctx, CmdAddImage, ImageArgs{Data: data}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) List(ctx context.Context, q types.Query) (*types.Page, error) {
	var page types.Page
	if err := c.Call(ctx, CmdList, q, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) Get(ctx context.Context, id int64) (*types.Item, error) {
	var item types.Item
	if err := c.Call(ctx, CmdGet, IDArgs{ID: id}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) Delete(ctx context.Context, id int64) (bool, error) {
	var res DeleteResult
	if err := c.Call(ctx, CmdDelete, IDArgs{ID: id}, &res); err != nil {
		return false, err
	}
	return res.Deleted, nil
}

func (c *Client) Clear(ctx context.Context, keepFavorites bool) (int, error) {
	var res ClearResult
	if err := c.Call(ctx, CmdClear, ClearArgs{KeepFavorites: keepFavorites}, &res); err != nil {
		return 0, err
	}
	return res.Deleted, nil
}

func (c *Client) ToggleFavorite(ctx context.Context, id int64) (bool, error) {
	var res FavoriteResult
	if err := c.Call(ctx, CmdFavorite, IDArgs{ID: id}, &res); err != nil {
		return false, err
	}
	return res.IsFavorite, nil
}

func (c *Client) Copy(ctx context.Context, id int64) (*types.Item, error) {
	var item types.Item
	if err := c.Call(ctx, CmdCopy, IDArgs{ID: id}, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) tagsCall(ctx context.Context, cmd string, args any) ([]string, error) {
	var res TagsResult
	if err := c.Call(ctx, cmd, args, &res); err != nil {
		return nil, err
	}
	return res.Tags, nil
}

func (c *Client) AddTag(ctx context.Context, id int64, tag string) ([]string, error) {
	return c.tagsCall(ctx, CmdTagsAdd, TagArgs{ID: id, Tag: tag})
}

func (c *Client) RemoveTag(ctx context.Context, id int64, tag string) ([]string, error) {
	return c.tagsCall(ctx, CmdTagsRemove, TagArgs{ID: id, Tag: tag})
}

func (c *Client) SetTags(ctx context.Context, id int64, tags []string) ([]string, error) {
	return c.tagsCall(ctx, CmdTagsSet, SetTagsArgs{ID: id, Tags: tags})
}

func (c *Client) AllTags(ctx context.Context) ([]string, error) {
	return c.tagsCall(ctx, CmdTagsAll, nil)
}
