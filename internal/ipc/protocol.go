package ipc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/berrythewa/clipvault/internal/types"
	"github.com/berrythewa/clipvault/pkg/utils"
)

// Commands understood by the daemon
const (
	CmdPing          = "ping"
	CmdCaptureStart  = "capture.start"
	CmdCaptureStop   = "capture.stop"
	CmdCaptureStatus = "capture.status"
	CmdAddText       = "items.add_text"
	CmdAddImage      = "items.add_image"
	CmdList          = "items.list"
	CmdGet           = "items.get"
	CmdDelete        = "items.delete"
	CmdClear         = "items.clear"
	CmdFavorite      = "items.favorite"
	CmdCopy          = "items.copy"
	CmdTagsAdd       = "items.tags.add"
	CmdTagsRemove    = "items.tags.remove"
	CmdTagsSet       = "items.tags.set"
	CmdTagsAll       = "tags.all"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Error codes carried by failed responses
const (
	CodeNotFound    = "not_found"
	CodeValidation  = "validation"
	CodePersistence = "persistence"
	CodeUnavailable = "unavailable"
	CodeBadRequest  = "bad_request"
)

// Request represents a command sent from the CLI to the daemon.
type Request struct {
	ID      string          `json:"id,omitempty"`
	Command string          `json:"command"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// Response represents a reply from the daemon to the CLI.
type Response struct {
	ID      string          `json:"id,omitempty"`
	Status  string          `json:"status"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type IDArgs struct {
	ID int64 `json:"id"`
}

type TextArgs struct {
	Text string `json:"text"`
}

type ImageArgs struct {
	Data []byte `json:"data"`
}

// ClearArgs keeps favorites unless KeepFavorites is explicitly false
type ClearArgs struct {
	KeepFavorites bool `json:"keep_favorites"`
}

type TagArgs struct {
	ID  int64  `json:"id"`
	Tag string `json:"tag"`
}

type SetTagsArgs struct {
	ID   int64    `json:"id"`
	Tags []string `json:"tags"`
}

type AddResult struct {
	ID       int64 `json:"id"`
	Inserted bool  `json:"inserted"`
}

type DeleteResult struct {
	Deleted bool `json:"deleted"`
}

type ClearResult struct {
	Deleted int `json:"deleted"`
}

type FavoriteResult struct {
	IsFavorite bool `json:"is_favorite"`
}

type TagsResult struct {
	Tags []string `json:"tags"`
}

type CaptureStatus struct {
	Running bool `json:"running"`
}

type PingResult struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
}

// NewRequest encodes args into a request for cmd
func NewRequest(cmd string, args any) (*Request, error) {
	req := &Request{ID: utils.NewID(), Command: cmd}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s args: %w", cmd, err)
		}
		req.Args = raw
	}
	return req, nil
}

func okResponse(data any) *Response {
	resp := &Response{Status: StatusOK}
	if data == nil {
		return resp
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return &Response{Status: StatusError, Code: CodePersistence, Message: "failed to encode response: " + err.Error()}
	}
	resp.Data = raw
	return resp
}

func errorResponse(code, message string) *Response {
	return &Response{Status: StatusError, Code: code, Message: message}
}

// ErrorCode classifies err into one of the protocol error codes
func ErrorCode(err error) string {
	switch {
	case types.IsNotFound(err):
		return CodeNotFound
	case types.IsValidation(err):
		return CodeValidation
	case errors.Is(err, ErrUnavailable):
		return CodeUnavailable
	case errors.Is(err, errBadRequest):
		return CodeBadRequest
	default:
		return CodePersistence
	}
}

// RemoteError is a failure reported by the daemon. It unwraps to the
// matching local error so errors.Is and errors.As work across the socket.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	switch e.Code {
	case CodeNotFound:
		return types.ErrNotFound
	case CodeValidation:
		return &types.ValidationError{Reason: e.Message}
	case CodeUnavailable:
		return ErrUnavailable
	case CodeBadRequest:
		return errBadRequest
	default:
		return &types.PersistenceError{Op: "execute command", Backend: "daemon", Err: errors.New(e.Message)}
	}
}

// Err returns the error carried by a failed response, or nil
func (r *Response) Err() error {
	if r.Status == StatusOK {
		return nil
	}
	return &RemoteError{Code: r.Code, Message: r.Message}
}
