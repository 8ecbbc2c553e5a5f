package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/berrythewa/clipvault/internal/types"
	"go.uber.org/zap"
)

// Service is the set of history operations the server exposes
type Service interface {
	Backend() string
	StartCapture()
	StopCapture()
	IsCapturing() bool
	AddText(ctx context.Context, text string) (int64, bool, error)
	AddImage(ctx context.Context, data []byte) (int64, bool, error)
	List(ctx context.Context, q types.Query) (*types.Page, error)
	Get(ctx context.Context, id int64) (*types.Item, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Clear(ctx context.Context, keepFavorites bool) (int, error)
	ToggleFavorite(ctx context.Context, id int64) (bool, error)
	Copy(ctx context.Context, id int64) (*types.Item, error)
	AddTag(ctx context.Context, id int64, tag string) ([]string, error)
	RemoveTag(ctx context.Context, id int64, tag string) ([]string, error)
	SetTags(ctx context.Context, id int64, tags []string) ([]string, error)
	AllTags(ctx context.Context) ([]string, error)
}

type handlerFunc func(ctx context.Context, args json.RawMessage) (any, error)

// Server answers one request per unix socket connection
type Server struct {
	socketPath string
	svc        Service
	logger     *zap.Logger
	timeout    time.Duration
	handlers   map[string]handlerFunc
	wg         sync.WaitGroup
}

func NewServer(socketPath string, svc Service, logger *zap.Logger) *Server {
	if socketPath == "" {
		socketPath = DefaultSocketPath()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		socketPath: socketPath,
		svc:        svc,
		logger:     logger,
		timeout:    DefaultTimeout,
	}
	s.registerHandlers()
	return s
}

func (s *Server) SocketPath() string {
	return s.socketPath
}

// ListenAndServe accepts connections until ctx is cancelled. The socket
// file is removed on return.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if runtime.GOOS == "windows" {
		return errors.New("IPC server not implemented for Windows yet")
	}

	// Remove any stale socket
	os.Remove(s.socketPath)
	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}
	defer os.Remove(s.socketPath)

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		ln.Close()
		return fmt.Errorf("failed to restrict socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", zap.String("socket", s.socketPath))

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				s.logger.Info("IPC server stopped")
				return nil
			}
			s.logger.Warn("Failed to accept IPC connection", zap.Error(err))
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(s.timeout))

	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	var req Request
	if err := dec.Decode(&req); err != nil {
		enc.Encode(errorResponse(CodeBadRequest, "invalid request: "+err.Error()))
		return
	}

	resp := s.Handle(ctx, &req)
	resp.ID = req.ID
	if err := enc.Encode(resp); err != nil {
		s.logger.Debug("Failed to write IPC response",
			zap.String("command", req.Command),
			zap.Error(err))
	}
}

// Handle dispatches one request
func (s *Server) Handle(ctx context.Context, req *Request) *Response {
	h, ok := s.handlers[req.Command]
	if !ok {
		return errorResponse(CodeBadRequest, "unknown command: "+req.Command)
	}

	data, err := h(ctx, req.Args)
	if err != nil {
		code := ErrorCode(err)
		if code == CodePersistence {
			s.logger.Error("IPC command failed",
				zap.String("command", req.Command),
				zap.String("request_id", req.ID),
				zap.Error(err))
		}
		return errorResponse(code, err.Error())
	}
	return okResponse(data)
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing arguments", errBadRequest)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func (s *Server) registerHandlers() {
	s.handlers = map[string]handlerFunc{
		CmdPing: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return PingResult{Status: StatusOK, Backend: s.svc.Backend()}, nil
		},
		CmdCaptureStart: func(ctx context.Context, _ json.RawMessage) (any, error) {
			s.svc.StartCapture()
			return CaptureStatus{Running: s.svc.IsCapturing()}, nil
		},
		CmdCaptureStop: func(ctx context.Context, _ json.RawMessage) (any, error) {
			s.svc.StopCapture()
			return CaptureStatus{Running: s.svc.IsCapturing()}, nil
		},
		CmdCaptureStatus: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return CaptureStatus{Running: s.svc.IsCapturing()}, nil
		},
		CmdAddText: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args TextArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			id, inserted, err := s.svc.AddText(ctx, args.Text)
			if err != nil {
				return nil, err
			}
			return AddResult{ID: id, Inserted: inserted}, nil
		},
		CmdAddImage: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args ImageArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			id, inserted, err := s.svc.AddImage(ctx, args.Data)
			if err != nil {
				return nil, err
			}
			return AddResult{ID: id, Inserted: inserted}, nil
		},
		CmdList: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var q types.Query
			if len(raw) > 0 {
				if err := decodeArgs(raw, &q); err != nil {
					return nil, err
				}
			}
			return s.svc.List(ctx, q)
		},
		CmdGet: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args IDArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			return s.svc.Get(ctx, args.ID)
		},
		CmdDelete: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args IDArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			deleted, err := s.svc.Delete(ctx, args.ID)
			if err != nil {
				return nil, err
			}
			return DeleteResult{Deleted: deleted}, nil
		},
		CmdClear: func(ctx context.Context, raw json.RawMessage) (any, error) {
			args := ClearArgs{KeepFavorites: true}
			if len(raw) > 0 {
				if err := decodeArgs(raw, &args); err != nil {
					return nil, err
				}
			}
			n, err := s.svc.Clear(ctx, args.KeepFavorites)
			if err != nil {
				return nil, err
			}
			return ClearResult{Deleted: n}, nil
		},
		CmdFavorite: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args IDArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			fav, err := s.svc.ToggleFavorite(ctx, args.ID)
			if err != nil {
				return nil, err
			}
			return FavoriteResult{IsFavorite: fav}, nil
		},
		CmdCopy: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args IDArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			return s.svc.Copy(ctx, args.ID)
		},
		CmdTagsAdd: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args TagArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			tags, err := s.svc.AddTag(ctx, args.ID, args.Tag)
			if err != nil {
				return nil, err
			}
			return TagsResult{Tags: tags}, nil
		},
		CmdTagsRemove: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args TagArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			tags, err := s.svc.RemoveTag(ctx, args.ID, args.Tag)
			if err != nil {
				return nil, err
			}
			return TagsResult{Tags: tags}, nil
		},
		CmdTagsSet: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var args SetTagsArgs
			if err := decodeArgs(raw, &args); err != nil {
				return nil, err
			}
			tags, err := s.svc.SetTags(ctx, args.ID, args.Tags)
			if err != nil {
				return nil, err
			}
			return TagsResult{Tags: tags}, nil
		},
		CmdTagsAll: func(ctx context.Context, _ json.RawMessage) (any, error) {
			tags, err := s.svc.AllTags(ctx)
			if err != nil {
				return nil, err
			}
			return TagsResult{Tags: tags}, nil
		},
	}
}
