package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
)

// Response is sent back for every request line.
type Response struct {
	Status string          `json:"status"`          // "ok" or "error"
	Error  string          `json:"error,omitempty"` // set when Status == "error"
	Data   json.RawMessage `json:"data,omitempty"`
}

// Handler applies one request. A non-nil result is encoded into
// Response.Data.
type Handler func(ctx context.Context, req Request) (any, error)

// Serve listens on socketPath until ctx is canceled.
func Serve(ctx context.Context, socketPath string, h Handler, logger *slog.Logger) error {
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	if err := os.Chmod(socketPath, 0o666); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	// Unblocks Accept on shutdown.
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				logger.Debug("IPC listener closed")
				return nil
			}
			logger.Error("IPC accept error", "error", err)
			continue
		}
		go func() {
			defer conn.Close()
			serveConn(ctx, conn, h, logger)
		}()
	}
}

// serveConn answers request lines on rw until EOF.
func serveConn(ctx context.Context, rw io.ReadWriter, h Handler, logger *slog.Logger) {
	scanner := bufio.NewScanner(rw)
	encoder := json.NewEncoder(rw)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		logger.Debug("IPC received", "line", string(line))

		resp := handleLine(ctx, line, h)
		if err := encoder.Encode(resp); err != nil {
			logger.Error("IPC failed to send response", "error", err)
			return
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Debug("IPC read error", "error", err)
	}
}

func handleLine(ctx context.Context, line []byte, h Handler) Response {
	req, err := Unmarshal(line)
	if err != nil {
		return errorResponse(fmt.Errorf("parse request: %w", err))
	}
	result, err := h(ctx, req)
	if err != nil {
		return errorResponse(err)
	}
	resp := Response{Status: "ok"}
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return errorResponse(fmt.Errorf("encode result: %w", err))
		}
		resp.Data = data
	}
	return resp
}

func errorResponse(err error) Response {
	return Response{Status: "error", Error: err.Error()}
}
