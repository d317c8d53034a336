package paddle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net"
	"os"

	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/region-ocr/pkg/types"
)

// Recognizer produces OCR results for one encoded image
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) ([]types.OcrResult, error)
}

// RecognizerFunc adapts a function to Recognizer
type RecognizerFunc func(ctx context.Context, image []byte) ([]types.OcrResult, error)

func (f RecognizerFunc) Recognize(ctx context.Context, image []byte) ([]types.OcrResult, error) {
	return f(ctx, image)
}

// Server answers framed OCR requests on a unix domain socket. Each
// connection may carry any number of request/response exchanges.
type Server struct {
	socketPath string
	recognizer Recognizer
	logger     *slog.Logger
}

func NewServer(socketPath string, recognizer Recognizer, logger *slog.Logger) *Server {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{socketPath: socketPath, recognizer: recognizer, logger: logger}
}

// SocketPath returns the path the server listens on
func (s *Server) SocketPath() string { return s.socketPath }

// ListenAndServe removes a stale socket file, listens and serves until ctx
// is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := removeStaleSocket(s.socketPath); err != nil {
		return err
	}
	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	s.logger.Info("socket ocr server listening", "socket", s.socketPath)
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled. Connections are
// handled concurrently; Serve returns once all of them have finished.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		return ln.Close()
	})

	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("accept: %w", err)
			}
			g.Go(func() error {
				s.handle(gctx, conn)
				return nil
			})
		}
	})

	err := g.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	s.logger.Debug("connection established")
	for {
		req, err := ReadFrame(conn)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				s.logger.Debug("client closed the connection")
			} else {
				s.logger.Warn("failed to read request", "error", err)
			}
			return
		}
		s.logger.Debug("request received", "bytes", len(req))

		if err := WriteFrame(conn, s.answer(ctx, req)); err != nil {
			s.logger.Warn("failed to write response", "error", err)
			return
		}
	}
}

func (s *Server) answer(ctx context.Context, req []byte) []byte {
	if _, _, err := image.DecodeConfig(bytes.NewReader(req)); err != nil {
		return encodeError("invalid image")
	}
	results, err := s.recognizer.Recognize(ctx, req)
	if err != nil {
		s.logger.Error("recognition failed", "error", err)
		return encodeError("recognition failed")
	}
	body, err := EncodeResults(results)
	if err != nil {
		s.logger.Error("failed to encode results", "error", err)
		return encodeError("recognition failed")
	}
	return body
}

func removeStaleSocket(path string) error {
	fi, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket", path)
	}
	return os.Remove(path)
}
