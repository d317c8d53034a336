package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/menta2k/region-ocr/internal/config"
	"github.com/menta2k/region-ocr/pkg/lines"
	"github.com/menta2k/region-ocr/pkg/paddle"
	"github.com/menta2k/region-ocr/pkg/tesseract"
	"github.com/menta2k/region-ocr/pkg/types"
)

var serveSocket string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the local OCR engine on a unix socket",
	Long: `Start an OCR server speaking the length-prefixed socket protocol used by
the paddle backend, answering with the local tesseract pipeline.

Each request is an 8-byte big-endian length followed by an encoded image;
each response is an 8-byte big-endian length followed by
{"res":{"rec_texts":[...],"rec_polys":[...]}}. Connections stay open for
any number of requests. Edits to the config file apply to the next request.

Examples:
  region-ocr serve                                   # /tmp/paddle_socket_unix
  region-ocr serve --socket /run/user/1000/ocr.sock`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := cfgManager.Get()

		socket := serveSocket
		if socket == "" {
			socket = cfg.Paddle.Socket
		}

		var current atomic.Pointer[servedEngine]
		engine, err := newServedEngine(cfg)
		if err != nil {
			return err
		}
		current.Store(engine)

		cfgManager.OnChange(func(c *config.Config) {
			e, err := newServedEngine(c)
			if err != nil {
				logger.Warn("keeping previous engine", "error", err)
				return
			}
			current.Store(e)
		})
		cfgManager.WatchConfig()

		recognizer := paddle.RecognizerFunc(func(ctx context.Context, image []byte) ([]types.OcrResult, error) {
			e := current.Load()
			words, _, err := e.backend.RecognizeImage(ctx, image, e.config)
			if err != nil {
				return nil, err
			}
			return tesseract.WordResults(words), nil
		})

		srv := paddle.NewServer(socket, recognizer, logger)
		if err := srv.ListenAndServe(ctx); err != nil {
			return fmt.Errorf("ocr server: %w", err)
		}
		return nil
	},
}

// servedEngine pairs a local backend with the tunables it was built from
type servedEngine struct {
	backend *tesseract.Backend
	config  types.BackendConfig
}

func newServedEngine(cfg *config.Config) (*servedEngine, error) {
	pipeline, err := newPipeline(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &servedEngine{
		backend: tesseract.NewBackend(pipeline, lines.NewWithConfig(cfg.Lines), logger),
		config:  cfg.BackendConfig(config.BackendTesseract),
	}, nil
}

func init() {
	serveCmd.Flags().StringVar(&serveSocket, "socket", "", "socket path (default: paddle.socket from config)")
}
