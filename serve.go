package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HugeFrog24/aya-sight/config"
	"github.com/HugeFrog24/aya-sight/metrics"
	"github.com/HugeFrog24/aya-sight/server"
)

func newServeCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve /analyze-image and /transcribe backed by a hosted model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides SERVER_ADDR)")
	return cmd
}

func runServer(addr string) error {
	cfg, logr, cleanup, err := setup(context.Background())
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext(logr)
	defer cancel()

	if addr == "" {
		addr = cfg.Server.Addr
	}
	srv, err := buildServer(cfg.Server, logr)
	if err != nil {
		return err
	}

	if cfg.MetricsPort > 0 {
		metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, logr)
		defer shutdownServer(metricsSrv, logr)
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownServer(httpSrv, logr)
	}()

	return server.ListenAndServe(httpSrv, logr)
}

func buildServer(sc config.ServerConfig, logr *zap.Logger) (*server.Server, error) {
	vision, err := server.NewVisionModel(
		sc.VisionProvider, sc.VisionAPIKey, sc.VisionBaseURL, sc.VisionModel,
		sc.AnthropicAPIKey, sc.AnthropicModel,
	)
	if err != nil {
		return nil, fmt.Errorf("vision backend: %w", err)
	}

	var stt server.SpeechToText
	if sc.OpenAIAPIKey != "" {
		whisper, err := server.NewWhisperTranscriber(sc.OpenAIAPIKey, sc.TranscribeBaseURL, sc.TranscribeModel)
		if err != nil {
			return nil, fmt.Errorf("transcription backend: %w", err)
		}
		stt = whisper
	} else {
		logr.Warn("OPENAI_API_KEY not set, /transcribe is disabled")
	}

	return server.New(vision, stt, sc.UploadMaxBytes, logr), nil
}
