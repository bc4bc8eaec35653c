package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HugeFrog24/aya-sight/config"
	"github.com/HugeFrog24/aya-sight/gesture"
	"github.com/HugeFrog24/aya-sight/metrics"
	"github.com/HugeFrog24/aya-sight/utils"
)

func newRunCommand() *cobra.Command {
	var feedPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Read touch events and caption what the camera sees",
		Long: "Reads JSON touch events (one per line) from stdin or --feed, " +
			"classifies each stroke and drives the camera. Captions are printed and spoken.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(feedPath)
		},
	}
	cmd.Flags().StringVar(&feedPath, "feed", "", "touch event file (default stdin)")
	return cmd
}

func runCapture(feedPath string) error {
	cfg, logr, cleanup, err := setup(context.Background())
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext(logr)
	defer cancel()

	if cfg.MetricsPort > 0 {
		metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, logr)
		defer shutdownServer(metricsSrv, logr)
	}

	// Clips from a previous run are never reused.
	utils.CleanupDir(cfg.ClipDir, logr)
	defer utils.CleanupDir(cfg.ClipDir, logr)

	orch := newOrchestrator(cfg, logr)
	go printEvents(orch.Events())
	defer orch.Close()

	input := os.Stdin
	if feedPath != "" {
		f, err := os.Open(feedPath)
		if err != nil {
			return fmt.Errorf("open feed: %w", err)
		}
		defer f.Close()
		input = f
	}

	feed := &gesture.Feed{
		Tracker: gesture.NewTracker(cfg.TrailHold),
		Logger:  logr,
		OnSample: func(s gesture.Sample) {
			command := gesture.ClassifyLogged(s, logr)
			if err := orch.Handle(ctx, command); err != nil {
				logr.Error("command failed", zap.Stringer("command", command), zap.Error(err))
			}
		},
		OnVoice: func(file string) {
			audio, err := os.ReadFile(file)
			if err != nil {
				logr.Error("failed to read voice note", zap.String("file", file), zap.Error(err))
				return
			}
			go func() {
				if err := orch.HandleVoice(ctx, audio, filepath.Base(file)); err != nil {
					logr.Warn("voice prompt ignored", zap.Error(err))
				}
			}()
		},
	}

	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx, input) }()

	select {
	case err := <-done:
		if err != nil && ctx.Err() == nil {
			return err
		}
		logr.Info("touch feed finished, waiting for pending captions")
		orch.Wait()
	case <-ctx.Done():
		logr.Info("shutting down")
	}
	return nil
}

func newOrchestrator(cfg *config.Config, logr *zap.Logger) *utils.Orchestrator {
	camera := utils.NewFFmpegCamera(utils.FFmpegCameraConfig{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		Input:       cfg.CameraInput,
		Format:      cfg.CameraFormat,
		ClipDir:     cfg.ClipDir,
	}, logr)

	httpClient := &http.Client{Timeout: 60 * time.Second}
	captioner := utils.NewHTTPCaptionClient(cfg.VisionEndpoint, httpClient, logr)
	transcriber := utils.NewHTTPTranscriber(cfg.TranscribeEndpoint, httpClient)
	speaker := utils.NewCommandSpeaker(cfg.SpeechCommand, logr)

	return utils.NewOrchestrator(camera, captioner, speaker, transcriber, logr, utils.OrchestratorConfig{
		Language:    cfg.Language,
		Prompt:      cfg.Prompt,
		EventBuffer: cfg.EventBuffer,
	})
}

func printEvents(events <-chan utils.Event) {
	for ev := range events {
		switch ev.Kind {
		case utils.EventCaption:
			fmt.Printf("[%s] %s\n", ev.LanguageCode, ev.Text)
		default:
			fmt.Printf("(%s) %s\n", ev.Kind, ev.Text)
		}
	}
}

func shutdownServer(srv *http.Server, logr *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Warn("server shutdown", zap.String("addr", srv.Addr), zap.Error(err))
	}
}
