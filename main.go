package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/HugeFrog24/aya-sight/config"
	"github.com/HugeFrog24/aya-sight/logger"
	"github.com/HugeFrog24/aya-sight/tracing"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Error loading .env file: %v", err)
	}

	root := &cobra.Command{
		Use:           "aya-sight",
		Short:         "Gesture-driven camera with spoken image captions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCommand(), newServeCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads config, builds the logger and installs tracing. The
// returned cleanup flushes both.
func setup(ctx context.Context) (*config.Config, *zap.Logger, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	logr, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	cleanup := func() { logr.Sync() }
	if cfg.JaegerEndpoint != "" {
		tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint)
		if err != nil {
			logr.Warn("tracing init failed, continuing without tracing", zap.Error(err))
		} else {
			cleanup = func() {
				tp.Shutdown(context.Background())
				logr.Sync()
			}
		}
	}
	return cfg, logr, cleanup, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(logr *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-c:
			logr.Info("received shutdown signal", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(c)
	}()
	return ctx, cancel
}
