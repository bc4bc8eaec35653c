package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var ErrNotRecording = errors.New("camera is not recording")

type FFmpegCameraConfig struct {
	FFmpegPath  string
	FFprobePath string
	// Input and Format are passed to ffmpeg as -i and -f, e.g. /dev/video0 and v4l2.
	Input   string
	Format  string
	ClipDir string
}

// FFmpegCamera captures stills and clips by shelling out to ffmpeg.
type FFmpegCamera struct {
	cfg    FFmpegCameraConfig
	logger *zap.Logger

	mu  sync.Mutex
	rec *recording
}

type recording struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	path   string
	done   chan error
}

func NewFFmpegCamera(cfg FFmpegCameraConfig, logger *zap.Logger) *FFmpegCamera {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.ClipDir == "" {
		cfg.ClipDir = ".tmp"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpegCamera{cfg: cfg, logger: logger}
}

func (c *FFmpegCamera) inputArgs() []string {
	var args []string
	if c.cfg.Format != "" {
		args = append(args, "-f", c.cfg.Format)
	}
	return append(args, "-i", c.cfg.Input)
}

func (c *FFmpegCamera) CapturePhoto(ctx context.Context) ([]byte, error) {
	args := append(c.inputArgs(), "-frames:v", "1", "-f", "image2pipe", "-vcodec", "mjpeg", "pipe:1")
	cmd := exec.CommandContext(ctx, c.cfg.FFmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg error: %v\nStderr: %s", err, stderr.String())
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no image")
	}
	return out, nil
}

// StartRecording is a no-op while a recording is already running.
func (c *FFmpegCamera) StartRecording(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rec != nil {
		return nil
	}

	if err := os.MkdirAll(c.cfg.ClipDir, os.ModePerm); err != nil {
		return fmt.Errorf("failed to create clip directory: %v", err)
	}
	path := filepath.Join(c.cfg.ClipDir, fmt.Sprintf("clip_%d.mp4", time.Now().UnixNano()))

	// The recording outlives the request context; StopRecording ends it.
	args := append([]string{"-y"}, c.inputArgs()...)
	args = append(args, path)
	cmd := exec.Command(c.cfg.FFmpegPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdin: %v", err)
	}
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %v", err)
	}

	rec := &recording{cmd: cmd, stdin: stdin, stderr: stderr, path: path, done: make(chan error, 1)}
	go func() { rec.done <- cmd.Wait() }()
	c.rec = rec

	c.logger.Info("recording started", zap.String("path", path))
	return nil
}

func (c *FFmpegCamera) StopRecording(ctx context.Context) (Clip, error) {
	c.mu.Lock()
	rec := c.rec
	c.rec = nil
	c.mu.Unlock()
	if rec == nil {
		return nil, ErrNotRecording
	}

	// "q" asks ffmpeg to finalize the container and exit.
	if _, err := io.WriteString(rec.stdin, "q"); err != nil {
		c.logger.Warn("failed to signal ffmpeg", zap.Error(err))
	}
	rec.stdin.Close()

	select {
	case err := <-rec.done:
		if err != nil {
			c.logger.Warn("ffmpeg exited with error", zap.Error(err), zap.String("stderr", rec.stderr.String()))
		}
	case <-ctx.Done():
		rec.cmd.Process.Kill()
		<-rec.done
		return nil, ctx.Err()
	}

	if _, err := os.Stat(rec.path); err != nil {
		return nil, fmt.Errorf("recording not written: %v", err)
	}
	duration, err := probeDuration(ctx, c.cfg.FFprobePath, rec.path)
	if err != nil {
		return nil, err
	}

	c.logger.Info("recording saved", zap.String("path", rec.path), zap.Float64("duration", duration))
	return &FileClip{Path: rec.path, Duration: duration, FFmpegPath: c.cfg.FFmpegPath}, nil
}

// FileClip is a recorded clip on disk.
type FileClip struct {
	Path       string
	Duration   float64
	FFmpegPath string
}

func (f *FileClip) DurationSeconds() float64 {
	return f.Duration
}

// FrameAt extracts a single JPEG at the given offset.
func (f *FileClip) FrameAt(ctx context.Context, timestampSeconds float64) ([]byte, error) {
	cmd := exec.CommandContext(ctx, f.FFmpegPath,
		"-ss", strconv.FormatFloat(timestampSeconds, 'f', 3, 64),
		"-i", f.Path,
		"-frames:v", "1",
		"-q:v", "2",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"pipe:1",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg error: %v\nStderr: %s", err, stderr.String())
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no frame at %.3fs", timestampSeconds)
	}
	return out, nil
}

func probeDuration(ctx context.Context, ffprobe string, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, ffprobe, "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("failed to get clip duration: %v", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse clip duration: %v", err)
	}
	return duration, nil
}

// CleanupDir removes every file in dir, keeping the directory itself.
func CleanupDir(dir string, logger *zap.Logger) {
	files, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("failed to read clip directory", zap.String("dir", dir), zap.Error(err))
		}
		return
	}

	for _, file := range files {
		if err := os.Remove(filepath.Join(dir, file.Name())); err != nil {
			logger.Warn("failed to remove file", zap.String("file", file.Name()), zap.Error(err))
		}
	}
}
