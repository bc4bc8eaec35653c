package gesture

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Feed phases.
const (
	PhaseBegan     = "began"
	PhaseMoved     = "moved"
	PhaseEnded     = "ended"
	PhaseCancelled = "cancelled"
	PhaseVoice     = "voice"
)

// FeedEvent is one JSON line from the input surface.
type FeedEvent struct {
	Phase   string  `json:"phase"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	T       int64   `json:"t"`
	Touches int     `json:"touches,omitempty"`
	File    string  `json:"file,omitempty"`
}

func (e FeedEvent) point() TouchPoint {
	return TouchPoint{X: e.X, Y: e.Y, TimestampMs: e.T}
}

// Feed drives a Tracker from a line-oriented touch stream and hands every
// finished sample to OnSample. Lines are processed one at a time, so
// callbacks must not block for long.
type Feed struct {
	Tracker  *Tracker
	OnSample func(Sample)
	OnVoice  func(file string)
	Logger   *zap.Logger
}

// Run reads events until EOF or ctx is cancelled. Malformed lines and
// out-of-order phases are logged and skipped.
func (f *Feed) Run(ctx context.Context, r io.Reader) error {
	logger := f.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var ev FeedEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			logger.Warn("skipping malformed touch event", zap.Error(err))
			continue
		}
		if err := f.apply(ev); err != nil {
			logger.Warn("skipping touch event", zap.String("phase", ev.Phase), zap.Error(err))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read touch feed: %w", err)
	}
	return nil
}

func (f *Feed) apply(ev FeedEvent) error {
	switch ev.Phase {
	case PhaseBegan:
		touches := ev.Touches
		if touches <= 0 {
			touches = 1
		}
		return f.Tracker.Begin(ev.point(), touches)
	case PhaseMoved:
		return f.Tracker.Extend(ev.point())
	case PhaseEnded:
		sample, err := f.Tracker.End(ev.point())
		if err != nil {
			return err
		}
		if f.OnSample != nil {
			f.OnSample(sample)
		}
	case PhaseCancelled:
		f.Tracker.Reset()
	case PhaseVoice:
		if ev.File == "" {
			return fmt.Errorf("voice event without file")
		}
		if f.OnVoice != nil {
			f.OnVoice(ev.File)
		}
	default:
		return fmt.Errorf("unknown phase %q", ev.Phase)
	}
	return nil
}
