package utils

import (
	"math"
)

const (
	MaxFramesPerClip = 3
	FirstFrameOffset = 0.5
	MinFrameStep     = 1.5
)

// FrameRequest is one timestamp to extract from a clip. Index is the join
// key when aggregating captions.
type FrameRequest struct {
	Index            int
	TimestampSeconds float64
}

// SampleFrames picks up to MaxFramesPerClip timestamps in [0.5, duration),
// spaced by max(duration/3, 1.5). Short or invalid durations yield none.
func SampleFrames(durationSeconds float64) []FrameRequest {
	if math.IsNaN(durationSeconds) || math.IsInf(durationSeconds, 0) || durationSeconds <= FirstFrameOffset {
		return nil
	}
	step := math.Max(durationSeconds/MaxFramesPerClip, MinFrameStep)

	frames := make([]FrameRequest, 0, MaxFramesPerClip)
	for i := 0; i < MaxFramesPerClip; i++ {
		ts := FirstFrameOffset + float64(i)*step
		if ts >= durationSeconds {
			break
		}
		frames = append(frames, FrameRequest{Index: i, TimestampSeconds: ts})
	}
	return frames
}
