package utils

import (
	"context"
)

// Clip is a finished recording.
type Clip interface {
	DurationSeconds() float64
	FrameAt(ctx context.Context, timestampSeconds float64) ([]byte, error)
}

type CaptureDevice interface {
	CapturePhoto(ctx context.Context) ([]byte, error)
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) (Clip, error)
}

type CaptionClient interface {
	Analyze(ctx context.Context, image []byte, prompt string, languageCode string) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// SpeechSink speaks best-effort: a request made while already speaking
// is dropped, not queued.
type SpeechSink interface {
	Speak(text string, languageCode string)
	State() SpeechState
}
