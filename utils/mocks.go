package utils

import (
	"context"
	"sync"
)

type MockClip struct {
	Duration    float64
	FrameAtFunc func(ctx context.Context, timestampSeconds float64) ([]byte, error)
}

func (m *MockClip) DurationSeconds() float64 {
	return m.Duration
}

func (m *MockClip) FrameAt(ctx context.Context, timestampSeconds float64) ([]byte, error) {
	return m.FrameAtFunc(ctx, timestampSeconds)
}

type MockCaptureDevice struct {
	CapturePhotoFunc   func(ctx context.Context) ([]byte, error)
	StartRecordingFunc func(ctx context.Context) error
	StopRecordingFunc  func(ctx context.Context) (Clip, error)
}

func (m *MockCaptureDevice) CapturePhoto(ctx context.Context) ([]byte, error) {
	return m.CapturePhotoFunc(ctx)
}

func (m *MockCaptureDevice) StartRecording(ctx context.Context) error {
	return m.StartRecordingFunc(ctx)
}

func (m *MockCaptureDevice) StopRecording(ctx context.Context) (Clip, error) {
	return m.StopRecordingFunc(ctx)
}

type MockCaptionClient struct {
	AnalyzeFunc func(ctx context.Context, image []byte, prompt string, languageCode string) (string, error)
}

func (m *MockCaptionClient) Analyze(ctx context.Context, image []byte, prompt string, languageCode string) (string, error) {
	return m.AnalyzeFunc(ctx, image, prompt, languageCode)
}

type MockTranscriber struct {
	TranscribeFunc func(ctx context.Context, audio []byte, filename string) (string, error)
}

func (m *MockTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	return m.TranscribeFunc(ctx, audio, filename)
}

// Utterance is one request recorded by MockSpeechSink.
type Utterance struct {
	Text         string
	LanguageCode string
}

// MockSpeechSink records every Speak call and is never busy.
type MockSpeechSink struct {
	mu         sync.Mutex
	Utterances []Utterance
}

func (m *MockSpeechSink) Speak(text string, languageCode string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Utterances = append(m.Utterances, Utterance{Text: text, LanguageCode: languageCode})
}

func (m *MockSpeechSink) State() SpeechState {
	return SpeechIdle
}

func (m *MockSpeechSink) Spoken() []Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Utterance, len(m.Utterances))
	copy(out, m.Utterances)
	return out
}
