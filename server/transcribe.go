package server

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// SpeechToText turns uploaded audio into text.
type SpeechToText interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

type WhisperTranscriber struct {
	client *openai.Client
	model  string
}

func NewWhisperTranscriber(apiKey, baseURL, model string) (*WhisperTranscriber, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable is not set")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperTranscriber{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (w *WhisperTranscriber) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	req := openai.AudioRequest{
		Model:    w.model,
		FilePath: filename,
		Reader:   audio,
	}
	resp, err := w.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", fmt.Errorf("transcription error: %v", err)
	}
	return resp.Text, nil
}
