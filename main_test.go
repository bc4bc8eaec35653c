package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HugeFrog24/aya-sight/config"
)

func TestBuildServer(t *testing.T) {
	sc := config.ServerConfig{
		VisionProvider: "cohere",
		VisionBaseURL:  "https://api.cohere.ai/compatibility/v1",
		VisionModel:    "c4ai-aya-vision-8b",
		VisionAPIKey:   "test-key",
	}
	srv, err := buildServer(sc, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, srv.Handler())
}

func TestBuildServerMissingVisionKey(t *testing.T) {
	_, err := buildServer(config.ServerConfig{VisionProvider: "openai", VisionModel: "m"}, zap.NewNop())
	assert.ErrorContains(t, err, "vision backend")
}

func TestBuildServerWithWhisper(t *testing.T) {
	sc := config.ServerConfig{
		VisionProvider:  "anthropic",
		AnthropicAPIKey: "a-key",
		AnthropicModel:  "claude-3-haiku-20240307",
		OpenAIAPIKey:    "o-key",
		TranscribeModel: "whisper-1",
	}
	_, err := buildServer(sc, zap.NewNop())
	require.NoError(t, err)
}
