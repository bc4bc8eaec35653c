package server

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
)

// VisionModel describes one image.
type VisionModel interface {
	Describe(ctx context.Context, mimeType string, image []byte, prompt string) (string, error)
}

// OpenAIVision talks to any OpenAI-compatible chat endpoint that accepts
// image_url parts, such as Cohere's compatibility API serving Aya Vision.
type OpenAIVision struct {
	client *openai.Client
	model  string
}

func NewOpenAIVision(apiKey, baseURL, model string) (*OpenAIVision, error) {
	if apiKey == "" {
		return nil, errors.New("COHERE_API_KEY environment variable is not set")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIVision{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (v *OpenAIVision) Describe(ctx context.Context, mimeType string, image []byte, prompt string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	req := openai.ChatCompletionRequest{
		Model: v.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
	}

	resp, err := v.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("error describing image: %v", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("vision model returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// AnthropicVision describes images with a Claude model.
type AnthropicVision struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropicVision(apiKey, model string) (*AnthropicVision, error) {
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable is not set")
	}
	return &AnthropicVision{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: 500,
	}, nil
}

func (v *AnthropicVision) Describe(ctx context.Context, mimeType string, image []byte, prompt string) (string, error) {
	resp, err := v.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(v.model),
		MaxTokens: v.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mimeType, base64.StdEncoding.EncodeToString(image)),
				anthropic.NewTextBlock(prompt),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}

	var result strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			result.WriteString(block.Text)
		}
	}
	return result.String(), nil
}

// NewVisionModel picks the backend named by provider.
func NewVisionModel(provider, apiKey, baseURL, model, anthropicKey, anthropicModel string) (VisionModel, error) {
	switch strings.ToLower(provider) {
	case "", "openai", "cohere":
		return NewOpenAIVision(apiKey, baseURL, model)
	case "anthropic":
		return NewAnthropicVision(anthropicKey, anthropicModel)
	default:
		return nil, fmt.Errorf("unknown vision provider %q", provider)
	}
}
