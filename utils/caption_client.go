package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/HugeFrog24/aya-sight/metrics"
)

var (
	ErrRequestFailed = errors.New("caption request failed")
	ErrEmptyImage    = fmt.Errorf("%w: empty image", ErrRequestFailed)
)

// maxResponseBytes bounds how much of a reply body is read.
const maxResponseBytes = 1 << 20

type multipartFile struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

// HTTPCaptionClient posts one JPEG per call to the vision endpoint.
// It never retries.
type HTTPCaptionClient struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPCaptionClient(endpoint string, httpClient *http.Client, logger *zap.Logger) *HTTPCaptionClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPCaptionClient{endpoint: endpoint, httpClient: httpClient, logger: logger}
}

func (c *HTTPCaptionClient) Analyze(ctx context.Context, image []byte, prompt string, languageCode string) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}

	ctx, span := otel.Tracer("utils").Start(ctx, "HTTPCaptionClient.Analyze")
	defer span.End()
	span.SetAttributes(
		attribute.Int("image.bytes", len(image)),
		attribute.String("language", NormalizeLanguage(languageCode)),
	)

	start := time.Now()
	body, err := postMultipart(ctx, c.httpClient, c.endpoint,
		map[string]string{"prompt": BuildPrompt(prompt, languageCode)},
		multipartFile{field: "image", filename: "photo.jpg", contentType: "image/jpeg", data: image},
	)
	if err != nil {
		metrics.CaptionRequestsTotal.WithLabelValues("failed").Inc()
		span.RecordError(err)
		return "", err
	}

	var payload struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		metrics.CaptionRequestsTotal.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("%w: decode response: %v", ErrRequestFailed, err)
	}
	if payload.Response == nil {
		metrics.CaptionRequestsTotal.WithLabelValues("failed").Inc()
		return "", fmt.Errorf("%w: response field missing", ErrRequestFailed)
	}

	metrics.CaptionRequestsTotal.WithLabelValues("ok").Inc()
	c.logger.Debug("caption received",
		zap.Duration("latency", time.Since(start)),
		zap.Int("chars", len(*payload.Response)),
	)
	return *payload.Response, nil
}

// HTTPTranscriber posts recorded audio to the transcription endpoint.
type HTTPTranscriber struct {
	endpoint   string
	httpClient *http.Client
}

func NewHTTPTranscriber(endpoint string, httpClient *http.Client) *HTTPTranscriber {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPTranscriber{endpoint: endpoint, httpClient: httpClient}
}

func (t *HTTPTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty audio", ErrRequestFailed)
	}
	if filename == "" {
		filename = "audio.wav"
	}

	body, err := postMultipart(ctx, t.httpClient, t.endpoint, nil,
		multipartFile{field: "audio", filename: filename, contentType: "application/octet-stream", data: audio},
	)
	if err != nil {
		return "", err
	}

	var payload struct {
		Transcription *string `json:"transcription"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrRequestFailed, err)
	}
	if payload.Transcription == nil {
		return "", fmt.Errorf("%w: transcription field missing", ErrRequestFailed)
	}
	return *payload.Transcription, nil
}

func postMultipart(ctx context.Context, client *http.Client, endpoint string, fields map[string]string, file multipartFile) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.field, file.filename))
	header.Set("Content-Type", file.contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("%w: build body: %v", ErrRequestFailed, err)
	}
	if _, err := part.Write(file.data); err != nil {
		return nil, fmt.Errorf("%w: build body: %v", ErrRequestFailed, err)
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("%w: build body: %v", ErrRequestFailed, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: build body: %v", ErrRequestFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrRequestFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}
	return body, nil
}
