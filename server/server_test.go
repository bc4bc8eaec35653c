package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HugeFrog24/aya-sight/utils"
)

type fakeVision struct {
	mimeType string
	image    []byte
	prompt   string
	reply    string
	err      error
}

func (f *fakeVision) Describe(ctx context.Context, mimeType string, image []byte, prompt string) (string, error) {
	f.mimeType, f.image, f.prompt = mimeType, image, prompt
	return f.reply, f.err
}

type fakeSTT struct {
	filename string
	text     string
	err      error
}

func (f *fakeSTT) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	f.filename = filename
	io.Copy(io.Discard, audio)
	return f.text, f.err
}

func TestAnalyzeImageWithCaptionClient(t *testing.T) {
	vision := &fakeVision{reply: "A red bicycle against a wall."}
	srv := httptest.NewServer(New(vision, nil, 0, nil).Handler())
	defer srv.Close()

	client := utils.NewHTTPCaptionClient(srv.URL+"/analyze-image", srv.Client(), nil)
	text, err := client.Analyze(context.Background(), []byte{0xff, 0xd8, 0xff}, "", "hi")
	require.NoError(t, err)

	assert.Equal(t, "A red bicycle against a wall.", text)
	assert.Equal(t, "image/jpeg", vision.mimeType)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, vision.image)
	assert.Equal(t, "Describe this image. Respond in Hindi.", vision.prompt)
}

func TestAnalyzeImageDefaultsPrompt(t *testing.T) {
	vision := &fakeVision{reply: "ok"}
	h := New(vision, nil, 0, nil).Handler()

	body, contentType := multipartBody(t, "image", "shot.png", []byte("png"), nil)
	req := httptest.NewRequest(http.MethodPost, "/analyze-image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"response":"ok"}`, rec.Body.String())
	assert.Equal(t, "image/png", vision.mimeType)
	assert.Equal(t, defaultPrompt, vision.prompt)
}

func TestAnalyzeImageErrors(t *testing.T) {
	t.Run("missing image", func(t *testing.T) {
		h := New(&fakeVision{}, nil, 0, nil).Handler()
		body, contentType := multipartBody(t, "photo", "a.jpg", []byte("x"), nil)
		req := httptest.NewRequest(http.MethodPost, "/analyze-image", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"No image uploaded."}`, rec.Body.String())
	})

	t.Run("backend failure", func(t *testing.T) {
		h := New(&fakeVision{err: errors.New("upstream 503")}, nil, 0, nil).Handler()
		body, contentType := multipartBody(t, "image", "a.jpg", []byte("x"), map[string]string{"prompt": "Read the sign"})
		req := httptest.NewRequest(http.MethodPost, "/analyze-image", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Failed to process image"}`, rec.Body.String())
	})

	t.Run("wrong method", func(t *testing.T) {
		h := New(&fakeVision{}, nil, 0, nil).Handler()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/analyze-image", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestTranscribeWithClient(t *testing.T) {
	stt := &fakeSTT{text: "what color is the car"}
	srv := httptest.NewServer(New(&fakeVision{}, stt, 0, nil).Handler())
	defer srv.Close()

	text, err := utils.NewHTTPTranscriber(srv.URL+"/transcribe", srv.Client()).
		Transcribe(context.Background(), []byte("RIFF"), "voice.wav")
	require.NoError(t, err)
	assert.Equal(t, "what color is the car", text)
	assert.Equal(t, "voice.wav", stt.filename)
}

func TestTranscribeNotConfigured(t *testing.T) {
	h := New(&fakeVision{}, nil, 0, nil).Handler()
	body, contentType := multipartBody(t, "audio", "a.wav", []byte("x"), nil)
	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	New(&fakeVision{}, nil, 0, nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestGuessImageType(t *testing.T) {
	assert.Equal(t, "image/png", guessImageType("a.PNG", ""))
	assert.Equal(t, "image/webp", guessImageType("blob", "image/webp"))
	assert.Equal(t, "image/jpeg", guessImageType("blob", "application/octet-stream"))
}

func TestNewVisionModelRequiresKeys(t *testing.T) {
	_, err := NewVisionModel("openai", "", "", "m", "", "")
	assert.Error(t, err)
	_, err = NewVisionModel("anthropic", "", "", "", "", "claude")
	assert.Error(t, err)
	_, err = NewVisionModel("gemini", "k", "", "", "", "")
	assert.Error(t, err)

	model, err := NewVisionModel("cohere", "key", "https://api.cohere.ai/compatibility/v1", "c4ai-aya-vision-8b", "", "")
	require.NoError(t, err)
	assert.IsType(t, &OpenAIVision{}, model)
}

func multipartBody(t *testing.T, field, filename string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}
