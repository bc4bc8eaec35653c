package utils

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPCaptionClientAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}

		file, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "jpeg-bytes", string(data))
		assert.Equal(t, "image/jpeg", header.Header.Get("Content-Type"))
		assert.Equal(t, "What is this? Respond in Spanish.", r.FormValue("prompt"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"response":"Un perro en el parque."}`)
	}))
	defer srv.Close()

	client := NewHTTPCaptionClient(srv.URL, srv.Client(), nil)
	text, err := client.Analyze(context.Background(), []byte("jpeg-bytes"), "What is this?", "es")
	require.NoError(t, err)
	assert.Equal(t, "Un perro en el parque.", text)
}

func TestHTTPCaptionClientFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":"Failed to process image"}`},
		{"bad request", http.StatusBadRequest, `{"error":"No image uploaded."}`},
		{"malformed json", http.StatusOK, `{"response":`},
		{"missing field", http.StatusOK, `{"caption":"a cat"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			client := NewHTTPCaptionClient(srv.URL, srv.Client(), nil)
			_, err := client.Analyze(context.Background(), []byte("img"), "", "en")
			assert.ErrorIs(t, err, ErrRequestFailed)
		})
	}
}

func TestHTTPCaptionClientTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewHTTPCaptionClient(url, nil, nil)
	_, err := client.Analyze(context.Background(), []byte("img"), "", "en")
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestHTTPCaptionClientEmptyImage(t *testing.T) {
	client := NewHTTPCaptionClient("http://127.0.0.1:1", nil, nil)
	_, err := client.Analyze(context.Background(), nil, "", "en")
	assert.ErrorIs(t, err, ErrEmptyImage)
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestHTTPTranscriber(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("audio")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "pcm", string(data))
		assert.Equal(t, "question.wav", header.Filename)
		io.WriteString(w, `{"transcription":"what is in front of me"}`)
	}))
	defer srv.Close()

	tr := NewHTTPTranscriber(srv.URL, srv.Client())
	text, err := tr.Transcribe(context.Background(), []byte("pcm"), "question.wav")
	require.NoError(t, err)
	assert.Equal(t, "what is in front of me", text)

	_, err = tr.Transcribe(context.Background(), nil, "")
	assert.ErrorIs(t, err, ErrRequestFailed)
}

func TestHTTPTranscriberMissingField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"error":"model not loaded"}`)
	}))
	defer srv.Close()

	_, err := NewHTTPTranscriber(srv.URL, srv.Client()).Transcribe(context.Background(), []byte("pcm"), "a.wav")
	assert.ErrorIs(t, err, ErrRequestFailed)
}
