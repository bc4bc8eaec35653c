// Package server exposes the vision and transcription endpoints the
// capture client talks to.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const defaultPrompt = "Describe this image."

type Server struct {
	vision   VisionModel
	stt      SpeechToText
	maxBytes int64
	logger   *zap.Logger
}

// New builds a server. stt may be nil, in which case /transcribe answers
// 503.
func New(vision VisionModel, stt SpeechToText, maxBytes int64, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxBytes <= 0 {
		maxBytes = 20 << 20
	}
	return &Server{vision: vision, stt: stt, maxBytes: maxBytes, logger: logger}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /analyze-image", s.handleAnalyzeImage)
	mux.HandleFunc("POST /transcribe", s.handleTranscribe)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes)
	if err := r.ParseMultipartForm(s.maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "No image uploaded.")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image uploaded.")
		return
	}
	defer file.Close()
	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "Empty filename.")
		return
	}

	image, err := io.ReadAll(file)
	if err != nil || len(image) == 0 {
		writeError(w, http.StatusBadRequest, "No image uploaded.")
		return
	}

	prompt := strings.TrimSpace(r.FormValue("prompt"))
	if prompt == "" {
		prompt = defaultPrompt
	}
	mimeType := guessImageType(header.Filename, header.Header.Get("Content-Type"))

	log := s.logger.With(zap.String("filename", filepath.Base(header.Filename)))
	log.Info("image received", zap.String("prompt", prompt), zap.Int("bytes", len(image)), zap.String("mime", mimeType))

	text, err := s.vision.Describe(r.Context(), mimeType, image, prompt)
	if err != nil {
		log.Error("vision request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to process image")
		return
	}

	log.Info("vision response", zap.Int("chars", len(text)))
	writeJSON(w, http.StatusOK, map[string]string{"response": text})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if s.stt == nil {
		writeError(w, http.StatusServiceUnavailable, "Transcription is not configured.")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes)
	if err := r.ParseMultipartForm(s.maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "No audio uploaded.")
		return
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No audio uploaded.")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." {
		filename = "audio.wav"
	}

	text, err := s.stt.Transcribe(r.Context(), filename, file)
	if err != nil {
		s.logger.Error("transcription failed", zap.String("filename", filename), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to transcribe audio")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"transcription": text})
}

// guessImageType prefers the filename extension and falls back to the
// part header, then JPEG.
func guessImageType(filename, header string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); strings.HasPrefix(t, "image/") {
		return t
	}
	if t, _, err := mime.ParseMediaType(header); err == nil && strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/jpeg"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ListenAndServe runs until the server is shut down.
func ListenAndServe(srv *http.Server, logger *zap.Logger) error {
	logger.Info("server listening", zap.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
