package utils

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

type SpeechState int32

const (
	SpeechIdle SpeechState = iota
	SpeechSpeaking
)

func (s SpeechState) String() string {
	if s == SpeechSpeaking {
		return "speaking"
	}
	return "idle"
}

// SpeakFunc synthesizes text and returns once playback ends.
type SpeakFunc func(ctx context.Context, text string, languageCode string) error

// CommandSpeaker plays speech through an external TTS binary. Requests
// arriving while a previous one is still playing are dropped.
type CommandSpeaker struct {
	state  atomic.Int32
	speak  SpeakFunc
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewCommandSpeaker runs `command -v <code> <text>` per utterance, which
// matches espeak and espeak-ng.
func NewCommandSpeaker(command string, logger *zap.Logger) *CommandSpeaker {
	return NewSpeaker(func(ctx context.Context, text string, languageCode string) error {
		cmd := exec.CommandContext(ctx, command, "-v", NormalizeLanguage(languageCode), text)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("%s error: %v\nStderr: %s", command, err, stderr.String())
		}
		return nil
	}, logger)
}

func NewSpeaker(speak SpeakFunc, logger *zap.Logger) *CommandSpeaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandSpeaker{speak: speak, logger: logger}
}

func (s *CommandSpeaker) Speak(text string, languageCode string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if !s.state.CompareAndSwap(int32(SpeechIdle), int32(SpeechSpeaking)) {
		s.logger.Debug("speech dropped, already speaking", zap.String("text", text))
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.state.Store(int32(SpeechIdle))
		if err := s.speak(context.Background(), text, languageCode); err != nil {
			s.logger.Warn("speech failed", zap.Error(err))
		}
	}()
}

func (s *CommandSpeaker) State() SpeechState {
	return SpeechState(s.state.Load())
}

// Wait blocks until the current utterance finishes.
func (s *CommandSpeaker) Wait() {
	s.wg.Wait()
}
