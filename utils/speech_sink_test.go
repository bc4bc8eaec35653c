package utils

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpeakerDropsWhileSpeaking(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var mu sync.Mutex
	var spoken []Utterance

	speaker := NewSpeaker(func(ctx context.Context, text string, languageCode string) error {
		mu.Lock()
		spoken = append(spoken, Utterance{Text: text, LanguageCode: languageCode})
		mu.Unlock()
		started <- struct{}{}
		<-release
		return nil
	}, nil)

	assert.Equal(t, SpeechIdle, speaker.State())
	speaker.Speak("Recording started", "en")
	<-started
	assert.Equal(t, SpeechSpeaking, speaker.State())

	speaker.Speak("dropped", "en")
	close(release)
	speaker.Wait()
	assert.Equal(t, SpeechIdle, speaker.State())

	speaker.Speak("Recording stopped", "es")
	<-started
	speaker.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Utterance{{"Recording started", "en"}, {"Recording stopped", "es"}}, spoken)
}

func TestSpeakerIgnoresEmptyText(t *testing.T) {
	called := false
	speaker := NewSpeaker(func(context.Context, string, string) error {
		called = true
		return nil
	}, nil)

	speaker.Speak("  ", "en")
	speaker.Wait()
	assert.False(t, called)
	assert.Equal(t, SpeechIdle, speaker.State())
}
