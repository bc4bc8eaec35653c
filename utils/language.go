package utils

import (
	"fmt"
	"strings"

	"github.com/pemistahl/lingua-go"
)

const (
	DefaultLanguageCode = "en"
	DefaultPrompt       = "Describe this image."
)

var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"hi": "Hindi",
	"fr": "French",
}

// SupportedLanguage reports whether code has a display name.
func SupportedLanguage(code string) bool {
	_, ok := languageNames[strings.ToLower(code)]
	return ok
}

// NormalizeLanguage lower-cases a supported code and maps anything else
// to the default.
func NormalizeLanguage(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if SupportedLanguage(code) {
		return code
	}
	return DefaultLanguageCode
}

// LanguageName returns the display name used in prompts; unknown codes
// fall back to English.
func LanguageName(code string) string {
	return languageNames[NormalizeLanguage(code)]
}

// BuildPrompt appends the reply-language instruction the vision service
// sees. The service never receives the raw code.
func BuildPrompt(prompt string, languageCode string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return fmt.Sprintf("%s Respond in %s.", prompt, LanguageName(languageCode))
}

// LanguageDetector guesses which supported language a text is written in.
type LanguageDetector struct {
	detector lingua.LanguageDetector
}

func NewLanguageDetector() *LanguageDetector {
	detector := lingua.NewLanguageDetectorBuilder().
		FromLanguages(lingua.English, lingua.Spanish, lingua.Hindi, lingua.French).
		Build()
	return &LanguageDetector{detector: detector}
}

// DetectCode returns the ISO 639-1 code of text, or false when the
// detector cannot decide.
func (d *LanguageDetector) DetectCode(text string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	language, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	code := strings.ToLower(language.IsoCode639_1().String())
	if !SupportedLanguage(code) {
		return "", false
	}
	return code, true
}
