package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	VisionEndpoint     string `env:"AYA_VISION_ENDPOINT"     envDefault:"http://localhost:3057/analyze-image"`
	TranscribeEndpoint string `env:"AYA_TRANSCRIBE_ENDPOINT" envDefault:"http://localhost:3057/transcribe"`
	Language           string `env:"AYA_LANGUAGE"            envDefault:"en"`
	Prompt             string `env:"AYA_PROMPT"              envDefault:"Describe this image."`

	CameraInput  string `env:"AYA_CAMERA_INPUT"  envDefault:"/dev/video0"`
	CameraFormat string `env:"AYA_CAMERA_FORMAT" envDefault:"v4l2"`
	ClipDir      string `env:"AYA_CLIP_DIR"      envDefault:".tmp"`
	FFmpegPath   string `env:"AYA_FFMPEG"        envDefault:"ffmpeg"`
	FFprobePath  string `env:"AYA_FFPROBE"       envDefault:"ffprobe"`

	SpeechCommand string        `env:"AYA_SPEECH_COMMAND" envDefault:"espeak-ng"`
	TrailHold     time.Duration `env:"AYA_TRAIL_HOLD"     envDefault:"1s"`
	EventBuffer   int           `env:"AYA_EVENT_BUFFER"   envDefault:"16"`

	MetricsPort    int    `env:"METRICS_PORT"    envDefault:"9102"`
	JaegerEndpoint string `env:"JAEGER_ENDPOINT"`
	LogLevel       string `env:"LOG_LEVEL"       envDefault:"info"`

	Server ServerConfig
}

// ServerConfig configures the vision/transcription HTTP server.
type ServerConfig struct {
	Addr           string `env:"SERVER_ADDR"      envDefault:":3057"`
	UploadMaxBytes int64  `env:"UPLOAD_MAX_BYTES" envDefault:"20971520"`

	VisionProvider  string `env:"VISION_PROVIDER" envDefault:"openai"`
	VisionBaseURL   string `env:"VISION_BASE_URL" envDefault:"https://api.cohere.ai/compatibility/v1"`
	VisionModel     string `env:"VISION_MODEL"    envDefault:"c4ai-aya-vision-8b"`
	VisionAPIKey    string `env:"COHERE_API_KEY"`
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `env:"ANTHROPIC_MODEL" envDefault:"claude-3-haiku-20240307"`

	OpenAIAPIKey      string `env:"OPENAI_API_KEY"`
	TranscribeBaseURL string `env:"TRANSCRIBE_BASE_URL"`
	TranscribeModel   string `env:"TRANSCRIBE_MODEL" envDefault:"whisper-1"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
