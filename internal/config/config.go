package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains all runtime settings for the speech-response service and
// its playback client.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	LLMProvider  string
	LLMBaseURL   string
	LLMAPIKey    string
	LLMModel     string
	LLMStreaming bool
	LLMTimeout   time.Duration

	TTSProvider     string
	TTSExecCommand  string
	TTSFallbackClip string
	TTSWorkers      int

	ElevenLabsAPIKey       string
	ElevenLabsBaseURL      string
	ElevenLabsVoiceID      string
	ElevenLabsModelID      string
	ElevenLabsOutputFormat string
	ElevenLabsTimeout      time.Duration

	PromptFile    string
	HistoryWindow int
	DatabaseURL   string

	ServerURL       string
	AudioPlayer     string
	TranscodePlayer string
	FillerDir       string
	FillerEnabled   bool
	PostFillerDelay time.Duration
}

// Load reads environment variables and applies safe defaults. A .env file in
// the working directory is folded in first when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "bones"),
		LLMProvider:      envOrDefault("LLM_PROVIDER", "http"),
		LLMBaseURL:       envOrDefault("LLM_BASE_URL", "http://localhost:11434/v1"),
		LLMAPIKey:        stringsTrimSpace("LLM_API_KEY"),
		LLMModel:         envOrDefault("LLM_MODEL", "llama3"),
		TTSProvider:      envOrDefault("TTS_PROVIDER", "auto"),
		TTSExecCommand:   stringsTrimSpace("TTS_EXEC_COMMAND"),
		TTSFallbackClip:  stringsTrimSpace("TTS_FALLBACK_CLIP"),
		ElevenLabsAPIKey: stringsTrimSpace("ELEVENLABS_API_KEY"),
		ElevenLabsBaseURL: envOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		// A gravelly premade voice suits the pirate persona.
		ElevenLabsVoiceID:      envOrDefault("ELEVENLABS_VOICE_ID", "pNInz6obpgDQGcFmaJgB"),
		ElevenLabsModelID:      envOrDefault("ELEVENLABS_MODEL_ID", "eleven_multilingual_v2"),
		ElevenLabsOutputFormat: envOrDefault("ELEVENLABS_OUTPUT_FORMAT", "mp3_44100_128"),
		PromptFile:             envOrDefault("PROMPT_FILE", "prompt.txt"),
		DatabaseURL:            stringsTrimSpace("DATABASE_URL"),
		ServerURL:              envOrDefault("BONES_SERVER_URL", "http://localhost:8080"),
		AudioPlayer:            envOrDefault("AUDIO_PLAYER", "aplay -q"),
		TranscodePlayer:        envOrDefault("TRANSCODE_PLAYER", "mpg123 -q -"),
		FillerDir:              envOrDefault("FILLER_DIR", "fillers"),

		LLMStreaming:      true,
		LLMTimeout:        90 * time.Second,
		ElevenLabsTimeout: 30 * time.Second,
		TTSWorkers:        2,
		HistoryWindow:     10,
		FillerEnabled:     true,
		PostFillerDelay:   300 * time.Millisecond,
		ShutdownTimeout:   15 * time.Second,
		AllowAnyOrigin:    false,
	}

	var err error
	cfg.LLMStreaming, err = boolFromEnv("LLM_STREAMING", cfg.LLMStreaming)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMTimeout, err = durationFromEnv("LLM_TIMEOUT", cfg.LLMTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ElevenLabsTimeout, err = durationFromEnv("ELEVENLABS_TIMEOUT", cfg.ElevenLabsTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TTSWorkers, err = intFromEnv("TTS_WORKERS", cfg.TTSWorkers)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryWindow, err = intFromEnv("HISTORY_WINDOW", cfg.HistoryWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.FillerEnabled, err = boolFromEnv("FILLER_ENABLED", cfg.FillerEnabled)
	if err != nil {
		return Config{}, err
	}
	cfg.PostFillerDelay, err = durationFromEnv("POST_FILLER_DELAY", cfg.PostFillerDelay)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.TTSWorkers <= 0 {
		return Config{}, fmt.Errorf("TTS_WORKERS must be positive")
	}
	if cfg.HistoryWindow <= 0 {
		return Config{}, fmt.Errorf("HISTORY_WINDOW must be positive")
	}
	if cfg.PostFillerDelay < 0 {
		return Config{}, fmt.Errorf("POST_FILLER_DELAY must not be negative")
	}
	if cfg.LLMTimeout <= 0 {
		return Config{}, fmt.Errorf("LLM_TIMEOUT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
