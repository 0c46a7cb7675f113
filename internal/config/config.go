// Package config handles assistant configuration
package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	HTTPAddr string

	// LLM provider (Groq's OpenAI-compatible API)
	GroqAPIKey        string
	GroqBaseURL       string
	Model             string
	TranscribeModel   string
	Temperature       float64
	MaxTokens         int
	MaxContextHistory int

	// Screen monitoring
	ScreenCaptureInterval  float64 // seconds
	OCRConfidenceThreshold float64
	CaptureRegion          string // "x,y,w,h", empty means full screen
	ScreenPreprocessing    bool

	// Proactive suggestions
	SuggestionsEnabled bool
	SuggestionCooldown float64 // seconds

	// Voice input
	SampleRate           int
	VoiceEnabled         bool
	ExcludedAudioDevices []string

	// Persistence
	DBPath       string
	DBMaxHistory int
}

func Load() *Config {
	return &Config{
		HTTPAddr:               getEnv("HTTP_ADDR", ":8000"),
		GroqAPIKey:             getEnv("GROQ_API_KEY", ""),
		GroqBaseURL:            getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		Model:                  getEnv("MODEL", "openai/gpt-oss-20b"),
		TranscribeModel:        getEnv("TRANSCRIBE_MODEL", "whisper-large-v3"),
		Temperature:            getEnvFloat("TEMPERATURE", 0.7),
		MaxTokens:              getEnvInt("MAX_TOKENS", 500),
		MaxContextHistory:      getEnvInt("MAX_CONTEXT_HISTORY", 10),
		ScreenCaptureInterval:  getEnvFloat("SCREEN_CAPTURE_INTERVAL", 5.0),
		OCRConfidenceThreshold: getEnvFloat("OCR_CONFIDENCE_THRESHOLD", 0.5),
		CaptureRegion:          getEnv("CAPTURE_REGION", ""),
		ScreenPreprocessing:    getEnvBool("SCREEN_PREPROCESSING", true),
		SuggestionsEnabled:     getEnvBool("SUGGESTIONS_ENABLED", true),
		SuggestionCooldown:     getEnvFloat("SUGGESTION_COOLDOWN", 30.0),
		SampleRate:             getEnvInt("SAMPLE_RATE", 16000),
		VoiceEnabled:           getEnvBool("VOICE_ENABLED", false),
		ExcludedAudioDevices:   getEnvList("EXCLUDED_AUDIO_DEVICES", []string{"monitor", "loopback"}),
		DBPath:                 getEnv("DB_PATH", "sage.db"),
		DBMaxHistory:           getEnvInt("DB_MAX_HISTORY", 1000),
	}
}

// ChatConfigured reports whether an LLM API key is present. Chat and
// suggestions are disabled without one; screen monitoring still works.
func (c *Config) ChatConfigured() bool {
	return c.GroqAPIKey != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
