package config

import (
	"log/slog"

	"github.com/caarlos0/env/v10"
)

// Config holds minimal runtime configuration. Extend as needed.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Document and output artifact
	PDFPath          string `env:"PDF_PATH" envDefault:"policies.pdf"`
	OutputPath       string `env:"OUTPUT_PATH" envDefault:"generated_questions.txt"`
	DefaultQuestions int    `env:"DEFAULT_QUESTIONS" envDefault:"20"`

	// LLM
	LLMProvider   string `env:"LLM_PROVIDER" envDefault:"openai"` // "openai" (uses OpenAI API)
	LLMModel      string `env:"LLM_MODEL" envDefault:"gpt-4"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIKey     string `env:"OPENAI_API_KEY"` // CLI fallback only; the web UI always asks for the key
	LLMTimeout    int    `env:"LLM_TIMEOUT" envDefault:"0"` // seconds, 0 disables

	// Session state
	SessionProvider string `env:"SESSION_PROVIDER" envDefault:"memory"` // "memory" or "redis"
	RedisAddr       string `env:"REDIS_ADDR"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	SessionTTL      int    `env:"SESSION_TTL" envDefault:"3600"` // seconds

	// Run events
	EventsProvider string `env:"EVENTS_PROVIDER" envDefault:"none"` // "none" or "nats"
	EventsURL      string `env:"EVENTS_URL"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
