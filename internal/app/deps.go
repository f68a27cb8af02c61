package app

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/v3"

	"pdf-questions/internal/batch"
	"pdf-questions/internal/config"
	"pdf-questions/internal/events"
	"pdf-questions/internal/llm"
	"pdf-questions/internal/logger"
	"pdf-questions/internal/output"
	"pdf-questions/internal/pdftext"
	"pdf-questions/internal/questions"
	"pdf-questions/internal/session"
)

// Deps bundles common runtime dependencies for the web UI and the CLI.
type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	Document *pdftext.Document
	Output   *output.File
	Runner   *batch.Runner
	Sessions session.Store
	Bus      events.Bus

	closers []func() error
}

// Build loads env, config, and shared components, logging to stdout.
func Build() (Deps, error) {
	return BuildWith(os.Stdout, nil)
}

// BuildWith is Build with logs sent to logOut and an optional hook that
// adjusts the loaded config, e.g. from command-line flags.
func BuildWith(logOut io.Writer, override func(*config.Config)) (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	if override != nil {
		override(&cfg)
	}
	log := logger.NewWithWriter(logOut, cfg.LogLevel)

	client, err := buildLLM(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	bus, busCloser, err := buildBus(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize event bus: %w", err)
	}
	sessions := buildSessions(cfg, log)

	out := output.NewFile(cfg.OutputPath)
	gen := questions.NewGenerator(client, log)
	return Deps{
		Config:   cfg,
		Log:      log,
		Document: pdftext.NewDocument(cfg.PDFPath, pdftext.PDFExtractor{}, log),
		Output:   out,
		Runner:   batch.NewRunner(gen, out, bus, log),
		Sessions: sessions,
		Bus:      bus,
		closers:  []func() error{sessions.Close, busCloser},
	}, nil
}

// Close releases connections opened by Build.
func (d Deps) Close() {
	for _, c := range d.closers {
		if err := c(); err != nil {
			d.Log.Warn("failed to close dependency", "err", err)
		}
	}
}

// SessionTTL is the configured session lifetime.
func (d Deps) SessionTTL() time.Duration {
	return time.Duration(d.Config.SessionTTL) * time.Second
}

func buildLLM(cfg config.Config, log *slog.Logger) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		timeout := time.Duration(cfg.LLMTimeout) * time.Second
		client := llm.NewOpenAIClient(openai.ChatModel(cfg.LLMModel), cfg.OpenAIBaseURL, timeout)
		log.Info("using OpenAI LLM client", "model", client.Model(), "timeout", timeout)
		return client, nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid option: openai)", cfg.LLMProvider)
	}
}

func buildBus(cfg config.Config, log *slog.Logger) (events.Bus, func() error, error) {
	noClose := func() error { return nil }
	switch cfg.EventsProvider {
	case "none", "":
		return events.NewNoopBus(), noClose, nil
	case "nats":
		if cfg.EventsURL == "" {
			return nil, nil, fmt.Errorf("EVENTS_URL is required when EVENTS_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.EventsURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		log.Info("using NATS event bus")
		return events.NewNATS(log, nc), func() error { return nc.Drain() }, nil
	default:
		return nil, nil, fmt.Errorf("invalid EVENTS_PROVIDER: %s (valid options: none, nats)", cfg.EventsProvider)
	}
}

// buildSessions never fails: Redis problems fall back to in-memory sessions.
func buildSessions(cfg config.Config, log *slog.Logger) session.Store {
	if cfg.SessionProvider == "redis" {
		if cfg.RedisAddr == "" {
			log.Warn("REDIS_ADDR not set; using in-memory sessions")
			return session.NewMemoryStore()
		}
		store, err := session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Warn("redis unavailable; using in-memory sessions", "err", err)
			return session.NewMemoryStore()
		}
		log.Info("using Redis session store", "addr", cfg.RedisAddr)
		return store
	}
	log.Info("using in-memory session store")
	return session.NewMemoryStore()
}
