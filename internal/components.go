package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/starford/secondbrain/internal/ask"
	"github.com/starford/secondbrain/internal/attachments"
	"github.com/starford/secondbrain/internal/captures"
	"github.com/starford/secondbrain/internal/categorizer"
	"github.com/starford/secondbrain/internal/db"
	"github.com/starford/secondbrain/internal/events"
	"github.com/starford/secondbrain/internal/llm"
	"github.com/starford/secondbrain/internal/noteservice"
	"github.com/starford/secondbrain/internal/pipeline"
	"github.com/starford/secondbrain/internal/sse"
	"github.com/starford/secondbrain/internal/vault"
)

const notesChangedThrottle = 2 * time.Second

// components holds the wired services shared by every entry point.
type components struct {
	cfg         *Config
	logger      *slog.Logger
	db          *db.DB
	broker      *sse.Broker
	notes       *noteservice.Service
	captures    *captures.Service
	calendar    *events.Calendar
	extractor   *events.Extractor
	pipeline    *pipeline.Pipeline
	ask         *ask.Service
	attachments *attachments.Store
	// syncer is nil when the vault mirror is disabled.
	syncer *vault.Syncer
}

func newComponents(cfg *Config, logger *slog.Logger) (*components, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	store, err := db.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	files, err := attachments.New(cfg.Attachments.Path)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("init attachments: %w", err)
	}

	model := llm.NewClient(llm.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
	})
	if !model.Configured() {
		logger.Warn("LLM API key not configured, captures stay pending and ask is unavailable")
	}

	broker := sse.NewBroker(notesChangedThrottle)
	notes := noteservice.NewService(store, broker)
	engine := categorizer.NewEngine(model, store, llm.NewImageLoader(files.Dir(), cfg.LLM.ImageTimeout), cfg.LLM.MaxTokens, logger)

	c := &components{
		cfg:         cfg,
		logger:      logger,
		db:          store,
		broker:      broker,
		notes:       notes,
		captures:    captures.NewService(store, broker),
		calendar:    events.NewCalendar(store, cfg.Calendar.Location()),
		extractor:   events.NewExtractor(store, logger),
		pipeline:    pipeline.New(store, engine, notes, broker, logger),
		ask:         ask.NewService(store, model, cfg.LLM.AskMaxTokens),
		attachments: files,
	}

	if cfg.Vault.Enabled {
		fs, err := vault.NewFS(cfg.Vault.Path)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("init vault: %w", err)
		}
		c.syncer = vault.NewSyncer(fs, notes, logger)
	}
	return c, nil
}

// Close releases the database and stops the broker.
func (c *components) Close() {
	c.broker.Close()
	if err := c.db.Close(); err != nil {
		c.logger.Error("close db failed", slog.String("error", err.Error()))
	}
}

// extract runs one extraction pass and announces changes.
func (c *components) extract(ctx context.Context) (events.Result, error) {
	res, err := c.extractor.Run(ctx)
	if err != nil {
		return res, err
	}
	if res.Changed() {
		c.broker.Publish(sse.Event{Type: sse.TypeEventsExtracted, Data: res})
	}
	return res, nil
}

// process runs one capture pipeline pass.
func (c *components) process(ctx context.Context) pipeline.Result {
	return c.pipeline.ProcessNext(ctx)
}
