// Package internal wires the engine's services together for the CLI
// binary. The cli package declares the service singletons; App fills
// them in once the storage root is known.
package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/devman-ai/devman/internal/cli"
	"github.com/devman-ai/devman/internal/core"
	"github.com/devman-ai/devman/internal/jobs"
	"github.com/devman-ai/devman/internal/knowledge"
	"github.com/devman-ai/devman/internal/observability"
	"github.com/devman-ai/devman/internal/progress"
	"github.com/devman-ai/devman/internal/quality"
	"github.com/devman-ai/devman/internal/storage"
	"github.com/devman-ai/devman/internal/tools"
	"github.com/devman-ai/devman/internal/work"
)

// App holds every constructed service. Tests build one directly; the
// binary builds one through Register and the cli Connect hook.
type App struct {
	Config      *core.Config
	Store       storage.Storage
	Work        *work.Manager
	Knowledge   knowledge.Service
	Searcher    *knowledge.HybridSearcher
	Quality     *quality.Engine
	Jobs        *jobs.Manager
	Tracker     *progress.Tracker
	Blockers    *progress.BlockerDetector
	Executor    tools.Executor
	EventLog    observability.EventLog
	MetricsCalc *observability.MetricsCalculator
	AlertEngine observability.AlertEngine
}

// NewApp loads configuration from basePath and constructs the full
// service graph under the resolved storage root.
func NewApp(basePath, flagRoot string) (*App, error) {
	cfg, err := core.LoadConfig(basePath, flagRoot)
	if err != nil {
		return nil, err
	}

	var store storage.Storage
	switch cfg.Storage.Backend {
	case core.BackendSQLite:
		if err := os.MkdirAll(cfg.Storage.Root, 0o750); err != nil {
			return nil, fmt.Errorf("creating storage root: %w", err)
		}
		store, err = storage.OpenSQLite(filepath.Join(cfg.Storage.Root, "devman.db"))
	default:
		store, err = storage.NewFileStore(cfg.Storage.Root)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Backend, err)
	}

	logDir := filepath.Join(cfg.Storage.Root, "logs")
	if err := os.MkdirAll(logDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	eventLog, err := observability.NewJSONLEventLog(filepath.Join(logDir, "events.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("opening event log: %w", err)
	}

	executor := tools.NewRegistry(
		tools.NewGoTool(),
		tools.NewGitTool(),
		tools.NewShellTool(),
		tools.NewFSTool(),
	)

	app := &App{
		Config:      cfg,
		Store:       store,
		Work:        work.NewManager(store, executor, cfg.Caller),
		Knowledge:   knowledge.NewService(store),
		Quality:     quality.NewEngine(executor),
		Jobs:        jobs.NewManager(),
		Tracker:     progress.NewTracker(store),
		Blockers:    progress.NewBlockerDetector(store),
		Executor:    executor,
		EventLog:    eventLog,
		MetricsCalc: observability.NewMetricsCalculator(eventLog),
		AlertEngine: observability.NewAlertEngine(eventLog, observability.DefaultAlertThresholds()),
	}

	app.Work.SetEventLog(eventLog)

	if cfg.Embedding.Enabled {
		vectors := knowledge.NewVectorService(store, knowledge.NewOllamaEmbedder(cfg.Embedding), cfg.Embedding)
		reranker := knowledge.NewOllamaReranker(cfg.Reranker)
		app.Searcher = knowledge.NewHybridSearcher(vectors, reranker, cfg.Embedding, cfg.Reranker)
	}
	return app, nil
}

// Register installs the cli Connect hook. Called once from main before
// Execute.
func Register() {
	cli.Connect = func(flagRoot string) error {
		app, err := NewApp(".", flagRoot)
		if err != nil {
			return err
		}
		app.install()
		return nil
	}
}

func (a *App) install() {
	cli.Cfg = a.Config
	cli.Store = a.Store
	cli.Work = a.Work
	cli.Knowledge = a.Knowledge
	cli.Searcher = a.Searcher
	cli.Quality = a.Quality
	cli.Jobs = a.Jobs
	cli.Tracker = a.Tracker
	cli.Blockers = a.Blockers
	cli.Executor = a.Executor
	cli.EventLog = a.EventLog
	cli.MetricsCalc = a.MetricsCalc
	cli.AlertEngine = a.AlertEngine
}
