package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mossland/Algora-sub004/internal/config"
	"github.com/mossland/Algora-sub004/internal/database"
	"github.com/mossland/Algora-sub004/internal/events"
	"github.com/mossland/Algora-sub004/internal/kpi"
	"github.com/mossland/Algora-sub004/internal/observability"
	"github.com/mossland/Algora-sub004/internal/orchestrator"
	"github.com/mossland/Algora-sub004/internal/specialist"
	"github.com/mossland/Algora-sub004/internal/todo"
	"github.com/mossland/Algora-sub004/internal/workflow"
)

// app holds the wired service graph. Construction order matters: the
// database and bus come up first, the orchestrator last.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *database.DB
	bus       *events.DefaultEventBus
	collector *kpi.Collector
	todos     *todo.Manager
	manager   *specialist.Manager
	orch      *orchestrator.Orchestrator
	metrics   *observability.MetricsServer
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	dbCfg := database.DefaultConfig(cfg.Database.Path)
	if cfg.Database.BusyTimeout > 0 {
		dbCfg.BusyTimeout = cfg.Database.BusyTimeout
	}
	db, err := database.OpenWithConfig(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	bus := events.NewEventBus()

	collector, err := kpi.NewCollector(bus, logger,
		kpi.WithWindowCapacity(cfg.KPI.WindowCapacity),
		kpi.WithAlertCapacity(cfg.KPI.AlertCapacity),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create kpi collector: %w", err)
	}

	todos := todo.NewManager(todo.NewSQLiteTaskStore(db), bus, logger)

	provider, err := specialist.NewLangchainProvider(cfg.Specialist.Provider)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create llm provider: %w", err)
	}

	queue := specialist.NewWorkerQueue(ctx,
		cfg.Specialist.Dispatch.Workers, cfg.Specialist.Dispatch.QueueCapacity)

	manager, err := specialist.NewManager(ctx, provider, specialist.NewDefaultGate(), queue,
		cfg.Specialist.Dispatch, logger)
	if err != nil {
		queue.Stop()
		db.Close()
		return nil, fmt.Errorf("create specialist manager: %w", err)
	}

	machine, err := workflow.NewStateMachine()
	if err != nil {
		manager.Stop()
		db.Close()
		return nil, fmt.Errorf("create state machine: %w", err)
	}

	orch, err := orchestrator.New(orchestrator.Deps{
		Machine:     machine,
		Todos:       todos,
		Specialists: manager,
		Store:       orchestrator.NewSQLiteWorkflowStore(db),
		Collector:   collector,
		Bus:         bus,
		Logger:      logger,
	}, cfg.Orchestrator)
	if err != nil {
		manager.Stop()
		db.Close()
		return nil, fmt.Errorf("create orchestrator: %w", err)
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		bus:       bus,
		collector: collector,
		todos:     todos,
		manager:   manager,
		orch:      orch,
	}

	if cfg.Metrics.Enabled {
		metrics, err := observability.NewMetricsServer(collector, logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("create metrics server: %w", err)
		}
		a.metrics = metrics
	}

	return a, nil
}

// close tears the graph down in reverse construction order. The orchestrator
// drains before the dispatcher stops so in-flight tasks finish cleanly.
func (a *app) close() {
	a.orch.Stop()
	a.manager.Stop()
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.logger.Warn("metrics shutdown failed", "error", err)
		}
		cancel()
	}
	if err := a.bus.Close(); err != nil {
		a.logger.Warn("event bus close failed", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("database close failed", "error", err)
	}
}

// applyWorkflowOverrides installs transition table overrides from a
// definitions file before any workflow starts.
func applyWorkflowOverrides(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open workflow definitions: %w", err)
	}
	defer f.Close()

	tables, paths, err := workflow.LoadDefinitions(f)
	if err != nil {
		return err
	}
	return workflow.ApplyDefinitions(tables, paths)
}
