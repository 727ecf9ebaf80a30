package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docuflow/internal/common"
	"github.com/joseph-ayodele/docuflow/internal/export"
	"github.com/joseph-ayodele/docuflow/internal/extraction"
	"github.com/joseph-ayodele/docuflow/internal/handoff"
	"github.com/joseph-ayodele/docuflow/internal/orchestrator"
	"github.com/joseph-ayodele/docuflow/internal/repository"
	"github.com/joseph-ayodele/docuflow/internal/templates"
	"github.com/joseph-ayodele/docuflow/internal/workflow"
)

// app holds the wired components shared by all commands.
type app struct {
	cfg     *common.Config
	logger  *slog.Logger
	svc     extraction.Service
	pool    *pgxpool.Pool
	handoff handoff.Store
	catalog *templates.Catalog
	coord   *templates.Coordinator
	ctrl    *workflow.Controller
	orch    *orchestrator.Orchestrator
}

func newApp(ctx context.Context) (*app, error) {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	svc := extraction.NewClient(extraction.ClientConfig{
		BaseURL: cfg.Service.BaseURL,
		APIKey:  cfg.Service.APIKey,
		Timeout: cfg.Service.Timeout,
	}, logger)

	var (
		pool     *pgxpool.Pool
		recorder workflow.JobRecorder
		cache    templates.CacheStore
	)
	if cfg.Database.DSN != "" {
		p, err := repository.Open(ctx, repository.Config{
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		pool = p
		recorder = repository.NewExtractionJobRepository(pool, logger)
		cache = repository.NewTemplateRepository(pool, logger)
	}

	var store handoff.Store
	if cfg.Handoff.Path != "" {
		s, err := handoff.OpenSQLite(cfg.Handoff.Path, cfg.Handoff.TTL, logger)
		if err != nil {
			return nil, err
		}
		store = s
	} else {
		store = handoff.NewMemoryStore()
	}

	catalog := templates.NewCatalog(svc, cache, 5*time.Minute, logger)
	coord := templates.NewCoordinator(catalog, svc, logger)
	sink := export.FileSink(cfg.Export.Dir, logger)
	ctrl := workflow.NewController(svc, nil, recorder, sink, export.NewService(logger), logger)
	orch := orchestrator.New(store, catalog, coord, ctrl, logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		svc:     svc,
		pool:    pool,
		handoff: store,
		catalog: catalog,
		coord:   coord,
		ctrl:    ctrl,
		orch:    orch,
	}, nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if s, ok := a.handoff.(*handoff.SQLiteStore); ok {
		_ = s.Close()
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := &cobra.Command{
		Use:           "docuflow",
		Short:         "Document field-extraction workflow",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(ctx))
	root.AddCommand(newTemplatesCmd(ctx))
	root.AddCommand(newWatchCmd(ctx))
	root.AddCommand(newExportCmd(ctx))

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
