package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmylchreest/amm-core/internal/config"
	"github.com/jmylchreest/amm-core/internal/core/concurrency"
	"github.com/jmylchreest/amm-core/internal/core/registry"
	"github.com/jmylchreest/amm-core/internal/core/stagetracker"
	"github.com/jmylchreest/amm-core/internal/core/taskmanager"
	"github.com/jmylchreest/amm-core/internal/database"
	"github.com/jmylchreest/amm-core/internal/database/migrations"
	"github.com/jmylchreest/amm-core/internal/plugins"
	"github.com/jmylchreest/amm-core/internal/plugins/processors"
	"github.com/jmylchreest/amm-core/internal/plugins/tasks"
	"github.com/jmylchreest/amm-core/internal/repository"
	"github.com/shirou/gopsutil/v4/cpu"
)

// pipelineApp bundles the handles every subcommand (serve/run/plugins)
// needs after connecting to the database and wiring the plugin registry —
// the single explicit wiring point each command shares instead of
// duplicating construction order.
type pipelineApp struct {
	DB       *database.DB
	Registry *registry.Registry
	Files    *repository.FileRepository
	Artwork  *repository.ArtworkRepository
	TaskRuns *repository.TaskRunRepository
	Ctrl     *concurrency.Controller
	Manager  *taskmanager.Manager
}

// newPipelineApp connects to the database, runs pending migrations, and
// registers every plugin. Callers are responsible for closing app.DB.
func newPipelineApp(cfg *config.Config, logger *slog.Logger) (*pipelineApp, error) {
	db, err := database.New(cfg.Database, logger, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	migrator := migrations.NewMigrator(db.DB, logger)
	migrator.RegisterAll(migrations.AllMigrations())
	if err := migrator.Up(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	fileRepo := repository.NewFileRepository(db.DB)
	artworkRepo := repository.NewArtworkRepository(db.DB)
	taskRunRepo := repository.NewTaskRunRepository(db.DB)

	reg := registry.New()
	tracker := stagetracker.New(db.DB, db.Driver(), reg, logger)

	deps := plugins.Dependencies{
		Files:   fileRepo,
		Artwork: artworkRepo,
		Tracker: tracker,
		Importer: tasks.ImporterConfig{
			ImportDir:   cfg.Paths.Import,
			MaxFileSize: cfg.Import.MaxFileSize.Bytes(),
		},
		ScanCfg: processors.Config{
			ImportDir:        cfg.Paths.Import,
			ScannerBatchSize: cfg.Scanner.ScannerBatchSize,
		},
		ArtworkCacheDir: cfg.Paths.Art,
		LibraryDir:      cfg.Paths.Music,
		Logger:          logger,
	}
	if err := plugins.Register(reg, deps); err != nil {
		db.Close()
		return nil, err
	}

	cores, err := cpu.Counts(true)
	if err != nil || cores < 1 {
		cores = 1
	}
	ccCfg := concurrency.DefaultConfig(cores)
	ccCfg.SystemLoadLimit = cfg.Concurrency.SystemLoadLimit
	ccCfg.MaxHeavyIO = int64(cfg.Concurrency.MaxHeavyIO)
	ccCfg.MaxNormal = int64(cfg.Concurrency.MaxNormal)
	ctrl := concurrency.New(ccCfg, concurrency.GopsutilLoadSampler{}, logger)

	manager := taskmanager.New(reg, ctrl, taskmanager.Config{
		IdleInterval: cfg.Concurrency.IdleInterval.Duration(),
	}, logger)

	return &pipelineApp{
		DB:       db,
		Registry: reg,
		Files:    fileRepo,
		Artwork:  artworkRepo,
		TaskRuns: taskRunRepo,
		Ctrl:     ctrl,
		Manager:  manager,
	}, nil
}

func (a *pipelineApp) Close() error {
	return a.DB.Close()
}
