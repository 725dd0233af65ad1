package cmd

import (
	"fmt"
	"time"

	"scene-archiver/core/config"
	"scene-archiver/core/database"
	"scene-archiver/core/logger"
	"scene-archiver/core/pool"
	"scene-archiver/core/storage"
	"scene-archiver/feature/archive"
	"scene-archiver/feature/archive/reconcile"
	"scene-archiver/feature/archive/scancache"

	"go.uber.org/zap"
)

// app bundles the wired-up engine shared by the sync, serve, and cache
// commands.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	cache   *scancache.Cache
	pool    *pool.Pool
	service *archive.Service
}

// initApp loads configuration and wires the engine: logger, scan-cache
// database, connection pool, reconciliation manager, archive service.
func initApp() (*app, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zap.ReplaceGlobals(logg)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open scan cache database: %w", err)
	}

	ttl := time.Duration(cfg.Archive.CacheTTLMinutes) * time.Minute
	cache, err := scancache.New(db, ttl, logg)
	if err != nil {
		return nil, err
	}

	p := pool.New(cfg.Pool, func() (storage.Client, error) {
		return storage.NewClient(cfg.Storage)
	}, logg)

	mgr := reconcile.NewManager(cfg.Archive, p, cache, logg)
	service := archive.NewService(mgr, cache, p, cfg.Archive.Root, logg)

	return &app{
		cfg:     cfg,
		log:     logg,
		cache:   cache,
		pool:    p,
		service: service,
	}, nil
}
