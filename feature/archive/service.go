package archive

import (
	"context"

	"scene-archiver/core/pool"
	"scene-archiver/feature/archive/models"
	"scene-archiver/feature/archive/reconcile"
	"scene-archiver/feature/archive/scancache"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service bundles the reconciliation engine for its consumers: the HTTP
// handlers, the CLI sync command, and the cron scheduler.
type Service struct {
	mgr      *reconcile.Manager
	registry *Registry
	cache    *scancache.Cache
	pool     *pool.Pool
	root     string
	logger   *zap.Logger
}

// NewService creates the archive service.
func NewService(mgr *reconcile.Manager, cache *scancache.Cache, p *pool.Pool, root string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		mgr:      mgr,
		registry: NewRegistry(mgr, logger),
		cache:    cache,
		pool:     p,
		root:     root,
		logger:   logger,
	}
}

// RunSync executes one job synchronously and returns its report. Used by the
// CLI and the scheduler; the HTTP surface goes through the registry instead.
func (s *Service) RunSync(ctx context.Context, spec models.JobSpec, progress reconcile.ProgressFunc) (*models.Report, error) {
	return s.mgr.Run(ctx, spec, uuid.NewString(), progress)
}

// StartJob registers and launches a background job.
func (s *Service) StartJob(ctx context.Context, spec models.JobSpec) (JobStatus, error) {
	return s.registry.Start(ctx, spec)
}

// GetJob returns a snapshot of one job.
func (s *Service) GetJob(id string) (JobStatus, error) {
	return s.registry.Get(id)
}

// ListJobs returns snapshots of all known jobs.
func (s *Service) ListJobs() []JobStatus {
	return s.registry.List()
}

// CancelJob flags a job for cooperative cancellation.
func (s *Service) CancelJob(id string) (JobStatus, error) {
	return s.registry.Cancel(id)
}

// JobRunning reports whether any job is currently in flight.
func (s *Service) JobRunning() bool {
	return s.registry.Running()
}

// Status describes the engine's current operational state.
type Status struct {
	ArchiveRoot string         `json:"archive_root"`
	Pool        pool.Stats     `json:"pool"`
	Cache       scancache.Info `json:"cache"`
}

// GetStatus collects pool and cache statistics.
func (s *Service) GetStatus(ctx context.Context) (Status, error) {
	cacheInfo, err := s.cache.Stats(ctx)
	if err != nil {
		return Status{}, err
	}
	return Status{
		ArchiveRoot: s.root,
		Pool:        s.pool.Stats(),
		Cache:       cacheInfo,
	}, nil
}
