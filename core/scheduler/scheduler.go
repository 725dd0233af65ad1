package scheduler

import (
	"context"
	"time"

	"scene-archiver/feature/archive"
	"scene-archiver/feature/archive/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Config holds configuration for the background sync scheduler.
type Config struct {
	// Enabled turns periodic syncing on.
	Enabled bool `mapstructure:"enabled" default:"false"`
	// CronSchedule is the cron expression for periodic syncs.
	CronSchedule string `mapstructure:"cron_schedule" default:"*/15 * * * *"`
	// WindowHours is the trailing time window each periodic sync covers.
	WindowHours int `mapstructure:"window_hours" default:"2"`

	// Selection for the periodic job. Comma-separated in the environment,
	// e.g. SCHEDULER_BANDS=8,13.
	Satellites []int    `mapstructure:"satellites" default:"16"`
	Products   []string `mapstructure:"products" default:"RadC"`
	Bands      []int    `mapstructure:"bands" default:"13"`
	Sectors    []string `mapstructure:"sectors" default:"C"`
}

// Scheduler runs a trailing-window reconciliation job on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	service *archive.Service
	cfg     Config
	log     *zap.Logger
}

// New creates a scheduler for the archive service.
func New(cfg Config, service *archive.Service, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		cron:    cron.New(),
		service: service,
		cfg:     cfg,
		log:     log,
	}
}

// Start registers the sync job and starts the cron loop. A scheduled run is
// skipped while a previous job is still in flight.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.log.Info("Background sync is disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.CronSchedule, func() {
		if s.service.JobRunning() {
			s.log.Info("Skipping scheduled sync, previous job still running")
			return
		}

		spec := s.jobSpec()
		s.log.Info("Starting scheduled sync",
			zap.Time("start", spec.Start),
			zap.Time("end", spec.End))

		if _, err := s.service.StartJob(ctx, spec); err != nil {
			s.log.Error("Scheduled sync failed to start", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	s.log.Info("Starting scheduler", zap.String("schedule", s.cfg.CronSchedule))
	s.cron.Start()
	return nil
}

// Stop stops the cron loop. In-flight jobs are not interrupted.
func (s *Scheduler) Stop() {
	s.log.Info("Stopping scheduler")
	s.cron.Stop()
}

// jobSpec builds the trailing-window job from the configured selection.
func (s *Scheduler) jobSpec() models.JobSpec {
	window := time.Duration(s.cfg.WindowHours) * time.Hour
	if window <= 0 {
		window = 2 * time.Hour
	}
	now := time.Now().UTC()

	spec := models.JobSpec{
		Start: now.Add(-window),
		End:   now,
	}
	for _, sat := range s.cfg.Satellites {
		spec.Satellites = append(spec.Satellites, models.Satellite(sat))
	}
	for _, p := range s.cfg.Products {
		spec.Products = append(spec.Products, models.Product(p))
	}
	spec.Bands = append(spec.Bands, s.cfg.Bands...)
	for _, sec := range s.cfg.Sectors {
		spec.Sectors = append(spec.Sectors, models.Sector(sec))
	}
	return spec
}
