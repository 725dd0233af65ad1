package reconcile

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"scene-archiver/core/logger"
	"scene-archiver/core/pool"
	"scene-archiver/feature/archive/models"
	"scene-archiver/feature/archive/resolver"
	"scene-archiver/feature/archive/scancache"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Manager orchestrates reconciliation jobs: it expands a job spec into
// expected identities, closes the gap between local and remote state, and
// produces a Report.
type Manager struct {
	cfg   Config
	pool  *pool.Pool
	cache *scancache.Cache
	log   *zap.Logger

	// sf collapses concurrent scans of the same bucket (two jobs, or two
	// bands sharing an hour listing) into one remote call.
	sf singleflight.Group
}

// NewManager creates a reconciliation manager.
func NewManager(cfg Config, p *pool.Pool, cache *scancache.Cache, log *zap.Logger) *Manager {
	if cfg.ScanConcurrency <= 0 {
		cfg.ScanConcurrency = 4
	}
	if cfg.DownloadConcurrency <= 0 {
		cfg.DownloadConcurrency = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 4
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{cfg: cfg, pool: p, cache: cache, log: log}
}

// bucketScan is the outcome of one bucket's listing phase.
type bucketScan struct {
	keys      []string
	fromCache bool
	err       error
}

// Run executes one reconciliation job and returns its Report. Per-identity
// failures never abort the job; the Report is fully populated even when some
// downloads fail, and callers inspect Report.Failed rather than the returned
// error. Run itself errors only on a misconfigured spec.
func (m *Manager) Run(ctx context.Context, spec models.JobSpec, jobID string, progress ProgressFunc) (*models.Report, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	log := logger.WithJobID(m.log, jobID)
	start := time.Now()

	identities := expand(spec)
	buckets := groupBuckets(identities)

	report := &models.Report{
		JobID:     jobID,
		State:     models.JobScanning,
		Total:     len(identities),
		StartedAt: start.UTC(),
	}

	log.Info("Reconciliation started",
		zap.Int("identities", len(identities)),
		zap.Int("buckets", len(buckets)),
		zap.Time("range_start", spec.Start),
		zap.Time("range_end", spec.End))

	tracker := newProgressTracker(progress, len(identities))
	defer tracker.Close()

	// Phase 1: make sure every bucket has a trusted listing, either from the
	// cache or from a fresh remote scan under the scan concurrency bound.
	scans := m.scanBuckets(ctx, spec, buckets, tracker, log)

	// Phase 2: classify every identity. Local file wins, then the bucket's
	// known keys decide between download and missing. This phase is pure
	// local work and always runs to completion.
	report.State = models.JobDownloading
	tasks := m.classify(spec, identities, scans, report, tracker, log)

	// Phase 3: download what's missing locally but present remotely.
	m.download(ctx, spec, tasks, tracker, log)

	for _, t := range tasks {
		switch t.State {
		case models.TaskCompleted:
			report.Downloaded++
		case models.TaskFailed:
			report.Failed = append(report.Failed, models.Failure{
				Identity: t.Identity,
				Error:    t.Err.Error(),
			})
		}
	}

	sortIdentities(report.Missing)
	sort.Slice(report.Failed, func(i, j int) bool {
		return report.Failed[i].Identity.String() < report.Failed[j].Identity.String()
	})

	switch {
	case spec.Cancel.Cancelled() || ctx.Err() != nil:
		report.State = models.JobCancelled
	case len(report.Failed) > 0:
		report.State = models.JobPartiallyFailed
	default:
		report.State = models.JobCompleted
	}
	report.Duration = time.Since(start)

	log.Info("Reconciliation finished",
		zap.String("state", string(report.State)),
		zap.Int("found_local", report.FoundLocal),
		zap.Int("downloaded", report.Downloaded),
		zap.Int("missing", len(report.Missing)),
		zap.Int("failed", len(report.Failed)),
		zap.Duration("duration", report.Duration))

	return report, nil
}

// scanBuckets resolves the listing for every bucket, consulting the cache
// first and scanning the rest concurrently. Scan errors are recorded per
// bucket, never returned: a failed bucket fails its identities, not the job.
func (m *Manager) scanBuckets(ctx context.Context, spec models.JobSpec, buckets []models.TimeBucket, tracker *progressTracker, log *zap.Logger) map[string]*bucketScan {
	scans := make(map[string]*bucketScan, len(buckets))
	var mu sync.Mutex

	g := new(errgroup.Group)
	g.SetLimit(m.cfg.ScanConcurrency)

	for _, bucket := range buckets {
		if spec.Cancel.Cancelled() || ctx.Err() != nil {
			break
		}

		if keys, ok := m.cache.Lookup(ctx, bucket); ok {
			mu.Lock()
			scans[bucket.Key()] = &bucketScan{keys: keys, fromCache: true}
			mu.Unlock()
			tracker.Emit(0, "bucket cached: "+bucket.Key())
			continue
		}

		bucket := bucket
		g.Go(func() error {
			keys, err := m.scanBucket(ctx, spec, bucket, log)
			mu.Lock()
			scans[bucket.Key()] = &bucketScan{keys: keys, err: err}
			mu.Unlock()
			if err != nil {
				tracker.Emit(0, "bucket scan failed: "+bucket.Key())
			} else {
				tracker.Emit(0, "bucket scanned: "+bucket.Key())
			}
			return nil
		})
	}
	_ = g.Wait()

	return scans
}

// scanBucket lists one bucket's prefixes with retries and stores the result
// in the scan cache. Concurrent callers for the same bucket share one call.
func (m *Manager) scanBucket(ctx context.Context, spec models.JobSpec, bucket models.TimeBucket, log *zap.Logger) ([]string, error) {
	v, err, _ := m.sf.Do(bucket.Key(), func() (any, error) {
		// Another flight may have populated the cache while we waited.
		if keys, ok := m.cache.Lookup(ctx, bucket); ok {
			return keys, nil
		}

		bo := newBackOff()
		attempts := 0
		for {
			attempts++
			keys, err := m.listBucket(ctx, spec, bucket)
			if err == nil {
				if serr := m.cache.Store(ctx, bucket, keys); serr != nil {
					log.Warn("Failed to store scan cache record",
						zap.String("bucket", bucket.Key()), zap.Error(serr))
				}
				return keys, nil
			}
			if isPermanent(err) || attempts >= m.cfg.MaxAttempts {
				return nil, err
			}

			select {
			case <-time.After(bo.NextBackOff()):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// listBucket issues the remote listing calls for one bucket through a pooled
// connection and filters the results down to the bucket's band and hour.
func (m *Manager) listBucket(ctx context.Context, spec models.JobSpec, bucket models.TimeBucket) ([]string, error) {
	prefixes, err := resolver.ScanPrefixes(bucket)
	if err != nil {
		return nil, err
	}

	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	bucketName := remoteBucket(spec, bucket.Satellite)
	keys := []string{}
	for _, prefix := range prefixes {
		for obj := range conn.Client.ListObjects(ctx, bucketName, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		}) {
			if obj.Err != nil {
				return nil, fmt.Errorf("listing %s/%s failed: %w", bucketName, prefix, obj.Err)
			}
			if resolver.KeyMatchesBucket(bucket, obj.Key) {
				keys = append(keys, obj.Key)
			}
		}
	}
	return keys, nil
}

// classify walks every identity: local file first (cheapest), then the
// bucket's known keys. Identities present remotely but not locally become
// download tasks; absent everywhere is missing, which is not an error.
func (m *Manager) classify(spec models.JobSpec, identities []models.Identity, scans map[string]*bucketScan, report *models.Report, tracker *progressTracker, log *zap.Logger) []*models.DownloadTask {
	var tasks []*models.DownloadTask

	for _, id := range identities {
		localPath := resolver.CanonicalLocalPath(m.cfg.Root, id)
		if fi, err := os.Stat(localPath); err == nil && fi.Size() > 0 {
			report.FoundLocal++
			tracker.Emit(1, "already archived: "+id.String())
			continue
		}

		candidates, err := resolver.ResolveCandidates(id)
		if err != nil {
			report.Failed = append(report.Failed, models.Failure{Identity: id, Error: err.Error()})
			tracker.Emit(1, "unresolvable: "+id.String())
			continue
		}

		scan, ok := scans[id.Bucket().Key()]
		if !ok {
			// Bucket never scanned (cancelled before dispatch); leave the
			// identity unaccounted rather than guessing.
			tracker.Emit(1, "skipped: "+id.String())
			continue
		}
		if scan.err != nil {
			report.Failed = append(report.Failed, models.Failure{
				Identity: id,
				Error:    fmt.Sprintf("bucket scan failed: %v", scan.err),
			})
			tracker.Emit(1, "scan failed: "+id.String())
			continue
		}
		if scan.fromCache {
			report.FoundCached++
		}

		objectKey, found := resolver.FirstMatch(candidates, scan.keys)
		if !found {
			report.Missing = append(report.Missing, id)
			tracker.Emit(1, "missing remotely: "+id.String())
			continue
		}

		tasks = append(tasks, &models.DownloadTask{
			Identity:    id,
			Candidates:  candidates,
			ObjectKey:   objectKey,
			Destination: localPath,
			State:       models.TaskFound,
		})
		tracker.Emit(0, "queued for download: "+id.String())
	}

	return tasks
}

// download runs the task queue under the job's worker bound. Once
// cancellation is observed no new task starts, but in-flight transfers
// finish normally.
func (m *Manager) download(ctx context.Context, spec models.JobSpec, tasks []*models.DownloadTask, tracker *progressTracker, log *zap.Logger) {
	if len(tasks) == 0 {
		return
	}

	workers := spec.MaxDownloadConcurrency
	if workers <= 0 {
		workers = m.cfg.DownloadConcurrency
	}
	// More download workers than pool slots would only queue on Acquire.
	if workers > m.pool.Cap() {
		workers = m.pool.Cap()
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	taskCh := make(chan *models.DownloadTask)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range taskCh {
				if spec.Cancel.Cancelled() || ctx.Err() != nil {
					tracker.Emit(1, "cancelled: "+t.Identity.String())
					continue
				}
				m.runTask(ctx, t, remoteBucket(spec, t.Identity.Satellite), tracker, log)
			}
		}()
	}

	for _, t := range tasks {
		if spec.Cancel.Cancelled() || ctx.Err() != nil {
			break
		}
		taskCh <- t
	}
	close(taskCh)
	wg.Wait()
}

// expand enumerates every identity the job spec covers: the cross product of
// the selection criteria at each scene instant within [Start, End).
func expand(spec models.JobSpec) []models.Identity {
	var identities []models.Identity

	for _, sat := range spec.Satellites {
		for _, product := range spec.Products {
			for _, sector := range spec.Sectors {
				if product.SectorLetter() != sector.Letter() {
					continue
				}
				cadence := spec.Cadence
				if cadence <= 0 {
					cadence = sector.Cadence()
				}

				ts := spec.Start.UTC().Truncate(cadence)
				if ts.Before(spec.Start) {
					ts = ts.Add(cadence)
				}
				for ; ts.Before(spec.End); ts = ts.Add(cadence) {
					for _, band := range spec.Bands {
						identities = append(identities, models.Identity{
							Satellite: sat,
							Product:   product,
							Band:      band,
							Sector:    sector,
							Timestamp: ts,
						})
					}
				}
			}
		}
	}
	return identities
}

// groupBuckets returns the distinct time buckets of the identities in a
// deterministic order.
func groupBuckets(identities []models.Identity) []models.TimeBucket {
	seen := make(map[string]models.TimeBucket)
	for _, id := range identities {
		b := id.Bucket()
		seen[b.Key()] = b
	}
	buckets := make([]models.TimeBucket, 0, len(seen))
	for _, b := range seen {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Key() < buckets[j].Key()
	})
	return buckets
}

func remoteBucket(spec models.JobSpec, sat models.Satellite) string {
	if spec.Bucket != "" {
		return spec.Bucket
	}
	return resolver.RemoteBucket(sat)
}

func sortIdentities(ids []models.Identity) {
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
}
