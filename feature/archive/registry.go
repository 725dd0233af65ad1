package archive

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"scene-archiver/feature/archive/models"
	"scene-archiver/feature/archive/reconcile"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrJobNotFound is returned when a job ID is unknown to the registry.
var ErrJobNotFound = errors.New("job not found")

// maxFinishedJobs bounds how many completed jobs the registry remembers.
const maxFinishedJobs = 50

// JobStatus is a point-in-time snapshot of one job, safe to serialize.
type JobStatus struct {
	ID        string          `json:"id"`
	State     models.JobState `json:"state"`
	Completed int             `json:"completed"`
	Total     int             `json:"total"`
	Message   string          `json:"message,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	Report    *models.Report  `json:"report,omitempty"`
}

type job struct {
	id        string
	spec      models.JobSpec
	cancel    *models.CancelToken
	startedAt time.Time

	mu        sync.Mutex
	state     models.JobState
	completed int
	total     int
	message   string
	report    *models.Report
}

func (j *job) snapshot() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobStatus{
		ID:        j.id,
		State:     j.state,
		Completed: j.completed,
		Total:     j.total,
		Message:   j.message,
		StartedAt: j.startedAt,
		Report:    j.report,
	}
}

// Registry tracks running and recently finished reconciliation jobs for the
// HTTP surface. It is safe for concurrent use.
type Registry struct {
	mgr *reconcile.Manager
	log *zap.Logger

	mu   sync.Mutex
	jobs map[string]*job
}

// NewRegistry creates a job registry backed by the given manager.
func NewRegistry(mgr *reconcile.Manager, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		mgr:  mgr,
		log:  log,
		jobs: make(map[string]*job),
	}
}

// Start validates the spec, registers a new job, and runs it in the
// background. The returned status reflects the freshly created job.
func (r *Registry) Start(ctx context.Context, spec models.JobSpec) (JobStatus, error) {
	if err := spec.Validate(); err != nil {
		return JobStatus{}, err
	}

	j := &job{
		id:        uuid.NewString(),
		spec:      spec,
		cancel:    &models.CancelToken{},
		startedAt: time.Now().UTC(),
		state:     models.JobCreated,
	}
	j.spec.Cancel = j.cancel

	r.mu.Lock()
	r.jobs[j.id] = j
	r.evictOldLocked()
	r.mu.Unlock()

	// The job outlives the caller's request; cancellation goes through the
	// token, not the request context.
	go r.run(context.WithoutCancel(ctx), j)

	return j.snapshot(), nil
}

func (r *Registry) run(ctx context.Context, j *job) {
	j.mu.Lock()
	j.state = models.JobScanning
	j.mu.Unlock()

	progress := func(completed, total int, message string) {
		j.mu.Lock()
		j.completed = completed
		j.total = total
		j.message = message
		j.mu.Unlock()
	}

	report, err := r.mgr.Run(ctx, j.spec, j.id, progress)

	j.mu.Lock()
	defer j.mu.Unlock()
	if err != nil {
		// Run errors only on an invalid spec, which Start already checked.
		j.state = models.JobPartiallyFailed
		j.message = err.Error()
		return
	}
	j.state = report.State
	j.report = report
}

// Get returns a snapshot of one job.
func (r *Registry) Get(id string) (JobStatus, error) {
	r.mu.Lock()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return JobStatus{}, ErrJobNotFound
	}
	return j.snapshot(), nil
}

// List returns snapshots of all known jobs, newest first.
func (r *Registry) List() []JobStatus {
	r.mu.Lock()
	jobs := make([]*job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	r.mu.Unlock()

	statuses := make([]JobStatus, 0, len(jobs))
	for _, j := range jobs {
		statuses = append(statuses, j.snapshot())
	}
	sort.Slice(statuses, func(i, k int) bool {
		return statuses[i].StartedAt.After(statuses[k].StartedAt)
	})
	return statuses
}

// Cancel flags a job for cooperative cancellation. In-flight transfers
// finish; no new work is dispatched.
func (r *Registry) Cancel(id string) (JobStatus, error) {
	r.mu.Lock()
	j, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return JobStatus{}, ErrJobNotFound
	}
	j.cancel.Cancel()
	return j.snapshot(), nil
}

// Running reports whether any job is still in flight.
func (r *Registry) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		j.mu.Lock()
		state := j.state
		j.mu.Unlock()
		switch state {
		case models.JobCreated, models.JobScanning, models.JobDownloading:
			return true
		}
	}
	return false
}

// evictOldLocked drops the oldest finished jobs beyond the retention bound.
// Caller holds r.mu.
func (r *Registry) evictOldLocked() {
	if len(r.jobs) <= maxFinishedJobs {
		return
	}
	type aged struct {
		id string
		at time.Time
	}
	var finished []aged
	for id, j := range r.jobs {
		j.mu.Lock()
		state := j.state
		j.mu.Unlock()
		switch state {
		case models.JobCompleted, models.JobPartiallyFailed, models.JobCancelled:
			finished = append(finished, aged{id: id, at: j.startedAt})
		}
	}
	sort.Slice(finished, func(i, k int) bool { return finished[i].at.Before(finished[k].at) })
	for _, f := range finished {
		if len(r.jobs) <= maxFinishedJobs {
			break
		}
		delete(r.jobs, f.id)
	}
}
