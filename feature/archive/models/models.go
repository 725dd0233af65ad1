package models

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// Satellite is a GOES satellite number.
type Satellite int

const (
	GOES16 Satellite = 16
	GOES17 Satellite = 17
	GOES18 Satellite = 18
	GOES19 Satellite = 19
)

// Valid reports whether the satellite is one we archive.
func (s Satellite) Valid() bool {
	switch s {
	case GOES16, GOES17, GOES18, GOES19:
		return true
	default:
		return false
	}
}

// String returns the short form used in filenames, e.g. "G16".
func (s Satellite) String() string {
	return fmt.Sprintf("G%d", int(s))
}

// Product is an ABI product family.
type Product string

const (
	ProductRadF  Product = "RadF"
	ProductRadC  Product = "RadC"
	ProductRadM  Product = "RadM"
	ProductCMIPF Product = "CMIPF"
	ProductCMIPC Product = "CMIPC"
	ProductCMIPM Product = "CMIPM"
)

// Valid reports whether the product is supported.
func (p Product) Valid() bool {
	switch p {
	case ProductRadF, ProductRadC, ProductRadM,
		ProductCMIPF, ProductCMIPC, ProductCMIPM:
		return true
	default:
		return false
	}
}

// PathCode returns the remote key path segment for the product,
// e.g. "ABI-L1b-RadC" or "ABI-L2-CMIPC".
func (p Product) PathCode() string {
	switch p {
	case ProductRadF, ProductRadC, ProductRadM:
		return "ABI-L1b-" + string(p)
	case ProductCMIPF, ProductCMIPC, ProductCMIPM:
		return "ABI-L2-" + string(p)
	default:
		return ""
	}
}

// SectorLetter returns the scan sector the product family covers
// (F, C or M).
func (p Product) SectorLetter() string {
	if len(p) == 0 {
		return ""
	}
	return string(p[len(p)-1])
}

// Sector identifies the scan region of a scene.
type Sector string

const (
	SectorFull  Sector = "F"
	SectorConus Sector = "C"
	SectorMeso1 Sector = "M1"
	SectorMeso2 Sector = "M2"
	// SectorMesoGeneric is a mesoscale scene whose sub-region (M1 vs M2) is
	// unknown. It never appears verbatim in remote filenames; the resolver
	// disambiguates it heuristically.
	SectorMesoGeneric Sector = "M"
)

// Valid reports whether the sector is known.
func (s Sector) Valid() bool {
	switch s {
	case SectorFull, SectorConus, SectorMeso1, SectorMeso2, SectorMesoGeneric:
		return true
	default:
		return false
	}
}

// Letter returns the sector family letter (F, C or M).
func (s Sector) Letter() string {
	if len(s) == 0 {
		return ""
	}
	return string(s[0])
}

// Cadence returns the nominal scene interval for the sector: full disk every
// 10 minutes, CONUS every 5, mesoscale every minute.
func (s Sector) Cadence() time.Duration {
	switch s.Letter() {
	case "F":
		return 10 * time.Minute
	case "C":
		return 5 * time.Minute
	case "M":
		return time.Minute
	default:
		return 0
	}
}

// Identity is the logical key for one expected remote scene file. It is an
// immutable value type and the natural map key for everything downstream.
type Identity struct {
	Satellite Satellite
	Product   Product
	Band      int
	Sector    Sector
	Timestamp time.Time
}

// String renders a compact human-readable form, e.g.
// "G16/RadC/B13/C@2023-06-15T12:00:00Z".
func (id Identity) String() string {
	return fmt.Sprintf("%s/%s/B%02d/%s@%s",
		id.Satellite, id.Product, id.Band, id.Sector,
		id.Timestamp.UTC().Format(time.RFC3339))
}

// Bucket returns the hourly time bucket this identity belongs to.
func (id Identity) Bucket() TimeBucket {
	ts := id.Timestamp.UTC()
	return TimeBucket{
		Satellite: id.Satellite,
		Product:   id.Product,
		Sector:    id.Sector,
		Band:      id.Band,
		Date:      ts.Format("2006-01-02"),
		Hour:      ts.Hour(),
	}
}

// TimeBucket is the granularity at which remote listing calls are made and
// cached: one hour of one satellite/product/sector/band combination.
type TimeBucket struct {
	Satellite Satellite
	Product   Product
	Sector    Sector
	Band      int
	// Date is the UTC day in 2006-01-02 form.
	Date string
	// Hour is the UTC hour of day, 0-23.
	Hour int
}

// Key returns a stable string key for the bucket tuple.
func (b TimeBucket) Key() string {
	return fmt.Sprintf("%d|%s|%s|%d|%s|%02d",
		b.Satellite, b.Product, b.Sector, b.Band, b.Date, b.Hour)
}

// Start returns the first instant of the bucket's hour.
func (b TimeBucket) Start() (time.Time, error) {
	day, err := time.Parse("2006-01-02", b.Date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid bucket date %q: %w", b.Date, err)
	}
	return day.Add(time.Duration(b.Hour) * time.Hour), nil
}

// Convention names a remote key naming convention era.
type Convention string

const (
	// ConventionNestedHourly is the current layout: keys nested under
	// product/year/day-of-year/hour directories.
	ConventionNestedHourly Convention = "nested-hourly"
	// ConventionFlatLegacy is the early-mission layout with all scene files
	// directly under the product directory.
	ConventionFlatLegacy Convention = "flat-legacy"
)

// CandidateKey is one possible remote location for an identity under one
// naming convention. Candidates are ranked by decreasing confidence; at most
// one should resolve to a real object.
type CandidateKey struct {
	// Prefix is the object key prefix, exact to the scene start minute.
	// The full key carries sub-minute start/end/creation stamps that cannot
	// be derived from the identity alone, so matching is prefix-based
	// against listing results.
	Prefix string
	// Convention is the naming convention era that produced this candidate.
	Convention Convention
	// Heuristic marks a candidate produced by guesswork (currently only the
	// generic-mesoscale sub-region disambiguation). Heuristic candidates
	// always rank last.
	Heuristic bool
}

// JobSpec describes one reconciliation job.
type JobSpec struct {
	// Start and End bound the half-open time range [Start, End).
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// Selection criteria. Every combination of the four is expected.
	Satellites []Satellite `json:"satellites"`
	Products   []Product   `json:"products"`
	Bands      []int       `json:"bands"`
	Sectors    []Sector    `json:"sectors"`

	// MaxDownloadConcurrency bounds the download worker count. It is
	// clamped to the connection pool's maximum.
	MaxDownloadConcurrency int `json:"max_download_concurrency"`

	// Cadence overrides the per-sector scene interval when non-zero.
	// Mostly useful for tests and unusual scan schedules.
	Cadence time.Duration `json:"cadence,omitempty"`

	// Bucket overrides the per-satellite remote bucket when non-empty.
	Bucket string `json:"bucket,omitempty"`

	// Cancel, when set, allows cooperative cancellation of the job.
	Cancel *CancelToken `json:"-"`
}

// Validate checks the job spec before any work starts. An empty selection is
// the one misconfiguration that fails a job up front.
func (s JobSpec) Validate() error {
	if s.Start.IsZero() || s.End.IsZero() {
		return errors.New("job spec: start and end are required")
	}
	if !s.End.After(s.Start) {
		return errors.New("job spec: end must be after start")
	}
	if len(s.Satellites) == 0 {
		return errors.New("job spec: at least one satellite is required")
	}
	if len(s.Products) == 0 {
		return errors.New("job spec: at least one product is required")
	}
	if len(s.Bands) == 0 {
		return errors.New("job spec: at least one band is required")
	}
	if len(s.Sectors) == 0 {
		return errors.New("job spec: at least one sector is required")
	}
	for _, sat := range s.Satellites {
		if !sat.Valid() {
			return fmt.Errorf("job spec: unknown satellite %d", int(sat))
		}
	}
	for _, p := range s.Products {
		if !p.Valid() {
			return fmt.Errorf("job spec: unknown product %q", p)
		}
	}
	for _, b := range s.Bands {
		if b < 1 || b > 16 {
			return fmt.Errorf("job spec: band %d out of range 1-16", b)
		}
	}
	for _, sec := range s.Sectors {
		if !sec.Valid() {
			return fmt.Errorf("job spec: unknown sector %q", sec)
		}
	}
	return nil
}

// CancelToken is a job-scoped cooperative cancellation flag. Observing
// cancellation stops new dispatch; in-flight transfers finish normally.
type CancelToken struct {
	flag atomic.Bool
}

// Cancel sets the flag. Safe to call multiple times from any goroutine.
func (t *CancelToken) Cancel() {
	t.flag.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (t *CancelToken) Cancelled() bool {
	if t == nil {
		return false
	}
	return t.flag.Load()
}

// JobState is the lifecycle state of a reconciliation job.
type JobState string

const (
	JobCreated         JobState = "created"
	JobScanning        JobState = "scanning"
	JobDownloading     JobState = "downloading"
	JobCompleted       JobState = "completed"
	JobPartiallyFailed JobState = "partially_failed"
	JobCancelled       JobState = "cancelled"
)

// TaskState is the lifecycle state of one download task.
type TaskState string

const (
	TaskPending     TaskState = "pending"
	TaskListing     TaskState = "listing"
	TaskFound       TaskState = "found"
	TaskNotFound    TaskState = "not_found"
	TaskDownloading TaskState = "downloading"
	TaskVerifying   TaskState = "verifying"
	TaskCompleted   TaskState = "completed"
	TaskFailed      TaskState = "failed"
)

// DownloadTask tracks one identity through the download state machine.
type DownloadTask struct {
	Identity   Identity
	Candidates []CandidateKey
	// ObjectKey is the actual remote key resolved from the listing, set once
	// the task reaches TaskFound.
	ObjectKey string
	// Destination is the canonical local path for the identity.
	Destination string
	// Attempts counts download attempts, including the successful one.
	Attempts int
	State    TaskState
	Err      error
}

// Failure records one identity that could not be reconciled.
type Failure struct {
	Identity Identity `json:"identity"`
	Error    string   `json:"error"`
}

// Report is the immutable outcome of one reconciliation job. It is the
// single source of truth for partial failure: callers inspect Failed rather
// than relying on an error from Run.
type Report struct {
	JobID string   `json:"job_id"`
	State JobState `json:"state"`

	// FoundLocal counts identities already present in the local archive.
	FoundLocal int `json:"found_local"`
	// FoundCached counts identities classified against a scan-cache hit,
	// i.e. without a fresh remote listing.
	FoundCached int `json:"found_cached"`
	// Downloaded counts identities fetched during this job.
	Downloaded int `json:"downloaded"`

	// Missing lists identities absent both locally and remotely. Not an
	// error; the scene may simply never have been produced.
	Missing []Identity `json:"missing"`
	// Failed lists identities that could not be reconciled, with the final
	// error after retries were exhausted.
	Failed []Failure `json:"failed"`

	Total     int           `json:"total"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}
