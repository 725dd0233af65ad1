package reconcile

// Config holds configuration for the reconciliation engine.
type Config struct {
	// Root is the local archive root directory.
	Root string `mapstructure:"root" default:"./archive"`
	// CacheTTLMinutes is how long a scan-cache record stays valid.
	CacheTTLMinutes int `mapstructure:"cache_ttl_minutes" default:"360"`
	// ScanConcurrency bounds concurrent bucket listing calls. Listing is
	// latency-bound, not bandwidth-bound, so this is independent of the
	// download bound.
	ScanConcurrency int `mapstructure:"scan_concurrency" default:"4"`
	// DownloadConcurrency is the default download worker count when the job
	// spec does not set one.
	DownloadConcurrency int `mapstructure:"download_concurrency" default:"4"`
	// MaxAttempts caps download attempts per task, including the first.
	MaxAttempts int `mapstructure:"max_attempts" default:"4"`
}
