package pool

// Config holds configuration for the connection pool.
type Config struct {
	// MaxConnections is the maximum number of concurrently borrowed clients.
	MaxConnections int `mapstructure:"max_connections" default:"4"`
	// MaxAgeSeconds is the maximum lifetime of a pooled connection. Older
	// connections are evicted instead of reused.
	MaxAgeSeconds int `mapstructure:"max_age_seconds" default:"900"`
	// AcquireTimeoutSeconds bounds how long Acquire waits for a free slot.
	AcquireTimeoutSeconds int `mapstructure:"acquire_timeout_seconds" default:"30"`
	// HealthCheckTimeoutSeconds bounds the health probe on release.
	HealthCheckTimeoutSeconds int `mapstructure:"health_check_timeout_seconds" default:"5"`
	// HealthBucket is the bucket used for the cheap liveness probe on
	// release. Empty disables the probe.
	HealthBucket string `mapstructure:"health_bucket" default:""`
}
