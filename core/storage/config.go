package storage

// Config holds configuration for the remote object store.
type Config struct {
	// Endpoint is the URL of the storage service.
	Endpoint string `mapstructure:"endpoint" default:"s3.amazonaws.com"`
	// AccessKey is the access key ID for authentication.
	// Leave empty for anonymous access to public buckets.
	AccessKey string `mapstructure:"access_key" default:""`
	// SecretKey is the secret access key for authentication.
	SecretKey string `mapstructure:"secret_key" default:""`
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"true"`
	// Region is the location of the buckets (e.g., us-east-1).
	Region string `mapstructure:"region" default:"us-east-1"`
	// ConnectTimeoutSeconds is the connection setup timeout in seconds.
	ConnectTimeoutSeconds int `mapstructure:"connect_timeout_seconds" default:"10"`
	// OperationTimeoutSeconds is the per-call response timeout in seconds.
	OperationTimeoutSeconds int `mapstructure:"operation_timeout_seconds" default:"60"`
}
