package storage

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Client defines the interface for remote store operations.
//
// The reconciliation engine only needs three calls: a cheap liveness probe,
// prefix listing, and download-to-path. Any S3-compatible client satisfying
// this surface can sit behind the connection pool.
type Client interface {
	// BucketExists checks if a bucket exists. Doubles as the pool's
	// connection health probe.
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	// ListObjects lists objects in a bucket under a prefix.
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	// FGetObject downloads an object to a local file path.
	FGetObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.GetObjectOptions) error
}

// NewClient creates a new Minio client based on the configuration.
func NewClient(cfg Config) (Client, error) {
	// Minio expects endpoint without scheme
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	connectTimeout := cfg.ConnectTimeoutSeconds
	if connectTimeout <= 0 {
		connectTimeout = 10
	}
	operationTimeout := cfg.OperationTimeoutSeconds
	if operationTimeout <= 0 {
		operationTimeout = 60
	}
	connectDuration := time.Duration(connectTimeout) * time.Second
	operationDuration := time.Duration(operationTimeout) * time.Second

	// Create custom transport with strict timeouts
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectDuration, // Connection setup timeout
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   connectDuration,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: operationDuration, // Wait for first response byte timeout
	}

	// Public scene buckets (NOAA open data) allow anonymous reads, so
	// credentials are optional.
	creds := credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")

	minioClient, err := minio.New(endpoint, &minio.Options{
		Creds:     creds,
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	// Minio performs lazy connection; the transport timeouts ensure we don't
	// hang on connection setup, and callers pass per-operation contexts.

	return &minioClientWrapper{Client: minioClient}, nil
}

type minioClientWrapper struct {
	*minio.Client
}

func (c *minioClientWrapper) FGetObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.GetObjectOptions) error {
	return c.Client.FGetObject(ctx, bucketName, objectName, filePath, opts)
}
