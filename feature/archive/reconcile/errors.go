package reconcile

import (
	"context"
	"errors"
	"net"

	"scene-archiver/feature/archive/resolver"

	"github.com/minio/minio-go/v7"
)

// isPermanent classifies an error as non-retryable. Authorization failures,
// malformed keys, and anything else the remote rejects as a client error
// will not get better on retry; everything network-shaped is assumed
// transient and left to the attempt cap.
func isPermanent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, resolver.ErrUnsupportedIdentity) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false
	}
	var resp minio.ErrorResponse
	if errors.As(err, &resp) && resp.StatusCode != 0 {
		// 429 and 5xx are the remote asking us to back off; 4xx means the
		// request itself is wrong.
		if resp.StatusCode == 429 || resp.StatusCode >= 500 {
			return false
		}
		if resp.StatusCode >= 400 {
			return true
		}
	}
	return false
}
