package reconcile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"scene-archiver/feature/archive/models"

	"github.com/cenkalti/backoff/v5"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// newBackOff builds the retry interval schedule for one task. Each task gets
// its own instance so attempt counts don't bleed between identities.
func newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 15 * time.Second
	return bo
}

// runTask drives one download task through its state machine: acquire a
// pooled connection, fetch to a temporary path, verify, rename into place.
// Transient failures retry with exponential backoff until the attempt cap;
// permanent failures fail immediately.
func (m *Manager) runTask(ctx context.Context, t *models.DownloadTask, bucketName string, tracker *progressTracker, log *zap.Logger) {
	bo := newBackOff()

	for {
		t.Attempts++
		err := m.attemptDownload(ctx, t, bucketName, tracker)
		if err == nil {
			t.State = models.TaskCompleted
			tracker.Emit(1, "downloaded "+t.Identity.String())
			return
		}

		if isPermanent(err) || t.Attempts >= m.cfg.MaxAttempts {
			t.State = models.TaskFailed
			t.Err = err
			log.Warn("Download failed",
				zap.String("identity", t.Identity.String()),
				zap.String("key", t.ObjectKey),
				zap.Int("attempts", t.Attempts),
				zap.Error(err))
			tracker.Emit(1, "failed "+t.Identity.String())
			return
		}

		wait := bo.NextBackOff()
		log.Debug("Transient download failure, backing off",
			zap.String("identity", t.Identity.String()),
			zap.Int("attempt", t.Attempts),
			zap.Duration("backoff", wait),
			zap.Error(err))

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			t.State = models.TaskFailed
			t.Err = ctx.Err()
			tracker.Emit(1, "aborted "+t.Identity.String())
			return
		}
	}
}

// attemptDownload performs a single download attempt. The object lands in a
// temporary sibling file and is renamed into the canonical path only after
// the non-zero-size check, so a partially written file is never visible at
// the destination.
func (m *Manager) attemptDownload(ctx context.Context, t *models.DownloadTask, bucketName string, tracker *progressTracker) error {
	t.State = models.TaskDownloading
	tracker.Emit(0, "downloading "+t.Identity.String())

	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if err := os.MkdirAll(filepath.Dir(t.Destination), 0o755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}

	tmp := t.Destination + ".part"
	if err := conn.Client.FGetObject(ctx, bucketName, t.ObjectKey, tmp, minio.GetObjectOptions{}); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to fetch %s: %w", t.ObjectKey, err)
	}

	t.State = models.TaskVerifying
	tracker.Emit(0, "verifying "+t.Identity.String())

	fi, err := os.Stat(tmp)
	if err != nil {
		return fmt.Errorf("failed to stat downloaded file: %w", err)
	}
	if fi.Size() == 0 {
		_ = os.Remove(tmp)
		return fmt.Errorf("downloaded object %s is empty", t.ObjectKey)
	}

	if err := os.Rename(tmp, t.Destination); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move download into archive: %w", err)
	}
	return nil
}
