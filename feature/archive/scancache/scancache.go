package scancache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"scene-archiver/feature/archive/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is one persisted bucket scan: the set of object keys confirmed
// present by a listing response, and when the listing happened. The bucket
// tuple is the composite primary key, so writes for different buckets never
// contend on the same row.
type Record struct {
	Satellite int    `gorm:"primaryKey;autoIncrement:false"`
	Product   string `gorm:"primaryKey;size:16"`
	Sector    string `gorm:"primaryKey;size:4"`
	Band      int    `gorm:"primaryKey;autoIncrement:false"`
	Date      string `gorm:"primaryKey;size:10"`
	Hour      int    `gorm:"primaryKey;autoIncrement:false"`
	// KnownKeys is the JSON-serialized list of object keys.
	KnownKeys string `gorm:"type:text"`
	ScannedAt time.Time
}

// TableName sets the scan cache table name.
func (Record) TableName() string {
	return "scan_cache"
}

// Info summarizes cache contents for operator inspection.
type Info struct {
	Buckets int64      `json:"buckets"`
	Oldest  *time.Time `json:"oldest_scan,omitempty"`
	Newest  *time.Time `json:"newest_scan,omitempty"`
}

// Cache is the persistent scan cache. A lookup hit means the bucket's remote
// listing is recent enough to trust; anything else (absent, expired, or
// corrupt) degrades to a miss and forces a re-scan, never an error.
type Cache struct {
	db  *gorm.DB
	ttl time.Duration
	log *zap.Logger
}

// New creates the cache and migrates its table.
func New(db *gorm.DB, ttl time.Duration, log *zap.Logger) (*Cache, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("failed to migrate scan cache table: %w", err)
	}
	return &Cache{db: db, ttl: ttl, log: log}, nil
}

// Lookup returns the known keys for a bucket and whether the record counts
// as a hit. Expired and structurally corrupt records are misses; corruption
// is logged for diagnosis but never surfaced.
func (c *Cache) Lookup(ctx context.Context, bucket models.TimeBucket) ([]string, bool) {
	var rec Record
	err := c.db.WithContext(ctx).
		Where(whereBucket(bucket)).
		First(&rec).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.log.Warn("Scan cache lookup failed, treating as miss",
				zap.String("bucket", bucket.Key()), zap.Error(err))
		}
		return nil, false
	}

	if c.ttl > 0 && time.Since(rec.ScannedAt) > c.ttl {
		return nil, false
	}

	var keys []string
	if err := json.Unmarshal([]byte(rec.KnownKeys), &keys); err != nil {
		c.log.Warn("Scan cache record corrupt, treating as miss",
			zap.String("bucket", bucket.Key()), zap.Error(err))
		return nil, false
	}
	return keys, true
}

// Store upserts the listing result for a bucket and stamps it with the
// current time. Two workers racing on the same bucket serialize at the row;
// last writer wins, which is fine because listings for the same bucket are
// idempotent.
func (c *Cache) Store(ctx context.Context, bucket models.TimeBucket, keys []string) error {
	if keys == nil {
		keys = []string{}
	}
	encoded, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("failed to encode known keys: %w", err)
	}

	rec := Record{
		Satellite: int(bucket.Satellite),
		Product:   string(bucket.Product),
		Sector:    string(bucket.Sector),
		Band:      bucket.Band,
		Date:      bucket.Date,
		Hour:      bucket.Hour,
		KnownKeys: string(encoded),
		ScannedAt: time.Now().UTC(),
	}

	err = c.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to store scan cache record: %w", err)
	}
	return nil
}

// Invalidate removes the record for a bucket. Used for manual re-scans and
// for test determinism; the read-mostly workflow rarely needs it.
func (c *Cache) Invalidate(ctx context.Context, bucket models.TimeBucket) error {
	err := c.db.WithContext(ctx).
		Where(whereBucket(bucket)).
		Delete(&Record{}).Error
	if err != nil {
		return fmt.Errorf("failed to invalidate scan cache record: %w", err)
	}
	return nil
}

// Clear removes every record.
func (c *Cache) Clear(ctx context.Context) error {
	err := c.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&Record{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear scan cache: %w", err)
	}
	return nil
}

// Stats returns row counts and scan-time bounds for operator inspection.
func (c *Cache) Stats(ctx context.Context) (Info, error) {
	var info Info
	if err := c.db.WithContext(ctx).Model(&Record{}).Count(&info.Buckets).Error; err != nil {
		return Info{}, fmt.Errorf("failed to count scan cache records: %w", err)
	}
	if info.Buckets == 0 {
		return info, nil
	}

	var bounds struct {
		Oldest time.Time
		Newest time.Time
	}
	err := c.db.WithContext(ctx).Model(&Record{}).
		Select("MIN(scanned_at) AS oldest, MAX(scanned_at) AS newest").
		Scan(&bounds).Error
	if err != nil {
		return Info{}, fmt.Errorf("failed to read scan cache bounds: %w", err)
	}
	info.Oldest = &bounds.Oldest
	info.Newest = &bounds.Newest
	return info, nil
}

// TTL returns the configured record time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func whereBucket(bucket models.TimeBucket) map[string]any {
	return map[string]any{
		"satellite": int(bucket.Satellite),
		"product":   string(bucket.Product),
		"sector":    string(bucket.Sector),
		"band":      bucket.Band,
		"date":      bucket.Date,
		"hour":      bucket.Hour,
	}
}
