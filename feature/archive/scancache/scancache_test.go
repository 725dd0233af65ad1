package scancache

import (
	"context"
	"testing"
	"time"

	"scene-archiver/feature/archive/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	cache, err := New(db, ttl, nil)
	require.NoError(t, err)
	return cache
}

func testBucket() models.TimeBucket {
	return models.TimeBucket{
		Satellite: models.GOES16,
		Product:   models.ProductRadC,
		Sector:    models.SectorConus,
		Band:      13,
		Date:      "2023-06-15",
		Hour:      12,
	}
}

// backdate shifts a bucket's scan timestamp into the past.
func backdate(t *testing.T, c *Cache, bucket models.TimeBucket, age time.Duration) {
	t.Helper()
	err := c.db.Model(&Record{}).
		Where(whereBucket(bucket)).
		Update("scanned_at", time.Now().UTC().Add(-age)).Error
	require.NoError(t, err)
}

func TestStoreAndLookup(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()
	bucket := testBucket()

	keys := []string{
		"ABI-L1b-RadC/2023/166/12/OR_ABI-L1b-RadC-M6C13_G16_s20231661201174.nc",
		"ABI-L1b-RadC/2023/166/12/OR_ABI-L1b-RadC-M6C13_G16_s20231661206174.nc",
	}
	require.NoError(t, cache.Store(ctx, bucket, keys))

	got, ok := cache.Lookup(ctx, bucket)
	require.True(t, ok)
	assert.Equal(t, keys, got)
}

func TestLookupMissWhenAbsent(t *testing.T) {
	cache := newTestCache(t, time.Hour)

	_, ok := cache.Lookup(context.Background(), testBucket())
	assert.False(t, ok)
}

func TestLookupMissAfterTTL(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()
	bucket := testBucket()

	require.NoError(t, cache.Store(ctx, bucket, []string{"a.nc"}))
	backdate(t, cache, bucket, 2*time.Hour)

	_, ok := cache.Lookup(ctx, bucket)
	assert.False(t, ok)
}

func TestZeroTTLNeverExpires(t *testing.T) {
	cache := newTestCache(t, 0)
	ctx := context.Background()
	bucket := testBucket()

	require.NoError(t, cache.Store(ctx, bucket, []string{"a.nc"}))
	backdate(t, cache, bucket, 24*365*time.Hour)

	_, ok := cache.Lookup(ctx, bucket)
	assert.True(t, ok)
}

func TestLookupMissOnCorruptRecord(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()
	bucket := testBucket()

	require.NoError(t, cache.Store(ctx, bucket, []string{"a.nc"}))
	err := cache.db.Model(&Record{}).
		Where(whereBucket(bucket)).
		Update("known_keys", "{not json").Error
	require.NoError(t, err)

	_, ok := cache.Lookup(ctx, bucket)
	assert.False(t, ok)
}

func TestStoreEmptyListingIsAHit(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()
	bucket := testBucket()

	// An empty hour is a valid, cacheable answer: the scenes are missing
	// remotely and re-listing will not change that within the TTL.
	require.NoError(t, cache.Store(ctx, bucket, nil))

	got, ok := cache.Lookup(ctx, bucket)
	require.True(t, ok)
	assert.Empty(t, got)
}

func TestStoreUpsertsExistingRecord(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()
	bucket := testBucket()

	require.NoError(t, cache.Store(ctx, bucket, []string{"old.nc"}))
	require.NoError(t, cache.Store(ctx, bucket, []string{"new.nc"}))

	got, ok := cache.Lookup(ctx, bucket)
	require.True(t, ok)
	assert.Equal(t, []string{"new.nc"}, got)

	info, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.Buckets)
}

func TestInvalidateRemovesOneBucket(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()

	first := testBucket()
	second := testBucket()
	second.Hour = 13

	require.NoError(t, cache.Store(ctx, first, []string{"a.nc"}))
	require.NoError(t, cache.Store(ctx, second, []string{"b.nc"}))
	require.NoError(t, cache.Invalidate(ctx, first))

	_, ok := cache.Lookup(ctx, first)
	assert.False(t, ok)
	_, ok = cache.Lookup(ctx, second)
	assert.True(t, ok)
}

func TestClearRemovesEverything(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()

	first := testBucket()
	second := testBucket()
	second.Band = 14

	require.NoError(t, cache.Store(ctx, first, []string{"a.nc"}))
	require.NoError(t, cache.Store(ctx, second, []string{"b.nc"}))
	require.NoError(t, cache.Clear(ctx))

	info, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, info.Buckets)
}

func TestStatsReportsBounds(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()

	info, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, info.Buckets)
	assert.Nil(t, info.Oldest)
	assert.Nil(t, info.Newest)

	first := testBucket()
	second := testBucket()
	second.Hour = 13
	require.NoError(t, cache.Store(ctx, first, []string{"a.nc"}))
	require.NoError(t, cache.Store(ctx, second, []string{"b.nc"}))
	backdate(t, cache, first, 30*time.Minute)

	info, err = cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), info.Buckets)
	require.NotNil(t, info.Oldest)
	require.NotNil(t, info.Newest)
	assert.True(t, info.Oldest.Before(*info.Newest))
}
