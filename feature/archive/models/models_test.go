package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() JobSpec {
	return JobSpec{
		Start:      time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC),
		End:        time.Date(2023, 6, 15, 13, 0, 0, 0, time.UTC),
		Satellites: []Satellite{GOES16},
		Products:   []Product{ProductRadC},
		Bands:      []int{13},
		Sectors:    []Sector{SectorConus},
	}
}

func TestIdentityString(t *testing.T) {
	id := Identity{
		Satellite: GOES16,
		Product:   ProductRadC,
		Band:      13,
		Sector:    SectorConus,
		Timestamp: time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, "G16/RadC/B13/C@2023-06-15T12:00:00Z", id.String())
}

func TestIdentityBucket(t *testing.T) {
	id := Identity{
		Satellite: GOES17,
		Product:   ProductCMIPF,
		Band:      2,
		Sector:    SectorFull,
		Timestamp: time.Date(2023, 6, 15, 23, 50, 0, 0, time.UTC),
	}
	b := id.Bucket()
	assert.Equal(t, GOES17, b.Satellite)
	assert.Equal(t, "2023-06-15", b.Date)
	assert.Equal(t, 23, b.Hour)

	start, err := b.Start()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 6, 15, 23, 0, 0, 0, time.UTC), start)
}

func TestTimeBucketKeyDistinguishesFields(t *testing.T) {
	base := Identity{
		Satellite: GOES16,
		Product:   ProductRadC,
		Band:      13,
		Sector:    SectorConus,
		Timestamp: time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC),
	}
	keys := map[string]bool{base.Bucket().Key(): true}

	variants := []Identity{base, base, base}
	variants[0].Band = 14
	variants[1].Satellite = GOES18
	variants[2].Timestamp = variants[2].Timestamp.Add(time.Hour)
	for _, v := range variants {
		k := v.Bucket().Key()
		assert.False(t, keys[k], "key %q collided", k)
		keys[k] = true
	}
}

func TestProductPathCode(t *testing.T) {
	assert.Equal(t, "ABI-L1b-RadC", ProductRadC.PathCode())
	assert.Equal(t, "ABI-L2-CMIPM", ProductCMIPM.PathCode())
	assert.Equal(t, "", Product("Sounder").PathCode())
}

func TestSectorCadence(t *testing.T) {
	assert.Equal(t, 10*time.Minute, SectorFull.Cadence())
	assert.Equal(t, 5*time.Minute, SectorConus.Cadence())
	assert.Equal(t, time.Minute, SectorMeso1.Cadence())
	assert.Equal(t, time.Minute, SectorMesoGeneric.Cadence())
}

func TestJobSpecValidate(t *testing.T) {
	assert.NoError(t, validSpec().Validate())

	tests := []struct {
		name   string
		mutate func(*JobSpec)
	}{
		{"zero start", func(s *JobSpec) { s.Start = time.Time{} }},
		{"end before start", func(s *JobSpec) { s.End = s.Start.Add(-time.Hour) }},
		{"end equals start", func(s *JobSpec) { s.End = s.Start }},
		{"no satellites", func(s *JobSpec) { s.Satellites = nil }},
		{"no products", func(s *JobSpec) { s.Products = nil }},
		{"no bands", func(s *JobSpec) { s.Bands = nil }},
		{"no sectors", func(s *JobSpec) { s.Sectors = nil }},
		{"unknown satellite", func(s *JobSpec) { s.Satellites = []Satellite{12} }},
		{"unknown product", func(s *JobSpec) { s.Products = []Product{"Sounder"} }},
		{"band out of range", func(s *JobSpec) { s.Bands = []int{17} }},
		{"unknown sector", func(s *JobSpec) { s.Sectors = []Sector{"X"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(&spec)
			assert.Error(t, spec.Validate())
		})
	}
}

func TestCancelToken(t *testing.T) {
	var nilToken *CancelToken
	assert.False(t, nilToken.Cancelled())

	token := &CancelToken{}
	assert.False(t, token.Cancelled())
	token.Cancel()
	token.Cancel()
	assert.True(t, token.Cancelled())
}
