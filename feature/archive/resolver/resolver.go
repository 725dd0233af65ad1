package resolver

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"scene-archiver/feature/archive/models"
)

// ErrUnsupportedIdentity is returned when no naming convention can produce a
// remote key for the identity (unknown satellite/product combination, band
// out of range, or a product/sector mismatch).
var ErrUnsupportedIdentity = errors.New("unsupported identity")

// modeCutover is when the ABI scan schedule moved from mode 3 to mode 6.
// Scene filenames carry the mode, so candidates must use the era-correct one.
var modeCutover = time.Date(2019, time.April, 2, 16, 0, 0, 0, time.UTC)

// convention renders an identity into a remote key prefix under one naming
// era. Conventions are tried in declaration order, newest first.
type convention struct {
	name   models.Convention
	render func(id models.Identity, sector models.Sector) string
}

var conventions = []convention{
	{name: models.ConventionNestedHourly, render: renderNestedHourly},
	{name: models.ConventionFlatLegacy, render: renderFlatLegacy},
}

// ResolveCandidates maps an identity to an ordered list of candidate remote
// key prefixes, ranked by decreasing confidence. Callers try candidates in
// order against listing results and stop at the first hit.
//
// For the generic mesoscale sector the sub-region is guessed from the
// timestamp's second parity; those candidates are flagged Heuristic and
// always rank after any that an explicit sector would produce.
func ResolveCandidates(id models.Identity) ([]models.CandidateKey, error) {
	if err := supported(id); err != nil {
		return nil, err
	}

	sector := id.Sector
	heuristic := false
	if sector == models.SectorMesoGeneric {
		sector = mesoFromTimestamp(id.Timestamp)
		heuristic = true
	}

	candidates := make([]models.CandidateKey, 0, len(conventions))
	for _, conv := range conventions {
		candidates = append(candidates, models.CandidateKey{
			Prefix:     conv.render(id, sector),
			Convention: conv.name,
			Heuristic:  heuristic,
		})
	}
	return candidates, nil
}

// CanonicalLocalPath returns the archive path for an identity, relative to
// the archive root. The layout is versioned by identity fields only and must
// never change: idempotent re-runs depend on finding previously downloaded
// files by identity alone.
func CanonicalLocalPath(root string, id models.Identity) string {
	ts := id.Timestamp.UTC()
	name := fmt.Sprintf("%s_%s_B%02d_%s_%s.nc",
		id.Satellite, id.Product, id.Band, id.Sector,
		ts.Format("20060102T150405Z"))
	return filepath.Join(root,
		fmt.Sprintf("goes%d", int(id.Satellite)),
		string(id.Product),
		fmt.Sprintf("%04d", ts.Year()),
		fmt.Sprintf("%03d", ts.YearDay()),
		fmt.Sprintf("%02d", ts.Hour()),
		name)
}

// RemoteBucket returns the public bucket holding a satellite's scenes.
func RemoteBucket(sat models.Satellite) string {
	return fmt.Sprintf("noaa-goes%d", int(sat))
}

// ScanPrefixes returns the listing prefixes that together enumerate a time
// bucket's objects across all naming conventions. The nested layout is
// listed by hour directory; the flat legacy layout needs the filename prefix
// since all eras share one directory.
func ScanPrefixes(bucket models.TimeBucket) ([]string, error) {
	start, err := bucket.Start()
	if err != nil {
		return nil, err
	}

	code := bucket.Product.PathCode()
	prefixes := []string{
		fmt.Sprintf("%s/%04d/%03d/%02d/", code, start.Year(), start.YearDay(), start.Hour()),
	}

	sectors := []models.Sector{bucket.Sector}
	if bucket.Sector == models.SectorMesoGeneric {
		// Generic meso buckets cover both sub-regions in the flat layout.
		sectors = []models.Sector{models.SectorMeso1, models.SectorMeso2}
	}
	for _, sector := range sectors {
		prefixes = append(prefixes, fmt.Sprintf("%s/OR_%s-%sC%02d_%s_s%04d%03d%02d",
			code, filenameCode(bucket.Product, sector), scanMode(start),
			bucket.Band, bucket.Satellite,
			start.Year(), start.YearDay(), start.Hour()))
	}
	return prefixes, nil
}

// KeyMatchesBucket reports whether a listed object key belongs to the
// bucket's satellite/band/hour. Hour listings enumerate every band, so scan
// results are filtered before caching.
func KeyMatchesBucket(bucket models.TimeBucket, key string) bool {
	if !strings.HasPrefix(key, bucket.Product.PathCode()+"/") {
		return false
	}
	start, err := bucket.Start()
	if err != nil {
		return false
	}
	token := fmt.Sprintf("C%02d_%s_s%04d%03d%02d",
		bucket.Band, bucket.Satellite,
		start.Year(), start.YearDay(), start.Hour())
	return strings.Contains(key, token)
}

// MatchCandidate returns the first candidate whose prefix matches the key,
// honoring candidate order.
func MatchCandidate(candidates []models.CandidateKey, key string) (models.CandidateKey, bool) {
	for _, c := range candidates {
		if strings.HasPrefix(key, c.Prefix) {
			return c, true
		}
	}
	return models.CandidateKey{}, false
}

// FirstMatch walks candidates in confidence order and returns the first
// listed key that one of them resolves to. At most one candidate should
// point at a real object, but when several keys match (duplicate uploads)
// the higher-confidence convention wins.
func FirstMatch(candidates []models.CandidateKey, keys []string) (string, bool) {
	for _, c := range candidates {
		for _, key := range keys {
			if strings.HasPrefix(key, c.Prefix) {
				return key, true
			}
		}
	}
	return "", false
}

func supported(id models.Identity) error {
	if !id.Satellite.Valid() {
		return fmt.Errorf("%w: satellite %d", ErrUnsupportedIdentity, int(id.Satellite))
	}
	if !id.Product.Valid() {
		return fmt.Errorf("%w: product %q", ErrUnsupportedIdentity, id.Product)
	}
	if id.Band < 1 || id.Band > 16 {
		return fmt.Errorf("%w: band %d", ErrUnsupportedIdentity, id.Band)
	}
	if !id.Sector.Valid() {
		return fmt.Errorf("%w: sector %q", ErrUnsupportedIdentity, id.Sector)
	}
	if id.Product.SectorLetter() != id.Sector.Letter() {
		return fmt.Errorf("%w: product %s does not cover sector %s",
			ErrUnsupportedIdentity, id.Product, id.Sector)
	}
	if id.Timestamp.IsZero() {
		return fmt.Errorf("%w: zero timestamp", ErrUnsupportedIdentity)
	}
	return nil
}

// mesoFromTimestamp guesses the mesoscale sub-region for a generic-M
// identity from the timestamp's second parity. This is a heuristic carried
// over from operational fix-up tooling, not a documented rule; it stays the
// lowest-confidence fallback until an authoritative naming source confirms
// it.
func mesoFromTimestamp(ts time.Time) models.Sector {
	if ts.UTC().Second()%2 == 0 {
		return models.SectorMeso1
	}
	return models.SectorMeso2
}

// scanMode returns the era-correct ABI timeline mode token.
func scanMode(ts time.Time) string {
	if ts.Before(modeCutover) {
		return "M3"
	}
	return "M6"
}

// filenameCode returns the product token as it appears in scene filenames,
// e.g. "ABI-L1b-RadC". Mesoscale filenames carry the sub-region number
// ("ABI-L1b-RadM1").
func filenameCode(p models.Product, sector models.Sector) string {
	code := p.PathCode()
	if p.SectorLetter() == "M" && len(sector) == 2 {
		code += string(sector[1])
	}
	return code
}

func renderNestedHourly(id models.Identity, sector models.Sector) string {
	ts := id.Timestamp.UTC()
	return fmt.Sprintf("%s/%04d/%03d/%02d/OR_%s-%sC%02d_%s_s%04d%03d%02d%02d",
		id.Product.PathCode(), ts.Year(), ts.YearDay(), ts.Hour(),
		filenameCode(id.Product, sector), scanMode(ts), id.Band, id.Satellite,
		ts.Year(), ts.YearDay(), ts.Hour(), ts.Minute())
}

func renderFlatLegacy(id models.Identity, sector models.Sector) string {
	ts := id.Timestamp.UTC()
	return fmt.Sprintf("%s/OR_%s-%sC%02d_%s_s%04d%03d%02d%02d",
		id.Product.PathCode(),
		filenameCode(id.Product, sector), scanMode(ts), id.Band, id.Satellite,
		ts.Year(), ts.YearDay(), ts.Hour(), ts.Minute())
}
