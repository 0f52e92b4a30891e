package aggregator

import (
	"math"

	"github.com/bbernstein/chargefinder/internal/models"
)

// DuplicateThresholdDeg is the per-axis box within which two stations are
// treated as the same site. The box is anisotropic: a degree of
// longitude shrinks with latitude.
const DuplicateThresholdDeg = 0.001

// IsDuplicate reports whether a and b fall inside the same coordinate box.
func IsDuplicate(a, b models.Station) bool {
	return math.Abs(a.Latitude-b.Latitude) < DuplicateThresholdDeg &&
		math.Abs(a.Longitude-b.Longitude) < DuplicateThresholdDeg
}

// Deduplicate keeps stations in order, skipping any that duplicates an
// already kept station regardless of ExtID.
func Deduplicate(stations []models.Station) []models.Station {
	kept := make([]models.Station, 0, len(stations))
	for _, st := range stations {
		duplicate := false
		for _, existing := range kept {
			if IsDuplicate(st, existing) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, st)
		}
	}
	return kept
}
