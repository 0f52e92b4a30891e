package models

import (
	"context"

	"github.com/bbernstein/chargefinder/internal/geo"
)

// StationRepository persists normalized stations keyed by ExtID.
type StationRepository interface {
	// Upsert inserts or fully replaces every station by ExtID.
	Upsert(ctx context.Context, stations []Station) error
	// ListWithin returns persisted stations inside the box.
	ListWithin(ctx context.Context, box geo.BoundingBox) ([]Station, error)
}
