package provider

import (
	"context"

	"github.com/bbernstein/chargefinder/internal/models"
)

// Query describes one nearby-stations lookup.
type Query struct {
	Latitude   float64
	Longitude  float64
	RadiusKm   float64
	MaxResults int
	// APIKey is optional; providers that need none ignore it.
	APIKey string
}

// Provider fetches raw station records from one data source and normalizes
// them into the canonical Station shape.
//
// FetchNearby applies the provider's own radius filter and result cap. A
// handled not-applicable condition (for example access denied) yields an
// empty result; transport and timeout failures are returned as *FetchError.
//
// Normalize is pure and fails with *MalformedRecordError when the record has
// no usable coordinates.
type Provider interface {
	Name() string
	Source() models.Source
	FetchNearby(ctx context.Context, q Query) ([]models.RawRecord, error)
	Normalize(data map[string]any) (models.Station, error)
}

// StationAdder is implemented by providers that accept user-submitted stations.
type StationAdder interface {
	AddUserStation(ctx context.Context, sub models.UserSubmission) (string, error)
}

func tag(source models.Source, items []map[string]any) []models.RawRecord {
	records := make([]models.RawRecord, 0, len(items))
	for _, item := range items {
		records = append(records, models.RawRecord{Source: source, Data: item})
	}
	return records
}
