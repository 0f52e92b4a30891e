package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/chargefinder/internal/geo"
	"github.com/bbernstein/chargefinder/internal/models"
	"github.com/bbernstein/chargefinder/internal/network"
)

const (
	localProviderName = "local_network"

	DefaultLocalName     = "Зарядная станция"
	DefaultLocalOperator = "Белорусская сеть"
	DefaultUserOperator  = "Частная"
	DefaultUserPowerKW   = 22.0
)

// LocalNetwork serves the Malanka, A-100 and Belorusneft stations and user
// submissions from a network.Store. It needs no API key.
type LocalNetwork struct {
	store network.Store
}

var (
	_ Provider     = (*LocalNetwork)(nil)
	_ StationAdder = (*LocalNetwork)(nil)
)

func NewLocalNetwork(store network.Store) *LocalNetwork {
	return &LocalNetwork{store: store}
}

func (p *LocalNetwork) Name() string {
	return localProviderName
}

func (p *LocalNetwork) Source() models.Source {
	return models.SourceLocalNetwork
}

// FetchNearby returns the stations within the radius, nearest first, each
// annotated with distance_km.
func (p *LocalNetwork) FetchNearby(ctx context.Context, q Query) ([]models.RawRecord, error) {
	candidates, err := p.store.List(ctx, geo.BoxAround(q.Latitude, q.Longitude, q.RadiusKm))
	if err != nil {
		return nil, NewFetchError(p.Name(), "listing local stations", err)
	}

	ranked := geo.SortByDistance(candidates, func(r network.Record) (float64, float64) {
		return r.Latitude, r.Longitude
	}, q.Latitude, q.Longitude)

	items := make([]map[string]any, 0, len(ranked))
	for _, r := range ranked {
		if r.DistanceKm > q.RadiusKm {
			break
		}
		if q.MaxResults > 0 && len(items) >= q.MaxResults {
			break
		}
		items = append(items, recordData(r.Item, r.DistanceKm))
	}

	log.Debug().Str("provider", p.Name()).Int("count", len(items)).Msg("Fetched stations")
	return tag(p.Source(), items), nil
}

func recordData(rec network.Record, distanceKm float64) map[string]any {
	data := map[string]any{
		"id":          rec.ID,
		"latitude":    rec.Latitude,
		"longitude":   rec.Longitude,
		"distance_km": distanceKm,
	}
	if rec.Name != "" {
		data["name"] = rec.Name
	}
	if rec.Address != "" {
		data["address"] = rec.Address
	}
	if rec.Operator != "" {
		data["operator"] = rec.Operator
	}
	if rec.Network != "" {
		data["network"] = rec.Network
	}
	if rec.PowerKW != nil {
		data["power_kw"] = *rec.PowerKW
	}
	return data
}

func (p *LocalNetwork) Normalize(data map[string]any) (models.Station, error) {
	lat, lon, err := coordinates(p.Source(), data, "latitude", "longitude")
	if err != nil {
		return models.Station{}, err
	}

	extID, ok := idString(data["id"])
	if !ok {
		networkName, ok := data["network"].(string)
		if !ok || networkName == "" {
			networkName = "unknown"
		}
		extID = "by_" + networkName
	}

	name := DefaultLocalName
	if s := stringField(data, "name"); s != nil {
		name = *s
	}
	operator := DefaultLocalOperator
	if s := stringField(data, "operator"); s != nil {
		operator = *s
	}

	return models.Station{
		ExtID:     extID,
		Name:      &name,
		Address:   stringField(data, "address"),
		Operator:  &operator,
		Latitude:  lat,
		Longitude: lon,
		PowerKW:   floatField(data, "power_kw"),
		Status:    models.StringPtr("available"),
		Source:    p.Source(),
		Raw:       data,
	}, nil
}

// AddUserStation stores a user submission and returns its generated ID.
// Power defaults to 22 kW and the operator to a private owner. Any failure,
// including a panic in the store, is returned as *network.SubmissionError.
func (p *LocalNetwork) AddUserStation(ctx context.Context, sub models.UserSubmission) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			id = ""
			err = network.NewSubmissionError("storing station", fmt.Errorf("panic: %v", r))
		}
	}()

	if !geo.ValidCoordinates(sub.Latitude, sub.Longitude) {
		return "", network.NewSubmissionError(
			fmt.Sprintf("invalid coordinates %f, %f", sub.Latitude, sub.Longitude), nil)
	}

	power := DefaultUserPowerKW
	if sub.PowerKW != nil && *sub.PowerKW > 0 {
		power = *sub.PowerKW
	}
	operator := strings.TrimSpace(sub.Operator)
	if operator == "" {
		operator = DefaultUserOperator
	}

	id, err = p.store.Append(ctx, network.Record{
		Name:      strings.TrimSpace(sub.Name),
		Address:   strings.TrimSpace(sub.Address),
		Latitude:  sub.Latitude,
		Longitude: sub.Longitude,
		PowerKW:   &power,
		Operator:  operator,
		Network:   network.NetworkUser,
	})
	if err != nil {
		return "", network.NewSubmissionError("storing station", err)
	}

	log.Info().Str("station_id", id).Str("operator", operator).Msg("User station added")
	return id, nil
}
