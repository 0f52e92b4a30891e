package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/chargefinder/internal/models"
	"github.com/bbernstein/chargefinder/pkg/http/client"
)

const (
	kmToMiles             = 0.621371
	plugShareMaxResults   = 50
	plugShareProviderName = "plugshare"
)

// PlugShare queries the PlugShare region endpoint.
type PlugShare struct {
	httpClient client.Interface
}

var _ Provider = (*PlugShare)(nil)

func NewPlugShare(httpClient client.Interface) *PlugShare {
	return &PlugShare{httpClient: httpClient}
}

func (p *PlugShare) Name() string {
	return plugShareProviderName
}

func (p *PlugShare) Source() models.Source {
	return models.SourcePlugShare
}

func (p *PlugShare) FetchNearby(ctx context.Context, q Query) ([]models.RawRecord, error) {
	count := q.MaxResults
	if count > plugShareMaxResults {
		count = plugShareMaxResults
	}

	params := url.Values{}
	params.Set("latitude", formatFloat(q.Latitude))
	params.Set("longitude", formatFloat(q.Longitude))
	params.Set("distance", formatFloat(q.RadiusKm*kmToMiles))
	params.Set("count", strconv.Itoa(count))
	params.Set("minimal", "false")
	params.Set("access", "public")

	opts := []client.RequestOption{
		client.WithQuery(params),
		client.WithHeader("Accept", "application/json"),
	}
	if strings.TrimSpace(q.APIKey) != "" {
		opts = append(opts, client.WithHeader("Authorization", "Bearer "+q.APIKey))
	}

	resp, err := p.httpClient.Get(ctx, "", opts...)
	if err != nil {
		return nil, NewFetchError(p.Name(), "request failed", err)
	}
	if resp == nil {
		return nil, NewFetchError(p.Name(), "no response", nil)
	}
	if resp.StatusCode == http.StatusForbidden {
		// Requests without a key or from blocked regions are refused.
		log.Debug().Str("provider", p.Name()).Msg("Access denied, returning no stations")
		return nil, nil
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, NewFetchError(p.Name(), fmt.Sprintf("unexpected status code %d", resp.StatusCode), nil)
	}

	var body any
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, NewFetchError(p.Name(), "decoding response", err)
	}
	list, ok := body.([]any)
	if !ok {
		log.Debug().Str("provider", p.Name()).Msg("Response is not a list, returning no stations")
		return nil, nil
	}

	items := make([]map[string]any, 0, len(list))
	for _, entry := range list {
		if item, ok := entry.(map[string]any); ok {
			items = append(items, item)
		}
	}

	log.Debug().Str("provider", p.Name()).Int("count", len(items)).Msg("Fetched stations")
	return tag(p.Source(), items), nil
}

func (p *PlugShare) Normalize(data map[string]any) (models.Station, error) {
	lat, lon, err := coordinates(p.Source(), data, "latitude", "longitude")
	if err != nil {
		return models.Station{}, err
	}

	id, ok := idString(data["id"])
	if !ok {
		id = "unknown"
	}

	status := "unknown"
	if truthy(data["available"]) {
		status = "available"
	}

	station := models.Station{
		ExtID:       "ps_" + id,
		Name:        stringField(data, "name"),
		Address:     plugShareAddress(data),
		Latitude:    lat,
		Longitude:   lon,
		PowerKW:     plugShareMaxPower(data),
		Status:      &status,
		LastSeenUTC: stringField(data, "updated_at"),
		Source:      p.Source(),
		Raw:         data,
	}
	if operator, ok := subMap(data, "operator"); ok {
		station.Operator = stringField(operator, "name")
	}
	return station, nil
}

// plugShareAddress joins street and city, trimming separator leftovers.
func plugShareAddress(data map[string]any) *string {
	addr, ok := subMap(data, "address")
	if !ok {
		return nil
	}
	joined := strings.Trim(models.Deref(stringField(addr, "street"))+", "+models.Deref(stringField(addr, "city")), ", ")
	if joined == "" {
		return nil
	}
	return &joined
}

// plugShareMaxPower reads the outlets of the first station only.
func plugShareMaxPower(data map[string]any) *float64 {
	stations := subList(data, "stations")
	if len(stations) == 0 {
		return nil
	}
	first, ok := stations[0].(map[string]any)
	if !ok {
		return nil
	}

	var maxPower *float64
	for _, o := range subList(first, "outlets") {
		outlet, ok := o.(map[string]any)
		if !ok {
			continue
		}
		power := floatField(outlet, "power")
		if power == nil || *power == 0 {
			continue
		}
		if maxPower == nil || *power > *maxPower {
			maxPower = power
		}
	}
	return maxPower
}
