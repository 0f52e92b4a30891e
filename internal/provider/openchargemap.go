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
	ocmMaxResults   = 100
	ocmCountryCode  = "BY"
	ocmProviderName = "openchargemap"
)

// OpenChargeMap queries the OpenChargeMap POI API.
type OpenChargeMap struct {
	httpClient client.Interface
}

var _ Provider = (*OpenChargeMap)(nil)

// NewOpenChargeMap expects httpClient to be rooted at the POI endpoint.
func NewOpenChargeMap(httpClient client.Interface) *OpenChargeMap {
	return &OpenChargeMap{httpClient: httpClient}
}

func (p *OpenChargeMap) Name() string {
	return ocmProviderName
}

func (p *OpenChargeMap) Source() models.Source {
	return models.SourceOpenChargeMap
}

func (p *OpenChargeMap) FetchNearby(ctx context.Context, q Query) ([]models.RawRecord, error) {
	maxResults := q.MaxResults
	if maxResults < 1 {
		maxResults = 1
	}
	if maxResults > ocmMaxResults {
		maxResults = ocmMaxResults
	}

	params := url.Values{}
	params.Set("output", "json")
	params.Set("latitude", formatFloat(q.Latitude))
	params.Set("longitude", formatFloat(q.Longitude))
	params.Set("distance", formatFloat(q.RadiusKm))
	params.Set("distanceunit", "KM")
	params.Set("countrycode", ocmCountryCode)
	params.Set("maxresults", strconv.Itoa(maxResults))
	params.Set("compact", "true")
	params.Set("verbose", "false")

	opts := []client.RequestOption{client.WithQuery(params)}
	if strings.TrimSpace(q.APIKey) != "" {
		opts = append(opts, client.WithHeader("X-API-Key", q.APIKey))
	}

	resp, err := p.httpClient.Get(ctx, "", opts...)
	if err != nil {
		return nil, NewFetchError(p.Name(), "request failed", err)
	}
	if resp == nil {
		return nil, NewFetchError(p.Name(), "no response", nil)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, NewFetchError(p.Name(), fmt.Sprintf("unexpected status code %d", resp.StatusCode), nil)
	}

	var items []map[string]any
	if err := json.Unmarshal(resp.Body, &items); err != nil {
		return nil, NewFetchError(p.Name(), "decoding response", err)
	}

	log.Debug().Str("provider", p.Name()).Int("count", len(items)).Msg("Fetched stations")
	return tag(p.Source(), items), nil
}

func (p *OpenChargeMap) Normalize(data map[string]any) (models.Station, error) {
	addr, ok := subMap(data, "AddressInfo")
	if !ok {
		return models.Station{}, NewMalformedRecordError(p.Source(), "AddressInfo", "is missing")
	}
	lat, lon, err := coordinates(p.Source(), addr, "Latitude", "Longitude")
	if err != nil {
		return models.Station{}, err
	}

	extID, ok := idString(data["ID"])
	if !ok {
		extID = "unknown"
	}

	station := models.Station{
		ExtID:       extID,
		Name:        stringField(addr, "Title"),
		Address:     stringField(addr, "AddressLine1"),
		Latitude:    lat,
		Longitude:   lon,
		PowerKW:     ocmMaxPower(subList(data, "Connections")),
		LastSeenUTC: stringField(data, "DateLastStatusUpdate"),
		Source:      p.Source(),
		Raw:         data,
	}
	if operator, ok := subMap(data, "OperatorInfo"); ok {
		station.Operator = stringField(operator, "Title")
	}
	if status, ok := subMap(data, "StatusType"); ok {
		station.Status = stringField(status, "Title")
	}
	return station, nil
}

// ocmMaxPower is the highest connection rating, counting unrated connections
// as zero, or nil when the record has no connections.
func ocmMaxPower(connections []any) *float64 {
	if len(connections) == 0 {
		return nil
	}
	maxPower := 0.0
	for _, c := range connections {
		conn, ok := c.(map[string]any)
		if !ok {
			continue
		}
		if power := floatField(conn, "PowerKW"); power != nil && *power > maxPower {
			maxPower = *power
		}
	}
	return &maxPower
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
