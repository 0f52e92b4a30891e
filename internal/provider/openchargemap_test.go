package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbernstein/chargefinder/internal/models"
)

const ocmResponse = `[
  {
    "ID": 12345,
    "AddressInfo": {"Title": "Galleria Minsk", "AddressLine1": "пр-т Победителей, 9", "Latitude": 53.9094, "Longitude": 27.5439},
    "OperatorInfo": {"Title": "Malanka"},
    "StatusType": {"Title": "Operational"},
    "Connections": [{"PowerKW": 22}, {"PowerKW": 50}, {"PowerKW": null}],
    "DateLastStatusUpdate": "2024-05-01T10:00:00Z"
  },
  {
    "ID": 67890,
    "AddressInfo": {"Title": "No coordinates"}
  }
]`

func TestOpenChargeMapFetchNearby(t *testing.T) {
	var got *http.Request
	httpClient := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(ocmResponse))
	})
	p := NewOpenChargeMap(httpClient)

	records, err := p.FetchNearby(context.Background(), Query{
		Latitude: 53.9045, Longitude: 27.5615, RadiusKm: 50, MaxResults: 250, APIKey: "secret",
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.Equal(t, models.SourceOpenChargeMap, rec.Source)
	}

	require.NotNil(t, got)
	q := got.URL.Query()
	assert.Equal(t, "json", q.Get("output"))
	assert.Equal(t, "53.9045", q.Get("latitude"))
	assert.Equal(t, "27.5615", q.Get("longitude"))
	assert.Equal(t, "50", q.Get("distance"))
	assert.Equal(t, "KM", q.Get("distanceunit"))
	assert.Equal(t, "BY", q.Get("countrycode"))
	assert.Equal(t, "100", q.Get("maxresults"), "capped at 100")
	assert.Equal(t, "true", q.Get("compact"))
	assert.Equal(t, "false", q.Get("verbose"))
	assert.Equal(t, "secret", got.Header.Get("X-API-Key"))
}

func TestOpenChargeMapFetchNearbyWithoutKey(t *testing.T) {
	var headerSeen []string
	var maxResults string
	httpClient := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		headerSeen = r.Header.Values("X-API-Key")
		maxResults = r.URL.Query().Get("maxresults")
		_, _ = w.Write([]byte(`[]`))
	})

	records, err := NewOpenChargeMap(httpClient).FetchNearby(context.Background(), Query{
		Latitude: 1, Longitude: 1, RadiusKm: 5, MaxResults: 0, APIKey: "   ",
	})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, headerSeen, "blank key is not sent")
	assert.Equal(t, "1", maxResults, "raised to at least 1")
}

func TestOpenChargeMapFetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{}`},
		{name: "forbidden", status: http.StatusForbidden, body: `{}`},
		{name: "not a list", status: http.StatusOK, body: `{"error": "bad key"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			httpClient := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := NewOpenChargeMap(httpClient).FetchNearby(context.Background(), Query{Latitude: 1, Longitude: 1, RadiusKm: 5, MaxResults: 5})
			var fetchErr *FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, "openchargemap", fetchErr.Provider)
		})
	}
}

func decodeRecords(t *testing.T, body string) []map[string]any {
	t.Helper()
	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &items))
	return items
}

func TestOpenChargeMapNormalize(t *testing.T) {
	items := decodeRecords(t, ocmResponse)
	p := NewOpenChargeMap(nil)

	station, err := p.Normalize(items[0])
	require.NoError(t, err)
	assert.Equal(t, "12345", station.ExtID)
	assert.Equal(t, "Galleria Minsk", models.Deref(station.Name))
	assert.Equal(t, "пр-т Победителей, 9", models.Deref(station.Address))
	assert.Equal(t, "Malanka", models.Deref(station.Operator))
	assert.Equal(t, "Operational", models.Deref(station.Status))
	assert.Equal(t, "2024-05-01T10:00:00Z", models.Deref(station.LastSeenUTC))
	assert.Equal(t, 53.9094, station.Latitude)
	assert.Equal(t, 27.5439, station.Longitude)
	require.NotNil(t, station.PowerKW)
	assert.Equal(t, 50.0, *station.PowerKW)
	assert.Equal(t, models.SourceOpenChargeMap, station.Source)
	assert.Equal(t, items[0], station.Raw)

	_, err = p.Normalize(items[1])
	var malformed *MalformedRecordError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "Latitude", malformed.Field)
}

func TestOpenChargeMapNormalizeEdgeCases(t *testing.T) {
	p := NewOpenChargeMap(nil)

	tests := []struct {
		name      string
		record    map[string]any
		wantErr   string
		wantID    string
		wantPower *float64
	}{
		{
			name:    "missing AddressInfo",
			record:  map[string]any{"ID": 1.0},
			wantErr: "AddressInfo",
		},
		{
			name:    "non-numeric longitude",
			record:  map[string]any{"AddressInfo": map[string]any{"Latitude": 53.9, "Longitude": "east"}},
			wantErr: "Longitude",
		},
		{
			name:    "latitude out of range",
			record:  map[string]any{"AddressInfo": map[string]any{"Latitude": 95.0, "Longitude": 27.0}},
			wantErr: "Latitude",
		},
		{
			name:   "numeric strings and missing ID",
			record: map[string]any{"AddressInfo": map[string]any{"Latitude": "53.9", "Longitude": "27.5"}},
			wantID: "unknown",
		},
		{
			name: "connections without power",
			record: map[string]any{
				"ID":          7.0,
				"AddressInfo": map[string]any{"Latitude": 53.9, "Longitude": 27.5},
				"Connections": []any{map[string]any{"PowerKW": nil}},
			},
			wantID:    "7",
			wantPower: models.Float64Ptr(0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			station, err := p.Normalize(tt.record)
			if tt.wantErr != "" {
				var malformed *MalformedRecordError
				require.ErrorAs(t, err, &malformed)
				assert.Equal(t, tt.wantErr, malformed.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, station.ExtID)
			assert.Equal(t, tt.wantPower, station.PowerKW)
			assert.Nil(t, station.Name)
		})
	}
}
