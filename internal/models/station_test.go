package models

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStationJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		station  Station
		wantJSON string
	}{
		{
			name: "complete station",
			station: Station{
				ExtID:       "ocm_1",
				Name:        StringPtr("Malanka"),
				Address:     StringPtr("пр-т Победителей, 9"),
				Operator:    StringPtr("Malanka"),
				Latitude:    53.9353,
				Longitude:   27.5125,
				PowerKW:     Float64Ptr(50),
				Status:      StringPtr("available"),
				LastSeenUTC: StringPtr("2024-05-01T10:00:00Z"),
				Source:      SourceOpenChargeMap,
				Raw:         map[string]any{"ID": 1},
			},
			wantJSON: `{
				"extId": "ocm_1",
				"name": "Malanka",
				"address": "пр-т Победителей, 9",
				"operator": "Malanka",
				"latitude": 53.9353,
				"longitude": 27.5125,
				"powerKw": 50,
				"status": "available",
				"lastSeenUtc": "2024-05-01T10:00:00Z",
				"source": "OPENCHARGEMAP"
			}`,
		},
		{
			name:     "minimal station",
			station:  Station{ExtID: "by_unknown", Latitude: 52.4417, Longitude: 30.9754, Source: SourceLocalNetwork},
			wantJSON: `{"extId": "by_unknown", "latitude": 52.4417, "longitude": 30.9754, "source": "LOCAL_NETWORK"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data, err := json.Marshal(tt.station)
			require.NoError(t, err)
			assert.JSONEq(t, tt.wantJSON, string(data))
		})
	}
}

func TestStationDynamoAttributes(t *testing.T) {
	t.Parallel()

	st := Station{
		ExtID:     "ps_42",
		Name:      StringPtr("PlugShare"),
		Latitude:  53.9,
		Longitude: 27.5,
		PowerKW:   Float64Ptr(22),
		Source:    SourcePlugShare,
		Raw:       map[string]any{"id": 42},
	}

	item, err := attributevalue.MarshalMap(st)
	require.NoError(t, err)

	assert.Equal(t, &types.AttributeValueMemberS{Value: "ps_42"}, item["ext_id"])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "22"}, item["power_kw"])
	assert.NotContains(t, item, "address", "nil optional fields are omitted")
	assert.NotContains(t, item, "Source")
	assert.NotContains(t, item, "Raw")

	var decoded Station
	require.NoError(t, attributevalue.UnmarshalMap(item, &decoded))
	st.Source, st.Raw = "", nil
	assert.Equal(t, st, decoded)
}

func TestStationCoordinates(t *testing.T) {
	lat, lon := Station{Latitude: 53.9045, Longitude: 27.5615}.Coordinates()
	assert.Equal(t, 53.9045, lat)
	assert.Equal(t, 27.5615, lon)
}

func TestUserSubmissionJSON(t *testing.T) {
	var sub UserSubmission
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Test","operator":"Частная","latitude":53.9,"longitude":27.5}`), &sub))

	assert.Equal(t, "Test", sub.Name)
	assert.Equal(t, "Частная", sub.Operator)
	assert.Nil(t, sub.PowerKW)

	require.NoError(t, json.Unmarshal([]byte(`{"powerKw":7.4}`), &sub))
	require.NotNil(t, sub.PowerKW)
	assert.Equal(t, 7.4, *sub.PowerKW)
}

func TestDeref(t *testing.T) {
	assert.Equal(t, "", Deref(nil))
	assert.Equal(t, "x", Deref(StringPtr("x")))
}
