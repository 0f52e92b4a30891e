package models

type Source string

const (
	SourceOpenChargeMap Source = "OPENCHARGEMAP"
	SourcePlugShare     Source = "PLUGSHARE"
	SourceLocalNetwork  Source = "LOCAL_NETWORK"
)

// Station is the canonical charging station shape every provider record is
// normalized into. Optional display fields are nil when the source does not
// supply them.
type Station struct {
	ExtID       string   `json:"extId" dynamodbav:"ext_id"`
	Name        *string  `json:"name,omitempty" dynamodbav:"name,omitempty"`
	Address     *string  `json:"address,omitempty" dynamodbav:"address,omitempty"`
	Operator    *string  `json:"operator,omitempty" dynamodbav:"operator,omitempty"`
	Latitude    float64  `json:"latitude" dynamodbav:"latitude"`
	Longitude   float64  `json:"longitude" dynamodbav:"longitude"`
	PowerKW     *float64 `json:"powerKw,omitempty" dynamodbav:"power_kw,omitempty"`
	Status      *string  `json:"status,omitempty" dynamodbav:"status,omitempty"`
	LastSeenUTC *string  `json:"lastSeenUtc,omitempty" dynamodbav:"last_seen_utc,omitempty"`

	// Not persisted.
	Source Source         `json:"source" dynamodbav:"-"`
	Raw    map[string]any `json:"-" dynamodbav:"-"`
}

// Coordinates returns the station latitude and longitude.
func (s Station) Coordinates() (float64, float64) {
	return s.Latitude, s.Longitude
}

// RawRecord is a provider-shaped record tagged with the source that
// produced it.
type RawRecord struct {
	Source Source
	Data   map[string]any
}

// UserSubmission is a station supplied by an end user for the local network.
type UserSubmission struct {
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Operator  string   `json:"operator"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	PowerKW   *float64 `json:"powerKw,omitempty"`
}

func StringPtr(s string) *string {
	return &s
}

func Float64Ptr(f float64) *float64 {
	return &f
}

// Deref returns the pointed-to string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
