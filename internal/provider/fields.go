package provider

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/bbernstein/chargefinder/internal/models"
)

// subMap returns data[key] when it is an object.
func subMap(data map[string]any, key string) (map[string]any, bool) {
	if data == nil {
		return nil, false
	}
	m, ok := data[key].(map[string]any)
	return m, ok
}

func subList(data map[string]any, key string) []any {
	if data == nil {
		return nil
	}
	list, _ := data[key].([]any)
	return list
}

// stringField returns data[key] as a non-empty string.
func stringField(data map[string]any, key string) *string {
	if data == nil {
		return nil
	}
	s, ok := data[key].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func floatField(data map[string]any, key string) *float64 {
	if data == nil {
		return nil
	}
	v, present := data[key]
	if !present || v == nil {
		return nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	return &f
}

// coordinates reads the latitude and longitude keys of data.
func coordinates(source models.Source, data map[string]any, latKey, lonKey string) (float64, float64, error) {
	lat, err := coordinate(source, data, latKey, 90)
	if err != nil {
		return 0, 0, err
	}
	lon, err := coordinate(source, data, lonKey, 180)
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func coordinate(source models.Source, data map[string]any, key string, limit float64) (float64, error) {
	v, present := data[key]
	if !present || v == nil {
		return 0, NewMalformedRecordError(source, key, "is missing")
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, NewMalformedRecordError(source, key, "is not numeric")
	}
	if f < -limit || f > limit {
		return 0, NewMalformedRecordError(source, key, "is out of range")
	}
	return f, nil
}

// idString renders a numeric or string identifier.
func idString(v any) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, id != ""
	case nil:
		return "", false
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		return b != ""
	case []any:
		return len(b) > 0
	case map[string]any:
		return len(b) > 0
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	return true
}
