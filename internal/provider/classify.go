package provider

import (
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/chargefinder/internal/models"
)

// Classify infers the source of an untagged record from its shape.
// OpenChargeMap records carry an AddressInfo object, PlugShare records a
// stations list or an address object; anything else is a local network record.
func Classify(data map[string]any) models.Source {
	if _, ok := data["AddressInfo"]; ok {
		return models.SourceOpenChargeMap
	}
	if _, ok := data["stations"]; ok {
		return models.SourcePlugShare
	}
	if _, ok := subMap(data, "address"); ok {
		return models.SourcePlugShare
	}
	return models.SourceLocalNetwork
}

// ResolveSource returns the record's fetch-time tag, falling back to Classify
// for untagged records. A tag that disagrees with the record shape is logged
// and the tag wins.
func ResolveSource(rec models.RawRecord) models.Source {
	inferred := Classify(rec.Data)
	if rec.Source == "" {
		return inferred
	}
	if rec.Source != inferred {
		log.Warn().
			Str("tagged", string(rec.Source)).
			Str("inferred", string(inferred)).
			Msg("Record shape does not match its source tag")
	}
	return rec.Source
}
