package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/chargefinder/internal/aggregator"
	"github.com/bbernstein/chargefinder/internal/format"
	"github.com/bbernstein/chargefinder/internal/models"
	"github.com/bbernstein/chargefinder/internal/provider"
)

// Searcher runs the aggregation pipeline for one coordinate.
type Searcher interface {
	Search(ctx context.Context, lat, lon float64) (*aggregator.Result, error)
}

// Service turns search entry points into ordered user replies. Every entry
// point resolves to a coordinate and goes through HandleCoordinateSearch.
type Service struct {
	searcher Searcher
	adder    provider.StationAdder
}

// NewService builds a Service. adder may be nil when submissions are not
// accepted.
func NewService(searcher Searcher, adder provider.StationAdder) *Service {
	return &Service{
		searcher: searcher,
		adder:    adder,
	}
}

// HandleCoordinateSearch returns the searching notice followed by either the
// formatted stations, the nothing-found text or a request error.
func (s *Service) HandleCoordinateSearch(ctx context.Context, lat, lon float64) []Reply {
	replies := []Reply{status(SearchingText)}

	result, err := s.searcher.Search(ctx, lat, lon)
	if err != nil {
		log.Error().Err(err).Float64("lat", lat).Float64("lon", lon).Msg("Search failed")
		return append(replies, failure(fmt.Sprintf(requestErrorText, err)))
	}
	if result.State == aggregator.StateNoResults || len(result.Stations) == 0 {
		return append(replies, status(NothingFoundText))
	}

	for _, st := range result.Stations {
		msg := format.Format(st, lat, lon)
		replies = append(replies, Reply{Kind: KindStation, Text: msg.Text, MapURL: msg.MapURL})
	}
	return replies
}

// SearchCity looks the city up and searches around it.
func (s *Service) SearchCity(ctx context.Context, name string) []Reply {
	city, ok := LookupCity(name)
	if !ok {
		log.Debug().Str("city", name).Msg("Unknown city")
		return []Reply{failure(unknownCityText(name))}
	}

	replies := []Reply{status(fmt.Sprintf(citySearchingText, city.Name))}
	return append(replies, s.HandleCoordinateSearch(ctx, city.Latitude, city.Longitude)...)
}

// SearchPreset searches around the Minsk preset.
func (s *Service) SearchPreset(ctx context.Context) []Reply {
	return s.HandleCoordinateSearch(ctx, Minsk.Latitude, Minsk.Longitude)
}

var ErrSubmissionsDisabled = errors.New("station submissions are not enabled")

// AddStation submits a user station. The returned error is for logging
// only; the reply already carries the user-facing outcome.
func (s *Service) AddStation(ctx context.Context, sub models.UserSubmission) (Reply, string, error) {
	if s.adder == nil {
		return failure(AddFailedText), "", ErrSubmissionsDisabled
	}

	id, err := s.adder.AddUserStation(ctx, sub)
	if err != nil {
		log.Warn().Err(err).Str("name", sub.Name).Msg("Station submission failed")
		return failure(AddFailedText), "", err
	}

	log.Info().Str("id", id).Str("name", sub.Name).Msg("Station submitted")
	return status(stationAddedText(sub)), id, nil
}
