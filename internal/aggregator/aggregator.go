package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/bbernstein/chargefinder/internal/geo"
	"github.com/bbernstein/chargefinder/internal/models"
	"github.com/bbernstein/chargefinder/internal/provider"
)

// State is a step of one search request.
type State string

const (
	StateFetching      State = "FETCHING"
	StateMerging       State = "MERGING"
	StateNormalizing   State = "NORMALIZING"
	StateDeduplicating State = "DEDUPLICATING"
	StateCaching       State = "CACHING"
	StateRanking       State = "RANKING"
	StateDone          State = "DONE"
	StateNoResults     State = "NO_RESULTS"
)

const (
	OutcomeOK    = "ok"
	OutcomeEmpty = "empty"
	OutcomeError = "error"

	DefaultFetchTimeout = 20 * time.Second
	DefaultLimit        = 5
)

var ErrNoProviders = errors.New("no providers registered")

// Registration binds a provider to its optional API key.
type Registration struct {
	Provider provider.Provider
	APIKey   string
}

// Outcome is the result of one provider fetch.
type Outcome struct {
	Provider string
	Source   models.Source
	Count    int
	Err      error
	Duration time.Duration
}

// Kind classifies the outcome as ok, empty or error.
func (o Outcome) Kind() string {
	switch {
	case o.Err != nil:
		return OutcomeError
	case o.Count == 0:
		return OutcomeEmpty
	default:
		return OutcomeOK
	}
}

// Result is the terminal state of a search. Stations is ordered and bounded
// by the presentation limit; it is empty in StateNoResults.
type Result struct {
	State           State
	Stations        []models.Station
	Outcomes        []Outcome
	RawCount        int
	NormalizedCount int
	UniqueCount     int
}

// Observer receives pipeline events, typically a metrics.Recorder.
type Observer interface {
	ProviderFetched(provider, outcome string, d time.Duration)
	RecordDropped(source string)
	PersistenceFailed()
	SearchCompleted(state string)
}

type noopObserver struct{}

func (noopObserver) ProviderFetched(string, string, time.Duration) {}
func (noopObserver) RecordDropped(string)                          {}
func (noopObserver) PersistenceFailed()                            {}
func (noopObserver) SearchCompleted(string)                        {}

type Options struct {
	RadiusKm   float64
	MaxResults int
	// Limit is the number of stations handed to presentation.
	Limit int
	// FetchTimeout bounds each provider call separately.
	FetchTimeout time.Duration
	// SortByDistance ranks by distance before truncating instead of keeping
	// provider concatenation order.
	SortByDistance bool
	// Repository receives a best-effort upsert of the deduplicated stations.
	Repository models.StationRepository
	Observer   Observer
}

// Aggregator runs the multi-source search pipeline.
type Aggregator struct {
	registrations []Registration
	normalizers   map[models.Source]provider.Provider
	opts          Options
}

func New(registrations []Registration, opts Options) *Aggregator {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}

	normalizers := make(map[models.Source]provider.Provider, len(registrations))
	for _, reg := range registrations {
		if _, exists := normalizers[reg.Provider.Source()]; !exists {
			normalizers[reg.Provider.Source()] = reg.Provider
		}
	}

	return &Aggregator{
		registrations: registrations,
		normalizers:   normalizers,
		opts:          opts,
	}
}

// Search fans out to every provider and reduces their records to a ranked,
// deduplicated list. Provider, normalization and persistence failures never
// fail the search; the returned error is reserved for an unusable request.
func (a *Aggregator) Search(ctx context.Context, lat, lon float64) (*Result, error) {
	if len(a.registrations) == 0 {
		return nil, ErrNoProviders
	}
	if !geo.ValidCoordinates(lat, lon) {
		return nil, fmt.Errorf("invalid coordinates: %f, %f", lat, lon)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{State: StateFetching}
	q := provider.Query{
		Latitude:   lat,
		Longitude:  lon,
		RadiusKm:   a.opts.RadiusKm,
		MaxResults: a.opts.MaxResults,
	}

	batches := a.fetchAll(ctx, q, result)

	result.State = StateMerging
	var merged []models.RawRecord
	for _, batch := range batches {
		merged = append(merged, batch...)
	}
	result.RawCount = len(merged)
	if len(merged) == 0 {
		return a.finish(result, StateNoResults), nil
	}

	result.State = StateNormalizing
	normalized := a.normalizeAll(merged)
	result.NormalizedCount = len(normalized)
	if len(normalized) == 0 {
		return a.finish(result, StateNoResults), nil
	}

	result.State = StateDeduplicating
	unique := Deduplicate(normalized)
	result.UniqueCount = len(unique)
	if len(unique) == 0 {
		return a.finish(result, StateNoResults), nil
	}

	result.State = StateCaching
	a.persist(ctx, unique)

	result.State = StateRanking
	result.Stations = a.rank(unique, lat, lon)

	log.Info().
		Float64("lat", lat).
		Float64("lon", lon).
		Int("raw", result.RawCount).
		Int("normalized", result.NormalizedCount).
		Int("unique", result.UniqueCount).
		Int("returned", len(result.Stations)).
		Msg("Search complete")
	return a.finish(result, StateDone), nil
}

func (a *Aggregator) finish(result *Result, state State) *Result {
	if state == StateNoResults {
		log.Info().Str("after", string(result.State)).Msg("Search found no stations")
	}
	result.State = state
	a.opts.Observer.SearchCompleted(string(state))
	return result
}

// fetchAll runs every provider concurrently. Each goroutine owns its slot
// in the returned slices, so no locking is needed.
func (a *Aggregator) fetchAll(ctx context.Context, q provider.Query, result *Result) [][]models.RawRecord {
	batches := make([][]models.RawRecord, len(a.registrations))
	outcomes := make([]Outcome, len(a.registrations))

	var g errgroup.Group
	for i, reg := range a.registrations {
		g.Go(func() error {
			batches[i], outcomes[i] = a.fetchOne(ctx, reg, q)
			return nil
		})
	}
	_ = g.Wait()

	result.Outcomes = outcomes
	return batches
}

func (a *Aggregator) fetchOne(ctx context.Context, reg Registration, q provider.Query) (records []models.RawRecord, outcome Outcome) {
	p := reg.Provider
	q.APIKey = reg.APIKey
	outcome = Outcome{Provider: p.Name(), Source: p.Source()}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			records = nil
			outcome.Err = provider.NewFetchError(p.Name(), "panic during fetch", fmt.Errorf("%v", r))
		}
		outcome.Duration = time.Since(start)
		outcome.Count = len(records)
		a.logOutcome(outcome)
		a.opts.Observer.ProviderFetched(outcome.Provider, outcome.Kind(), outcome.Duration)
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, a.opts.FetchTimeout)
	defer cancel()

	fetched, err := p.FetchNearby(fetchCtx, q)
	if err != nil {
		var fetchErr *provider.FetchError
		if !errors.As(err, &fetchErr) {
			err = provider.NewFetchError(p.Name(), "fetch failed", err)
		}
		outcome.Err = err
		return nil, outcome
	}

	// Untagged records are left for the shape classifier.
	return fetched, outcome
}

func (a *Aggregator) logOutcome(o Outcome) {
	if o.Err != nil {
		log.Warn().
			Err(o.Err).
			Str("provider", o.Provider).
			Dur("duration", o.Duration).
			Msg("Provider fetch failed")
		return
	}
	log.Debug().
		Str("provider", o.Provider).
		Int("count", o.Count).
		Dur("duration", o.Duration).
		Msg("Provider fetch complete")
}

func (a *Aggregator) normalizeAll(records []models.RawRecord) []models.Station {
	stations := make([]models.Station, 0, len(records))
	for _, rec := range records {
		source := provider.ResolveSource(rec)
		normalizer, ok := a.normalizers[source]
		if !ok {
			log.Warn().Str("source", string(source)).Msg("No normalizer registered, dropping record")
			a.opts.Observer.RecordDropped(string(source))
			continue
		}

		station, err := normalizer.Normalize(rec.Data)
		if err != nil {
			log.Warn().Err(err).Str("source", string(source)).Msg("Dropping malformed record")
			a.opts.Observer.RecordDropped(string(source))
			continue
		}
		stations = append(stations, station)
	}
	return stations
}

// persist is best effort: failures, including panics, are logged only.
func (a *Aggregator) persist(ctx context.Context, stations []models.Station) {
	if a.opts.Repository == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Station persistence panicked")
			a.opts.Observer.PersistenceFailed()
		}
	}()

	if err := a.opts.Repository.Upsert(ctx, stations); err != nil {
		log.Error().Err(err).Int("count", len(stations)).Msg("Failed to cache stations")
		a.opts.Observer.PersistenceFailed()
	}
}

func (a *Aggregator) rank(stations []models.Station, lat, lon float64) []models.Station {
	ordered := stations
	if a.opts.SortByDistance {
		ranked := geo.SortByDistance(stations, models.Station.Coordinates, lat, lon)
		ordered = make([]models.Station, len(ranked))
		for i, r := range ranked {
			ordered[i] = r.Item
		}
	}
	if len(ordered) > a.opts.Limit {
		ordered = ordered[:a.opts.Limit]
	}
	return ordered
}
