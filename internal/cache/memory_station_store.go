package cache

import (
	"context"
	"sort"
	"sync"

	"github.com/bbernstein/chargefinder/internal/geo"
	"github.com/bbernstein/chargefinder/internal/models"
)

// MemoryStationStore keeps stations in a map keyed by ExtID.
type MemoryStationStore struct {
	stations map[string]models.Station
	mu       sync.RWMutex
}

var _ models.StationRepository = (*MemoryStationStore)(nil)

func NewMemoryStationStore() *MemoryStationStore {
	return &MemoryStationStore{stations: make(map[string]models.Station)}
}

func (s *MemoryStationStore) Upsert(_ context.Context, stations []models.Station) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, st := range stations {
		st.Raw = nil
		st.Source = ""
		s.stations[st.ExtID] = st
	}
	return nil
}

// ListWithin returns matching stations ordered by ExtID.
func (s *MemoryStationStore) ListWithin(_ context.Context, box geo.BoundingBox) ([]models.Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Station, 0)
	for _, st := range s.stations {
		if box.Contains(st.Latitude, st.Longitude) {
			result = append(result, st)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ExtID < result[j].ExtID
	})
	return result, nil
}

func (s *MemoryStationStore) Get(extID string) (models.Station, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stations[extID]
	return st, ok
}

func (s *MemoryStationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stations)
}
