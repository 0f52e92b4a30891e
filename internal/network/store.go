package network

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bbernstein/chargefinder/internal/geo"
)

// NetworkUser marks records submitted by end users.
const NetworkUser = "user"

// Record is one station of the local charging networks.
type Record struct {
	ID        string   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Address   string   `json:"address,omitempty"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	PowerKW   *float64 `json:"power_kw,omitempty"`
	Operator  string   `json:"operator,omitempty"`
	Network   string   `json:"network,omitempty"`
}

// Store owns the local-network station list.
type Store interface {
	// List returns a snapshot of the records inside the box.
	List(ctx context.Context, box geo.BoundingBox) ([]Record, error)
	// Append adds a record and returns its ID, generating one when empty.
	Append(ctx context.Context, rec Record) (string, error)
}

//go:embed data/stations.json
var seedJSON []byte

// DefaultRecords returns the built-in Malanka, A-100 and Belorusneft sample stations.
func DefaultRecords() ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(seedJSON, &records); err != nil {
		return nil, fmt.Errorf("decoding seed stations: %w", err)
	}
	return records, nil
}

// MemoryStore is an append-only in-process Store. Mutation is serialized by
// a single lock; readers copy a snapshot under the read lock.
type MemoryStore struct {
	records []Record
	mu      sync.RWMutex
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(records ...Record) *MemoryStore {
	s := &MemoryStore{records: make([]Record, 0, len(records))}
	s.records = append(s.records, records...)
	return s
}

// NewSeededMemoryStore returns a MemoryStore holding DefaultRecords.
func NewSeededMemoryStore() (*MemoryStore, error) {
	records, err := DefaultRecords()
	if err != nil {
		return nil, err
	}
	return NewMemoryStore(records...), nil
}

func (s *MemoryStore) List(_ context.Context, box geo.BoundingBox) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		if box.Contains(rec.Latitude, rec.Longitude) {
			result = append(result, rec)
		}
	}
	return result, nil
}

func (s *MemoryStore) Append(_ context.Context, rec Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = userRecordID(len(s.records)+1, rec.Latitude, rec.Longitude)
	}
	s.records = append(s.records, rec)
	return rec.ID, nil
}

// Records returns a copy of every record matching the network, or all
// records when network is empty.
func (s *MemoryStore) Records(network string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		if network == "" || rec.Network == network {
			result = append(result, rec)
		}
	}
	return result
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// userRecordID builds user_<n>_<lat*1000>_<lon*1000>, truncating toward zero.
func userRecordID(n int, lat, lon float64) string {
	return fmt.Sprintf("user_%d_%d_%d", n, int(lat*1000), int(lon*1000))
}
