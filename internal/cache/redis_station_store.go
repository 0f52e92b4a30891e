package cache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/chargefinder/internal/geo"
	"github.com/bbernstein/chargefinder/internal/models"
)

const (
	redisBackend        = "redis"
	redisStationPrefix  = "station:"
	redisGeoKey         = "stations:geo"
	defaultDialTimeout  = 5 * time.Second
	defaultReadTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
)

// RedisClient is the subset of go-redis commands the store uses.
type RedisClient interface {
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
	GeoSearch(ctx context.Context, key string, q *redis.GeoSearchQuery) *redis.StringSliceCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

// RedisStationStore keeps one hash per station plus a GEO index of all
// stations. Each station is replaced atomically inside MULTI/EXEC.
type RedisStationStore struct {
	client RedisClient
}

var _ models.StationRepository = (*RedisStationStore)(nil)

func NewRedisStationStore(client RedisClient) *RedisStationStore {
	return &RedisStationStore{client: client}
}

// NewRedisClient returns a go-redis client validated with PING.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis: addr is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  defaultDialTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, defaultDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

func stationKey(extID string) string {
	return redisStationPrefix + extID
}

func (s *RedisStationStore) Upsert(ctx context.Context, stations []models.Station) error {
	if len(stations) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, st := range stations {
			key := stationKey(st.ExtID)
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key, stationHash(st))
			pipe.GeoAdd(ctx, redisGeoKey, &redis.GeoLocation{
				Name:      st.ExtID,
				Longitude: st.Longitude,
				Latitude:  st.Latitude,
			})
		}
		return nil
	})
	if err != nil {
		return NewPersistenceError(redisBackend, fmt.Errorf("upserting stations: %w", err))
	}

	log.Debug().Int("count", len(stations)).Msg("Upserted stations to redis")
	return nil
}

func (s *RedisStationStore) ListWithin(ctx context.Context, box geo.BoundingBox) ([]models.Station, error) {
	ids, err := s.client.GeoSearch(ctx, redisGeoKey, geoSearchQuery(box)).Result()
	if err != nil {
		return nil, NewPersistenceError(redisBackend, fmt.Errorf("searching geo index: %w", err))
	}

	stations := make([]models.Station, 0, len(ids))
	for _, id := range ids {
		fields, err := s.client.HGetAll(ctx, stationKey(id)).Result()
		if err != nil {
			return nil, NewPersistenceError(redisBackend, fmt.Errorf("reading station %s: %w", id, err))
		}
		if len(fields) == 0 {
			continue
		}
		st, err := stationFromHash(fields)
		if err != nil {
			return nil, NewPersistenceError(redisBackend, err)
		}
		// The GEO box is wider than the degree box away from the equator.
		if box.Contains(st.Latitude, st.Longitude) {
			stations = append(stations, st)
		}
	}
	return stations, nil
}

// geoSearchQuery covers the degree box with a GEOSEARCH BYBOX query. Redis
// measures a member's east-west offset at the member's own latitude, so the width
// is the parallel length at the box latitude nearest the equator. The box
// height is the meridian arc of the latitude span.
func geoSearchQuery(box geo.BoundingBox) *redis.GeoSearchQuery {
	centerLat := (box.MinLat + box.MaxLat) / 2
	centerLon := (box.MinLon + box.MaxLon) / 2

	widestLat := 0.0
	if box.MinLat > 0 {
		widestLat = box.MinLat
	} else if box.MaxLat < 0 {
		widestLat = box.MaxLat
	}

	// A full-range box yields the whole parallel, so every longitude is
	// within the half-width.
	lonSpan := box.MaxLon - box.MinLon
	width := geo.EarthRadiusKm * math.Cos(widestLat*math.Pi/180) * lonSpan * math.Pi / 180
	height := geo.EarthRadiusKm * (box.MaxLat - box.MinLat) * math.Pi / 180

	return &redis.GeoSearchQuery{
		Longitude: centerLon,
		Latitude:  centerLat,
		BoxWidth:  width,
		BoxHeight: height,
		BoxUnit:   "km",
		Sort:      "ASC",
	}
}

func stationHash(st models.Station) map[string]any {
	fields := map[string]any{
		"ext_id":    st.ExtID,
		"latitude":  formatNumber(st.Latitude),
		"longitude": formatNumber(st.Longitude),
	}
	setString := func(key string, v *string) {
		if v != nil {
			fields[key] = *v
		}
	}
	setString("name", st.Name)
	setString("address", st.Address)
	setString("operator", st.Operator)
	setString("status", st.Status)
	setString("last_seen_utc", st.LastSeenUTC)
	if st.PowerKW != nil {
		fields["power_kw"] = formatNumber(*st.PowerKW)
	}
	return fields
}

func stationFromHash(fields map[string]string) (models.Station, error) {
	lat, err := strconv.ParseFloat(fields["latitude"], 64)
	if err != nil {
		return models.Station{}, fmt.Errorf("parsing latitude of %s: %w", fields["ext_id"], err)
	}
	lon, err := strconv.ParseFloat(fields["longitude"], 64)
	if err != nil {
		return models.Station{}, fmt.Errorf("parsing longitude of %s: %w", fields["ext_id"], err)
	}

	optional := func(key string) *string {
		if v, ok := fields[key]; ok {
			return &v
		}
		return nil
	}

	st := models.Station{
		ExtID:       fields["ext_id"],
		Name:        optional("name"),
		Address:     optional("address"),
		Operator:    optional("operator"),
		Latitude:    lat,
		Longitude:   lon,
		Status:      optional("status"),
		LastSeenUTC: optional("last_seen_utc"),
	}
	if v, ok := fields["power_kw"]; ok {
		power, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return models.Station{}, fmt.Errorf("parsing power_kw of %s: %w", st.ExtID, err)
		}
		st.PowerKW = &power
	}
	return st, nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
