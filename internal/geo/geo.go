package geo

import (
	"math"
	"sort"
)

// EarthRadiusKm is the mean Earth radius used by every distance here.
const EarthRadiusKm = 6371.0

// Distance returns the great-circle distance in kilometers between two
// points using the haversine formula on a spherical Earth.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Ranked pairs an item with its distance from a search origin.
type Ranked[T any] struct {
	Item       T
	DistanceKm float64
}

// SortByDistance returns items ordered by ascending distance from the
// origin. Items at exactly equal distance keep their input order.
func SortByDistance[T any](items []T, coords func(T) (lat, lon float64), originLat, originLon float64) []Ranked[T] {
	ranked := make([]Ranked[T], len(items))
	for i, item := range items {
		lat, lon := coords(item)
		ranked[i] = Ranked[T]{
			Item:       item,
			DistanceKm: Distance(originLat, originLon, lat, lon),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DistanceKm < ranked[j].DistanceKm
	})
	return ranked
}

// BoundingBox is an axis-aligned latitude/longitude rectangle.
type BoundingBox struct {
	MinLat float64 `json:"minLat"`
	MinLon float64 `json:"minLon"`
	MaxLat float64 `json:"maxLat"`
	MaxLon float64 `json:"maxLon"`
}

// BoxAround returns a box that encloses every point within radiusKm of the
// center. The longitude half-width is the widest point of the spherical cap.
// When the circle reaches a pole or crosses the 180th meridian the box spans
// the full longitude range.
func BoxAround(lat, lon, radiusKm float64) BoundingBox {
	d := radiusKm / EarthRadiusKm
	dLat := d * 180 / math.Pi
	box := BoundingBox{
		MinLat: math.Max(lat-dLat, -90),
		MaxLat: math.Min(lat+dLat, 90),
		MinLon: -180,
		MaxLon: 180,
	}
	if lat+dLat >= 90 || lat-dLat <= -90 {
		return box
	}

	ratio := math.Sin(d) / math.Cos(toRadians(lat))
	if ratio >= 1 {
		return box
	}
	dLon := math.Asin(ratio) * 180 / math.Pi
	if lon-dLon < -180 || lon+dLon > 180 {
		return box
	}
	box.MinLon = lon - dLon
	box.MaxLon = lon + dLon
	return box
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// ValidCoordinates reports whether lat/lon are finite and within range.
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
