package search

import "strings"

// City is a named search origin.
type City struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// Minsk is the fixed preset search origin.
var Minsk = City{Name: "Минск", Latitude: 53.9045, Longitude: 27.5615}

// cities is keyed by lowercase Russian and English names.
var cities = map[string]City{
	"минск":   Minsk,
	"гомель":  {Name: "Гомель", Latitude: 52.4417, Longitude: 30.9754},
	"брест":   {Name: "Брест", Latitude: 52.0976, Longitude: 23.7341},
	"витебск": {Name: "Витебск", Latitude: 55.1904, Longitude: 30.2049},
	"могилев": {Name: "Могилев", Latitude: 53.9168, Longitude: 30.3449},
	"гродно":  {Name: "Гродно", Latitude: 53.6694, Longitude: 23.8133},
	"москва":  {Name: "Москва", Latitude: 55.7558, Longitude: 37.6176},
	"киев":    {Name: "Киев", Latitude: 50.4501, Longitude: 30.5234},

	"minsk":   Minsk,
	"gomel":   {Name: "Гомель", Latitude: 52.4417, Longitude: 30.9754},
	"brest":   {Name: "Брест", Latitude: 52.0976, Longitude: 23.7341},
	"vitebsk": {Name: "Витебск", Latitude: 55.1904, Longitude: 30.2049},
	"mogilev": {Name: "Могилев", Latitude: 53.9168, Longitude: 30.3449},
	"grodno":  {Name: "Гродно", Latitude: 53.6694, Longitude: 23.8133},
	"moscow":  {Name: "Москва", Latitude: 55.7558, Longitude: 37.6176},
	"kiev":    {Name: "Киев", Latitude: 50.4501, Longitude: 30.5234},
}

// LookupCity resolves a city name, ignoring case and surrounding space.
func LookupCity(name string) (City, bool) {
	city, ok := cities[strings.ToLower(strings.TrimSpace(name))]
	return city, ok
}
