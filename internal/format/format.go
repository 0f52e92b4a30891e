package format

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/bbernstein/chargefinder/internal/geo"
	"github.com/bbernstein/chargefinder/internal/models"
)

const (
	DefaultTitle = "Зарядная станция"
	Placeholder  = "—"
	mapURLPrefix = "https://maps.google.com/?q="
)

// Message is one station rendered for the end user. Text is Telegram-style
// HTML.
type Message struct {
	Text   string `json:"text"`
	MapURL string `json:"mapUrl"`
}

// Format renders a station. The distance suffix is shown only when the
// requester coordinate is present, meaning both components are non-zero.
func Format(st models.Station, requesterLat, requesterLon float64) Message {
	var b strings.Builder

	title := DefaultTitle
	if name := strings.TrimSpace(models.Deref(st.Name)); name != "" {
		title = name
	}
	b.WriteString("⚡ <b>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</b>")
	if requesterLat != 0 && requesterLon != 0 {
		d := geo.Distance(requesterLat, requesterLon, st.Latitude, st.Longitude)
		fmt.Fprintf(&b, " (~%.1f км)", d)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "🏠 Адрес: %s\n", orPlaceholder(st.Address))
	fmt.Fprintf(&b, "🏢 Оператор: %s\n", orPlaceholder(st.Operator))
	fmt.Fprintf(&b, "🔌 Мощность: %s\n", power(st.PowerKW))
	fmt.Fprintf(&b, "📊 Статус: %s", orPlaceholder(st.Status))

	return Message{
		Text:   b.String(),
		MapURL: MapURL(st.Latitude, st.Longitude),
	}
}

// MapURL links to the coordinate on Google Maps.
func MapURL(lat, lon float64) string {
	return mapURLPrefix + strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
}

func orPlaceholder(s *string) string {
	if v := strings.TrimSpace(models.Deref(s)); v != "" {
		return html.EscapeString(v)
	}
	return Placeholder
}

func power(kw *float64) string {
	if kw == nil || *kw == 0 {
		return Placeholder
	}
	return "≈ " + strconv.FormatFloat(*kw, 'f', -1, 64) + " кВт"
}
