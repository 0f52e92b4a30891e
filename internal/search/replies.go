package search

import (
	"fmt"
	"html"
	"strings"

	"github.com/bbernstein/chargefinder/internal/models"
	"github.com/bbernstein/chargefinder/internal/provider"
)

type ReplyKind string

const (
	KindStatus  ReplyKind = "status"
	KindStation ReplyKind = "station"
	KindError   ReplyKind = "error"
)

// Reply is one message for the end user. Text is HTML; MapURL is set only
// for station replies.
type Reply struct {
	Kind   ReplyKind `json:"kind"`
	Text   string    `json:"text"`
	MapURL string    `json:"mapUrl,omitempty"`
}

const (
	SearchingText     = "🔍 Ищу ближайшие станции…"
	NothingFoundText  = "Рядом ничего не найдено. Попробуйте увеличить радиус поиска или проверьте координаты."
	AddFailedText     = "❌ Ошибка при добавлении станции. Попробуйте позже."
	requestErrorText  = "Ошибка запроса: %v"
	citySearchingText = "🔍 Ищу станции в городе: %s"
)

func status(text string) Reply {
	return Reply{Kind: KindStatus, Text: text}
}

func failure(text string) Reply {
	return Reply{Kind: KindError, Text: text}
}

func unknownCityText(name string) string {
	return fmt.Sprintf("❌ Город '%s' не найден.\n\n"+
		"Попробуйте ввести один из основных городов:\n"+
		"🇧🇾 Минск, Гомель, Брест, Витебск, Могилев, Гродно\n"+
		"🌍 Москва, Киев (для тестирования)", html.EscapeString(name))
}

func stationAddedText(sub models.UserSubmission) string {
	operator := strings.TrimSpace(sub.Operator)
	if operator == "" {
		operator = provider.DefaultUserOperator
	}
	return fmt.Sprintf("✅ <b>Станция добавлена!</b>\n\n"+
		"📍 <b>%s</b>\n"+
		"👤 <b>%s</b>\n"+
		"📍 Координаты: %.6f, %.6f\n\n"+
		"🙏 Спасибо за вклад в развитие базы данных!\n"+
		"Теперь эта станция доступна всем пользователям.",
		html.EscapeString(sub.Name), html.EscapeString(operator), sub.Latitude, sub.Longitude)
}
