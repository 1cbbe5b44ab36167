package enums

import "strings"

// QueryKind is the type of a user-issued reading query. Kinds feed the
// activity log and the awareness score weighting.
type QueryKind string

const (
	QueryNatalChart        QueryKind = "natal_chart"
	QueryAstrologyForecast QueryKind = "astrology_forecast"
	QueryDailyCard         QueryKind = "daily_card"
	QueryTarotSpread       QueryKind = "tarot_spread"
	QueryCardQuestion      QueryKind = "card_question"
)

func ParseQueryKind(raw string) (QueryKind, bool) {
	switch QueryKind(strings.ToLower(strings.TrimSpace(raw))) {
	case QueryNatalChart:
		return QueryNatalChart, true
	case QueryAstrologyForecast:
		return QueryAstrologyForecast, true
	case QueryDailyCard:
		return QueryDailyCard, true
	case QueryTarotSpread:
		return QueryTarotSpread, true
	case QueryCardQuestion:
		return QueryCardQuestion, true
	default:
		return "", false
	}
}

// IsDeep marks astrology-grade queries that carry the highest
// awareness weight.
func (k QueryKind) IsDeep() bool {
	return k == QueryNatalChart || k == QueryAstrologyForecast
}

func (k QueryKind) IsDailyCard() bool {
	return k == QueryDailyCard
}
