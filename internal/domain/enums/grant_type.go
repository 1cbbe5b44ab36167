package enums

import "strings"

// GrantType identifies what a paid invoice materializes into:
// an energy top-up, an unlimited-access window extension, or both.
type GrantType string

const (
	GrantEnergy         GrantType = "energy"
	GrantUnlimitedWeek  GrantType = "unlimited_week"
	GrantUnlimitedMonth GrantType = "unlimited_month"
	GrantUnlimitedYear  GrantType = "unlimited_year"
)

func ParseGrantType(raw string) (GrantType, bool) {
	switch GrantType(strings.ToLower(strings.TrimSpace(raw))) {
	case GrantEnergy:
		return GrantEnergy, true
	case GrantUnlimitedWeek:
		return GrantUnlimitedWeek, true
	case GrantUnlimitedMonth:
		return GrantUnlimitedMonth, true
	case GrantUnlimitedYear:
		return GrantUnlimitedYear, true
	default:
		return "", false
	}
}

func (t GrantType) IsUnlimited() bool {
	switch t {
	case GrantUnlimitedWeek, GrantUnlimitedMonth, GrantUnlimitedYear:
		return true
	default:
		return false
	}
}

// UnlimitedDays is the window extension granted by one paid invoice
// of this type. Zero for plain energy top-ups.
func (t GrantType) UnlimitedDays() int {
	switch t {
	case GrantUnlimitedWeek:
		return 7
	case GrantUnlimitedMonth:
		return 30
	case GrantUnlimitedYear:
		return 365
	default:
		return 0
	}
}
