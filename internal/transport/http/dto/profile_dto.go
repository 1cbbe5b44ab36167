package dto

import "time"

type ProfileTouchRequest struct {
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Locale    *string `json:"locale,omitempty"`
	PhotoURL  *string `json:"photo_url,omitempty"`
}

type ProfileResponse struct {
	TelegramUserID int64   `json:"telegram_user_id"`
	Username       *string `json:"username,omitempty"`
	FirstName      *string `json:"first_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`
	Locale         *string `json:"locale,omitempty"`
	PhotoURL       *string `json:"photo_url,omitempty"`
}

type PerksResponse struct {
	FreeCredits                 int        `json:"free_credits"`
	TotalReferralCreditsGranted int        `json:"total_referral_credits_granted"`
	TotalEnergyGranted          int        `json:"total_energy_granted"`
	UnlimitedUntil              *time.Time `json:"unlimited_until,omitempty"`
	UnlimitedActive             bool       `json:"unlimited_active"`
}

type ReferralSummaryResponse struct {
	TotalInvited       int `json:"total_invited"`
	TotalBonusCredited int `json:"total_bonus_credited"`
}

type ServiceEntryResponse struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Status    string     `json:"status"`
	Remaining int        `json:"remaining,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type DashboardResponse struct {
	Profile   ProfileResponse         `json:"profile"`
	Perks     PerksResponse           `json:"perks"`
	Referrals ReferralSummaryResponse `json:"referrals"`
	Services  []ServiceEntryResponse  `json:"services"`
}
