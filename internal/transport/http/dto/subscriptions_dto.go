package dto

import "time"

type ActiveSubscriptionResponse struct {
	TelegramUserID        int64      `json:"telegram_user_id"`
	Username              *string    `json:"username,omitempty"`
	FirstName             *string    `json:"first_name,omitempty"`
	LastName              *string    `json:"last_name,omitempty"`
	Locale                *string    `json:"locale,omitempty"`
	SubscriptionEndsAt    *time.Time `json:"subscription_ends_at,omitempty"`
	UnspentSingleReadings int        `json:"unspent_single_readings"`
	PurchasedSingle       int        `json:"purchased_single"`
	PurchasedWeek         int        `json:"purchased_week"`
	PurchasedMonth        int        `json:"purchased_month"`
	PurchasedYear         int        `json:"purchased_year"`
}

type ActiveSubscriptionsResponse struct {
	Subscriptions []ActiveSubscriptionResponse `json:"subscriptions"`
}
