package dto

import "time"

type ConsultationCompleteRequest struct {
	UserID int64 `json:"user_id"`
}

type ConsultationCompleteResponse struct {
	Outcome               string     `json:"outcome"`
	SubscriptionEndsAt    *time.Time `json:"subscription_ends_at,omitempty"`
	UnspentSingleReadings int        `json:"unspent_single_readings"`
}
