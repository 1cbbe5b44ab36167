package dto

type ReferralClaimRequest struct {
	ReferrerID int64  `json:"referrer_id,omitempty"`
	StartParam string `json:"start_param,omitempty"`
}

type ReferralClaimResponse struct {
	OK           bool  `json:"ok"`
	ReferrerID   int64 `json:"referrer_id"`
	BonusCredits int   `json:"bonus_credits"`
}
