package handlers

import (
	"net/http"

	authsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/auth"
	subsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/subscriptions"
	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/transport/http/dto"
	httperrors "github.com/artemovbasil-oss/basil-arcana-sub000/internal/transport/http/errors"
)

type SubscriptionsHandler struct {
	subs *subsvc.Service
}

func NewSubscriptionsHandler(subs *subsvc.Service) *SubscriptionsHandler {
	return &SubscriptionsHandler{subs: subs}
}

// Active lists every user with a live subscription window or unspent
// single readings. Operator back-office view.
func (h *SubscriptionsHandler) Active(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if !identity.IsOperator() {
		httperrors.Write(w, http.StatusForbidden, httperrors.APIError{
			Code:    "FORBIDDEN",
			Message: "operator role required",
		})
		return
	}
	if h.subs == nil {
		writeInternal(w, "SUBSCRIPTION_SERVICE_UNAVAILABLE", "subscription service is unavailable")
		return
	}

	records, err := h.subs.ListActive(r.Context())
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to list active subscriptions")
		return
	}

	out := make([]dto.ActiveSubscriptionResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, dto.ActiveSubscriptionResponse{
			TelegramUserID:        rec.TelegramUserID,
			Username:              rec.Username,
			FirstName:             rec.FirstName,
			LastName:              rec.LastName,
			Locale:                rec.Locale,
			SubscriptionEndsAt:    rec.SubscriptionEndsAt,
			UnspentSingleReadings: rec.UnspentSingleReadings,
			PurchasedSingle:       rec.PurchasedSingle,
			PurchasedWeek:         rec.PurchasedWeek,
			PurchasedMonth:        rec.PurchasedMonth,
			PurchasedYear:         rec.PurchasedYear,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.ActiveSubscriptionsResponse{Subscriptions: out})
}
