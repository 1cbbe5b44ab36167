package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/auth"
	subsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/subscriptions"
	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/transport/http/dto"
	httperrors "github.com/artemovbasil-oss/basil-arcana-sub000/internal/transport/http/errors"
)

type ConsultationsHandler struct {
	subs *subsvc.Service
}

func NewConsultationsHandler(subs *subsvc.Service) *ConsultationsHandler {
	return &ConsultationsHandler{subs: subs}
}

// Complete is an operator-only command marking a delivered consultation
// as consumed for the target user.
func (h *ConsultationsHandler) Complete(w http.ResponseWriter, r *http.Request) {
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

	var req dto.ConsultationCompleteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	result, err := h.subs.CompleteConsultation(r.Context(), req.UserID)
	if err != nil {
		if errors.Is(err, subsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid completion payload")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to complete consultation")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ConsultationCompleteResponse{
		Outcome:               string(result.Outcome),
		SubscriptionEndsAt:    result.SubscriptionEndsAt,
		UnspentSingleReadings: result.UnspentSingleReadings,
	})
}
