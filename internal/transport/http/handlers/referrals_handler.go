package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/auth"
	ratesvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/rate"
	referralsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/referrals"
	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/transport/http/dto"
	httperrors "github.com/artemovbasil-oss/basil-arcana-sub000/internal/transport/http/errors"
)

type ReferralsHandler struct {
	referrals *referralsvc.Service
	limiter   *ratesvc.Limiter
}

func NewReferralsHandler(referrals *referralsvc.Service, limiter *ratesvc.Limiter) *ReferralsHandler {
	return &ReferralsHandler{
		referrals: referrals,
		limiter:   limiter,
	}
}

func (h *ReferralsHandler) Claim(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.referrals == nil {
		writeInternal(w, "REFERRAL_SERVICE_UNAVAILABLE", "referral service is unavailable")
		return
	}

	if h.limiter != nil {
		retryAfter, allowed, err := h.limiter.AllowClaim(r.Context(), identity.UserID)
		if err != nil {
			writeInternal(w, "INTERNAL_ERROR", "failed to check rate limit")
			return
		}
		if !allowed {
			writeTooManyRequests(w, retryAfter)
			return
		}
	}

	var req dto.ReferralClaimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	startParam := req.StartParam
	if startParam == "" {
		startParam = identity.StartParam
	}

	result, err := h.referrals.Claim(r.Context(), identity.UserID, referralsvc.ClaimInput{
		ReferrerID: req.ReferrerID,
		StartParam: startParam,
	})
	if err != nil {
		switch {
		case errors.Is(err, referralsvc.ErrValidation),
			errors.Is(err, referralsvc.ErrBadReferralParam),
			errors.Is(err, referralsvc.ErrBonusNotPositive):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid referral claim payload")
		case errors.Is(err, referralsvc.ErrSelfReferral):
			writeBadRequest(w, "SELF_REFERRAL", "self referral is not allowed")
		case errors.Is(err, referralsvc.ErrReferrerNotFound):
			httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
				Code:    "REFERRER_NOT_FOUND",
				Message: "referrer not found",
			})
		case errors.Is(err, referralsvc.ErrAlreadyClaimed):
			httperrors.Write(w, http.StatusConflict, httperrors.APIError{
				Code:    "ALREADY_CLAIMED",
				Message: "referral already claimed",
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to claim referral")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.ReferralClaimResponse{
		OK:           true,
		ReferrerID:   result.ReferrerID,
		BonusCredits: result.BonusCredits,
	})
}
