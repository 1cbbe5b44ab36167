package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	authsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/auth"
	profilesvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/profiles"
	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/transport/http/dto"
	httperrors "github.com/artemovbasil-oss/basil-arcana-sub000/internal/transport/http/errors"
)

type ProfileHandler struct {
	profiles *profilesvc.Service
}

func NewProfileHandler(profiles *profilesvc.Service) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

func (h *ProfileHandler) Touch(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.profiles == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	var req dto.ProfileTouchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	profile, err := h.profiles.Touch(r.Context(), identity.UserID, profilesvc.TouchInput{
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Locale:    req.Locale,
		PhotoURL:  req.PhotoURL,
	})
	if err != nil {
		if errors.Is(err, profilesvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid profile touch payload")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to touch profile")
		return
	}

	httperrors.Write(w, http.StatusOK, profileResponse(profile))
}

func (h *ProfileHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.profiles == nil {
		writeInternal(w, "PROFILE_SERVICE_UNAVAILABLE", "profile service is unavailable")
		return
	}

	dash, err := h.profiles.Dashboard(r.Context(), identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, profilesvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid dashboard request")
		case errors.Is(err, profilesvc.ErrNotFound):
			httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
				Code:    "PROFILE_NOT_FOUND",
				Message: "profile not found",
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load dashboard")
		}
		return
	}

	services := make([]dto.ServiceEntryResponse, 0, len(dash.Services))
	for _, entry := range dash.Services {
		services = append(services, dto.ServiceEntryResponse{
			ID:        entry.Kind + ":" + strconv.FormatInt(identity.UserID, 10),
			Type:      entry.Kind,
			Status:    "active",
			Remaining: entry.Remaining,
			ExpiresAt: entry.ExpiresAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.DashboardResponse{
		Profile: profileResponse(dash.Profile),
		Perks: dto.PerksResponse{
			FreeCredits:                 dash.Perks.FreeCredits,
			TotalReferralCreditsGranted: dash.Perks.ReferralCreditsGranted,
			TotalEnergyGranted:          dash.Perks.TotalEnergyGranted,
			UnlimitedUntil:              dash.Perks.UnlimitedUntil,
			UnlimitedActive:             dash.Perks.UnlimitedActive,
		},
		Referrals: dto.ReferralSummaryResponse{
			TotalInvited:       dash.Referrals.TotalInvited,
			TotalBonusCredited: dash.Referrals.TotalBonusCredited,
		},
		Services: services,
	})
}

func profileResponse(p profilesvc.Profile) dto.ProfileResponse {
	return dto.ProfileResponse{
		TelegramUserID: p.TelegramUserID,
		Username:       p.Username,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Locale:         p.Locale,
		PhotoURL:       p.PhotoURL,
	}
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{Code: code, Message: message})
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{Code: code, Message: message})
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.Write(w, http.StatusInternalServerError, httperrors.APIError{Code: code, Message: message})
}

func writeTooManyRequests(w http.ResponseWriter, retryAfterSec int64) {
	httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
		Code:          "RATE_LIMITED",
		Message:       "too many requests",
		RetryAfterSec: retryAfterSec,
	})
}
