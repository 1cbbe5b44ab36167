package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/auth"
	insightsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/insights"
	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/transport/http/dto"
	httperrors "github.com/artemovbasil-oss/basil-arcana-sub000/internal/transport/http/errors"
)

type InsightsHandler struct {
	insights *insightsvc.Service
}

func NewInsightsHandler(insights *insightsvc.Service) *InsightsHandler {
	return &InsightsHandler{insights: insights}
}

func (h *InsightsHandler) RecordQuery(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.insights == nil {
		writeInternal(w, "INSIGHTS_SERVICE_UNAVAILABLE", "insights service is unavailable")
		return
	}

	var req dto.QueryRecordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	if err := h.insights.RecordQuery(r.Context(), identity.UserID, req.Kind, req.Props); err != nil {
		switch {
		case errors.Is(err, insightsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid query payload")
		case errors.Is(err, insightsvc.ErrUnknownQueryKind):
			writeBadRequest(w, "UNKNOWN_QUERY_KIND", "query kind is not supported")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to record query")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.QueryRecordResponse{OK: true})
}

func (h *InsightsHandler) Streak(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.insights == nil {
		writeInternal(w, "INSIGHTS_SERVICE_UNAVAILABLE", "insights service is unavailable")
		return
	}

	streak, err := h.insights.Streak(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, insightsvc.ErrValidation) {
			writeBadRequest(w, "VALIDATION_ERROR", "invalid streak request")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to compute streak")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.StreakResponse{
		CurrentStreakDays: streak.CurrentStreakDays,
		LongestStreakDays: streak.LongestStreakDays,
		ActiveDays:        streak.ActiveDays,
		AwarenessPercent:  streak.AwarenessPercent,
		AwarenessLocked:   streak.AwarenessLocked,
		LastActiveAt:      streak.LastActiveAt,
	})
}
