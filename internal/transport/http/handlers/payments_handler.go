package handlers

import (
	"errors"
	"net/http"

	authsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/auth"
	paymentsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/payments"
	ratesvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/rate"
	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/transport/http/dto"
	httperrors "github.com/artemovbasil-oss/basil-arcana-sub000/internal/transport/http/errors"
)

type PaymentsHandler struct {
	payments *paymentsvc.Service
	limiter  *ratesvc.Limiter
}

func NewPaymentsHandler(payments *paymentsvc.Service, limiter *ratesvc.Limiter) *PaymentsHandler {
	return &PaymentsHandler{
		payments: payments,
		limiter:  limiter,
	}
}

func (h *PaymentsHandler) Packs(w http.ResponseWriter, r *http.Request) {
	if h.payments == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	packs := h.payments.Packs()
	out := make([]dto.PackResponse, 0, len(packs))
	for _, p := range packs {
		out = append(out, dto.PackResponse{
			ID:           p.ID,
			GrantType:    string(p.GrantType),
			EnergyAmount: p.EnergyAmount,
			StarsAmount:  p.StarsAmount,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.PacksResponse{Packs: out})
}

func (h *PaymentsHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.payments == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	var req dto.InvoiceCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	result, err := h.payments.IssueInvoice(r.Context(), identity.UserID, req.PackID)
	if err != nil {
		switch {
		case errors.Is(err, paymentsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid invoice payload")
		case errors.Is(err, paymentsvc.ErrUnknownPack):
			writeBadRequest(w, "UNKNOWN_PACK", "pack is not in the catalog")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to issue invoice")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.InvoiceCreateResponse{
		Payload:      result.Payload,
		PackID:       result.PackID,
		GrantType:    string(result.GrantType),
		EnergyAmount: result.EnergyAmount,
		StarsAmount:  result.StarsAmount,
	})
}

func (h *PaymentsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	identity, ok := authsvc.IdentityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.payments == nil {
		writeInternal(w, "PAYMENTS_SERVICE_UNAVAILABLE", "payments service is unavailable")
		return
	}

	if h.limiter != nil {
		retryAfter, allowed, err := h.limiter.AllowConfirm(r.Context(), identity.UserID)
		if err != nil {
			writeInternal(w, "INTERNAL_ERROR", "failed to check rate limit")
			return
		}
		if !allowed {
			writeTooManyRequests(w, retryAfter)
			return
		}
	}

	var req dto.InvoiceConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid request body")
		return
	}

	result, err := h.payments.Confirm(r.Context(), identity.UserID, paymentsvc.ConfirmInput{
		Payload: req.Payload,
		Status:  req.Status,
	})
	if err != nil {
		switch {
		case errors.Is(err, paymentsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid confirmation payload")
		case errors.Is(err, paymentsvc.ErrInvoiceNotFound):
			httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
				Code:    "INVOICE_NOT_FOUND",
				Message: "invoice not found",
			})
		case errors.Is(err, paymentsvc.ErrInvoiceUserMismatch):
			httperrors.Write(w, http.StatusForbidden, httperrors.APIError{
				Code:    "INVOICE_USER_MISMATCH",
				Message: "invoice belongs to another user",
			})
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to confirm invoice")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.InvoiceConfirmResponse{
		OK:                 true,
		Payload:            result.Payload,
		PackID:             result.PackID,
		GrantType:          string(result.GrantType),
		Status:             string(result.Status),
		GrantApplied:       result.GrantApplied,
		TotalEnergyGranted: result.TotalEnergyGranted,
		UnlimitedUntil:     result.UnlimitedUntil,
	})
}
