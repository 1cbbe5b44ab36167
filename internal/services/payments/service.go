package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/config"
	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/domain/enums"
	pgrepo "github.com/artemovbasil-oss/basil-arcana-sub000/internal/repo/postgres"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrUnknownPack         = errors.New("unknown pack")
	ErrInvoiceNotFound     = errors.New("invoice not found")
	ErrInvoiceUserMismatch = errors.New("invoice user mismatch")
)

type Pack struct {
	ID           string
	GrantType    enums.GrantType
	EnergyAmount int
	StarsAmount  int
}

type InvoiceStore interface {
	SaveCreated(ctx context.Context, rec pgrepo.InvoiceRecord) error
	Find(ctx context.Context, payload string) (pgrepo.InvoiceRecord, error)
	Confirm(ctx context.Context, payload string, userID int64, status enums.InvoiceStatus, now time.Time) (pgrepo.ConfirmResult, error)
}

type Service struct {
	invoices InvoiceStore
	packs    map[string]Pack
	order    []string
	now      func() time.Time
}

type IssueResult struct {
	Payload      string
	PackID       string
	GrantType    enums.GrantType
	EnergyAmount int
	StarsAmount  int
}

type ConfirmInput struct {
	Payload string
	Status  string
}

type ConfirmResult struct {
	Payload            string
	PackID             string
	GrantType          enums.GrantType
	Status             enums.InvoiceStatus
	GrantApplied       bool
	EnergyAmount       int
	StarsAmount        int
	TotalEnergyGranted int
	UnlimitedUntil     *time.Time
}

// NewService builds the payment service from the pack catalog. Packs
// with an unknown grant type are rejected at startup rather than at
// confirmation time.
func NewService(invoices InvoiceStore, packCfgs []config.PackConfig) (*Service, error) {
	packs := make(map[string]Pack, len(packCfgs))
	order := make([]string, 0, len(packCfgs))
	for _, pc := range packCfgs {
		grant, ok := enums.ParseGrantType(pc.GrantType)
		if !ok {
			return nil, fmt.Errorf("pack %q: unknown grant type %q", pc.ID, pc.GrantType)
		}
		packs[pc.ID] = Pack{
			ID:           pc.ID,
			GrantType:    grant,
			EnergyAmount: pc.EnergyAmount,
			StarsAmount:  pc.StarsAmount,
		}
		order = append(order, pc.ID)
	}

	return &Service{
		invoices: invoices,
		packs:    packs,
		order:    order,
		now:      time.Now,
	}, nil
}

// Packs returns the catalog in configuration order.
func (s *Service) Packs() []Pack {
	out := make([]Pack, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.packs[id])
	}
	return out
}

// IssueInvoice creates a fresh invoice for the pack. The payload is the
// identifier the payment provider echoes back on confirmation.
func (s *Service) IssueInvoice(ctx context.Context, userID int64, packID string) (IssueResult, error) {
	if userID <= 0 {
		return IssueResult{}, ErrValidation
	}
	if s.invoices == nil {
		return IssueResult{}, fmt.Errorf("invoice store is nil")
	}

	pack, ok := s.packs[strings.TrimSpace(packID)]
	if !ok {
		return IssueResult{}, ErrUnknownPack
	}

	payload := uuid.NewString()
	if err := s.invoices.SaveCreated(ctx, pgrepo.InvoiceRecord{
		Payload:        payload,
		TelegramUserID: userID,
		PackID:         pack.ID,
		GrantType:      pack.GrantType,
		EnergyAmount:   pack.EnergyAmount,
		StarsAmount:    pack.StarsAmount,
	}); err != nil {
		return IssueResult{}, err
	}

	return IssueResult{
		Payload:      payload,
		PackID:       pack.ID,
		GrantType:    pack.GrantType,
		EnergyAmount: pack.EnergyAmount,
		StarsAmount:  pack.StarsAmount,
	}, nil
}

// Precheck verifies that the invoice payload may be paid by the user.
// Telegram asks this right before charging.
func (s *Service) Precheck(ctx context.Context, userID int64, payload string) error {
	if userID <= 0 {
		return ErrValidation
	}
	if s.invoices == nil {
		return fmt.Errorf("invoice store is nil")
	}

	payload = strings.TrimSpace(payload)
	if payload == "" {
		return ErrValidation
	}

	rec, err := s.invoices.Find(ctx, payload)
	if err != nil {
		if errors.Is(err, pgrepo.ErrInvoiceNotFound) {
			return ErrInvoiceNotFound
		}
		return err
	}
	if rec.TelegramUserID != userID {
		return ErrInvoiceUserMismatch
	}
	return nil
}

// Confirm applies one confirmation delivery for the invoice payload.
// Repeating a confirmation for an already granted invoice succeeds
// without granting again.
func (s *Service) Confirm(ctx context.Context, userID int64, in ConfirmInput) (ConfirmResult, error) {
	if userID <= 0 {
		return ConfirmResult{}, ErrValidation
	}
	if s.invoices == nil {
		return ConfirmResult{}, fmt.Errorf("invoice store is nil")
	}

	payload := strings.TrimSpace(in.Payload)
	if payload == "" {
		return ConfirmResult{}, ErrValidation
	}
	status, ok := enums.ParseInvoiceStatus(in.Status)
	if !ok {
		return ConfirmResult{}, ErrValidation
	}

	res, err := s.invoices.Confirm(ctx, payload, userID, status, s.now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, pgrepo.ErrInvoiceNotFound):
			return ConfirmResult{}, ErrInvoiceNotFound
		case errors.Is(err, pgrepo.ErrInvoiceUserMismatch):
			return ConfirmResult{}, ErrInvoiceUserMismatch
		}
		return ConfirmResult{}, err
	}

	return ConfirmResult{
		Payload:            payload,
		PackID:             res.PackID,
		GrantType:          res.GrantType,
		Status:             status,
		GrantApplied:       res.GrantApplied,
		EnergyAmount:       res.EnergyAmount,
		StarsAmount:        res.StarsAmount,
		TotalEnergyGranted: res.TotalEnergyGranted,
		UnlimitedUntil:     res.UnlimitedUntil,
	}, nil
}
