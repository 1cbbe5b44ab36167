package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/config"
	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/domain/enums"
	pgrepo "github.com/artemovbasil-oss/basil-arcana-sub000/internal/repo/postgres"
)

type invoiceStoreStub struct {
	invoices           map[string]pgrepo.InvoiceRecord
	totalEnergyGranted int
	unlimitedUntil     *time.Time
	grantCount         int
}

func newInvoiceStoreStub() *invoiceStoreStub {
	return &invoiceStoreStub{invoices: make(map[string]pgrepo.InvoiceRecord)}
}

func (s *invoiceStoreStub) SaveCreated(_ context.Context, rec pgrepo.InvoiceRecord) error {
	if existing, ok := s.invoices[rec.Payload]; ok {
		existing.StarsAmount = rec.StarsAmount
		existing.EnergyAmount = rec.EnergyAmount
		s.invoices[rec.Payload] = existing
		return nil
	}
	rec.Status = enums.InvoiceCreated
	s.invoices[rec.Payload] = rec
	return nil
}

func (s *invoiceStoreStub) Find(_ context.Context, payload string) (pgrepo.InvoiceRecord, error) {
	rec, ok := s.invoices[payload]
	if !ok {
		return pgrepo.InvoiceRecord{}, pgrepo.ErrInvoiceNotFound
	}
	return rec, nil
}

func (s *invoiceStoreStub) Confirm(_ context.Context, payload string, userID int64, status enums.InvoiceStatus, now time.Time) (pgrepo.ConfirmResult, error) {
	rec, ok := s.invoices[payload]
	if !ok {
		return pgrepo.ConfirmResult{}, pgrepo.ErrInvoiceNotFound
	}
	if rec.TelegramUserID != userID {
		return pgrepo.ConfirmResult{}, pgrepo.ErrInvoiceUserMismatch
	}

	rec.Status = status
	var applied bool
	if status == enums.InvoicePaid && rec.GrantAppliedAt == nil {
		s.grantCount++
		s.totalEnergyGranted += rec.EnergyAmount
		if rec.GrantType.IsUnlimited() {
			base := now
			if s.unlimitedUntil != nil && s.unlimitedUntil.After(base) {
				base = *s.unlimitedUntil
			}
			until := base.AddDate(0, 0, rec.GrantType.UnlimitedDays())
			s.unlimitedUntil = &until
		}
		appliedAt := now
		rec.GrantAppliedAt = &appliedAt
		applied = true
	}
	s.invoices[payload] = rec

	return pgrepo.ConfirmResult{
		GrantApplied:       applied,
		PackID:             rec.PackID,
		GrantType:          rec.GrantType,
		EnergyAmount:       rec.EnergyAmount,
		StarsAmount:        rec.StarsAmount,
		TotalEnergyGranted: s.totalEnergyGranted,
		UnlimitedUntil:     s.unlimitedUntil,
	}, nil
}

func testPacks() []config.PackConfig {
	return []config.PackConfig{
		{ID: "spark_60", GrantType: "energy", EnergyAmount: 60, StarsAmount: 50},
		{ID: "unlimited_month", GrantType: "unlimited_month", EnergyAmount: 0, StarsAmount: 990},
	}
}

func TestIssueInvoiceUsesCatalogAmounts(t *testing.T) {
	store := newInvoiceStoreStub()
	svc, err := NewService(store, testPacks())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	res, err := svc.IssueInvoice(context.Background(), 42, "spark_60")
	if err != nil {
		t.Fatalf("issue invoice: %v", err)
	}
	if res.Payload == "" {
		t.Fatalf("expected non-empty payload")
	}
	if res.EnergyAmount != 60 || res.StarsAmount != 50 {
		t.Fatalf("unexpected amounts: energy=%d stars=%d", res.EnergyAmount, res.StarsAmount)
	}

	rec, err := store.Find(context.Background(), res.Payload)
	if err != nil {
		t.Fatalf("find issued invoice: %v", err)
	}
	if rec.Status != enums.InvoiceCreated {
		t.Fatalf("unexpected invoice status: %s", rec.Status)
	}
}

func TestIssueInvoiceRejectsUnknownPack(t *testing.T) {
	svc, err := NewService(newInvoiceStoreStub(), testPacks())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := svc.IssueInvoice(context.Background(), 42, "golden_ticket"); !errors.Is(err, ErrUnknownPack) {
		t.Fatalf("expected unknown pack, got %v", err)
	}
}

func TestConfirmGrantsExactlyOnce(t *testing.T) {
	store := newInvoiceStoreStub()
	svc, err := NewService(store, testPacks())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	issued, err := svc.IssueInvoice(context.Background(), 42, "spark_60")
	if err != nil {
		t.Fatalf("issue invoice: %v", err)
	}

	first, err := svc.Confirm(context.Background(), 42, ConfirmInput{Payload: issued.Payload, Status: "paid"})
	if err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	if !first.GrantApplied {
		t.Fatalf("first confirm must apply the grant")
	}
	if first.TotalEnergyGranted != 60 {
		t.Fatalf("unexpected total energy after first confirm: %d", first.TotalEnergyGranted)
	}

	for i := 0; i < 3; i++ {
		repeat, err := svc.Confirm(context.Background(), 42, ConfirmInput{Payload: issued.Payload, Status: "paid"})
		if err != nil {
			t.Fatalf("repeat confirm #%d: %v", i+1, err)
		}
		if repeat.GrantApplied {
			t.Fatalf("repeat confirm #%d must not grant again", i+1)
		}
		if repeat.TotalEnergyGranted != 60 {
			t.Fatalf("total energy drifted on repeat #%d: %d", i+1, repeat.TotalEnergyGranted)
		}
	}

	if store.grantCount != 1 {
		t.Fatalf("grant applied %d times", store.grantCount)
	}
}

func TestConfirmUnlimitedPackStacksFromResult(t *testing.T) {
	store := newInvoiceStoreStub()
	svc, err := NewService(store, testPacks())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	issued, err := svc.IssueInvoice(context.Background(), 42, "unlimited_month")
	if err != nil {
		t.Fatalf("issue invoice: %v", err)
	}

	res, err := svc.Confirm(context.Background(), 42, ConfirmInput{Payload: issued.Payload, Status: "paid"})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if res.UnlimitedUntil == nil {
		t.Fatalf("expected unlimited window after unlimited pack confirm")
	}
	if until := time.Until(*res.UnlimitedUntil); until < 29*24*time.Hour {
		t.Fatalf("unlimited window too short: %s", until)
	}
}

func TestConfirmRejectsForeignInvoice(t *testing.T) {
	store := newInvoiceStoreStub()
	svc, err := NewService(store, testPacks())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	issued, err := svc.IssueInvoice(context.Background(), 42, "spark_60")
	if err != nil {
		t.Fatalf("issue invoice: %v", err)
	}

	if _, err := svc.Confirm(context.Background(), 43, ConfirmInput{Payload: issued.Payload, Status: "paid"}); !errors.Is(err, ErrInvoiceUserMismatch) {
		t.Fatalf("expected user mismatch, got %v", err)
	}
}

func TestConfirmRejectsUnknownStatus(t *testing.T) {
	svc, err := NewService(newInvoiceStoreStub(), testPacks())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := svc.Confirm(context.Background(), 42, ConfirmInput{Payload: "p-1", Status: "refunded"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestConfirmFailedStatusDoesNotGrant(t *testing.T) {
	store := newInvoiceStoreStub()
	svc, err := NewService(store, testPacks())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	issued, err := svc.IssueInvoice(context.Background(), 42, "spark_60")
	if err != nil {
		t.Fatalf("issue invoice: %v", err)
	}

	res, err := svc.Confirm(context.Background(), 42, ConfirmInput{Payload: issued.Payload, Status: "failed"})
	if err != nil {
		t.Fatalf("confirm failed status: %v", err)
	}
	if res.GrantApplied {
		t.Fatalf("failed confirmation must not grant")
	}
	if store.grantCount != 0 {
		t.Fatalf("grant applied on failed status")
	}
}

func TestPrecheckMatchesInvoiceOwnership(t *testing.T) {
	svc, err := NewService(newInvoiceStoreStub(), testPacks())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	issued, err := svc.IssueInvoice(context.Background(), 42, "spark_60")
	if err != nil {
		t.Fatalf("issue invoice: %v", err)
	}

	if err := svc.Precheck(context.Background(), 42, issued.Payload); err != nil {
		t.Fatalf("precheck own invoice: %v", err)
	}
	if err := svc.Precheck(context.Background(), 43, issued.Payload); !errors.Is(err, ErrInvoiceUserMismatch) {
		t.Fatalf("expected user mismatch, got %v", err)
	}
	if err := svc.Precheck(context.Background(), 42, "missing"); !errors.Is(err, ErrInvoiceNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
