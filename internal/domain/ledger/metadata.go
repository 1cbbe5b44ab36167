package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/domain/enums"
)

// Operation names the kind of an energy ledger row. Every row carries
// exactly one operation and the matching typed metadata variant.
type Operation string

const (
	OpEnergyTopup    Operation = "grant_energy_topup"
	OpUnlimitedWeek  Operation = "grant_unlimited_week"
	OpUnlimitedMonth Operation = "grant_unlimited_month"
	OpUnlimitedYear  Operation = "grant_unlimited_year"
	OpReferralBonus  Operation = "referral_bonus"
)

func OperationForGrant(t enums.GrantType) Operation {
	switch t {
	case enums.GrantUnlimitedWeek:
		return OpUnlimitedWeek
	case enums.GrantUnlimitedMonth:
		return OpUnlimitedMonth
	case enums.GrantUnlimitedYear:
		return OpUnlimitedYear
	default:
		return OpEnergyTopup
	}
}

// Metadata is a tagged union over the known operation payloads. Exactly
// one variant must be set and it must match Op.
type Metadata struct {
	Op             Operation       `json:"op"`
	EnergyTopup    *EnergyTopup    `json:"energy_topup,omitempty"`
	UnlimitedGrant *UnlimitedGrant `json:"unlimited_grant,omitempty"`
	ReferralBonus  *ReferralBonus  `json:"referral_bonus,omitempty"`
}

type EnergyTopup struct {
	PackID      string `json:"pack_id"`
	StarsAmount int    `json:"stars_amount"`
}

type UnlimitedGrant struct {
	PackID      string `json:"pack_id"`
	StarsAmount int    `json:"stars_amount"`
	Days        int    `json:"days"`
}

type ReferralBonus struct {
	ReferredUserID int64  `json:"referred_user_id"`
	BonusCredits   int    `json:"bonus_credits"`
	StartParam     string `json:"start_param,omitempty"`
}

func (m Metadata) Validate() error {
	variants := 0
	if m.EnergyTopup != nil {
		variants++
		if m.Op != OpEnergyTopup {
			return fmt.Errorf("metadata op %q does not match energy topup variant", m.Op)
		}
	}
	if m.UnlimitedGrant != nil {
		variants++
		switch m.Op {
		case OpUnlimitedWeek, OpUnlimitedMonth, OpUnlimitedYear:
		default:
			return fmt.Errorf("metadata op %q does not match unlimited grant variant", m.Op)
		}
	}
	if m.ReferralBonus != nil {
		variants++
		if m.Op != OpReferralBonus {
			return fmt.Errorf("metadata op %q does not match referral bonus variant", m.Op)
		}
	}
	if variants != 1 {
		return fmt.Errorf("metadata must carry exactly one variant, got %d", variants)
	}
	return nil
}

func (m Metadata) MarshalJSONB() (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal ledger metadata: %w", err)
	}
	return string(raw), nil
}
