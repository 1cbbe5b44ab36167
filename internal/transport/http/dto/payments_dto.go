package dto

import "time"

type InvoiceCreateRequest struct {
	PackID string `json:"pack_id"`
}

type InvoiceCreateResponse struct {
	Payload      string `json:"payload"`
	PackID       string `json:"pack_id"`
	GrantType    string `json:"grant_type"`
	EnergyAmount int    `json:"energy_amount"`
	StarsAmount  int    `json:"stars_amount"`
}

type InvoiceConfirmRequest struct {
	Payload string `json:"payload"`
	Status  string `json:"status"`
}

type InvoiceConfirmResponse struct {
	OK                 bool       `json:"ok"`
	Payload            string     `json:"payload"`
	PackID             string     `json:"pack_id"`
	GrantType          string     `json:"grant_type"`
	Status             string     `json:"status"`
	GrantApplied       bool       `json:"grant_applied"`
	TotalEnergyGranted int        `json:"total_energy_granted"`
	UnlimitedUntil     *time.Time `json:"unlimited_until,omitempty"`
}

type PackResponse struct {
	ID           string `json:"id"`
	GrantType    string `json:"grant_type"`
	EnergyAmount int    `json:"energy_amount"`
	StarsAmount  int    `json:"stars_amount"`
}

type PacksResponse struct {
	Packs []PackResponse `json:"packs"`
}
