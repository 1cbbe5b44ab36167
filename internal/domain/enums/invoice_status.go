package enums

import "strings"

// InvoiceStatus is the payment lifecycle of an energy invoice. An
// invoice transitions to paid at most once; re-delivered confirmations
// are no-ops.
type InvoiceStatus string

const (
	InvoiceCreated InvoiceStatus = "created"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceFailed  InvoiceStatus = "failed"
)

func ParseInvoiceStatus(raw string) (InvoiceStatus, bool) {
	switch InvoiceStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case InvoiceCreated:
		return InvoiceCreated, true
	case InvoicePaid:
		return InvoicePaid, true
	case InvoiceFailed:
		return InvoiceFailed, true
	default:
		return "", false
	}
}
