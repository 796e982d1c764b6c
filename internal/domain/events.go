package domain

import "time"

// Audit event names. Downstream tooling keys off these strings; treat them
// as a wire contract.
const (
	EventCartCleared        = "cart_cleared"
	EventPromoApplied       = "promo_applied"
	EventPromoCodeApplied   = "promo_code_applied"
	EventCheckoutInitiated  = "checkout_initiated"
	EventCheckoutOutOfStock = "checkout_failed_out_of_stock"
	EventOrderApproved      = "order_approved"
	EventOrderRejected      = "order_rejected"
)

// AuditEvent is the envelope published to the audit topic.
type AuditEvent struct {
	CustomerID string         `json:"customer_id"`
	Name       string         `json:"name"`
	Details    map[string]any `json:"details,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}
