package domain

import "time"

// Step is the stage of a customer's purchase flow.
type Step string

const (
	StepMenu            Step = "MENU"
	StepBrowsing        Step = "BROWSING"
	StepCheckout        Step = "CHECKOUT"
	StepSelectPayment   Step = "SELECT_PAYMENT"
	StepSelectBank      Step = "SELECT_BANK"
	StepAwaitingPayment Step = "AWAITING_PAYMENT"
	StepAwaitingAdmin   Step = "AWAITING_ADMIN_APPROVAL"
	StepUploadProof     Step = "UPLOAD_PROOF"
)

// CartLine is one entry in a customer's cart. Adding the same product twice
// yields two lines; insertion order is preserved.
type CartLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"` // minor units
}

// Session is the per-customer conversational state. PromoCode and
// DiscountPercent always change together: DiscountPercent is 0 whenever
// PromoCode is empty.
type Session struct {
	CustomerID      string     `json:"customer_id"`
	Step            Step       `json:"step"`
	Cart            []CartLine `json:"cart"`
	PromoCode       string     `json:"promo_code,omitempty"`
	DiscountPercent int        `json:"discount_percent,omitempty"`
	OrderID         string     `json:"order_id,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewSession returns the default session a customer gets on first contact.
func NewSession(customerID string) *Session {
	return &Session{
		CustomerID: customerID,
		Step:       StepMenu,
		Cart:       []CartLine{},
	}
}

// CartTotal sums unit prices across all lines, duplicates counted
// individually.
func (s *Session) CartTotal() int64 {
	var total int64
	for _, line := range s.Cart {
		total += line.UnitPrice
	}
	return total
}
