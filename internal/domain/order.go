package domain

import "time"

type OrderStatus string

const (
	OrderStatusAwaitingPayment  OrderStatus = "awaiting_payment"
	OrderStatusAwaitingApproval OrderStatus = "awaiting_approval"
	OrderStatusApproved         OrderStatus = "approved"
	OrderStatusRejected         OrderStatus = "rejected"
	OrderStatusCancelled        OrderStatus = "cancelled"
)

// Order is a cart frozen at checkout, awaiting payment and admin approval.
// ID is the customer-facing ORD-<timestamp>-<suffix> token.
type Order struct {
	ID              string      `json:"id"`
	CustomerID      string      `json:"customer_id"`
	Lines           []CartLine  `json:"lines"`
	Subtotal        int64       `json:"subtotal"`
	PromoCode       string      `json:"promo_code,omitempty"`
	DiscountPercent int         `json:"discount_percent,omitempty"`
	Total           int64       `json:"total"`
	Status          OrderStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
}
