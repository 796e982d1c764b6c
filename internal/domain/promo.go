package domain

import "time"

// PromoCode is a percentage discount with an expiry and a global use cap.
// Codes are stored uppercase and looked up case-insensitively.
type PromoCode struct {
	Code            string    `json:"code"`
	DiscountPercent int       `json:"discount_percent"`
	ExpiresAt       time.Time `json:"expires_at"`
	MaxUses         int       `json:"max_uses"`
	CurrentUses     int       `json:"current_uses"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// Expired reports whether the code is past its expiry at the given instant.
func (p *PromoCode) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// Exhausted reports whether the code has no uses left.
func (p *PromoCode) Exhausted() bool {
	return p.CurrentUses >= p.MaxUses
}

// Discount is the breakdown of a percentage discount applied to an amount in
// minor units. DiscountAmount truncates toward zero.
type Discount struct {
	OriginalAmount  int64 `json:"original_amount"`
	DiscountPercent int   `json:"discount_percent"`
	DiscountAmount  int64 `json:"discount_amount"`
	FinalAmount     int64 `json:"final_amount"`
}
