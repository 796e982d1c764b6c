// Package promo is the authoritative source of promo validity and
// redemption state.
package promo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mnhidayatgani/chatbot-sub001/internal/domain"
)

// ErrInvalid wraps admin input validation failures on promo creation.
var ErrInvalid = errors.New("invalid promo")

// Result is the outcome of a validation or redemption attempt. Invalid
// codes, expiry, exhaustion and prior use are expected outcomes, not errors;
// the error return of ledger methods is reserved for store failures.
type Result struct {
	OK              bool   `json:"ok"`
	DiscountPercent int    `json:"discount_percent,omitempty"`
	Reason          string `json:"reason,omitempty"`
	Message         string `json:"message"`
}

const (
	ReasonNotFound    = "not_found"
	ReasonInactive    = "inactive"
	ReasonExpired     = "expired"
	ReasonExhausted   = "exhausted"
	ReasonAlreadyUsed = "already_used"
)

type Ledger struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewLedger(store Store, logger *slog.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Normalize trims and uppercases a code the way it is stored.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreatePromo registers a new code, valid for expiryDays from now.
func (l *Ledger) CreatePromo(ctx context.Context, code string, discountPercent, expiryDays, maxUses int) (*domain.PromoCode, error) {
	code = Normalize(code)
	switch {
	case len(code) < 3:
		return nil, fmt.Errorf("%w: code must be at least 3 characters", ErrInvalid)
	case discountPercent < 1 || discountPercent > 100:
		return nil, fmt.Errorf("%w: discount percent must be between 1 and 100", ErrInvalid)
	case expiryDays < 1:
		return nil, fmt.Errorf("%w: expiry days must be at least 1", ErrInvalid)
	case maxUses < 1:
		return nil, fmt.Errorf("%w: max uses must be at least 1", ErrInvalid)
	}

	now := l.now()
	promo := &domain.PromoCode{
		Code:            code,
		DiscountPercent: discountPercent,
		ExpiresAt:       now.AddDate(0, 0, expiryDays),
		MaxUses:         maxUses,
		IsActive:        true,
		CreatedAt:       now,
	}
	if err := l.store.Create(ctx, promo); err != nil {
		return nil, err
	}

	l.logger.Info("promo created", "code", code, "discount_percent", discountPercent, "max_uses", maxUses)
	return promo, nil
}

// ValidatePromo is a pure preview: it never consumes a use. Only ApplyPromo
// is authoritative at commit time; a positive preview can go stale.
func (l *Ledger) ValidatePromo(ctx context.Context, code, customerID string) (Result, error) {
	code = Normalize(code)

	promo, err := l.store.Get(ctx, code)
	if err != nil {
		return Result{}, err
	}
	switch {
	case promo == nil:
		return reject(ReasonNotFound, "Promo code not found."), nil
	case !promo.IsActive:
		return reject(ReasonInactive, "Promo code is no longer active."), nil
	case promo.Expired(l.now()):
		return reject(ReasonExpired, "Promo code has expired."), nil
	case promo.Exhausted():
		return reject(ReasonExhausted, "Promo code has reached its usage limit."), nil
	}

	used, err := l.store.HasRedeemed(ctx, code, customerID)
	if err != nil {
		return Result{}, err
	}
	if used {
		return reject(ReasonAlreadyUsed, "You have already used this promo code."), nil
	}

	return Result{
		OK:              true,
		DiscountPercent: promo.DiscountPercent,
		Message:         fmt.Sprintf("Promo %s is valid: %d%% off.", code, promo.DiscountPercent),
	}, nil
}

// ApplyPromo atomically redeems a code for a customer: the use count and the
// usage ledger move in the same transaction, exactly once per customer.
func (l *Ledger) ApplyPromo(ctx context.Context, code, customerID string) (Result, error) {
	code = Normalize(code)

	promo, err := l.store.Redeem(ctx, code, customerID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return reject(ReasonNotFound, "Promo code not found."), nil
		case errors.Is(err, ErrInactive):
			return reject(ReasonInactive, "Promo code is no longer active."), nil
		case errors.Is(err, ErrExpired):
			return reject(ReasonExpired, "Promo code has expired."), nil
		case errors.Is(err, ErrExhausted):
			return reject(ReasonExhausted, "Promo code has reached its usage limit."), nil
		case errors.Is(err, ErrAlreadyRedeemed):
			return reject(ReasonAlreadyUsed, "You have already used this promo code."), nil
		}
		return Result{}, err
	}

	l.logger.Info("promo redeemed", "code", code, "customer_id", customerID, "uses", promo.CurrentUses, "max_uses", promo.MaxUses)
	return Result{
		OK:              true,
		DiscountPercent: promo.DiscountPercent,
		Message:         fmt.Sprintf("Promo %s applied: %d%% off.", code, promo.DiscountPercent),
	}, nil
}

// DeactivatePromo soft-disables a code, keeping its history.
func (l *Ledger) DeactivatePromo(ctx context.Context, code string) error {
	return l.store.SetActive(ctx, Normalize(code), false)
}

// DeletePromo removes a code. Usage ledger entries survive so a recreated
// code cannot be redeemed twice by the same customer.
func (l *Ledger) DeletePromo(ctx context.Context, code string) error {
	return l.store.Delete(ctx, Normalize(code))
}

// GetPromo returns a code's current state, or (nil, nil) if absent.
func (l *Ledger) GetPromo(ctx context.Context, code string) (*domain.PromoCode, error) {
	return l.store.Get(ctx, Normalize(code))
}

// CustomerUsage lists the codes a customer has redeemed, oldest first.
// Unknown customers get an empty list.
func (l *Ledger) CustomerUsage(ctx context.Context, customerID string) ([]string, error) {
	return l.store.CustomerCodes(ctx, customerID)
}

// CalculateDiscount applies a percentage to an amount in minor units,
// truncating the discount toward zero.
func CalculateDiscount(amount int64, percent int) domain.Discount {
	discount := amount * int64(percent) / 100
	return domain.Discount{
		OriginalAmount:  amount,
		DiscountPercent: percent,
		DiscountAmount:  discount,
		FinalAmount:     amount - discount,
	}
}

func reject(reason, message string) Result {
	return Result{Reason: reason, Message: message}
}
