package promo

import (
	"context"
	"errors"

	"github.com/mnhidayatgani/chatbot-sub001/internal/domain"
)

// Redemption failure modes. Store implementations return these so the
// ledger can map them to user-facing messages.
var (
	ErrNotFound        = errors.New("promo code not found")
	ErrExists          = errors.New("promo code already exists")
	ErrInactive        = errors.New("promo code is inactive")
	ErrExpired         = errors.New("promo code has expired")
	ErrExhausted       = errors.New("promo code usage limit reached")
	ErrAlreadyRedeemed = errors.New("promo code already redeemed by customer")
)

// Store is the persistence collaborator for promo codes and the per-customer
// usage ledger. Get returns (nil, nil) when the code does not exist.
//
// Redeem is the single atomic commit point: it must enforce the use cap and
// the once-per-customer rule under concurrency, so two customers racing for
// the last remaining use cannot both succeed.
type Store interface {
	Get(ctx context.Context, code string) (*domain.PromoCode, error)
	Create(ctx context.Context, promo *domain.PromoCode) error
	SetActive(ctx context.Context, code string, active bool) error
	Delete(ctx context.Context, code string) error
	Redeem(ctx context.Context, code, customerID string) (*domain.PromoCode, error)
	HasRedeemed(ctx context.Context, code, customerID string) (bool, error)
	CustomerCodes(ctx context.Context, customerID string) ([]string, error)
}
