package session

import (
	"context"

	"github.com/mnhidayatgani/chatbot-sub001/internal/domain"
)

// Manager is the typed state-machine API over a Store. Promo code and
// discount percent only ever change together through SetPromo/ClearPromo,
// which keeps the "percent is 0 without a code" invariant enforceable in one
// place.
type Manager struct {
	store Store
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Snapshot returns the customer's full session, creating it lazily.
func (m *Manager) Snapshot(ctx context.Context, customerID string) (*domain.Session, error) {
	return m.store.Get(ctx, customerID)
}

func (m *Manager) Step(ctx context.Context, customerID string) (domain.Step, error) {
	sess, err := m.store.Get(ctx, customerID)
	if err != nil {
		return "", err
	}
	return sess.Step, nil
}

func (m *Manager) SetStep(ctx context.Context, customerID string, step domain.Step) error {
	_, err := m.store.Update(ctx, customerID, func(sess *domain.Session) error {
		sess.Step = step
		return nil
	})
	return err
}

func (m *Manager) Cart(ctx context.Context, customerID string) ([]domain.CartLine, error) {
	sess, err := m.store.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return sess.Cart, nil
}

// AddToCart appends a line; the same product may appear on several lines.
func (m *Manager) AddToCart(ctx context.Context, customerID string, line domain.CartLine) error {
	_, err := m.store.Update(ctx, customerID, func(sess *domain.Session) error {
		sess.Cart = append(sess.Cart, line)
		return nil
	})
	return err
}

// Clear empties the cart, drops the promo selection and pending order id,
// and returns the customer to the menu. Idempotent.
func (m *Manager) Clear(ctx context.Context, customerID string) error {
	_, err := m.store.Update(ctx, customerID, func(sess *domain.Session) error {
		sess.Cart = []domain.CartLine{}
		sess.PromoCode = ""
		sess.DiscountPercent = 0
		sess.OrderID = ""
		sess.Step = domain.StepMenu
		return nil
	})
	return err
}

func (m *Manager) SetPromo(ctx context.Context, customerID, code string, discountPercent int) error {
	_, err := m.store.Update(ctx, customerID, func(sess *domain.Session) error {
		sess.PromoCode = code
		sess.DiscountPercent = discountPercent
		return nil
	})
	return err
}

func (m *Manager) ClearPromo(ctx context.Context, customerID string) error {
	_, err := m.store.Update(ctx, customerID, func(sess *domain.Session) error {
		sess.PromoCode = ""
		sess.DiscountPercent = 0
		return nil
	})
	return err
}

func (m *Manager) SetOrderID(ctx context.Context, customerID, orderID string) error {
	_, err := m.store.Update(ctx, customerID, func(sess *domain.Session) error {
		sess.OrderID = orderID
		return nil
	})
	return err
}

// Update exposes the store's serialized read-modify-write for transitions
// that must change several fields in one step, such as the checkout commit.
func (m *Manager) Update(ctx context.Context, customerID string, fn func(*domain.Session) error) (*domain.Session, error) {
	return m.store.Update(ctx, customerID, fn)
}
