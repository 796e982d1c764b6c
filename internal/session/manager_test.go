package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/mnhidayatgani/chatbot-sub001/internal/domain"
)

func TestManager_LazyDefaults(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())

	sess, err := m.Snapshot(ctx, "cust-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.Step != domain.StepMenu {
		t.Errorf("expected default step MENU, got %s", sess.Step)
	}
	if len(sess.Cart) != 0 {
		t.Errorf("expected empty cart, got %d lines", len(sess.Cart))
	}
	if sess.PromoCode != "" || sess.DiscountPercent != 0 || sess.OrderID != "" {
		t.Errorf("expected clean session, got %+v", sess)
	}
}

func TestManager_CartOrderAndDuplicates(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())

	lines := []domain.CartLine{
		{ProductID: "netflix", Name: "Netflix 1 Month", UnitPrice: 50000},
		{ProductID: "spotify", Name: "Spotify 1 Month", UnitPrice: 25000},
		{ProductID: "netflix", Name: "Netflix 1 Month", UnitPrice: 50000},
	}
	for _, line := range lines {
		if err := m.AddToCart(ctx, "cust-1", line); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	cart, err := m.Cart(ctx, "cust-1")
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	if len(cart) != 3 {
		t.Fatalf("expected 3 lines (duplicates kept), got %d", len(cart))
	}
	for i, line := range cart {
		if line.ProductID != lines[i].ProductID {
			t.Errorf("line %d: insertion order lost, got %s", i, line.ProductID)
		}
	}
}

func TestManager_ClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())

	_ = m.AddToCart(ctx, "cust-1", domain.CartLine{ProductID: "netflix", UnitPrice: 50000})
	_ = m.SetPromo(ctx, "cust-1", "SAVE10", 10)
	_ = m.SetOrderID(ctx, "cust-1", "ORD-1-abc")
	_ = m.SetStep(ctx, "cust-1", domain.StepCheckout)

	for i := 0; i < 2; i++ {
		if err := m.Clear(ctx, "cust-1"); err != nil {
			t.Fatalf("clear %d: %v", i+1, err)
		}
		sess, err := m.Snapshot(ctx, "cust-1")
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if len(sess.Cart) != 0 || sess.PromoCode != "" || sess.DiscountPercent != 0 ||
			sess.OrderID != "" || sess.Step != domain.StepMenu {
			t.Fatalf("clear %d left state behind: %+v", i+1, sess)
		}
	}
}

func TestManager_PromoFieldsMoveTogether(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore())

	if err := m.SetPromo(ctx, "cust-1", "DISC20", 20); err != nil {
		t.Fatalf("set promo: %v", err)
	}
	sess, _ := m.Snapshot(ctx, "cust-1")
	if sess.PromoCode != "DISC20" || sess.DiscountPercent != 20 {
		t.Fatalf("expected DISC20/20, got %+v", sess)
	}

	if err := m.ClearPromo(ctx, "cust-1"); err != nil {
		t.Fatalf("clear promo: %v", err)
	}
	sess, _ = m.Snapshot(ctx, "cust-1")
	if sess.PromoCode != "" || sess.DiscountPercent != 0 {
		t.Fatalf("promo fields did not clear together: %+v", sess)
	}
}

func TestMemoryStore_FailedUpdateLeavesNoPartialState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, _ = store.Update(ctx, "cust-1", func(sess *domain.Session) error {
		sess.Step = domain.StepCheckout
		return nil
	})

	boom := fmt.Errorf("boom")
	_, err := store.Update(ctx, "cust-1", func(sess *domain.Session) error {
		sess.Step = domain.StepSelectPayment
		sess.OrderID = "ORD-1-abc"
		return boom
	})
	if err != boom {
		t.Fatalf("expected fn error to propagate, got %v", err)
	}

	sess, _ := store.Get(ctx, "cust-1")
	if sess.Step != domain.StepCheckout || sess.OrderID != "" {
		t.Fatalf("failed update mutated state: %+v", sess)
	}
}

func TestMemoryStore_ConcurrentUpdatesSameCustomer(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Update(ctx, "cust-1", func(sess *domain.Session) error {
				sess.Cart = append(sess.Cart, domain.CartLine{ProductID: "p", UnitPrice: 1})
				return nil
			})
		}()
	}
	wg.Wait()

	sess, _ := store.Get(ctx, "cust-1")
	if len(sess.Cart) != n {
		t.Fatalf("lost updates: expected %d lines, got %d", n, len(sess.Cart))
	}
}

func TestMemoryStore_CustomersAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("cust-%d", n)
			for j := 0; j < 50; j++ {
				_, _ = store.Update(ctx, id, func(sess *domain.Session) error {
					sess.Cart = append(sess.Cart, domain.CartLine{ProductID: id, UnitPrice: 1})
					return nil
				})
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		sess, _ := store.Get(ctx, fmt.Sprintf("cust-%d", i))
		if len(sess.Cart) != 50 {
			t.Errorf("customer %d: expected 50 lines, got %d", i, len(sess.Cart))
		}
		for _, line := range sess.Cart {
			if line.ProductID != fmt.Sprintf("cust-%d", i) {
				t.Fatalf("customer %d sees another customer's line: %s", i, line.ProductID)
			}
		}
	}
}
