package abuse

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestGuard(opts ...Option) (*Guard, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	opts = append(opts, WithClock(clock.Now))
	return NewGuard(opts...), clock
}

func TestGuard_CanSendMessage(t *testing.T) {
	t.Run("allows exactly the limit within a window", func(t *testing.T) {
		g, _ := newTestGuard(WithMessageLimit(5, time.Minute))

		for i := 1; i <= 5; i++ {
			d := g.CanSendMessage("cust-1")
			if !d.Allowed {
				t.Fatalf("call %d: expected allowed", i)
			}
			if d.Remaining != 5-i {
				t.Errorf("call %d: expected remaining %d, got %d", i, 5-i, d.Remaining)
			}
		}

		d := g.CanSendMessage("cust-1")
		if d.Allowed {
			t.Fatal("call 6: expected rejection")
		}
		if d.Reason != ReasonMessageRateLimit {
			t.Errorf("expected reason %q, got %q", ReasonMessageRateLimit, d.Reason)
		}
		if d.RetryAfter <= 0 || d.RetryAfter > 60 {
			t.Errorf("expected retry_after within window, got %d", d.RetryAfter)
		}
		if d.Message == "" {
			t.Error("expected a user-facing message")
		}
	})

	t.Run("window expiry resets the counter", func(t *testing.T) {
		g, clock := newTestGuard(WithMessageLimit(2, time.Minute))

		g.CanSendMessage("cust-1")
		g.CanSendMessage("cust-1")
		if d := g.CanSendMessage("cust-1"); d.Allowed {
			t.Fatal("expected rejection at limit")
		}

		clock.Advance(61 * time.Second)

		d := g.CanSendMessage("cust-1")
		if !d.Allowed {
			t.Fatal("expected allow after window reset")
		}
		if d.Remaining != 1 {
			t.Errorf("expected remaining 1 after reset, got %d", d.Remaining)
		}
	})

	t.Run("customers are independent", func(t *testing.T) {
		g, _ := newTestGuard(WithMessageLimit(3, time.Minute))

		for i := 0; i < 10; i++ {
			g.CanSendMessage("noisy")
		}
		if d := g.CanSendMessage("noisy"); d.Allowed {
			t.Fatal("noisy customer should be limited")
		}
		if d := g.CanSendMessage("quiet"); !d.Allowed {
			t.Fatal("quiet customer must not be affected")
		}
	})
}

func TestGuard_CanPlaceOrder(t *testing.T) {
	t.Run("enforces the daily cap", func(t *testing.T) {
		g, _ := newTestGuard(WithOrderLimit(2))

		if d := g.CanPlaceOrder("cust-1"); !d.Allowed || d.Remaining != 1 {
			t.Fatalf("order 1: got %+v", d)
		}
		if d := g.CanPlaceOrder("cust-1"); !d.Allowed || d.Remaining != 0 {
			t.Fatalf("order 2: got %+v", d)
		}

		d := g.CanPlaceOrder("cust-1")
		if d.Allowed {
			t.Fatal("order 3: expected rejection")
		}
		if d.Reason != ReasonDailyOrderLimit {
			t.Errorf("expected reason %q, got %q", ReasonDailyOrderLimit, d.Reason)
		}
	})

	t.Run("resets on calendar day change", func(t *testing.T) {
		g, clock := newTestGuard(WithOrderLimit(1))

		g.CanPlaceOrder("cust-1")
		if d := g.CanPlaceOrder("cust-1"); d.Allowed {
			t.Fatal("expected rejection at cap")
		}

		clock.Advance(24 * time.Hour)

		if d := g.CanPlaceOrder("cust-1"); !d.Allowed {
			t.Fatal("expected allow on the next day")
		}
	})
}

func TestGuard_Cooldown(t *testing.T) {
	t.Run("cooldown blocks then lazily clears", func(t *testing.T) {
		g, clock := newTestGuard(WithErrorCooldown(30 * time.Second))

		if d := g.InCooldown("cust-1"); !d.Allowed {
			t.Fatal("fresh customer must not be in cooldown")
		}

		g.SetErrorCooldown("cust-1")
		d := g.InCooldown("cust-1")
		if d.Allowed {
			t.Fatal("expected cooldown active")
		}
		if d.RetryAfter != 30 {
			t.Errorf("expected retry_after 30, got %d", d.RetryAfter)
		}

		clock.Advance(31 * time.Second)
		if d := g.InCooldown("cust-1"); !d.Allowed {
			t.Fatal("expected cooldown cleared after expiry")
		}

		// entry must have been deleted by the lazy check
		if s := g.Stats("cust-1"); s.InCooldown {
			t.Error("stats still report cooldown after lazy clear")
		}
	})
}

func TestGuard_Cleanup(t *testing.T) {
	g, clock := newTestGuard(WithMessageLimit(3, time.Minute), WithErrorCooldown(10*time.Second))

	g.CanSendMessage("cust-1")
	g.CanPlaceOrder("cust-1")
	g.SetErrorCooldown("cust-1")

	clock.Advance(25 * time.Hour)
	g.Cleanup()

	s := g.Stats("cust-1")
	if s.MessagesInWindow != 0 || s.OrdersToday != 0 || s.InCooldown {
		t.Errorf("expected clean stats after cleanup, got %+v", s)
	}

	// behavior must be identical whether or not cleanup ran
	if d := g.CanSendMessage("cust-1"); !d.Allowed {
		t.Fatal("expected fresh window after cleanup")
	}
}

func TestGuard_ConcurrentCustomers(t *testing.T) {
	g, _ := newTestGuard(WithMessageLimit(50, time.Minute))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("cust-%d", n)
			for j := 0; j < 50; j++ {
				if d := g.CanSendMessage(id); !d.Allowed {
					t.Errorf("customer %s rejected at call %d", id, j+1)
					return
				}
			}
			if d := g.CanSendMessage(id); d.Allowed {
				t.Errorf("customer %s allowed past the limit", id)
			}
		}(i)
	}
	wg.Wait()
}
