// Package abuse rate-limits inbound customer actions. Counters are
// per-customer and purely in-memory; expiry is lazy, so correctness never
// depends on Cleanup running.
package abuse

import (
	"fmt"
	"sync"
	"time"
)

const (
	DefaultMessageLimit  = 20
	DefaultMessageWindow = 60 * time.Second
	DefaultOrderLimit    = 5
	DefaultErrorCooldown = 60 * time.Second
)

// Rejection reasons surfaced alongside the user-facing message.
const (
	ReasonMessageRateLimit = "message_rate_limit"
	ReasonDailyOrderLimit  = "daily_order_limit"
	ReasonErrorCooldown    = "error_cooldown"
)

// Decision is the outcome of an admission check. Message is ready to
// display; Reason is the machine-checkable code.
type Decision struct {
	Allowed    bool   `json:"allowed"`
	Remaining  int    `json:"remaining"`
	RetryAfter int    `json:"retry_after,omitempty"` // seconds
	Reason     string `json:"reason,omitempty"`
	Message    string `json:"message,omitempty"`
}

type messageWindow struct {
	count   int
	resetAt time.Time
}

type orderCounter struct {
	count int
	day   string // YYYY-MM-DD, calendar day, not rolling
}

type Guard struct {
	mu        sync.Mutex
	messages  map[string]*messageWindow
	orders    map[string]*orderCounter
	cooldowns map[string]time.Time

	messageLimit  int
	messageWindow time.Duration
	orderLimit    int
	cooldown      time.Duration
	now           func() time.Time
}

type Option func(*Guard)

func WithMessageLimit(limit int, window time.Duration) Option {
	return func(g *Guard) {
		g.messageLimit = limit
		g.messageWindow = window
	}
}

func WithOrderLimit(limit int) Option {
	return func(g *Guard) { g.orderLimit = limit }
}

func WithErrorCooldown(d time.Duration) Option {
	return func(g *Guard) { g.cooldown = d }
}

func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

func NewGuard(opts ...Option) *Guard {
	g := &Guard{
		messages:      make(map[string]*messageWindow),
		orders:        make(map[string]*orderCounter),
		cooldowns:     make(map[string]time.Time),
		messageLimit:  DefaultMessageLimit,
		messageWindow: DefaultMessageWindow,
		orderLimit:    DefaultOrderLimit,
		cooldown:      DefaultErrorCooldown,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CanSendMessage admits or rejects one inbound message. The first call in a
// window counts as use 1; calls past the limit are rejected until the window
// resets.
func (g *Guard) CanSendMessage(customerID string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	w := g.messages[customerID]
	if w == nil || !now.Before(w.resetAt) {
		g.messages[customerID] = &messageWindow{count: 1, resetAt: now.Add(g.messageWindow)}
		return Decision{Allowed: true, Remaining: g.messageLimit - 1}
	}

	w.count++
	if w.count > g.messageLimit {
		wait := ceilSeconds(w.resetAt.Sub(now))
		return Decision{
			Allowed:    false,
			RetryAfter: wait,
			Reason:     ReasonMessageRateLimit,
			Message:    fmt.Sprintf("Too many messages. Try again in %d seconds.", wait),
		}
	}
	return Decision{Allowed: true, Remaining: g.messageLimit - w.count}
}

// CanPlaceOrder admits or rejects an order attempt against the per-day cap.
// An allowed call consumes one slot.
func (g *Guard) CanPlaceOrder(customerID string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	today := g.now().Format("2006-01-02")
	c := g.orders[customerID]
	if c == nil || c.day != today {
		g.orders[customerID] = &orderCounter{count: 1, day: today}
		return Decision{Allowed: true, Remaining: g.orderLimit - 1}
	}

	if c.count >= g.orderLimit {
		return Decision{
			Allowed: false,
			Reason:  ReasonDailyOrderLimit,
			Message: fmt.Sprintf("Daily order limit reached (%d per day). Try again tomorrow.", g.orderLimit),
		}
	}
	c.count++
	return Decision{Allowed: true, Remaining: g.orderLimit - c.count}
}

// SetErrorCooldown puts a customer on a cooldown after repeated failures.
func (g *Guard) SetErrorCooldown(customerID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cooldowns[customerID] = g.now().Add(g.cooldown)
}

// InCooldown reports whether the customer is cooling down. An expired entry
// is removed on first check after expiry.
func (g *Guard) InCooldown(customerID string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	until, ok := g.cooldowns[customerID]
	if !ok {
		return Decision{Allowed: true}
	}
	now := g.now()
	if !now.Before(until) {
		delete(g.cooldowns, customerID)
		return Decision{Allowed: true}
	}
	wait := ceilSeconds(until.Sub(now))
	return Decision{
		Allowed:    false,
		RetryAfter: wait,
		Reason:     ReasonErrorCooldown,
		Message:    fmt.Sprintf("Too many errors. Please wait %d seconds.", wait),
	}
}

// Cleanup purges expired windows, stale day counters and elapsed cooldowns.
// Safe to call redundantly or never.
func (g *Guard) Cleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	today := now.Format("2006-01-02")
	for id, w := range g.messages {
		if !now.Before(w.resetAt) {
			delete(g.messages, id)
		}
	}
	for id, c := range g.orders {
		if c.day != today {
			delete(g.orders, id)
		}
	}
	for id, until := range g.cooldowns {
		if !now.Before(until) {
			delete(g.cooldowns, id)
		}
	}
}

// Stats is a read-only snapshot of one customer's counters.
type Stats struct {
	CustomerID       string `json:"customer_id"`
	MessagesInWindow int    `json:"messages_in_window"`
	MessageLimit     int    `json:"message_limit"`
	OrdersToday      int    `json:"orders_today"`
	OrderLimit       int    `json:"order_limit"`
	InCooldown       bool   `json:"in_cooldown"`
	CooldownSeconds  int    `json:"cooldown_seconds,omitempty"`
}

func (g *Guard) Stats(customerID string) Stats {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	s := Stats{
		CustomerID:   customerID,
		MessageLimit: g.messageLimit,
		OrderLimit:   g.orderLimit,
	}
	if w := g.messages[customerID]; w != nil && now.Before(w.resetAt) {
		s.MessagesInWindow = w.count
	}
	if c := g.orders[customerID]; c != nil && c.day == now.Format("2006-01-02") {
		s.OrdersToday = c.count
	}
	if until, ok := g.cooldowns[customerID]; ok && now.Before(until) {
		s.InCooldown = true
		s.CooldownSeconds = ceilSeconds(until.Sub(now))
	}
	return s
}

func ceilSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
