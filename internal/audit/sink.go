// Package audit publishes and consumes the storefront's business event
// trail. Sinks are fire-and-forget from the caller's point of view: a sink
// failure must never fail the business operation that produced the event.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mnhidayatgani/chatbot-sub001/internal/domain"
)

// Sink receives business events keyed by customer.
type Sink interface {
	Log(ctx context.Context, customerID, name string, details map[string]any) error
}

// SlogSink writes events to the structured log. It is the fallback when no
// kafka brokers are configured.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Log(_ context.Context, customerID, name string, details map[string]any) error {
	s.logger.Info("audit event", "customer_id", customerID, "event", name, "details", details)
	return nil
}

// MemorySink collects events in memory for tests.
type MemorySink struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Log(_ context.Context, customerID, name string, details map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, domain.AuditEvent{
		CustomerID: customerID,
		Name:       name,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	})
	return nil
}

func (s *MemorySink) Events() []domain.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Names returns the event names in emission order.
func (s *MemorySink) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.events))
	for i, e := range s.events {
		names[i] = e.Name
	}
	return names
}
