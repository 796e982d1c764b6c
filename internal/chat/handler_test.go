package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mnhidayatgani/chatbot-sub001/internal/abuse"
	"github.com/mnhidayatgani/chatbot-sub001/internal/audit"
	"github.com/mnhidayatgani/chatbot-sub001/internal/checkout"
	"github.com/mnhidayatgani/chatbot-sub001/internal/domain"
	"github.com/mnhidayatgani/chatbot-sub001/internal/promo"
	"github.com/mnhidayatgani/chatbot-sub001/internal/session"
)

type stubCatalog struct {
	products []domain.Product
	err      error
}

func (s *stubCatalog) ListAll(ctx context.Context) ([]domain.Product, error) {
	return s.products, s.err
}

func (s *stubCatalog) Get(ctx context.Context, productID string) (*domain.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, p := range s.products {
		if p.ID == productID {
			return &p, nil
		}
	}
	return nil, nil
}

type allInStock struct{}

func (allInStock) IsInStock(ctx context.Context, productID string) (bool, error) {
	return true, nil
}

type discardOrders struct{}

func (discardOrders) Create(ctx context.Context, order *domain.Order) error {
	return nil
}

func newTestHandler(t *testing.T, catalog ProductSource, opts ...abuse.Option) *Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewManager(session.NewMemoryStore())
	ledger := promo.NewLedger(promo.NewMemoryStore(), logger)
	orch := checkout.NewOrchestrator(sessions, ledger, allInStock{}, discardOrders{}, audit.NewMemorySink(), logger)
	return NewHandler(abuse.NewGuard(opts...), orch, sessions, catalog, logger)
}

func postMessage(t *testing.T, h *Handler, customerID, text string) (int, outboundReply) {
	t.Helper()

	body, err := json.Marshal(inboundMessage{CustomerID: customerID, Text: text})
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/chat/messages", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleMessage(w, req)

	var reply outboundReply
	if w.Code == http.StatusOK {
		if err := json.NewDecoder(w.Body).Decode(&reply); err != nil {
			t.Fatalf("failed to decode reply: %v", err)
		}
	}
	return w.Code, reply
}

func TestHandleMessage_RequiresCustomerID(t *testing.T) {
	h := newTestHandler(t, &stubCatalog{})

	code, _ := postMessage(t, h, "", "menu")
	if code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", code)
	}
}

func TestHandleMessage_BrowseAddAndCheckout(t *testing.T) {
	h := newTestHandler(t, &stubCatalog{products: []domain.Product{
		{ID: "p1", Name: "Coffee Beans", Price: 25000, InStock: true},
		{ID: "p2", Name: "Grinder", Price: 150000, InStock: false},
	}})

	code, reply := postMessage(t, h, "cust-1", "menu")
	if code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	if !strings.Contains(reply.Message, "Coffee Beans") || !strings.Contains(reply.Message, "out of stock") {
		t.Errorf("unexpected menu reply: %q", reply.Message)
	}

	_, reply = postMessage(t, h, "cust-1", "add p1")
	if !strings.Contains(reply.Message, "Coffee Beans added") {
		t.Errorf("unexpected add reply: %q", reply.Message)
	}

	_, reply = postMessage(t, h, "cust-1", "cart")
	if !strings.Contains(reply.Message, "Total: 25000") {
		t.Errorf("unexpected cart reply: %q", reply.Message)
	}

	_, reply = postMessage(t, h, "cust-1", "checkout")
	if reply.OrderID == "" {
		t.Fatalf("expected an order id, got reply %q", reply.Message)
	}

	sess, err := h.sessions.Snapshot(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("failed to read session: %v", err)
	}
	if sess.Step != domain.StepSelectPayment {
		t.Errorf("expected step %s, got %s", domain.StepSelectPayment, sess.Step)
	}
}

func TestHandleMessage_UnknownProduct(t *testing.T) {
	h := newTestHandler(t, &stubCatalog{})

	_, reply := postMessage(t, h, "cust-1", "add nope")
	if !strings.Contains(reply.Message, "not found") {
		t.Errorf("unexpected reply: %q", reply.Message)
	}
}

func TestHandleMessage_RateLimitedReplyIsForwardable(t *testing.T) {
	h := newTestHandler(t, &stubCatalog{}, abuse.WithMessageLimit(2, time.Minute))

	postMessage(t, h, "cust-1", "menu")
	postMessage(t, h, "cust-1", "menu")

	code, reply := postMessage(t, h, "cust-1", "menu")
	if code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	if reply.Reason != abuse.ReasonMessageRateLimit {
		t.Errorf("expected reason %s, got %s", abuse.ReasonMessageRateLimit, reply.Reason)
	}
	if reply.Message == "" {
		t.Error("expected a customer-facing message")
	}
}

func TestHandleMessage_DailyOrderLimit(t *testing.T) {
	h := newTestHandler(t, &stubCatalog{products: []domain.Product{
		{ID: "p1", Name: "Coffee Beans", Price: 25000, InStock: true},
	}}, abuse.WithOrderLimit(1))

	postMessage(t, h, "cust-1", "add p1")
	_, reply := postMessage(t, h, "cust-1", "checkout")
	if reply.OrderID == "" {
		t.Fatalf("expected first checkout to succeed, got %q", reply.Message)
	}

	postMessage(t, h, "cust-1", "add p1")
	_, reply = postMessage(t, h, "cust-1", "checkout")
	if reply.Reason != abuse.ReasonDailyOrderLimit {
		t.Errorf("expected reason %s, got %s", abuse.ReasonDailyOrderLimit, reply.Reason)
	}
}

func TestHandleMessage_CollaboratorFailureSetsCooldown(t *testing.T) {
	h := newTestHandler(t, &stubCatalog{err: errors.New("catalog down")})

	code, _ := postMessage(t, h, "cust-1", "menu")
	if code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", code)
	}

	code, reply := postMessage(t, h, "cust-1", "menu")
	if code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
	if reply.Reason != abuse.ReasonErrorCooldown {
		t.Errorf("expected reason %s, got %s", abuse.ReasonErrorCooldown, reply.Reason)
	}
}

func TestHandleStats(t *testing.T) {
	h := newTestHandler(t, &stubCatalog{})
	postMessage(t, h, "cust-1", "menu")

	req := httptest.NewRequest(http.MethodGet, "/chat/stats/cust-1", nil)
	req.SetPathValue("customerId", "cust-1")
	w := httptest.NewRecorder()
	h.HandleStats(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var stats map[string]any
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats["messages_in_window"] != float64(1) {
		t.Errorf("expected 1 message in window, got %v", stats["messages_in_window"])
	}
}
