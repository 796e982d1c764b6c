// Package chat is the inbound webhook for the messaging transport: it gates
// every message through the abuse guard, handles browsing commands and hands
// checkout commands to the orchestrator.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mnhidayatgani/chatbot-sub001/internal/abuse"
	"github.com/mnhidayatgani/chatbot-sub001/internal/checkout"
	"github.com/mnhidayatgani/chatbot-sub001/internal/domain"
	"github.com/mnhidayatgani/chatbot-sub001/internal/session"
)

// ProductSource is the catalog collaborator for browsing and cart adds.
type ProductSource interface {
	ListAll(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, productID string) (*domain.Product, error)
}

type Handler struct {
	guard    *abuse.Guard
	orch     *checkout.Orchestrator
	sessions *session.Manager
	catalog  ProductSource
	logger   *slog.Logger
}

func NewHandler(guard *abuse.Guard, orch *checkout.Orchestrator, sessions *session.Manager, catalog ProductSource, logger *slog.Logger) *Handler {
	return &Handler{
		guard:    guard,
		orch:     orch,
		sessions: sessions,
		catalog:  catalog,
		logger:   logger,
	}
}

type inboundMessage struct {
	CustomerID string `json:"customer_id"`
	Text       string `json:"text"`
}

type outboundReply struct {
	Message string `json:"message"`
	OrderID string `json:"order_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// HandleMessage always answers 200 with a ready-to-forward reply; the
// transport relays Message to the customer as-is. Collaborator failures are
// the only 500s, and they put the customer on an error cooldown.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var msg inboundMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil || msg.CustomerID == "" {
		h.writeError(w, http.StatusBadRequest, "customer_id and text are required")
		return
	}

	if d := h.guard.InCooldown(msg.CustomerID); !d.Allowed {
		h.writeJSON(w, http.StatusOK, outboundReply{Message: d.Message, Reason: d.Reason})
		return
	}
	if d := h.guard.CanSendMessage(msg.CustomerID); !d.Allowed {
		h.writeJSON(w, http.StatusOK, outboundReply{Message: d.Message, Reason: d.Reason})
		return
	}

	reply, err := h.route(r.Context(), msg.CustomerID, msg.Text)
	if err != nil {
		h.guard.SetErrorCooldown(msg.CustomerID)
		h.logger.Error("failed to handle message", "error", err, "customer_id", msg.CustomerID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, *reply)
}

func (h *Handler) route(ctx context.Context, customerID, text string) (*outboundReply, error) {
	fields := strings.Fields(strings.TrimSpace(text))
	command := ""
	if len(fields) > 0 {
		command = strings.ToLower(fields[0])
	}

	switch command {
	case "menu", "list":
		return h.listProducts(ctx)
	case "add":
		if len(fields) < 2 {
			return &outboundReply{Message: "Please name a product: *add <product>*."}, nil
		}
		return h.addToCart(ctx, customerID, strings.ToLower(fields[1]))
	case "cart":
		return h.showCart(ctx, customerID)
	case "checkout", "buy", "order":
		if d := h.guard.CanPlaceOrder(customerID); !d.Allowed {
			return &outboundReply{Message: d.Message, Reason: d.Reason}, nil
		}
	}

	reply, err := h.orch.HandleMessage(ctx, customerID, text)
	if err != nil {
		return nil, err
	}
	return &outboundReply{Message: reply.Message, OrderID: reply.OrderID}, nil
}

func (h *Handler) listProducts(ctx context.Context) (*outboundReply, error) {
	products, err := h.catalog.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		return &outboundReply{Message: "No products available right now."}, nil
	}

	var b strings.Builder
	b.WriteString("Available products:\n")
	for _, p := range products {
		status := ""
		if !p.InStock {
			status = " (out of stock)"
		}
		fmt.Fprintf(&b, "- %s: %s - %d%s\n", p.ID, p.Name, p.Price, status)
	}
	b.WriteString("\nType *add <product>* to add one to your cart.")
	return &outboundReply{Message: b.String()}, nil
}

func (h *Handler) addToCart(ctx context.Context, customerID, productID string) (*outboundReply, error) {
	product, err := h.catalog.Get(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("look up product %s: %w", productID, err)
	}
	if product == nil {
		return &outboundReply{Message: fmt.Sprintf("Product %q not found. Type *menu* to see what's available.", productID)}, nil
	}

	err = h.sessions.AddToCart(ctx, customerID, domain.CartLine{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
	})
	if err != nil {
		return nil, fmt.Errorf("add to cart: %w", err)
	}

	if err := h.sessions.SetStep(ctx, customerID, domain.StepBrowsing); err != nil {
		return nil, fmt.Errorf("update step: %w", err)
	}

	return &outboundReply{Message: fmt.Sprintf("%s added to your cart. Type *checkout* when you're ready.", product.Name)}, nil
}

func (h *Handler) showCart(ctx context.Context, customerID string) (*outboundReply, error) {
	sess, err := h.sessions.Snapshot(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if len(sess.Cart) == 0 {
		return &outboundReply{Message: "Your cart is empty. Type *menu* to browse products."}, nil
	}

	var b strings.Builder
	b.WriteString("Your cart:\n")
	for i, line := range sess.Cart {
		fmt.Fprintf(&b, "%d. %s - %d\n", i+1, line.Name, line.UnitPrice)
	}
	fmt.Fprintf(&b, "\nTotal: %d", sess.CartTotal())
	if sess.PromoCode != "" {
		fmt.Fprintf(&b, " (promo %s: -%d%%)", sess.PromoCode, sess.DiscountPercent)
	}
	return &outboundReply{Message: b.String()}, nil
}

// HandleStats is a read-only diagnostics endpoint over the abuse guard.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customerId")
	if customerID == "" {
		h.writeError(w, http.StatusBadRequest, "missing customer id")
		return
	}

	h.writeJSON(w, http.StatusOK, h.guard.Stats(customerID))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
