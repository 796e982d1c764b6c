// Package checkout routes checkout-related chat commands and runs the
// validate-then-commit pipeline that turns a cart into a pending order.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mnhidayatgani/chatbot-sub001/internal/audit"
	"github.com/mnhidayatgani/chatbot-sub001/internal/domain"
	"github.com/mnhidayatgani/chatbot-sub001/internal/promo"
	"github.com/mnhidayatgani/chatbot-sub001/internal/session"
)

// StockChecker is the stock collaborator. A lookup error is a collaborator
// failure, never "out of stock".
type StockChecker interface {
	IsInStock(ctx context.Context, productID string) (bool, error)
}

// OrderCreator persists the pending order minted by a successful checkout.
type OrderCreator interface {
	Create(ctx context.Context, order *domain.Order) error
}

// Reply is the chat response for the customer. Busy, empty-cart,
// out-of-stock and promo rejections are normal replies, not errors.
type Reply struct {
	Message string `json:"message"`
	OrderID string `json:"order_id,omitempty"`
}

type Orchestrator struct {
	sessions *session.Manager
	ledger   *promo.Ledger
	stock    StockChecker
	orders   OrderCreator
	sink     audit.Sink
	logger   *slog.Logger

	newOrderID func() string

	// one in-flight checkout pipeline per customer; a concurrent duplicate
	// is rejected, so one cart can never mint two orders
	inflight session.KeyedMutex
}

func NewOrchestrator(sessions *session.Manager, ledger *promo.Ledger, stock StockChecker, orders OrderCreator, sink audit.Sink, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		sessions:   sessions,
		ledger:     ledger,
		stock:      stock,
		orders:     orders,
		sink:       sink,
		logger:     logger,
		newOrderID: NewOrderID,
	}
}

// NewOrderID mints an ORD-<unix-millis>-<suffix> token. Uniqueness is
// probabilistic; the orders table's primary key turns the astronomically
// rare collision into an insert error instead of a silent overwrite.
func NewOrderID() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("ORD-%d-%s", time.Now().UnixMilli(), suffix)
}

// HandleMessage tokenizes a checkout-related command and dispatches it.
func (o *Orchestrator) HandleMessage(ctx context.Context, customerID, text string) (*Reply, error) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return o.prompt(), nil
	}

	switch strings.ToLower(fields[0]) {
	case "checkout", "buy", "order":
		return o.processCheckout(ctx, customerID)
	case "clear":
		return o.clearCart(ctx, customerID)
	case "promo":
		if len(fields) < 2 {
			return &Reply{Message: "Please provide a code: *promo <code>*."}, nil
		}
		return o.applyPromo(ctx, customerID, fields[1])
	default:
		return o.prompt(), nil
	}
}

func (o *Orchestrator) prompt() *Reply {
	return &Reply{Message: "Type *checkout* to place your order, *promo <code>* to apply a discount, or *clear* to empty your cart."}
}

func (o *Orchestrator) clearCart(ctx context.Context, customerID string) (*Reply, error) {
	if err := o.sessions.Clear(ctx, customerID); err != nil {
		return nil, fmt.Errorf("clear session: %w", err)
	}
	o.emit(ctx, customerID, domain.EventCartCleared, nil)
	return &Reply{Message: "Your cart has been cleared."}, nil
}

func (o *Orchestrator) applyPromo(ctx context.Context, customerID, code string) (*Reply, error) {
	code = promo.Normalize(code)

	res, err := o.ledger.ApplyPromo(ctx, code, customerID)
	if err != nil {
		return nil, fmt.Errorf("apply promo %s: %w", code, err)
	}
	if !res.OK {
		// session untouched on rejection
		return &Reply{Message: res.Message}, nil
	}

	if err := o.sessions.SetPromo(ctx, customerID, code, res.DiscountPercent); err != nil {
		return nil, fmt.Errorf("store promo selection: %w", err)
	}
	o.emit(ctx, customerID, domain.EventPromoApplied, map[string]any{
		"code":             code,
		"discount_percent": res.DiscountPercent,
	})
	return &Reply{Message: res.Message}, nil
}

// processCheckout runs the pipeline: promo re-check, stock check, totals,
// order mint. Session state changes only after every check has passed.
func (o *Orchestrator) processCheckout(ctx context.Context, customerID string) (*Reply, error) {
	unlock, ok := o.inflight.TryLock(customerID)
	if !ok {
		return &Reply{Message: "Your previous checkout is still being processed. Please wait a moment."}, nil
	}
	defer unlock()

	sess, err := o.sessions.Snapshot(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if len(sess.Cart) == 0 {
		return &Reply{Message: "Your cart is empty. Add a product before checking out."}, nil
	}

	discountPercent, err := o.resolveDiscount(ctx, customerID, sess)
	if err != nil {
		return nil, err
	}

	if reply, err := o.checkStock(ctx, customerID, sess.Cart); err != nil || reply != nil {
		return reply, err
	}

	subtotal := sess.CartTotal()
	total := subtotal
	promoCode := ""
	if discountPercent > 0 {
		total = promo.CalculateDiscount(subtotal, discountPercent).FinalAmount
		promoCode = sess.PromoCode
	}

	orderID := o.newOrderID()

	if o.orders != nil {
		order := &domain.Order{
			ID:              orderID,
			CustomerID:      customerID,
			Lines:           sess.Cart,
			Subtotal:        subtotal,
			PromoCode:       promoCode,
			DiscountPercent: discountPercent,
			Total:           total,
			Status:          domain.OrderStatusAwaitingPayment,
			CreatedAt:       time.Now().UTC(),
		}
		if err := o.orders.Create(ctx, order); err != nil {
			return nil, fmt.Errorf("persist order %s: %w", orderID, err)
		}
	}

	committed, err := o.sessions.Update(ctx, customerID, func(s *domain.Session) error {
		s.OrderID = orderID
		s.Step = domain.StepSelectPayment
		// the redemption is spent on this order; the next checkout starts
		// undiscounted
		s.PromoCode = ""
		s.DiscountPercent = 0
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("commit session: %w", err)
	}

	o.emit(ctx, customerID, domain.EventCheckoutInitiated, map[string]any{
		"order_id":   orderID,
		"item_count": len(committed.Cart),
		"total":      total,
	})
	o.logger.Info("checkout initiated", "customer_id", customerID, "order_id", orderID, "items", len(committed.Cart), "total", total)

	return &Reply{
		Message: o.orderSummary(orderID, sess.Cart, subtotal, promoCode, discountPercent, total),
		OrderID: orderID,
	}, nil
}

// resolveDiscount re-applies the session's promo at commit time. A promo
// this customer already redeemed (the normal path, since the promo command
// redeems on application) keeps its discount; any other rejection silently
// drops the promo from the session and checkout continues undiscounted.
// The successful-checkout commit clears the promo fields, so a redemption
// discounts exactly one order.
func (o *Orchestrator) resolveDiscount(ctx context.Context, customerID string, sess *domain.Session) (int, error) {
	if sess.PromoCode == "" {
		return 0, nil
	}

	res, err := o.ledger.ApplyPromo(ctx, sess.PromoCode, customerID)
	if err != nil {
		return 0, fmt.Errorf("recheck promo %s: %w", sess.PromoCode, err)
	}

	percent := 0
	switch {
	case res.OK:
		percent = res.DiscountPercent
	case res.Reason == promo.ReasonAlreadyUsed:
		percent = sess.DiscountPercent
	default:
		if err := o.sessions.ClearPromo(ctx, customerID); err != nil {
			return 0, fmt.Errorf("drop stale promo: %w", err)
		}
		sess.PromoCode = ""
		sess.DiscountPercent = 0
		return 0, nil
	}

	o.emit(ctx, customerID, domain.EventPromoCodeApplied, map[string]any{
		"code":             sess.PromoCode,
		"discount_percent": percent,
	})
	return percent, nil
}

// checkStock queries every distinct product in the cart. All out-of-stock
// products are reported at once; no partial order is ever created.
func (o *Orchestrator) checkStock(ctx context.Context, customerID string, cart []domain.CartLine) (*Reply, error) {
	seen := make(map[string]bool)
	var outIDs []string
	var outNames []string

	for _, line := range cart {
		if seen[line.ProductID] {
			continue
		}
		seen[line.ProductID] = true

		inStock, err := o.stock.IsInStock(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("stock lookup for %s: %w", line.ProductID, err)
		}
		if !inStock {
			outIDs = append(outIDs, line.ProductID)
			outNames = append(outNames, line.Name)
		}
	}

	if len(outIDs) == 0 {
		return nil, nil
	}

	o.emit(ctx, customerID, domain.EventCheckoutOutOfStock, map[string]any{
		"product_ids": outIDs,
	})
	return &Reply{
		Message: fmt.Sprintf("Sorry, the following items are out of stock: %s. Please remove them and try again.", strings.Join(outNames, ", ")),
	}, nil
}

func (o *Orchestrator) orderSummary(orderID string, cart []domain.CartLine, subtotal int64, promoCode string, discountPercent int, total int64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s created!\n\n", orderID)
	for i, line := range cart {
		fmt.Fprintf(&b, "%d. %s - %d\n", i+1, line.Name, line.UnitPrice)
	}
	if promoCode != "" {
		fmt.Fprintf(&b, "\nSubtotal: %d\nPromo %s: -%d%%\n", subtotal, promoCode, discountPercent)
	}
	fmt.Fprintf(&b, "\nTotal: %d\n\nPlease select a payment method.", total)
	return b.String()
}

// emit is fire-and-forget: the audit sink never fails a business operation.
func (o *Orchestrator) emit(ctx context.Context, customerID, name string, details map[string]any) {
	if o.sink == nil {
		return
	}
	if err := o.sink.Log(ctx, customerID, name, details); err != nil {
		o.logger.Error("failed to log audit event", "error", err, "event", name, "customer_id", customerID)
	}
}
