package orders

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mnhidayatgani/chatbot-sub001/internal/audit"
	"github.com/mnhidayatgani/chatbot-sub001/internal/domain"
)

// Handler is the admin surface for pending orders: lookup, per-customer
// history and the approve/reject decision.
type Handler struct {
	repo   *Repository
	sink   audit.Sink
	logger *slog.Logger
}

func NewHandler(repo *Repository, sink audit.Sink, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		sink:   sink,
		logger: logger,
	}
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleListByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customerId")
	if customerID == "" {
		h.writeError(w, http.StatusBadRequest, "missing customer id")
		return
	}

	list, err := h.repo.ListByCustomer(r.Context(), customerID)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, "customer_id", customerID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, list)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

var validStatuses = map[domain.OrderStatus]bool{
	domain.OrderStatusAwaitingPayment:  true,
	domain.OrderStatusAwaitingApproval: true,
	domain.OrderStatusApproved:         true,
	domain.OrderStatusRejected:         true,
	domain.OrderStatusCancelled:        true,
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validStatuses[req.Status] {
		h.writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	order, err := h.repo.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.logger.Error("failed to update order status", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	switch req.Status {
	case domain.OrderStatusApproved:
		h.emit(r, order, domain.EventOrderApproved)
	case domain.OrderStatusRejected:
		h.emit(r, order, domain.EventOrderRejected)
	}

	h.logger.Info("order status updated", "order_id", order.ID, "status", order.Status)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) emit(r *http.Request, order *domain.Order, name string) {
	if h.sink == nil {
		return
	}
	err := h.sink.Log(r.Context(), order.CustomerID, name, map[string]any{
		"order_id": order.ID,
		"total":    order.Total,
	})
	if err != nil {
		h.logger.Error("failed to log audit event", "error", err, "event", name, "order_id", order.ID)
	}
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
