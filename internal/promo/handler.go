package promo

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// Handler exposes the admin surface of the ledger.
type Handler struct {
	ledger *Ledger
	logger *slog.Logger
}

func NewHandler(ledger *Ledger, logger *slog.Logger) *Handler {
	return &Handler{
		ledger: ledger,
		logger: logger,
	}
}

type createPromoRequest struct {
	Code            string `json:"code"`
	DiscountPercent int    `json:"discount_percent"`
	ExpiryDays      int    `json:"expiry_days"`
	MaxUses         int    `json:"max_uses"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createPromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	promo, err := h.ledger.CreatePromo(r.Context(), req.Code, req.DiscountPercent, req.ExpiryDays, req.MaxUses)
	if err != nil {
		if errors.Is(err, ErrInvalid) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, ErrExists) {
			h.writeError(w, http.StatusConflict, "promo code already exists")
			return
		}
		h.logger.Error("failed to create promo", "error", err, "code", req.Code)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusCreated, promo)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		h.writeError(w, http.StatusBadRequest, "missing promo code")
		return
	}

	promo, err := h.ledger.GetPromo(r.Context(), code)
	if err != nil {
		h.logger.Error("failed to get promo", "error", err, "code", code)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if promo == nil {
		h.writeError(w, http.StatusNotFound, "promo code not found")
		return
	}

	h.writeJSON(w, http.StatusOK, promo)
}

func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		h.writeError(w, http.StatusBadRequest, "missing promo code")
		return
	}

	if err := h.ledger.DeactivatePromo(r.Context(), code); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "promo code not found")
			return
		}
		h.logger.Error("failed to deactivate promo", "error", err, "code", code)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("promo deactivated", "code", code)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	if code == "" {
		h.writeError(w, http.StatusBadRequest, "missing promo code")
		return
	}

	if err := h.ledger.DeletePromo(r.Context(), code); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "promo code not found")
			return
		}
		h.logger.Error("failed to delete promo", "error", err, "code", code)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("promo deleted", "code", code)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) HandleCustomerUsage(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customerId")
	if customerID == "" {
		h.writeError(w, http.StatusBadRequest, "missing customer id")
		return
	}

	codes, err := h.ledger.CustomerUsage(r.Context(), customerID)
	if err != nil {
		h.logger.Error("failed to list customer usage", "error", err, "customer_id", customerID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"customer_id": customerID, "codes": codes})
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
