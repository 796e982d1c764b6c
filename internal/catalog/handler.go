package catalog

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type Handler struct {
	repo   *Repository
	logger *slog.Logger
}

func NewHandler(repo *Repository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.repo.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	product, err := h.repo.Get(r.Context(), productID)
	if err != nil {
		h.logger.Error("failed to get product", "error", err, "product_id", productID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if product == nil {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.writeJSON(w, http.StatusOK, product)
}

type setStockRequest struct {
	InStock bool `json:"in_stock"`
}

func (h *Handler) HandleSetStock(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var req setStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	found, err := h.repo.SetStock(r.Context(), productID, req.InStock)
	if err != nil {
		h.logger.Error("failed to set stock", "error", err, "product_id", productID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !found {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}

	h.logger.Info("stock updated", "product_id", productID, "in_stock", req.InStock)
	h.writeJSON(w, http.StatusOK, map[string]any{"product_id": productID, "in_stock": req.InStock})
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
