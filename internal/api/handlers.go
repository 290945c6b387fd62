package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/maltedev/catalog-crawler/internal/database"
)

type Handlers struct {
	products *database.ProductStore
	relay    *database.Relay
	logger   *slog.Logger
}

func NewHandlers(products *database.ProductStore, relay *database.Relay, logger *slog.Logger) *Handlers {
	return &Handlers{
		products: products,
		relay:    relay,
		logger:   logger,
	}
}

// GetProduct returns one stored product by its natural key.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if key == "" {
		h.respondError(w, http.StatusBadRequest, "product key is required")
		return
	}

	product, err := h.products.Get(r.Context(), key)
	if err != nil {
		h.logger.Error("failed to get product", "key", key, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get product")
		return
	}
	if product == nil {
		h.respondError(w, http.StatusNotFound, "product not found")
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

// ListProducts returns the most recently stored products.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit > 500 {
		limit = 500
	}
	offset := queryInt(r, "offset", 0)

	products, err := h.products.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

// StatsResponse summarizes stored products and outbox health.
type StatsResponse struct {
	ProductsByCountry map[string]int `json:"products_by_country"`
	OutboxPending     int64          `json:"outbox_pending"`
	OutboxDeadLetter  int64          `json:"outbox_dead_letter"`
}

// GetStats returns store and outbox counters.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.products.CountByCountry(r.Context())
	if err != nil {
		h.logger.Error("failed to get stats", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	resp := StatsResponse{ProductsByCountry: counts}
	if h.relay != nil {
		if pending, err := h.relay.GetPendingCount(r.Context()); err == nil {
			resp.OutboxPending = pending
		}
		if dead, err := h.relay.GetDeadLetterCount(r.Context()); err == nil {
			resp.OutboxDeadLetter = dead
		}
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if value := r.URL.Query().Get(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil && i >= 0 {
			return i
		}
	}
	return defaultValue
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
