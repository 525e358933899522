package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/rl1809/checkout/internal/core/domain"
	"github.com/rl1809/checkout/internal/core/service"
	"github.com/rl1809/checkout/internal/port"
)

type HTTPHandler struct {
	checkout  *service.CheckoutService
	inventory port.InventoryRepository
	logger    zerolog.Logger
}

func NewHTTPHandler(checkout *service.CheckoutService, inventory port.InventoryRepository, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{checkout: checkout, inventory: inventory, logger: logger}
}

// Register wires all routes onto the mux. The purchase endpoint is what the
// gateway forwards carts to; the catalog routes are plain read/seed plumbing.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/purchase", h.Purchase)
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)
	mux.HandleFunc("POST /api/products", h.CreateProduct)
	mux.HandleFunc("GET /health", h.HealthCheck)
}

type purchaseItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type purchaseRequest struct {
	RequestID string         `json:"request_id"`
	Items     []purchaseItem `json:"items"`
}

type purchaseResponse struct {
	Success       bool                      `json:"success"`
	Message       string                    `json:"message,omitempty"`
	ReservationID string                    `json:"reservation_id,omitempty"`
	Products      []productPayload          `json:"products,omitempty"`
	Insufficient  []domain.InsufficientItem `json:"insufficient,omitempty"`
}

type productPayload struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

func toProductPayloads(products []domain.Product) []productPayload {
	payloads := make([]productPayload, len(products))
	for i, p := range products {
		payloads[i] = productPayload{ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock}
	}
	return payloads
}

func (h *HTTPHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, purchaseResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	cart := make(domain.Cart, len(req.Items))
	for i, item := range req.Items {
		cart[i] = domain.CartLine{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	receipt, err := h.checkout.Purchase(r.Context(), req.RequestID, cart)
	if err != nil {
		h.writePurchaseError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, purchaseResponse{
		Success:       true,
		Message:       "purchase fulfilled",
		ReservationID: receipt.ReservationID,
		Products:      toProductPayloads(receipt.Products),
	})
}

func (h *HTTPHandler) writePurchaseError(w http.ResponseWriter, err error) {
	var insufficient *service.InsufficientStockError

	switch {
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrNonPositiveQuantity),
		errors.Is(err, domain.ErrQuantityTooLarge):
		writeJSON(w, http.StatusBadRequest, purchaseResponse{
			Success: false,
			Message: err.Error(),
		})
	case errors.As(err, &insufficient):
		writeJSON(w, http.StatusUnprocessableEntity, purchaseResponse{
			Success:      false,
			Message:      "insufficient stock",
			Insufficient: insufficient.Items,
		})
	case errors.Is(err, service.ErrDuplicateRequest):
		writeJSON(w, http.StatusConflict, purchaseResponse{
			Success: false,
			Message: "duplicate request",
		})
	case errors.Is(err, service.ErrContentionExhausted):
		writeJSON(w, http.StatusConflict, purchaseResponse{
			Success: false,
			Message: "too much contention, retry later",
		})
	default:
		h.logger.Error().Err(err).Msg("purchase failed")
		writeJSON(w, http.StatusInternalServerError, purchaseResponse{
			Success: false,
			Message: "internal error",
		})
	}
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.inventory.ListProducts(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list products failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toProductPayloads(products))
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	p, err := h.inventory.GetProduct(r.Context(), id)
	if errors.Is(err, port.ErrProductNotFound) {
		http.Error(w, "product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Int64("product_id", id).Msg("get product failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, productPayload{ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock})
}

type createProductRequest struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Price < 0 || req.Stock < 0 {
		http.Error(w, "missing or invalid fields", http.StatusBadRequest)
		return
	}

	p, err := h.inventory.CreateProduct(r.Context(), domain.Product{
		Name:  req.Name,
		Price: req.Price,
		Stock: req.Stock,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("create product failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, productPayload{ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
