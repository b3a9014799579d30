package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atlas-wms/atlas-wms/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the product catalog.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/near-expiry", h.handleNearExpiry)
	r.Get("/{productID}", h.handleGet)
	r.Put("/{productID}", h.handleUpdate)
	r.Delete("/{productID}", h.handleDelete)
}

type productRequest struct {
	Name          string     `json:"name" validate:"required"`
	SKU           string     `json:"sku" validate:"required"`
	StockQuantity int64      `json:"stock_quantity" validate:"gte=0"`
	Price         float64    `json:"price" validate:"gte=0"`
	LocationCode  *string    `json:"location_code"`
	Perishable    bool       `json:"perishable"`
	ExpiryDate    *time.Time `json:"expiry_date"`
}

type listResponse struct {
	Items []Product `json:"items"`
	Total int       `json:"total"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	page, _ := strconv.Atoi(q.Get("page"))
	products, total, err := h.service.List(r.Context(), ListFilters{Search: q.Get("search"), Limit: limit, Page: page})
	if err != nil {
		h.respondError(w, err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: products, Total: total})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	product, err := h.service.Create(r.Context(), CreateInput{
		Name:          req.Name,
		SKU:           req.SKU,
		StockQuantity: req.StockQuantity,
		Price:         req.Price,
		LocationCode:  req.LocationCode,
		Perishable:    req.Perishable,
		ExpiryDate:    req.ExpiryDate,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid product id", err.Error())
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid product id", err.Error())
		return
	}
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	product, err := h.service.Update(r.Context(), id, UpdateInput{
		Name:         req.Name,
		SKU:          req.SKU,
		Price:        req.Price,
		LocationCode: req.LocationCode,
		Perishable:   req.Perishable,
		ExpiryDate:   req.ExpiryDate,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid product id", err.Error())
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleNearExpiry(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	products, err := h.service.NearExpiry(r.Context(), days)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if products == nil {
		products = []Product{}
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Product not found", err.Error())
	case errors.Is(err, ErrSKUConflict):
		httpx.Problem(w, http.StatusConflict, "SKU already exists", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Invalid product", err.Error())
	default:
		h.logger.Error("catalog request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal error", "unexpected error")
	}
}

func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
}
