package purchase

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

// Handler wires HTTP endpoints for purchase orders.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the purchase handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers purchase order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{orderID}", h.handleGet)
	r.Post("/{orderID}/receive", h.handleReceive)
}

type createRequest struct {
	VendorName   string              `json:"vendor_name" validate:"required"`
	VendorEmail  string              `json:"vendor_email" validate:"omitempty,email"`
	ExpectedDate *time.Time          `json:"expected_date"`
	Items        []createItemRequest `json:"items" validate:"required,min=1,dive"`
}

type createItemRequest struct {
	ProductID int64   `json:"product_id" validate:"required"`
	Quantity  int64   `json:"quantity" validate:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" validate:"gte=0"`
}

type orderResponse struct {
	Order
	Items []Item `json:"items,omitempty"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	input := CreateInput{
		VendorName:   req.VendorName,
		VendorEmail:  req.VendorEmail,
		ExpectedDate: req.ExpectedDate,
		Actor:        r.Header.Get("X-Actor"),
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, ItemInput{ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	order, items, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, orderResponse{Order: order, Items: items})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	orders, err := h.service.List(r.Context(), limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if orders == nil {
		orders = []Order{}
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid order id", err.Error())
		return
	}
	order, items, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orderResponse{Order: order, Items: items})
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid order id", err.Error())
		return
	}
	order, err := h.service.Receive(r.Context(), id, r.Header.Get("X-Actor"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, orderResponse{Order: order})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Purchase order not found", err.Error())
	case errors.Is(err, ErrProductNotFound):
		httpx.Problem(w, http.StatusNotFound, "Product not found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Invalid purchase order", err.Error())
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Invalid state", err.Error())
	case errors.Is(err, ErrNumberConflict):
		httpx.Problem(w, http.StatusConflict, "Order number conflict", err.Error())
	default:
		h.logger.Error("purchase request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal error", "unexpected error")
	}
}
