package sales

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atlas-wms/atlas-wms/internal/ledger"
	"github.com/atlas-wms/atlas-wms/internal/platform/httpx"
)

// Handler wires HTTP endpoints for sales orders.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the sales handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers sales order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{orderID}", h.handleGet)
	r.Post("/{orderID}/confirm", h.transitionHandler((*Service).Confirm))
	r.Post("/{orderID}/ship", h.transitionHandler((*Service).Ship))
	r.Post("/{orderID}/complete", h.transitionHandler((*Service).Complete))
	r.Post("/{orderID}/cancel", h.transitionHandler((*Service).Cancel))
}

type createRequest struct {
	CustomerName string              `json:"customer_name" validate:"required"`
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
	input := CreateInput{CustomerName: req.CustomerName, Actor: r.Header.Get("X-Actor")}
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

func (h *Handler) transitionHandler(fn func(*Service, context.Context, int64, string) (Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid order id", err.Error())
			return
		}
		order, err := fn(h.service, r.Context(), id, r.Header.Get("X-Actor"))
		if err != nil {
			h.respondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, orderResponse{Order: order})
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Sales order not found", err.Error())
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ledger.ErrProductNotFound):
		httpx.Problem(w, http.StatusNotFound, "Product not found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Invalid sales order", err.Error())
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Invalid state", err.Error())
	case errors.Is(err, ledger.ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient stock", err.Error())
	case errors.Is(err, ErrNumberConflict):
		httpx.Problem(w, http.StatusConflict, "Order number conflict", err.Error())
	default:
		h.logger.Error("sales request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal error", "unexpected error")
	}
}
