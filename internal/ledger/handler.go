package ledger

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

// Handler wires HTTP endpoints for the stock ledger.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/adjustments", h.handleAdjustment)
	r.Get("/movements", h.handleListMovements)
	r.Get("/products/{productID}/movements", h.handleProductMovements)
}

type adjustmentRequest struct {
	ProductID int64  `json:"product_id" validate:"required"`
	Direction string `json:"direction" validate:"required,oneof=IN OUT"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
	Reason    string `json:"reason" validate:"required"`
}

type movementResponse struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Direction string    `json:"direction"`
	Quantity  int64     `json:"quantity"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func toMovementResponse(m Movement) movementResponse {
	return movementResponse{
		ID:        m.ID,
		ProductID: m.ProductID,
		Direction: string(m.Direction),
		Quantity:  m.Quantity,
		Reason:    m.Reason,
		CreatedAt: m.CreatedAt,
	}
}

func (h *Handler) handleAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	direction, err := ParseDirection(req.Direction)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid adjustment", err.Error())
		return
	}
	movement, err := h.service.AdjustStock(r.Context(), AdjustmentInput{
		ProductID: req.ProductID,
		Direction: direction,
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		Actor:     r.Header.Get("X-Actor"),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toMovementResponse(movement))
}

func (h *Handler) handleListMovements(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.service.ListMovements(r.Context(), MovementFilter{Limit: limit})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]movementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, toMovementResponse(m))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleProductMovements(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid product id", err.Error())
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.service.ListProductMovements(r.Context(), productID, limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]movementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, toMovementResponse(m))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound):
		httpx.Problem(w, http.StatusNotFound, "Product not found", err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidDirection):
		httpx.Problem(w, http.StatusBadRequest, "Invalid adjustment", err.Error())
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient stock", err.Error())
	default:
		h.logger.Error("ledger request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal error", "unexpected error")
	}
}
