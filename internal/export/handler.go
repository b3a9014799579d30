package export

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atlas-wms/atlas-wms/internal/platform/httpx"
	"github.com/atlas-wms/atlas-wms/internal/sales"
)

// Handler wires HTTP endpoints for document export.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the export handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers export routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales-orders/{orderID}/picking-slip", h.handlePickingSlip)
}

func (h *Handler) handlePickingSlip(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid order id", err.Error())
		return
	}
	pdf, err := h.service.PickingSlip(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, sales.ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Sales order not found", err.Error())
		case errors.Is(err, ErrNotReady):
			httpx.Problem(w, http.StatusConflict, "Order not ready for picking", err.Error())
		default:
			h.logger.Error("picking slip render failed", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal error", "unexpected error")
		}
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="picking-slip-%d.pdf"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
