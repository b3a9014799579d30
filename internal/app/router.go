package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/atlas-wms/atlas-wms/internal/catalog"
	"github.com/atlas-wms/atlas-wms/internal/export"
	"github.com/atlas-wms/atlas-wms/internal/ledger"
	"github.com/atlas-wms/atlas-wms/internal/observability"
	"github.com/atlas-wms/atlas-wms/internal/purchase"
	"github.com/atlas-wms/atlas-wms/internal/sales"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	CatalogHandler  *catalog.Handler
	LedgerHandler   *ledger.Handler
	PurchaseHandler *purchase.Handler
	SalesHandler    *sales.Handler
	ExportHandler   *export.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with Atlas defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", params.CatalogHandler.MountRoutes)
		r.Route("/stock", params.LedgerHandler.MountRoutes)
		r.Route("/purchase-orders", params.PurchaseHandler.MountRoutes)
		r.Route("/sales-orders", params.SalesHandler.MountRoutes)
		if params.ExportHandler != nil {
			r.Route("/export", params.ExportHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
