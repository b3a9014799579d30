package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/atlas-wms/atlas-wms/internal/catalog"
	"github.com/atlas-wms/atlas-wms/internal/shared"
)

// CatalogPort queries products approaching their expiry date.
type CatalogPort interface {
	NearExpiry(ctx context.Context, days int) ([]catalog.Product, error)
}

// Enqueuer submits follow-up tasks.
type Enqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload SendEmailPayload, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ExpiryScanJob runs the daily near-expiry sweep and mails the summary
// to the warehouse inbox.
type ExpiryScanJob struct {
	catalog     CatalogPort
	enqueuer    Enqueuer
	idempotency *shared.IdempotencyStore
	logger      *slog.Logger
	adminEmail  string
}

// NewExpiryScanJob constructs the handler.
func NewExpiryScanJob(catalogSvc CatalogPort, enqueuer Enqueuer, idem *shared.IdempotencyStore, logger *slog.Logger, adminEmail string) *ExpiryScanJob {
	return &ExpiryScanJob{catalog: catalogSvc, enqueuer: enqueuer, idempotency: idem, logger: logger, adminEmail: adminEmail}
}

// Handle processes expiry:scan tasks. The sweep runs at most once per
// day even when the scheduler restarts mid-cycle.
func (j *ExpiryScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ExpiryScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if j.idempotency != nil {
		key := fmt.Sprintf("expiry:scan:%s", time.Now().UTC().Format("2006-01-02"))
		if err := j.idempotency.CheckAndInsert(ctx, key, "jobs"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				j.logger.Info("expiry scan already ran today", slog.String("key", key))
				return nil
			}
			return err
		}
	}
	products, err := j.catalog.NearExpiry(ctx, payload.Days)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		j.logger.Info("expiry scan found nothing to report")
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "The following %d product(s) expire within %d day(s):\n\n", len(products), effectiveDays(payload.Days))
	for _, p := range products {
		expiry := ""
		if p.ExpiryDate != nil {
			expiry = p.ExpiryDate.Format("2006-01-02")
		}
		fmt.Fprintf(&b, "- %s (SKU %s): expires %s, %d on hand\n", p.Name, p.SKU, expiry, p.StockQuantity)
	}
	_, err = j.enqueuer.EnqueueSendEmail(ctx, SendEmailPayload{
		To:      j.adminEmail,
		Subject: fmt.Sprintf("Near-expiry stock report (%d items)", len(products)),
		Body:    b.String(),
	})
	if err != nil {
		j.logger.Error("enqueue expiry report failed", slog.Any("error", err))
		return err
	}
	return nil
}

func effectiveDays(days int) int {
	if days <= 0 {
		return catalog.DefaultExpiryWindowDays
	}
	return days
}
