package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/atlas-wms/atlas-wms/internal/purchase"
	"github.com/atlas-wms/atlas-wms/internal/sales"
	"github.com/atlas-wms/atlas-wms/jobs"
)

type captureEnqueuer struct {
	payloads []jobs.SendEmailPayload
	taskIDs  []string
	err      error
}

func (c *captureEnqueuer) EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.payloads = append(c.payloads, payload)
	for _, opt := range opts {
		if opt.Type() == asynq.TaskIDOpt {
			c.taskIDs = append(c.taskIDs, opt.Value().(string))
		}
	}
	return &asynq.TaskInfo{}, nil
}

func TestPurchaseOrderCreatedEmail(t *testing.T) {
	enq := &captureEnqueuer{}
	n := NewNotifier(enq, nil, "warehouse@atlas.local")

	order := purchase.Order{Number: "PO-2026-0001", VendorName: "Acme Supplies"}
	items := []purchase.Item{
		{ProductName: "Widget", ProductSKU: "WID-1", Quantity: 1500, UnitPrice: 10},
	}
	n.PurchaseOrderCreated(context.Background(), order, items)

	require.Len(t, enq.payloads, 1)
	mail := enq.payloads[0]
	require.Equal(t, "warehouse@atlas.local", mail.To)
	require.Contains(t, mail.Subject, "PO-2026-0001")
	require.Contains(t, mail.Body, "Acme Supplies")
	require.Contains(t, mail.Body, "WID-1")
	// English locale groups thousands.
	require.Contains(t, mail.Body, "1,500")
}

func TestPurchaseOrderCreatedGoesToVendor(t *testing.T) {
	enq := &captureEnqueuer{}
	n := NewNotifier(enq, nil, "warehouse@atlas.local")

	order := purchase.Order{Number: "PO-2026-0002", VendorName: "Acme Supplies", VendorEmail: "orders@acme.example"}
	n.PurchaseOrderCreated(context.Background(), order, nil)

	require.Len(t, enq.payloads, 1)
	require.Equal(t, "orders@acme.example", enq.payloads[0].To)
}

func TestSalesOrderConfirmedEmail(t *testing.T) {
	enq := &captureEnqueuer{}
	n := NewNotifier(enq, nil, "warehouse@atlas.local")

	order := sales.Order{Number: "SO-2026-0007", CustomerName: "Globex"}
	items := []sales.Item{
		{ProductName: "Gadget", ProductSKU: "GAD-1", Quantity: 2, UnitPrice: 25},
	}
	n.SalesOrderConfirmed(context.Background(), order, items)

	require.Len(t, enq.payloads, 1)
	require.Contains(t, enq.payloads[0].Subject, "SO-2026-0007")
	require.Contains(t, enq.payloads[0].Body, "50.00")
}

func TestNotificationTaskIDIsDeterministic(t *testing.T) {
	enq := &captureEnqueuer{}
	n := NewNotifier(enq, nil, "warehouse@atlas.local")

	order := sales.Order{Number: "SO-2026-0007", CustomerName: "Globex"}
	n.SalesOrderConfirmed(context.Background(), order, nil)
	n.SalesOrderConfirmed(context.Background(), order, nil)
	n.SalesOrderShipped(context.Background(), order, nil)

	require.Len(t, enq.taskIDs, 3)
	require.Equal(t, enq.taskIDs[0], enq.taskIDs[1])
	require.NotEqual(t, enq.taskIDs[0], enq.taskIDs[2])
}

func TestEnqueueFailureIsSwallowed(t *testing.T) {
	enq := &captureEnqueuer{err: errors.New("redis down")}
	n := NewNotifier(enq, nil, "warehouse@atlas.local")

	require.NotPanics(t, func() {
		n.SalesOrderCancelled(context.Background(), sales.Order{Number: "SO-2026-0001"}, nil)
	})
}
