// Package notify turns order lifecycle events into queued emails.
// Delivery is best effort: a mail failure must never fail the business
// operation that triggered it.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/atlas-wms/atlas-wms/internal/purchase"
	"github.com/atlas-wms/atlas-wms/internal/sales"
	"github.com/atlas-wms/atlas-wms/jobs"
)

// Enqueuer submits mail tasks to the job queue.
type Enqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier implements the purchase and sales notification ports.
type Notifier struct {
	enqueuer   Enqueuer
	logger     *slog.Logger
	adminEmail string
	printer    *message.Printer
}

// NewNotifier constructs the notifier. Messages without an explicit
// recipient go to the warehouse admin inbox.
func NewNotifier(enqueuer Enqueuer, logger *slog.Logger, adminEmail string) *Notifier {
	return &Notifier{
		enqueuer:   enqueuer,
		logger:     logger,
		adminEmail: adminEmail,
		printer:    message.NewPrinter(language.English),
	}
}

// PurchaseOrderCreated announces a freshly drafted purchase order to
// the vendor, falling back to the warehouse inbox.
func (n *Notifier) PurchaseOrderCreated(ctx context.Context, order purchase.Order, items []purchase.Item) {
	subject, body := purchaseCreatedEmail(n.printer, order, items)
	n.safeSendTo(ctx, order.VendorEmail, fmt.Sprintf("PO_CREATED:%s", order.Number), subject, body)
}

// PurchaseOrderReceived announces goods booked into stock.
func (n *Notifier) PurchaseOrderReceived(ctx context.Context, order purchase.Order, items []purchase.Item) {
	subject, body := purchaseReceivedEmail(n.printer, order, items)
	n.safeSend(ctx, fmt.Sprintf("PO_RECEIVED:%s", order.Number), subject, body)
}

// SalesOrderConfirmed announces reserved stock for a confirmed order.
func (n *Notifier) SalesOrderConfirmed(ctx context.Context, order sales.Order, items []sales.Item) {
	subject, body := salesConfirmedEmail(n.printer, order, items)
	n.safeSend(ctx, fmt.Sprintf("SO_CONFIRMED:%s", order.Number), subject, body)
}

// SalesOrderShipped announces a shipped order.
func (n *Notifier) SalesOrderShipped(ctx context.Context, order sales.Order, items []sales.Item) {
	subject, body := salesShippedEmail(n.printer, order, items)
	n.safeSend(ctx, fmt.Sprintf("SO_SHIPPED:%s", order.Number), subject, body)
}

// SalesOrderCancelled announces a cancelled order.
func (n *Notifier) SalesOrderCancelled(ctx context.Context, order sales.Order, items []sales.Item) {
	subject, body := salesCancelledEmail(n.printer, order, items)
	n.safeSend(ctx, fmt.Sprintf("SO_CANCELLED:%s", order.Number), subject, body)
}

func (n *Notifier) safeSend(ctx context.Context, eventKey, subject, body string) {
	n.safeSendTo(ctx, "", eventKey, subject, body)
}

// safeSendTo enqueues the mail with a task ID derived from the event
// key, so a replayed event cannot double-send the same email. An empty
// recipient falls back to the warehouse inbox.
func (n *Notifier) safeSendTo(ctx context.Context, to, eventKey, subject, body string) {
	if n == nil || n.enqueuer == nil {
		return
	}
	if to == "" {
		to = n.adminEmail
	}
	taskID := uuid.NewSHA1(uuid.Nil, []byte(eventKey)).String()
	_, err := n.enqueuer.EnqueueSendEmail(ctx, jobs.SendEmailPayload{
		To:      to,
		Subject: subject,
		Body:    body,
	}, asynq.TaskID(taskID), asynq.Retention(24*time.Hour))
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) && n.logger != nil {
		n.logger.Warn("notification dropped", slog.String("subject", subject), slog.Any("error", err))
	}
}
