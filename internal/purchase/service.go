package purchase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atlas-wms/atlas-wms/internal/catalog"
	"github.com/atlas-wms/atlas-wms/internal/ledger"
	"github.com/atlas-wms/atlas-wms/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Order, []Item, error)
	List(ctx context.Context, limit int) ([]Order, error)
}

// ProductPort resolves catalog products for order lines.
type ProductPort interface {
	GetMany(ctx context.Context, ids []int64) (map[int64]catalog.Product, error)
}

// LedgerPort posts stock movements inside the order transaction.
type LedgerPort interface {
	Apply(ctx context.Context, tx ledger.TxRepository, input ledger.AdjustmentInput) (ledger.Movement, error)
	RecordCommitted(ctx context.Context, movements []ledger.Movement, actor string)
}

// NotifyPort sends purchase notifications. Implementations must not
// fail the business operation.
type NotifyPort interface {
	PurchaseOrderCreated(ctx context.Context, order Order, items []Item)
	PurchaseOrderReceived(ctx context.Context, order Order, items []Item)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates purchase order flows.
type Service struct {
	repo     RepositoryPort
	products ProductPort
	ledger   LedgerPort
	notify   NotifyPort
	audit    AuditPort
}

// NewService constructs the purchase service.
func NewService(repo RepositoryPort, products ProductPort, ledgerSvc LedgerPort, notify NotifyPort, audit AuditPort) *Service {
	return &Service{repo: repo, products: products, ledger: ledgerSvc, notify: notify, audit: audit}
}

// ItemInput describes one order line.
type ItemInput struct {
	ProductID int64
	Quantity  int64
	UnitPrice float64
}

// CreateInput describes the creation payload.
type CreateInput struct {
	VendorName   string
	VendorEmail  string
	ExpectedDate *time.Time
	Items        []ItemInput
	Actor        string
}

// Create persists a draft purchase order with a freshly allocated number.
func (s *Service) Create(ctx context.Context, input CreateInput) (Order, []Item, error) {
	if strings.TrimSpace(input.VendorName) == "" {
		return Order{}, nil, fmt.Errorf("%w: vendor name required", ErrValidation)
	}
	if len(input.Items) == 0 {
		return Order{}, nil, fmt.Errorf("%w: at least one item required", ErrValidation)
	}
	ids := make([]int64, 0, len(input.Items))
	for _, item := range input.Items {
		if item.ProductID <= 0 || item.Quantity <= 0 {
			return Order{}, nil, fmt.Errorf("%w: product and positive quantity required", ErrValidation)
		}
		if item.UnitPrice < 0 {
			return Order{}, nil, fmt.Errorf("%w: unit price must not be negative", ErrValidation)
		}
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.GetMany(ctx, ids)
	if err != nil {
		return Order{}, nil, err
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return Order{}, nil, fmt.Errorf("%w: product %d", ErrProductNotFound, id)
		}
	}

	var (
		order Order
		items []Item
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		order = Order{
			Number:       number,
			VendorName:   input.VendorName,
			VendorEmail:  input.VendorEmail,
			Status:       StatusDraft,
			ExpectedDate: input.ExpectedDate,
			CreatedAt:    time.Now().UTC(),
		}
		order.ID, err = tx.CreateOrder(ctx, order)
		if err != nil {
			return err
		}
		items = items[:0]
		for _, line := range input.Items {
			product := products[line.ProductID]
			price := line.UnitPrice
			if price == 0 {
				price = product.Price
			}
			item := Item{
				OrderID:     order.ID,
				ProductID:   line.ProductID,
				ProductName: product.Name,
				ProductSKU:  product.SKU,
				Quantity:    line.Quantity,
				UnitPrice:   price,
			}
			if err := tx.InsertItem(ctx, item); err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return Order{}, nil, err
	}
	s.recordAudit(ctx, input.Actor, "PO_CREATE", order.ID, map[string]any{"number": order.Number, "vendor": order.VendorName})
	if s.notify != nil {
		s.notify.PurchaseOrderCreated(ctx, order, items)
	}
	return order, items, nil
}

// Receive transitions the order to RECEIVED and books every line into
// the stock ledger. The status change and all ledger movements commit
// or roll back together.
func (s *Service) Receive(ctx context.Context, id int64, actor string) (Order, error) {
	var (
		order     Order
		items     []Item
		movements []ledger.Movement
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		order, err = tx.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !order.Status.CanTransition(StatusReceived) {
			return fmt.Errorf("%w: %s cannot be received", ErrInvalidState, order.Status)
		}
		items, err = tx.ListItems(ctx, id)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("%w: order has no items", ErrValidation)
		}
		ledgerTx := tx.Ledger()
		movements = movements[:0]
		for _, item := range items {
			movement, err := s.ledger.Apply(ctx, ledgerTx, ledger.AdjustmentInput{
				ProductID: item.ProductID,
				Direction: ledger.DirectionIn,
				Quantity:  item.Quantity,
				Reason:    fmt.Sprintf("PO %s", order.Number),
			})
			if err != nil {
				return err
			}
			movements = append(movements, movement)
		}
		now := time.Now().UTC()
		if err := tx.MarkReceived(ctx, id, now); err != nil {
			return err
		}
		order.Status = StatusReceived
		order.ReceivedAt = &now
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.ledger.RecordCommitted(ctx, movements, actor)
	s.recordAudit(ctx, actor, "PO_RECEIVE", order.ID, map[string]any{"number": order.Number, "lines": len(items)})
	if s.notify != nil {
		s.notify.PurchaseOrderReceived(ctx, order, items)
	}
	return order, nil
}

// Get returns an order with its items.
func (s *Service) Get(ctx context.Context, id int64) (Order, []Item, error) {
	return s.repo.Get(ctx, id)
}

// List returns orders, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Order, error) {
	return s.repo.List(ctx, limit)
}

func (s *Service) recordAudit(ctx context.Context, actor, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Actor:    actor,
		Action:   action,
		Entity:   "purchase_order",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
	})
}
