package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/atlas-wms/atlas-wms/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts committed movements.
type MetricsPort interface {
	RecordMovement(direction string)
}

// Service coordinates stock ledger operations.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	metrics MetricsPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, metrics MetricsPort) *Service {
	return &Service{repo: repo, audit: audit, metrics: metrics}
}

// AdjustStock posts a single movement in its own transaction.
func (s *Service) AdjustStock(ctx context.Context, input AdjustmentInput) (Movement, error) {
	var movement Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		movement, err = s.Apply(ctx, tx, input)
		return err
	})
	if err != nil {
		return Movement{}, err
	}
	s.recordCommitted(ctx, movement, input.Actor)
	return movement, nil
}

// Apply validates the adjustment and posts it using the caller's
// transaction. The product row stays locked until the caller commits,
// so concurrent adjustments serialise per product.
func (s *Service) Apply(ctx context.Context, tx TxRepository, input AdjustmentInput) (Movement, error) {
	if input.ProductID == 0 {
		return Movement{}, ErrProductNotFound
	}
	if input.Quantity <= 0 {
		return Movement{}, ErrInvalidQuantity
	}
	if !input.Direction.Valid() {
		return Movement{}, ErrInvalidDirection
	}
	current, err := tx.GetStockForUpdate(ctx, input.ProductID)
	if err != nil {
		return Movement{}, err
	}
	next := current + input.Quantity
	if input.Direction == DirectionOut {
		next = current - input.Quantity
		if next < 0 {
			return Movement{}, fmt.Errorf("%w: product %d has %d, requested %d", ErrInsufficientStock, input.ProductID, current, input.Quantity)
		}
	}
	if err := tx.SetStock(ctx, input.ProductID, next); err != nil {
		return Movement{}, err
	}
	movement := Movement{
		ProductID: input.ProductID,
		Direction: input.Direction,
		Quantity:  input.Quantity,
		Reason:    input.Reason,
		CreatedAt: time.Now().UTC(),
	}
	movement.ID, err = tx.InsertMovement(ctx, movement)
	if err != nil {
		return Movement{}, err
	}
	return movement, nil
}

// ListMovements lists ledger entries, newest first.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return s.repo.ListMovements(ctx, filter)
}

// ListProductMovements lists entries for one product, newest first.
func (s *Service) ListProductMovements(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	if productID == 0 {
		return nil, ErrProductNotFound
	}
	return s.repo.ListMovements(ctx, MovementFilter{ProductID: productID, Limit: limit})
}

// RecordCommitted publishes audit and metrics for movements posted through
// a caller-owned transaction, after that transaction commits.
func (s *Service) RecordCommitted(ctx context.Context, movements []Movement, actor string) {
	for _, m := range movements {
		s.recordCommitted(ctx, m, actor)
	}
}

func (s *Service) recordCommitted(ctx context.Context, movement Movement, actor string) {
	if s.metrics != nil {
		s.metrics.RecordMovement(string(movement.Direction))
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Actor:    actor,
			Action:   fmt.Sprintf("ledger:%s", movement.Direction),
			Entity:   "stock_movement",
			EntityID: fmt.Sprintf("%d", movement.ID),
			Meta: map[string]any{
				"product_id": movement.ProductID,
				"quantity":   movement.Quantity,
				"reason":     movement.Reason,
			},
		})
	}
}
