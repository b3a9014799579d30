package ledger

import "context"

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
}

// TxRepository exposes transactional operations used while posting a movement.
type TxRepository interface {
	GetStockForUpdate(ctx context.Context, productID int64) (int64, error)
	SetStock(ctx context.Context, productID, quantity int64) error
	InsertMovement(ctx context.Context, movement Movement) (int64, error)
}
