package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-wms/atlas-wms/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for the stock ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// NewTx wraps an open transaction so other modules can post ledger
// movements inside their own unit of work.
func NewTx(tx pgx.Tx) TxRepository {
	return &txRepo{tx: tx}
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// ListMovements returns ledger entries, newest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	var (
		rows pgx.Rows
		err  error
	)
	if filter.ProductID != 0 {
		rows, err = r.pool.Query(ctx, `SELECT id, product_id, direction, quantity, reason, created_at
FROM stock_movements WHERE product_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2`, filter.ProductID, limit)
	} else {
		rows, err = r.pool.Query(ctx, `SELECT id, product_id, direction, quantity, reason, created_at
FROM stock_movements ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var movements []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Direction, &m.Quantity, &m.Reason, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movements, nil
}

func (tx *txRepo) GetStockForUpdate(ctx context.Context, productID int64) (int64, error) {
	var qty int64
	err := tx.tx.QueryRow(ctx, `SELECT stock_quantity FROM products WHERE id=$1 FOR UPDATE`, productID).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrProductNotFound
		}
		return 0, err
	}
	return qty, nil
}

func (tx *txRepo) SetStock(ctx context.Context, productID, quantity int64) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE products SET stock_quantity=$1, updated_at=NOW() WHERE id=$2`, quantity, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (tx *txRepo) InsertMovement(ctx context.Context, movement Movement) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO stock_movements (product_id, direction, quantity, reason, created_at)
VALUES ($1,$2,$3,$4,$5) RETURNING id`, movement.ProductID, string(movement.Direction), movement.Quantity, movement.Reason, movement.CreatedAt).Scan(&id)
	return id, err
}
