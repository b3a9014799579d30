package purchase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atlas-wms/atlas-wms/internal/ledger"
	"github.com/atlas-wms/atlas-wms/internal/platform/db"
	"github.com/atlas-wms/atlas-wms/internal/sequence"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	NextNumber(ctx context.Context, at time.Time) (string, error)
	CreateOrder(ctx context.Context, order Order) (int64, error)
	InsertItem(ctx context.Context, item Item) error
	GetOrderForUpdate(ctx context.Context, id int64) (Order, error)
	ListItems(ctx context.Context, orderID int64) ([]Item, error)
	MarkReceived(ctx context.Context, id int64, at time.Time) error
	Ledger() ledger.TxRepository
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const orderColumns = `id, number, vendor_name, COALESCE(vendor_email, ''), status, expected_date, created_at, received_at`

func scanOrder(row pgx.Row) (Order, error) {
	var order Order
	err := row.Scan(&order.ID, &order.Number, &order.VendorName, &order.VendorEmail, &order.Status,
		&order.ExpectedDate, &order.CreatedAt, &order.ReceivedAt)
	return order, err
}

// Get returns a purchase order and its items.
func (r *Repository) Get(ctx context.Context, id int64) (Order, []Item, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, nil, ErrNotFound
		}
		return Order{}, nil, err
	}
	items, err := listItems(ctx, r.pool, id)
	if err != nil {
		return Order{}, nil, err
	}
	return order, items, nil
}

// List returns purchase orders, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM purchase_orders ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listItems(ctx context.Context, q queryer, orderID int64) ([]Item, error) {
	rows, err := q.Query(ctx, `SELECT id, order_id, product_id, product_name, product_sku, quantity, unit_price
FROM purchase_order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.ProductSKU, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (tx *txRepo) NextNumber(ctx context.Context, at time.Time) (string, error) {
	return sequence.Next(ctx, tx.tx, sequence.PrefixPurchaseOrder, at)
}

func (tx *txRepo) CreateOrder(ctx context.Context, order Order) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_orders (number, vendor_name, vendor_email, status, expected_date, created_at)
VALUES ($1,$2,NULLIF($3,''),$4,$5,NOW()) RETURNING id`, order.Number, order.VendorName, order.VendorEmail, string(order.Status), order.ExpectedDate).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrNumberConflict
		}
		return 0, err
	}
	return id, nil
}

func (tx *txRepo) InsertItem(ctx context.Context, item Item) error {
	_, err := tx.tx.Exec(ctx, `INSERT INTO purchase_order_items (order_id, product_id, product_name, product_sku, quantity, unit_price)
VALUES ($1,$2,$3,$4,$5,$6)`, item.OrderID, item.ProductID, item.ProductName, item.ProductSKU, item.Quantity, item.UnitPrice)
	return err
}

func (tx *txRepo) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	order, err := scanOrder(tx.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	return order, nil
}

func (tx *txRepo) ListItems(ctx context.Context, orderID int64) ([]Item, error) {
	return listItems(ctx, tx.tx, orderID)
}

func (tx *txRepo) MarkReceived(ctx context.Context, id int64, at time.Time) error {
	_, err := tx.tx.Exec(ctx, `UPDATE purchase_orders SET status=$1, received_at=$2 WHERE id=$3`, string(StatusReceived), at, id)
	return err
}

func (tx *txRepo) Ledger() ledger.TxRepository {
	return ledger.NewTx(tx.tx)
}
