package sales

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atlas-wms/atlas-wms/internal/catalog"
	"github.com/atlas-wms/atlas-wms/internal/ledger"
	"github.com/atlas-wms/atlas-wms/internal/sequence"
)

type memoryRepo struct {
	orders    map[int64]Order
	items     map[int64][]Item
	stock     map[int64]int64
	movements []ledger.Movement
	nextID    int64
	seq       int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		orders: make(map[int64]Order),
		items:  make(map[int64][]Item),
		stock:  make(map[int64]int64),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	ordersSnap := make(map[int64]Order, len(r.orders))
	for k, v := range r.orders {
		ordersSnap[k] = v
	}
	itemsSnap := make(map[int64][]Item, len(r.items))
	for k, v := range r.items {
		itemsSnap[k] = append([]Item(nil), v...)
	}
	stockSnap := make(map[int64]int64, len(r.stock))
	for k, v := range r.stock {
		stockSnap[k] = v
	}
	movementsSnap := len(r.movements)
	idSnap, seqSnap := r.nextID, r.seq

	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.orders = ordersSnap
		r.items = itemsSnap
		r.stock = stockSnap
		r.movements = r.movements[:movementsSnap]
		r.nextID, r.seq = idSnap, seqSnap
		return err
	}
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Order, []Item, error) {
	order, ok := r.orders[id]
	if !ok {
		return Order{}, nil, ErrNotFound
	}
	return order, append([]Item(nil), r.items[id]...), nil
}

func (r *memoryRepo) List(ctx context.Context, limit int) ([]Order, error) {
	var orders []Order
	for _, order := range r.orders {
		orders = append(orders, order)
	}
	return orders, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (tx *memoryTx) NextNumber(ctx context.Context, at time.Time) (string, error) {
	tx.repo.seq++
	return sequence.Format(sequence.PrefixSalesOrder, at.UTC().Year(), tx.repo.seq), nil
}

func (tx *memoryTx) CreateOrder(ctx context.Context, order Order) (int64, error) {
	tx.repo.nextID++
	order.ID = tx.repo.nextID
	tx.repo.orders[order.ID] = order
	return order.ID, nil
}

func (tx *memoryTx) InsertItem(ctx context.Context, item Item) error {
	tx.repo.items[item.OrderID] = append(tx.repo.items[item.OrderID], item)
	return nil
}

func (tx *memoryTx) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	order, ok := tx.repo.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return order, nil
}

func (tx *memoryTx) ListItems(ctx context.Context, orderID int64) ([]Item, error) {
	return append([]Item(nil), tx.repo.items[orderID]...), nil
}

func (tx *memoryTx) SetStatus(ctx context.Context, id int64, status Status, at time.Time) error {
	order := tx.repo.orders[id]
	order.Status = status
	switch status {
	case StatusConfirmed:
		order.ConfirmedAt = &at
	case StatusShipped:
		order.ShippedAt = &at
	case StatusCompleted:
		order.CompletedAt = &at
	case StatusCancelled:
		order.CancelledAt = &at
		order.ConfirmedAt = nil
	}
	tx.repo.orders[id] = order
	return nil
}

func (tx *memoryTx) Ledger() ledger.TxRepository {
	return &memoryLedgerTx{repo: tx.repo}
}

type memoryLedgerTx struct {
	repo *memoryRepo
}

func (tx *memoryLedgerTx) GetStockForUpdate(ctx context.Context, productID int64) (int64, error) {
	qty, ok := tx.repo.stock[productID]
	if !ok {
		return 0, ledger.ErrProductNotFound
	}
	return qty, nil
}

func (tx *memoryLedgerTx) SetStock(ctx context.Context, productID, quantity int64) error {
	if _, ok := tx.repo.stock[productID]; !ok {
		return ledger.ErrProductNotFound
	}
	tx.repo.stock[productID] = quantity
	return nil
}

func (tx *memoryLedgerTx) InsertMovement(ctx context.Context, movement ledger.Movement) (int64, error) {
	movement.ID = int64(len(tx.repo.movements) + 1)
	tx.repo.movements = append(tx.repo.movements, movement)
	return movement.ID, nil
}

type memoryProducts struct {
	products map[int64]catalog.Product
}

func (p *memoryProducts) GetMany(ctx context.Context, ids []int64) (map[int64]catalog.Product, error) {
	result := make(map[int64]catalog.Product)
	for _, id := range ids {
		if product, ok := p.products[id]; ok {
			result[id] = product
		}
	}
	return result, nil
}

func strPtr(s string) *string { return &s }

func newTestService(repo *memoryRepo) *Service {
	products := &memoryProducts{products: map[int64]catalog.Product{
		1: {ID: 1, Name: "Widget", SKU: "WID-1", Price: 10, LocationCode: strPtr("A1-03")},
		2: {ID: 2, Name: "Gadget", SKU: "GAD-1", Price: 25},
	}}
	return NewService(repo, products, ledger.NewService(nil, nil, nil), nil, nil)
}

func TestCreateSnapshotsItems(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	order, items, err := svc.Create(ctx, CreateInput{
		CustomerName: "Globex",
		Items:        []ItemInput{{ProductID: 1, Quantity: 4}},
	})
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("SO-%d-0001", time.Now().UTC().Year()), order.Number)
	require.Equal(t, StatusNew, order.Status)
	require.Len(t, items, 1)
	require.Equal(t, "Widget", items[0].ProductName)
	require.Equal(t, "A1-03", items[0].LocationCode)
	require.Equal(t, 10.0, items[0].UnitPrice)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()

	_, _, err := svc.Create(ctx, CreateInput{CustomerName: "", Items: []ItemInput{{ProductID: 1, Quantity: 1}}})
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.Create(ctx, CreateInput{CustomerName: "Globex"})
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.Create(ctx, CreateInput{CustomerName: "Globex", Items: []ItemInput{{ProductID: 99, Quantity: 1}}})
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestConfirmReservesStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 10
	svc := newTestService(repo)
	ctx := context.Background()

	order, _, err := svc.Create(ctx, CreateInput{CustomerName: "Globex", Items: []ItemInput{{ProductID: 1, Quantity: 4}}})
	require.NoError(t, err)

	confirmed, err := svc.Confirm(ctx, order.ID, "clerk")
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, confirmed.Status)
	require.NotNil(t, confirmed.ConfirmedAt)
	require.Equal(t, int64(6), repo.stock[1])
	require.Len(t, repo.movements, 1)
	require.Equal(t, ledger.DirectionOut, repo.movements[0].Direction)
	require.Equal(t, fmt.Sprintf("SO %s", order.Number), repo.movements[0].Reason)
}

func TestConfirmIsAtomic(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 10
	repo.stock[2] = 1
	svc := newTestService(repo)
	ctx := context.Background()

	// Second line exceeds stock, so the first line's deduction must
	// also roll back.
	order, _, err := svc.Create(ctx, CreateInput{
		CustomerName: "Globex",
		Items:        []ItemInput{{ProductID: 1, Quantity: 4}, {ProductID: 2, Quantity: 5}},
	})
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, order.ID, "")
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)

	stored, _, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusNew, stored.Status)
	require.Equal(t, int64(10), repo.stock[1])
	require.Equal(t, int64(1), repo.stock[2])
	require.Empty(t, repo.movements)
}

func TestLifecycleShipComplete(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 10
	svc := newTestService(repo)
	ctx := context.Background()

	order, _, err := svc.Create(ctx, CreateInput{CustomerName: "Globex", Items: []ItemInput{{ProductID: 1, Quantity: 2}}})
	require.NoError(t, err)

	_, err = svc.Ship(ctx, order.ID, "")
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Confirm(ctx, order.ID, "")
	require.NoError(t, err)

	shipped, err := svc.Ship(ctx, order.ID, "")
	require.NoError(t, err)
	require.Equal(t, StatusShipped, shipped.Status)
	require.NotNil(t, shipped.ShippedAt)

	_, err = svc.Cancel(ctx, order.ID, "")
	require.ErrorIs(t, err, ErrInvalidState)

	completed, err := svc.Complete(ctx, order.ID, "")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)

	// Shipping and completing never touch stock again.
	require.Equal(t, int64(8), repo.stock[1])
}

func TestCancelNewOrderLeavesStockAlone(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 10
	svc := newTestService(repo)
	ctx := context.Background()

	order, _, err := svc.Create(ctx, CreateInput{CustomerName: "Globex", Items: []ItemInput{{ProductID: 1, Quantity: 4}}})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, order.ID, "")
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.Equal(t, int64(10), repo.stock[1])
	require.Empty(t, repo.movements)
}

func TestCancelConfirmedOrderRestoresStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 10
	svc := newTestService(repo)
	ctx := context.Background()

	order, _, err := svc.Create(ctx, CreateInput{CustomerName: "Globex", Items: []ItemInput{{ProductID: 1, Quantity: 4}}})
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, order.ID, "")
	require.NoError(t, err)
	require.Equal(t, int64(6), repo.stock[1])

	cancelled, err := svc.Cancel(ctx, order.ID, "")
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.Nil(t, cancelled.ConfirmedAt)
	require.Equal(t, int64(10), repo.stock[1])

	require.Len(t, repo.movements, 2)
	reversal := repo.movements[1]
	require.Equal(t, ledger.DirectionIn, reversal.Direction)
	require.Equal(t, fmt.Sprintf("SO %s cancelled", order.Number), reversal.Reason)
}

func TestConfirmAgainstDrainedStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 10
	svc := newTestService(repo)
	ctx := context.Background()

	first, _, err := svc.Create(ctx, CreateInput{CustomerName: "Globex", Items: []ItemInput{{ProductID: 1, Quantity: 7}}})
	require.NoError(t, err)
	second, _, err := svc.Create(ctx, CreateInput{CustomerName: "Initech", Items: []ItemInput{{ProductID: 1, Quantity: 7}}})
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, first.ID, "")
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, second.ID, "")
	require.ErrorIs(t, err, ledger.ErrInsufficientStock)
	require.Equal(t, int64(3), repo.stock[1])

	// After the first order is cancelled the second fits again.
	_, err = svc.Cancel(ctx, first.ID, "")
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, second.ID, "")
	require.NoError(t, err)
	require.Equal(t, int64(3), repo.stock[1])
}
