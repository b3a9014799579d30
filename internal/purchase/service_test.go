package purchase

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
	return sequence.Format(sequence.PrefixPurchaseOrder, at.UTC().Year(), tx.repo.seq), nil
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

func (tx *memoryTx) MarkReceived(ctx context.Context, id int64, at time.Time) error {
	order := tx.repo.orders[id]
	order.Status = StatusReceived
	order.ReceivedAt = &at
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

func newTestService(repo *memoryRepo) *Service {
	products := &memoryProducts{products: map[int64]catalog.Product{
		1: {ID: 1, Name: "Widget", SKU: "WID-1", Price: 10},
		2: {ID: 2, Name: "Gadget", SKU: "GAD-1", Price: 25},
	}}
	return NewService(repo, products, ledger.NewService(nil, nil, nil), nil, nil)
}

func TestCreateAllocatesNumber(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	order, items, err := svc.Create(ctx, CreateInput{
		VendorName:  "Acme Supplies",
		VendorEmail: "orders@acme.example",
		Items:       []ItemInput{{ProductID: 1, Quantity: 10}, {ProductID: 2, Quantity: 3, UnitPrice: 20}},
	})
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("PO-%d-0001", time.Now().UTC().Year()), order.Number)
	require.Equal(t, StatusDraft, order.Status)
	require.Equal(t, "orders@acme.example", order.VendorEmail)
	require.Len(t, items, 2)
	require.Equal(t, "Widget", items[0].ProductName)
	require.Equal(t, "WID-1", items[0].ProductSKU)
	require.Equal(t, 10.0, items[0].UnitPrice)
	require.Equal(t, 20.0, items[1].UnitPrice)

	second, _, err := svc.Create(ctx, CreateInput{VendorName: "Acme Supplies", Items: []ItemInput{{ProductID: 1, Quantity: 1}}})
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("PO-%d-0002", time.Now().UTC().Year()), second.Number)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()

	_, _, err := svc.Create(ctx, CreateInput{VendorName: "", Items: []ItemInput{{ProductID: 1, Quantity: 1}}})
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.Create(ctx, CreateInput{VendorName: "Acme"})
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.Create(ctx, CreateInput{VendorName: "Acme", Items: []ItemInput{{ProductID: 1, Quantity: 0}}})
	require.ErrorIs(t, err, ErrValidation)

	_, _, err = svc.Create(ctx, CreateInput{VendorName: "Acme", Items: []ItemInput{{ProductID: 99, Quantity: 1}}})
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestReceiveBooksStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 5
	repo.stock[2] = 0
	svc := newTestService(repo)
	ctx := context.Background()

	order, _, err := svc.Create(ctx, CreateInput{
		VendorName: "Acme Supplies",
		Items:      []ItemInput{{ProductID: 1, Quantity: 10}, {ProductID: 2, Quantity: 3}},
	})
	require.NoError(t, err)

	received, err := svc.Receive(ctx, order.ID, "worker-1")
	require.NoError(t, err)
	require.Equal(t, StatusReceived, received.Status)
	require.NotNil(t, received.ReceivedAt)
	require.Equal(t, int64(15), repo.stock[1])
	require.Equal(t, int64(3), repo.stock[2])
	require.Len(t, repo.movements, 2)
	require.Equal(t, ledger.DirectionIn, repo.movements[0].Direction)
	require.Equal(t, fmt.Sprintf("PO %s", order.Number), repo.movements[0].Reason)
}

func TestReceiveTwiceRejected(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 0
	svc := newTestService(repo)
	ctx := context.Background()

	order, _, err := svc.Create(ctx, CreateInput{VendorName: "Acme", Items: []ItemInput{{ProductID: 1, Quantity: 2}}})
	require.NoError(t, err)

	_, err = svc.Receive(ctx, order.ID, "")
	require.NoError(t, err)

	_, err = svc.Receive(ctx, order.ID, "")
	require.ErrorIs(t, err, ErrInvalidState)
	require.Equal(t, int64(2), repo.stock[1])
}

func TestReceiveUnknownOrder(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	_, err := svc.Receive(context.Background(), 42, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReceiveRollsBackOnLedgerFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 0
	// Product 2 missing from the ledger: the second line fails and the
	// whole receipt must roll back.
	svc := newTestService(repo)
	ctx := context.Background()

	order, _, err := svc.Create(ctx, CreateInput{
		VendorName: "Acme",
		Items:      []ItemInput{{ProductID: 1, Quantity: 4}, {ProductID: 2, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.Receive(ctx, order.ID, "")
	require.ErrorIs(t, err, ledger.ErrProductNotFound)

	stored, _, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, stored.Status)
	require.Equal(t, int64(0), repo.stock[1])
	require.Empty(t, repo.movements)
}
