package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	stock     map[int64]int64
	movements []Movement
	nextID    int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{stock: make(map[int64]int64)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	stockSnapshot := make(map[int64]int64, len(r.stock))
	for k, v := range r.stock {
		stockSnapshot[k] = v
	}
	movementsSnapshot := len(r.movements)
	idSnapshot := r.nextID
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.stock = stockSnapshot
		r.movements = r.movements[:movementsSnapshot]
		r.nextID = idSnapshot
		return err
	}
	return nil
}

func (r *memoryRepo) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	var result []Movement
	for i := len(r.movements) - 1; i >= 0; i-- {
		m := r.movements[i]
		if filter.ProductID != 0 && m.ProductID != filter.ProductID {
			continue
		}
		result = append(result, m)
		if filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}
	return result, nil
}

func (tx *memoryTx) GetStockForUpdate(ctx context.Context, productID int64) (int64, error) {
	qty, ok := tx.repo.stock[productID]
	if !ok {
		return 0, ErrProductNotFound
	}
	return qty, nil
}

func (tx *memoryTx) SetStock(ctx context.Context, productID, quantity int64) error {
	if _, ok := tx.repo.stock[productID]; !ok {
		return ErrProductNotFound
	}
	tx.repo.stock[productID] = quantity
	return nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, movement Movement) (int64, error) {
	tx.repo.nextID++
	movement.ID = tx.repo.nextID
	tx.repo.movements = append(tx.repo.movements, movement)
	return movement.ID, nil
}

func TestAdjustStockInbound(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 0
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	movement, err := svc.AdjustStock(ctx, AdjustmentInput{ProductID: 1, Direction: DirectionIn, Quantity: 10, Reason: "PO-2026-0001"})
	require.NoError(t, err)
	require.Equal(t, int64(10), movement.Quantity)
	require.Equal(t, int64(10), repo.stock[1])

	movement, err = svc.AdjustStock(ctx, AdjustmentInput{ProductID: 1, Direction: DirectionIn, Quantity: 5, Reason: "PO-2026-0002"})
	require.NoError(t, err)
	require.Equal(t, int64(15), repo.stock[1])
	require.NotZero(t, movement.ID)
}

func TestAdjustStockOutbound(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 10
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.AdjustStock(ctx, AdjustmentInput{ProductID: 1, Direction: DirectionOut, Quantity: 4, Reason: "SO-2026-0001"})
	require.NoError(t, err)
	require.Equal(t, int64(6), repo.stock[1])

	_, err = svc.AdjustStock(ctx, AdjustmentInput{ProductID: 1, Direction: DirectionOut, Quantity: 7, Reason: "SO-2026-0002"})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.Equal(t, int64(6), repo.stock[1])
	require.Len(t, repo.movements, 1)
}

func TestAdjustStockValidation(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 10
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.AdjustStock(ctx, AdjustmentInput{ProductID: 1, Direction: DirectionIn, Quantity: 0, Reason: "zero"})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AdjustStock(ctx, AdjustmentInput{ProductID: 1, Direction: DirectionIn, Quantity: -3, Reason: "negative"})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AdjustStock(ctx, AdjustmentInput{ProductID: 1, Direction: "SIDEWAYS", Quantity: 3, Reason: "bad direction"})
	require.ErrorIs(t, err, ErrInvalidDirection)

	_, err = svc.AdjustStock(ctx, AdjustmentInput{ProductID: 99, Direction: DirectionIn, Quantity: 3, Reason: "missing"})
	require.ErrorIs(t, err, ErrProductNotFound)

	require.Equal(t, int64(10), repo.stock[1])
	require.Empty(t, repo.movements)
}

func TestOutboundExactBalanceAllowed(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 5
	svc := NewService(repo, nil, nil)

	_, err := svc.AdjustStock(context.Background(), AdjustmentInput{ProductID: 1, Direction: DirectionOut, Quantity: 5, Reason: "drain"})
	require.NoError(t, err)
	require.Equal(t, int64(0), repo.stock[1])
}

func TestListProductMovementsNewestFirst(t *testing.T) {
	repo := newMemoryRepo()
	repo.stock[1] = 0
	repo.stock[2] = 0
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.AdjustStock(ctx, AdjustmentInput{ProductID: 1, Direction: DirectionIn, Quantity: 1, Reason: "first"})
	require.NoError(t, err)
	_, err = svc.AdjustStock(ctx, AdjustmentInput{ProductID: 2, Direction: DirectionIn, Quantity: 2, Reason: "other product"})
	require.NoError(t, err)
	_, err = svc.AdjustStock(ctx, AdjustmentInput{ProductID: 1, Direction: DirectionIn, Quantity: 3, Reason: "second"})
	require.NoError(t, err)

	movements, err := svc.ListProductMovements(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	require.Equal(t, "second", movements[0].Reason)
	require.Equal(t, "first", movements[1].Reason)
}
