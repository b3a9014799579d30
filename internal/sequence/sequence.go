// Package sequence allocates gap-tolerant document numbers such as
// PO-2026-0001. Counters live in the order_sequences table and are
// bumped atomically, so concurrent allocations never collide even if
// some numbers end up unused after a rollback.
package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	// PrefixPurchaseOrder numbers purchase orders.
	PrefixPurchaseOrder = "PO"
	// PrefixSalesOrder numbers sales orders.
	PrefixSalesOrder = "SO"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, so numbers can
// be allocated inside the caller's transaction.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Next allocates the next number for the prefix in the year of at.
func Next(ctx context.Context, q Querier, prefix string, at time.Time) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("sequence: prefix required")
	}
	year := at.UTC().Year()
	var value int64
	err := q.QueryRow(ctx, `INSERT INTO order_sequences (prefix, year, value) VALUES ($1, $2, 1)
ON CONFLICT (prefix, year) DO UPDATE SET value = order_sequences.value + 1
RETURNING value`, prefix, year).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("sequence: allocate %s-%d: %w", prefix, year, err)
	}
	return Format(prefix, year, value), nil
}

// Format renders a document number as {PREFIX}-{year}-{NNNN}. Values
// beyond 9999 keep their full width instead of wrapping.
func Format(prefix string, year int, value int64) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, value)
}
