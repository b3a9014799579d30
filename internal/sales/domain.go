package sales

import (
	"errors"
	"time"
)

// Sales order lifecycle statuses.
type Status string

const (
	StatusNew       Status = "NEW"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipped   Status = "SHIPPED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusNew:       {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusCompleted},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransition reports whether the status may move to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order models a sales order header.
type Order struct {
	ID           int64      `json:"id"`
	Number       string     `json:"number"`
	CustomerName string     `json:"customer_name"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	ShippedAt    *time.Time `json:"shipped_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
}

// Item models a sales order line. Product name, SKU and location are
// snapshotted at creation time so picking documents stay stable.
type Item struct {
	ID           int64   `json:"id"`
	OrderID      int64   `json:"order_id"`
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	ProductSKU   string  `json:"product_sku"`
	LocationCode string  `json:"location_code,omitempty"`
	Quantity     int64   `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
}

var (
	// ErrInvalidState occurs when an action violates the status workflow.
	ErrInvalidState = errors.New("sales: invalid state transition")
	// ErrNotFound indicates a missing sales order.
	ErrNotFound = errors.New("sales: order not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("sales: invalid input")
	// ErrProductNotFound indicates an unknown product on a line.
	ErrProductNotFound = errors.New("sales: product not found")
	// ErrNumberConflict indicates a duplicate order number.
	ErrNumberConflict = errors.New("sales: order number already exists")
)
