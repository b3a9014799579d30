package purchase

import (
	"errors"
	"time"
)

// Purchase order lifecycle statuses.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusReceived Status = "RECEIVED"
)

var transitions = map[Status][]Status{
	StatusDraft:    {StatusReceived},
	StatusReceived: {},
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

// Order models a purchase order header.
type Order struct {
	ID           int64      `json:"id"`
	Number       string     `json:"number"`
	VendorName   string     `json:"vendor_name"`
	VendorEmail  string     `json:"vendor_email,omitempty"`
	Status       Status     `json:"status"`
	ExpectedDate *time.Time `json:"expected_date,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ReceivedAt   *time.Time `json:"received_at,omitempty"`
}

// Item models a purchase order line. Product name and SKU are
// snapshotted at creation time so the document stays stable when the
// catalog changes.
type Item struct {
	ID          int64   `json:"id"`
	OrderID     int64   `json:"order_id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	ProductSKU  string  `json:"product_sku"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

var (
	// ErrInvalidState occurs when an action violates the status workflow.
	ErrInvalidState = errors.New("purchase: invalid state transition")
	// ErrNotFound indicates a missing purchase order.
	ErrNotFound = errors.New("purchase: order not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("purchase: invalid input")
	// ErrProductNotFound indicates an unknown product on a line.
	ErrProductNotFound = errors.New("purchase: product not found")
	// ErrNumberConflict indicates a duplicate order number.
	ErrNumberConflict = errors.New("purchase: order number already exists")
)
