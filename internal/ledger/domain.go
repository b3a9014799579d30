package ledger

import (
	"errors"
	"time"
)

// Direction enumerates supported stock movements.
type Direction string

const (
	// DirectionIn represents an inbound movement.
	DirectionIn Direction = "IN"
	// DirectionOut represents an outbound movement.
	DirectionOut Direction = "OUT"
)

// Valid reports whether the direction is a known value.
func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// ParseDirection converts wire input into a Direction.
func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if !d.Valid() {
		return "", ErrInvalidDirection
	}
	return d, nil
}

// Movement models a single stock ledger entry.
type Movement struct {
	ID        int64
	ProductID int64
	Direction Direction
	Quantity  int64
	Reason    string
	CreatedAt time.Time
}

// AdjustmentInput describes a request to adjust stock.
type AdjustmentInput struct {
	ProductID int64
	Direction Direction
	Quantity  int64
	Reason    string
	Actor     string
}

// MovementFilter filters ledger listings.
type MovementFilter struct {
	ProductID int64
	Limit     int
}

// ErrInvalidQuantity indicates a zero or negative quantity.
var ErrInvalidQuantity = errors.New("ledger: quantity must be positive")

// ErrInvalidDirection indicates an unknown movement direction.
var ErrInvalidDirection = errors.New("ledger: direction must be IN or OUT")

// ErrInsufficientStock triggered when an OUT movement would drive stock negative.
var ErrInsufficientStock = errors.New("ledger: insufficient stock")

// ErrProductNotFound indicates the referenced product does not exist.
var ErrProductNotFound = errors.New("ledger: product not found")
