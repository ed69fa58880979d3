package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product is owned by the catalog subsystem; fulfillment only ever decrements
// its stock, floored at zero.
type Product struct {
	ID        uuid.UUID
	SKU       string
	Name      string
	Stock     int
	Price     float64
	CreatedAt time.Time
	UpdatedAt time.Time
}
