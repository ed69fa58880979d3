package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderPendingPayment     OrderStatus = "pending-payment"
	OrderApprovedProcessing OrderStatus = "approved-processing"
)

// Address is the structured snapshot persisted onto the order at approval time.
type Address struct {
	FirstName string
	LastName  string
	Phone     string
	Street    string
	City      string
	State     string
	ZipCode   string
	Country   string
}

type OrderReview struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Status          OrderStatus
	OrderNumber     string
	Total           float64
	Subtotal        float64
	Shipping        float64
	Tax             float64
	ShippingAddress Address
	BillingAddress  Address
	PaymentMethod   string
	PaymentStatus   string
	PaymentProvider string
	PaymentIntentID string
	TransactionID   string
	CardLast4       string
	CardBrand       string
	ReviewedAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FulfillmentDetails is the snapshot written onto an order after a successful
// transition. Pricing fields are optional; absent ones leave the stored value
// untouched.
type FulfillmentDetails struct {
	ShippingAddress Address
	BillingAddress  Address
	Subtotal        OptionalAmount
	Shipping        OptionalAmount
	Tax             OptionalAmount
	Total           OptionalAmount
	PaymentIntentID string
	TransactionID   string
	PaymentMethod   string
	PaymentProvider string
	PaymentStatus   string
}

type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int
	Price     float64
}
