package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// CheckoutMetadata is the typed view of the free-form metadata map the checkout
// flow attaches to intents and sessions. Every field except UserID is optional;
// optional strings are empty when absent and optional numbers carry an explicit
// presence flag so "0.00" and "not sent" stay distinguishable.
type CheckoutMetadata struct {
	UserID  uuid.UUID
	OrderID uuid.UUID // zero when checkout did not embed the order id

	FirstName string
	LastName  string
	Phone     string
	Street    string
	City      string
	State     string
	ZipCode   string
	Country   string

	Subtotal OptionalAmount
	Shipping OptionalAmount
	Tax      OptionalAmount
	Total    OptionalAmount
}

type OptionalAmount struct {
	Value float64
	Set   bool
}

// ParseCheckoutMetadata validates the metadata map once at the boundary.
// A missing or malformed userId returns ok=false: the event cannot be
// correlated to any order. Malformed optional fields are dropped, not errors.
func ParseCheckoutMetadata(m map[string]string) (CheckoutMetadata, bool) {
	var md CheckoutMetadata

	userID, err := uuid.Parse(strings.TrimSpace(m["userId"]))
	if err != nil {
		return md, false
	}
	md.UserID = userID

	if id, err := uuid.Parse(strings.TrimSpace(m["orderId"])); err == nil {
		md.OrderID = id
	}

	md.FirstName = m["firstName"]
	md.LastName = m["lastName"]
	md.Phone = m["phone"]
	md.Street = m["street"]
	md.City = m["city"]
	md.State = m["state"]
	md.ZipCode = m["zipCode"]
	md.Country = m["country"]

	md.Subtotal = parseAmount(m["subtotal"])
	md.Shipping = parseAmount(m["shipping"])
	md.Tax = parseAmount(m["tax"])
	md.Total = parseAmount(m["total"])

	return md, true
}

func (md CheckoutMetadata) ShippingAddress() Address {
	return Address{
		FirstName: md.FirstName,
		LastName:  md.LastName,
		Phone:     md.Phone,
		Street:    md.Street,
		City:      md.City,
		State:     md.State,
		ZipCode:   md.ZipCode,
		Country:   md.Country,
	}
}

func parseAmount(s string) OptionalAmount {
	s = strings.TrimSpace(s)
	if s == "" {
		return OptionalAmount{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return OptionalAmount{}
	}
	return OptionalAmount{Value: v, Set: true}
}
