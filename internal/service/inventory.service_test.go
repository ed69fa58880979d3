package service

import (
	"context"
	"testing"
	"time"

	"mayhem-storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeductForOrder_AtMostOnce(t *testing.T) {
	orders := newFakeOrderRepo()
	stock := newFakeStockRepo()
	svc := NewInventoryService(orders, stock)

	productID := uuid.New()
	stock.stock[productID] = 10
	order := pendingOrder(uuid.New(), time.Now())
	orders.add(order, domain.OrderItem{ID: uuid.New(), OrderID: order.ID, ProductID: productID, Quantity: 4})

	require.NoError(t, svc.DeductForOrder(context.Background(), order.ID))
	require.NoError(t, svc.DeductForOrder(context.Background(), order.ID))
	require.NoError(t, svc.DeductForOrder(context.Background(), order.ID))

	assert.Equal(t, 6, stock.stock[productID])
}

func TestDeductForOrder_FloorsAtZero(t *testing.T) {
	orders := newFakeOrderRepo()
	stock := newFakeStockRepo()
	svc := NewInventoryService(orders, stock)

	productID := uuid.New()
	stock.stock[productID] = 3
	order := pendingOrder(uuid.New(), time.Now())
	orders.add(order, domain.OrderItem{ID: uuid.New(), OrderID: order.ID, ProductID: productID, Quantity: 9})

	require.NoError(t, svc.DeductForOrder(context.Background(), order.ID))
	assert.Equal(t, 0, stock.stock[productID], "never negative")
}

func TestDeductForOrder_MissingItemDoesNotStopOthers(t *testing.T) {
	orders := newFakeOrderRepo()
	stock := newFakeStockRepo()
	svc := NewInventoryService(orders, stock)

	known := uuid.New()
	stock.stock[known] = 5
	order := pendingOrder(uuid.New(), time.Now())
	orders.add(order,
		domain.OrderItem{ID: uuid.New(), OrderID: order.ID, ProductID: uuid.New(), Quantity: 1}, // unknown product
		domain.OrderItem{ID: uuid.New(), OrderID: order.ID, ProductID: known, Quantity: 2},
	)

	err := svc.DeductForOrder(context.Background(), order.ID)
	assert.Error(t, err, "incomplete deduction is reported")
	assert.Equal(t, 3, stock.stock[known], "remaining items still deducted")
}
