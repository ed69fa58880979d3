package repo

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"mayhem-storefront/internal/database"
	"mayhem-storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	pgc, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("storefront"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(pgc)
	})

	dsn, err := pgc.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Bootstrap(ctx, db))
	return db
}

func seedOrder(t *testing.T, db *sql.DB, r OrderRepo, order *domain.OrderReview, items ...domain.OrderItem) {
	t.Helper()
	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, r.CreateOrder(ctx, tx, order, items))
	require.NoError(t, tx.Commit())
}

func TestApproveIfPending_ConditionalUpdate(t *testing.T) {
	db := setupDB(t)
	r := NewOrderRepo(db)
	ctx := context.Background()

	order := &domain.OrderReview{
		ID: uuid.New(), UserID: uuid.New(), Status: domain.OrderPendingPayment,
		Total: 100, CreatedAt: time.Now().UTC(),
	}
	seedOrder(t, db, r, order)

	now := time.Now().UTC()
	approved, err := r.ApproveIfPending(ctx, order.ID, "ORD-1-x", now)
	require.NoError(t, err)
	assert.True(t, approved, "first delivery wins the conditional update")

	// The replay sees zero rows affected.
	approved, err = r.ApproveIfPending(ctx, order.ID, "ORD-2-x", now)
	require.NoError(t, err)
	assert.False(t, approved, "duplicate delivery loses")

	got, err := r.FindById(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.OrderApprovedProcessing, got.Status)
	assert.Equal(t, "ORD-1-x", got.OrderNumber, "order number from the winning delivery only")
	assert.NotNil(t, got.ReviewedAt)
}

func TestFindLatestPendingByUser_TieBreak(t *testing.T) {
	db := setupDB(t)
	r := NewOrderRepo(db)
	ctx := context.Background()

	userID := uuid.New()
	older := &domain.OrderReview{
		ID: uuid.New(), UserID: userID, Status: domain.OrderPendingPayment,
		CreatedAt: time.Now().UTC().Add(-1 * time.Hour),
	}
	newer := &domain.OrderReview{
		ID: uuid.New(), UserID: userID, Status: domain.OrderPendingPayment,
		CreatedAt: time.Now().UTC(),
	}
	seedOrder(t, db, r, older)
	seedOrder(t, db, r, newer)

	got, err := r.FindLatestPendingByUser(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID, "most recently created pending order wins")

	missing, err := r.FindLatestPendingByUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateFulfillmentDetails_OptionalFields(t *testing.T) {
	db := setupDB(t)
	r := NewOrderRepo(db)
	ctx := context.Background()

	order := &domain.OrderReview{
		ID: uuid.New(), UserID: uuid.New(), Status: domain.OrderPendingPayment,
		Subtotal: 90, Shipping: 5, Total: 100, CreatedAt: time.Now().UTC(),
	}
	seedOrder(t, db, r, order)

	err := r.UpdateFulfillmentDetails(ctx, order.ID, domain.FulfillmentDetails{
		ShippingAddress: domain.Address{Street: "1 Main St", City: "Austin"},
		Subtotal:        domain.OptionalAmount{Value: 95, Set: true},
		// Shipping absent: stored value must survive
		PaymentIntentID: "pi_snap_1",
		TransactionID:   "cs_snap_1",
		PaymentProvider: "stripe",
	})
	require.NoError(t, err)

	got, err := r.FindById(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "1 Main St", got.ShippingAddress.Street)
	assert.InDelta(t, 95.0, got.Subtotal, 0.001)
	assert.InDelta(t, 5.0, got.Shipping, 0.001, "absent optional field leaves value untouched")
	assert.Equal(t, "pi_snap_1", got.PaymentIntentID)
}

func TestLedgerInsert_DuplicateTransactionID(t *testing.T) {
	db := setupDB(t)
	r := NewLedgerRepo(db)
	ctx := context.Background()

	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		Amount:        100,
		Currency:      "usd",
		Status:        domain.LedgerCompleted,
		TransactionID: "stripe-pi_dup",
		RawPayload:    []byte(`{"id":"pi_dup"}`),
		Fees:          3.20,
		NetAmount:     96.80,
		CreatedAt:     time.Now().UTC(),
	}

	created, err := r.Insert(ctx, entry)
	require.NoError(t, err)
	assert.True(t, created)

	dup := *entry
	dup.ID = uuid.New()
	created, err = r.Insert(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, created, "second insert with same transaction id is skipped")

	got, err := r.FindByTransactionId(ctx, "stripe-pi_dup")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.ID, got.ID, "first entry survived")
	assert.InDelta(t, 3.20, got.Fees, 0.001)
}

func TestStockRepo_DecrementFlooredAtZero(t *testing.T) {
	db := setupDB(t)
	r := NewStockRepo(db)
	ctx := context.Background()

	p := &domain.Product{
		ID: uuid.New(), SKU: "MUG-01", Name: "Mug", Stock: 3, Price: 25,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, r.CreateProduct(ctx, p))

	require.NoError(t, r.DecrementFloored(ctx, p.ID, 9))
	stock, err := r.GetStock(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stock, "quantity larger than stock floors at zero")

	err = r.DecrementFloored(ctx, uuid.New(), 1)
	assert.Error(t, err, "unknown product")
}

func TestStockRepo_ClaimDeductionOnce(t *testing.T) {
	db := setupDB(t)
	r := NewStockRepo(db)
	ctx := context.Background()

	orderID := uuid.New()

	claimed, err := r.ClaimDeduction(ctx, orderID)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = r.ClaimDeduction(ctx, orderID)
	require.NoError(t, err)
	assert.False(t, claimed, "replayed claim is rejected")
}
