package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"mayhem-storefront/internal/domain"

	"github.com/google/uuid"
)

type OrderRepo interface {
	FindById(ctx context.Context, id uuid.UUID) (*domain.OrderReview, error)
	// FindLatestPendingByUser returns the most recently created order still in
	// pending-payment for the user, or nil when there is none.
	FindLatestPendingByUser(ctx context.Context, userID uuid.UUID) (*domain.OrderReview, error)
	// ApproveIfPending is the conditional transition. It reports true only when
	// this call moved the order out of pending-payment; a duplicate delivery
	// sees false and must skip every side effect.
	ApproveIfPending(ctx context.Context, id uuid.UUID, orderNumber string, reviewedAt time.Time) (bool, error)
	UpdateFulfillmentDetails(ctx context.Context, id uuid.UUID, d domain.FulfillmentDetails) error
	ListItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error)
	FindStalePending(ctx context.Context, olderThan time.Duration) ([]domain.OrderReview, error)
	CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.OrderReview, items []domain.OrderItem) error
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

const orderColumns = `id, user_id, status, order_number, total, subtotal, shipping, tax,
	shipping_address, billing_address, payment_method, payment_status, payment_provider,
	payment_intent_id, transaction_id, card_last4, card_brand, reviewed_at, created_at, updated_at`

func (r *orderRepo) FindById(ctx context.Context, id uuid.UUID) (*domain.OrderReview, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM order_reviews WHERE id = $1`, id)
	return scanOrder(row)
}

func (r *orderRepo) FindLatestPendingByUser(ctx context.Context, userID uuid.UUID) (*domain.OrderReview, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM order_reviews
		 WHERE user_id = $1 AND status = $2
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID, domain.OrderPendingPayment)
	return scanOrder(row)
}

func (r *orderRepo) ApproveIfPending(ctx context.Context, id uuid.UUID, orderNumber string, reviewedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE order_reviews
		 SET status = $2, payment_status = 'paid', order_number = $3, reviewed_at = $4, updated_at = $4
		 WHERE id = $1 AND status = $5`,
		id, domain.OrderApprovedProcessing, orderNumber, reviewedAt, domain.OrderPendingPayment)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *orderRepo) UpdateFulfillmentDetails(ctx context.Context, id uuid.UUID, d domain.FulfillmentDetails) error {
	shipAddr, err := json.Marshal(d.ShippingAddress)
	if err != nil {
		return err
	}
	billAddr, err := json.Marshal(d.BillingAddress)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE order_reviews
		 SET shipping_address = $2,
		     billing_address = $3,
		     subtotal = COALESCE($4, subtotal),
		     shipping = COALESCE($5, shipping),
		     tax = COALESCE($6, tax),
		     total = COALESCE($7, total),
		     payment_intent_id = $8,
		     transaction_id = $9,
		     payment_method = COALESCE(NULLIF($10, ''), payment_method),
		     payment_provider = $11,
		     updated_at = now()
		 WHERE id = $1`,
		id, shipAddr, billAddr,
		optional(d.Subtotal), optional(d.Shipping), optional(d.Tax), optional(d.Total),
		d.PaymentIntentID, d.TransactionID, d.PaymentMethod, d.PaymentProvider,
	)
	return err
}

func (r *orderRepo) ListItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, order_id, product_id, quantity, price FROM order_items WHERE order_id = $1`,
		orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var it domain.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.Price); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *orderRepo) FindStalePending(ctx context.Context, olderThan time.Duration) ([]domain.OrderReview, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM order_reviews
		 WHERE status = $1 AND updated_at < $2`,
		domain.OrderPendingPayment, time.Now().Add(-olderThan))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.OrderReview
	for rows.Next() {
		order, err := scanOrderFrom(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

func (r *orderRepo) CreateOrder(ctx context.Context, tx *sql.Tx, order *domain.OrderReview, items []domain.OrderItem) error {
	shipAddr, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return err
	}
	billAddr, err := json.Marshal(order.BillingAddress)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_reviews
		 (id, user_id, status, total, subtotal, shipping, tax, shipping_address, billing_address,
		  payment_method, payment_provider, payment_intent_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`,
		order.ID, order.UserID, order.Status, order.Total, order.Subtotal, order.Shipping, order.Tax,
		shipAddr, billAddr, order.PaymentMethod, order.PaymentProvider, order.PaymentIntentID, order.CreatedAt)
	if err != nil {
		return err
	}

	for _, it := range items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO order_items (id, order_id, product_id, quantity, price) VALUES ($1, $2, $3, $4, $5)`,
			it.ID, order.ID, it.ProductID, it.Quantity, it.Price)
		if err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row *sql.Row) (*domain.OrderReview, error) {
	order, err := scanOrderFrom(row)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err // system error
	}
	return order, nil
}

func scanOrderFrom(row rowScanner) (*domain.OrderReview, error) {
	var (
		order    domain.OrderReview
		shipAddr []byte
		billAddr []byte
	)
	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Status,
		&order.OrderNumber,
		&order.Total,
		&order.Subtotal,
		&order.Shipping,
		&order.Tax,
		&shipAddr,
		&billAddr,
		&order.PaymentMethod,
		&order.PaymentStatus,
		&order.PaymentProvider,
		&order.PaymentIntentID,
		&order.TransactionID,
		&order.CardLast4,
		&order.CardBrand,
		&order.ReviewedAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(shipAddr) > 0 {
		if err := json.Unmarshal(shipAddr, &order.ShippingAddress); err != nil {
			return nil, err
		}
	}
	if len(billAddr) > 0 {
		if err := json.Unmarshal(billAddr, &order.BillingAddress); err != nil {
			return nil, err
		}
	}
	return &order, nil
}

// optional maps an unset amount to SQL NULL so COALESCE keeps the stored value.
func optional(a domain.OptionalAmount) *float64 {
	if !a.Set {
		return nil
	}
	return &a.Value
}
