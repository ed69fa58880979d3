package repo

import (
	"context"
	"database/sql"
	"fmt"

	"mayhem-storefront/internal/domain"

	"github.com/google/uuid"
)

type StockRepo interface {
	// ClaimDeduction atomically records that stock for the order has been
	// deducted. It reports true for the first caller and false for every
	// replay; only the first caller may decrement.
	ClaimDeduction(ctx context.Context, orderID uuid.UUID) (bool, error)
	// DecrementFloored decrements a product's stock by quantity, never below
	// zero. Unknown products are an error.
	DecrementFloored(ctx context.Context, productID uuid.UUID, quantity int) error
	GetStock(ctx context.Context, productID uuid.UUID) (int, error)
	CreateProduct(ctx context.Context, p *domain.Product) error
}

type stockRepo struct {
	db *sql.DB
}

func NewStockRepo(db *sql.DB) StockRepo {
	return &stockRepo{db: db}
}

func (r *stockRepo) ClaimDeduction(ctx context.Context, orderID uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO inventory_deductions (order_id) VALUES ($1) ON CONFLICT (order_id) DO NOTHING`,
		orderID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *stockRepo) DecrementFloored(ctx context.Context, productID uuid.UUID, quantity int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET stock = GREATEST(stock - $2, 0), updated_at = now() WHERE id = $1`,
		productID, quantity)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("product %s not found", productID)
	}
	return nil
}

func (r *stockRepo) GetStock(ctx context.Context, productID uuid.UUID) (int, error) {
	var stock int
	err := r.db.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
	if err != nil {
		return 0, err
	}
	return stock, nil
}

func (r *stockRepo) CreateProduct(ctx context.Context, p *domain.Product) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (id, sku, name, stock, price, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.SKU, p.Name, p.Stock, p.Price, p.CreatedAt, p.UpdatedAt)
	return err
}
