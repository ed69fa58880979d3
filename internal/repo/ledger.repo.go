package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"mayhem-storefront/internal/domain"

	"github.com/google/uuid"
)

type LedgerRepo interface {
	// Insert persists one immutable ledger entry. It reports created=false when
	// an entry with the same transaction id already exists; the row is left
	// untouched in that case.
	Insert(ctx context.Context, e *domain.LedgerEntry) (bool, error)
	FindByTransactionId(ctx context.Context, transactionID string) (*domain.LedgerEntry, error)
}

type ledgerRepo struct {
	db *sql.DB
}

func NewLedgerRepo(db *sql.DB) LedgerRepo {
	return &ledgerRepo{db: db}
}

func (r *ledgerRepo) Insert(ctx context.Context, e *domain.LedgerEntry) (bool, error) {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return false, err
	}
	raw := e.RawPayload
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}

	var orderID any
	if e.OrderID != uuid.Nil {
		orderID = e.OrderID
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_ledger
		 (id, order_id, order_number, customer_id, customer_name, customer_email,
		  amount, currency, provider, payment_method, status, transaction_id,
		  provider_transaction_id, raw_payload, fees, net_amount, metadata, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		 ON CONFLICT (transaction_id) DO NOTHING`,
		e.ID, orderID, e.OrderNumber, e.CustomerID, e.CustomerName, e.CustomerEmail,
		e.Amount, e.Currency, e.Provider, e.PaymentMethod, e.Status, e.TransactionID,
		e.ProviderTransactionID, []byte(raw), e.Fees, e.NetAmount, metadata, e.Notes, e.CreatedAt)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *ledgerRepo) FindByTransactionId(ctx context.Context, transactionID string) (*domain.LedgerEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, order_id, order_number, customer_id, customer_name, customer_email,
		        amount, currency, provider, payment_method, status, transaction_id,
		        provider_transaction_id, raw_payload, fees, net_amount, metadata, notes, created_at
		 FROM payment_ledger WHERE transaction_id = $1`,
		transactionID)

	var (
		e        domain.LedgerEntry
		orderID  sql.NullString
		raw      []byte
		metadata []byte
	)
	err := row.Scan(
		&e.ID,
		&orderID,
		&e.OrderNumber,
		&e.CustomerID,
		&e.CustomerName,
		&e.CustomerEmail,
		&e.Amount,
		&e.Currency,
		&e.Provider,
		&e.PaymentMethod,
		&e.Status,
		&e.TransactionID,
		&e.ProviderTransactionID,
		&raw,
		&e.Fees,
		&e.NetAmount,
		&metadata,
		&e.Notes,
		&e.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}
	if orderID.Valid {
		if id, err := uuid.Parse(orderID.String); err == nil {
			e.OrderID = id
		}
	}
	e.RawPayload = json.RawMessage(raw)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, err
		}
	}
	return &e, nil
}
