package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type LedgerStatus string

const (
	LedgerCompleted LedgerStatus = "completed"
	LedgerFailed    LedgerStatus = "failed"
)

// LedgerEntry is one immutable financial record per gateway transaction.
// Entries are inserted once and never updated or deleted.
type LedgerEntry struct {
	ID                    uuid.UUID
	OrderID               uuid.UUID
	OrderNumber           string
	CustomerID            string
	CustomerName          string
	CustomerEmail         string
	Amount                float64
	Currency              string
	Provider              string
	PaymentMethod         string
	Status                LedgerStatus
	TransactionID         string
	ProviderTransactionID string
	RawPayload            json.RawMessage
	Fees                  float64
	NetAmount             float64
	Metadata              map[string]string
	Notes                 string
	CreatedAt             time.Time
}
