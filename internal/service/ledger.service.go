package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"mayhem-storefront/internal/domain"
	"mayhem-storefront/internal/repo"

	"github.com/google/uuid"
)

// FeeSchedule mirrors the gateway's published pricing: a percentage rate plus
// a fixed per-transaction fee, both applied to the gross amount.
type FeeSchedule struct {
	Rate  float64
	Fixed float64
}

func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{Rate: 0.029, Fixed: 0.30}
}

// Split returns (fees, net) rounded to cents. amount=100.00 gives fees=3.20
// and net=96.80 under the default schedule.
func (f FeeSchedule) Split(amount float64) (float64, float64) {
	fees := roundCents(amount*f.Rate + f.Fixed)
	return fees, roundCents(amount - fees)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// OrderNumber is deterministic for a given order and approval instant, so a
// replayed delivery that loses the conditional update never mints a second
// number.
func OrderNumber(at time.Time, orderID uuid.UUID) string {
	return fmt.Sprintf("ORD-%d-%s", at.UnixMilli(), orderID)
}

type LedgerService interface {
	// RecordPayment writes the completed-transaction entry. Replays of the
	// same gateway transaction are skipped, not duplicated.
	RecordPayment(ctx context.Context, order *domain.OrderReview, orderNumber string, obj domain.GatewayObject) error
	// RecordFailure writes a failed-transaction entry with zero fees and net.
	RecordFailure(ctx context.Context, order *domain.OrderReview, obj domain.GatewayObject) error
}

type ledgerService struct {
	ledgerRepo repo.LedgerRepo
	fees       FeeSchedule
	provider   string
	now        func() time.Time
}

func NewLedgerService(ledgerRepo repo.LedgerRepo, fees FeeSchedule, provider string) LedgerService {
	return &ledgerService{
		ledgerRepo: ledgerRepo,
		fees:       fees,
		provider:   provider,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *ledgerService) RecordPayment(ctx context.Context, order *domain.OrderReview, orderNumber string, obj domain.GatewayObject) error {
	amount := obj.AmountMajor()
	fees, net := s.fees.Split(amount)

	entry := s.buildEntry(order, obj)
	entry.OrderNumber = orderNumber
	entry.Amount = amount
	entry.Status = domain.LedgerCompleted
	entry.Fees = fees
	entry.NetAmount = net

	return s.insert(ctx, entry)
}

func (s *ledgerService) RecordFailure(ctx context.Context, order *domain.OrderReview, obj domain.GatewayObject) error {
	entry := s.buildEntry(order, obj)
	entry.Amount = obj.AmountMajor()
	entry.Status = domain.LedgerFailed
	entry.Notes = "gateway reported payment failure"
	if order != nil {
		entry.OrderNumber = order.OrderNumber
	}

	return s.insert(ctx, entry)
}

func (s *ledgerService) buildEntry(order *domain.OrderReview, obj domain.GatewayObject) *domain.LedgerEntry {
	currency := obj.Currency
	if currency == "" {
		currency = "usd"
	}
	providerTxn := obj.PaymentIntent
	if providerTxn == "" {
		providerTxn = obj.ID
	}

	entry := &domain.LedgerEntry{
		ID:                    uuid.New(),
		CustomerID:            obj.Customer,
		CustomerName:          obj.CustomerName,
		CustomerEmail:         obj.CustomerEmail,
		Currency:              currency,
		Provider:              s.provider,
		PaymentMethod:         obj.PaymentMethod,
		TransactionID:         fmt.Sprintf("%s-%s", s.provider, obj.ID),
		ProviderTransactionID: providerTxn,
		RawPayload:            obj.Raw,
		Metadata:              obj.Metadata,
		CreatedAt:             s.now(),
	}
	if order != nil {
		entry.OrderID = order.ID
	}
	return entry
}

func (s *ledgerService) insert(ctx context.Context, entry *domain.LedgerEntry) error {
	created, err := s.ledgerRepo.Insert(ctx, entry)
	if err != nil {
		return fmt.Errorf("ledger insert for txn %s: %w", entry.TransactionID, err)
	}
	if !created {
		log.Printf("ledger entry already recorded for txn %s, skipping", entry.TransactionID)
	}
	return nil
}
