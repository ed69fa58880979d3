package worker

import (
	"context"
	"log"
	"time"

	"mayhem-storefront/internal/infrastructure/payment"
	"mayhem-storefront/internal/repo"
	"mayhem-storefront/internal/service"
)

// ReconciliationWorker sweeps orders stuck in pending-payment. A webhook can
// be lost or arrive without a usable correlation key; the gateway remains the
// source of truth, so stuck orders it reports as charged are pushed through
// the normal (idempotent) approval path.
type ReconciliationWorker struct {
	orderRepo   repo.OrderRepo
	gateway     payment.Gateway
	fulfillment service.FulfillmentService
	interval    time.Duration
	staleAfter  time.Duration
}

func NewReconciliationWorker(
	orderRepo repo.OrderRepo,
	gateway payment.Gateway,
	fulfillment service.FulfillmentService,
	interval time.Duration,
	staleAfter time.Duration,
) *ReconciliationWorker {
	return &ReconciliationWorker{
		orderRepo:   orderRepo,
		gateway:     gateway,
		fulfillment: fulfillment,
		interval:    interval,
		staleAfter:  staleAfter,
	}
}

func (rw *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(rw.interval)
	defer ticker.Stop()

	log.Println("Reconciliation worker started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := rw.process(ctx); err != nil {
				log.Printf("Reconciliation failed: %v", err)
			}
		}
	}
}

func (rw *ReconciliationWorker) process(ctx context.Context) error {
	stuck, err := rw.orderRepo.FindStalePending(ctx, rw.staleAfter)
	if err != nil {
		return err
	}

	if len(stuck) == 0 {
		return nil
	}

	log.Printf("Found %d stale pending-payment orders", len(stuck))

	for i := range stuck {
		order := &stuck[i]

		if order.PaymentIntentID == "" {
			// Checkout never attached an intent; nothing to ask the gateway.
			log.Printf("stale order %s has no payment intent, needs manual review", order.ID)
			continue
		}

		paid, err := rw.gateway.CheckIntentStatus(ctx, order.PaymentIntentID)
		if err != nil {
			log.Printf("Failed to check status for order %s: %v", order.ID, err)
			continue // leave it for the next sweep
		}

		if !paid {
			// Abandoned checkout. Cancellation is owned downstream; just flag it.
			log.Printf("stale order %s not charged at gateway, leaving pending", order.ID)
			continue
		}

		log.Printf("Found GHOST ORDER %s: charged at gateway, never transitioned. Approving", order.ID)
		if err := rw.fulfillment.ApproveOrder(ctx, order); err != nil {
			log.Printf("Failed to approve ghost order %s: %v", order.ID, err)
		}
	}
	return nil
}
