package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"mayhem-storefront/internal/domain"
	"mayhem-storefront/internal/messaging"
	"mayhem-storefront/internal/notify"
	"mayhem-storefront/internal/repo"

	"github.com/google/uuid"
)

// FulfillmentService advances an order's lifecycle in response to verified
// gateway events. Handler errors are for logging only: by the time any of
// these methods run, the webhook response is already committed.
type FulfillmentService interface {
	HandlePaymentSucceeded(ctx context.Context, obj domain.GatewayObject) error
	HandlePaymentFailed(ctx context.Context, obj domain.GatewayObject) error
	// ApproveOrder pushes one already-correlated order through the transition
	// and its side effects. The reconciliation worker uses it for orders the
	// gateway says were charged but whose webhook never landed.
	ApproveOrder(ctx context.Context, order *domain.OrderReview) error
}

type fulfillmentService struct {
	orderRepo repo.OrderRepo
	ledger    LedgerService
	inventory InventoryService
	notifier  notify.Notifier
	publisher messaging.EventPublisher
	provider  string
	now       func() time.Time
}

func NewFulfillmentService(
	orderRepo repo.OrderRepo,
	ledger LedgerService,
	inventory InventoryService,
	notifier notify.Notifier,
	publisher messaging.EventPublisher,
	provider string,
) FulfillmentService {
	return &fulfillmentService{
		orderRepo: orderRepo,
		ledger:    ledger,
		inventory: inventory,
		notifier:  notifier,
		publisher: publisher,
		provider:  provider,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *fulfillmentService) HandlePaymentSucceeded(ctx context.Context, obj domain.GatewayObject) error {
	md, ok := domain.ParseCheckoutMetadata(obj.Metadata)
	if !ok {
		// No correlation key; nothing to transition.
		log.Printf("payment event %s carries no userId metadata, skipping", obj.ID)
		return nil
	}

	order, err := s.correlate(ctx, md)
	if err != nil {
		return err
	}
	if order == nil {
		log.Printf("WARN: no pending-payment order found for user %s (event %s), paid but unmatched", md.UserID, obj.ID)
		return nil
	}

	now := s.now()
	orderNumber := OrderNumber(now, order.ID)

	approved, err := s.orderRepo.ApproveIfPending(ctx, order.ID, orderNumber, now)
	if err != nil {
		return fmt.Errorf("approve order %s: %w", order.ID, err)
	}
	if !approved {
		// Lost the conditional update: a concurrent or earlier delivery
		// already handled this order. Every side effect must be skipped.
		log.Printf("order %s already transitioned, skipping duplicate delivery of %s", order.ID, obj.ID)
		return nil
	}

	// The snapshot is a separate write from the transition. Its failure is
	// logged but does not stop the side-effect steps.
	details := fulfillmentDetailsFrom(md, obj, s.provider)
	if err := s.orderRepo.UpdateFulfillmentDetails(ctx, order.ID, details); err != nil {
		log.Printf("WARN: fulfillment snapshot failed for order %s: %v", order.ID, err)
	}

	s.runSideEffects(ctx, order, orderNumber, obj)
	return nil
}

func (s *fulfillmentService) HandlePaymentFailed(ctx context.Context, obj domain.GatewayObject) error {
	// A failed payment never touches order status. The order lookup is
	// best-effort labeling for the ledger entry only.
	var order *domain.OrderReview
	if md, ok := domain.ParseCheckoutMetadata(obj.Metadata); ok {
		var err error
		order, err = s.correlate(ctx, md)
		if err != nil {
			log.Printf("WARN: order lookup for failed payment %s: %v", obj.ID, err)
		}
	}

	if err := s.ledger.RecordFailure(ctx, order, obj); err != nil {
		return err
	}

	event := &messaging.FulfillmentEvent{
		Type:          "payment.failed",
		TransactionID: obj.ID,
		Amount:        obj.AmountMajor(),
		Timestamp:     s.now(),
	}
	if order != nil {
		event.OrderID = order.ID.String()
		event.UserID = order.UserID.String()
	}
	if err := s.publisher.PublishFulfillmentEvent(ctx, event); err != nil {
		log.Printf("WARN: publish payment.failed event: %v", err)
	}
	return nil
}

func (s *fulfillmentService) ApproveOrder(ctx context.Context, order *domain.OrderReview) error {
	now := s.now()
	orderNumber := OrderNumber(now, order.ID)

	approved, err := s.orderRepo.ApproveIfPending(ctx, order.ID, orderNumber, now)
	if err != nil {
		return fmt.Errorf("approve order %s: %w", order.ID, err)
	}
	if !approved {
		log.Printf("order %s already transitioned, skipping", order.ID)
		return nil
	}

	// The webhook never arrived, so reconstruct the gateway object from what
	// the order recorded at checkout time. Totals like 19.99 are not exact in
	// float64, so the minor-unit conversion must round, not truncate.
	obj := domain.GatewayObject{
		ID:       order.PaymentIntentID,
		Amount:   int64(math.Round(order.Total * 100)),
		Customer: order.UserID.String(),
	}
	s.runSideEffects(ctx, order, orderNumber, obj)
	return nil
}

// correlate maps checkout metadata to a local order: a direct id join when
// checkout embedded the order id, otherwise the newest pending-payment order
// for the user.
func (s *fulfillmentService) correlate(ctx context.Context, md domain.CheckoutMetadata) (*domain.OrderReview, error) {
	if md.OrderID != uuid.Nil {
		order, err := s.orderRepo.FindById(ctx, md.OrderID)
		if err != nil {
			return nil, fmt.Errorf("find order %s: %w", md.OrderID, err)
		}
		if order != nil && order.UserID == md.UserID && order.Status == domain.OrderPendingPayment {
			return order, nil
		}
		// Fall through to the recency heuristic when the embedded id does not
		// resolve to a pending order for this user.
	}

	order, err := s.orderRepo.FindLatestPendingByUser(ctx, md.UserID)
	if err != nil {
		return nil, fmt.Errorf("find pending order for user %s: %w", md.UserID, err)
	}
	return order, nil
}

// sideEffectStep is one isolated unit of post-transition work. Every step
// runs regardless of what earlier steps did; outcomes are aggregated into a
// single log line.
type sideEffectStep struct {
	name string
	run  func(ctx context.Context) error
}

func (s *fulfillmentService) runSideEffects(ctx context.Context, order *domain.OrderReview, orderNumber string, obj domain.GatewayObject) {
	steps := []sideEffectStep{
		{name: "inventory", run: func(ctx context.Context) error {
			return s.inventory.DeductForOrder(ctx, order.ID)
		}},
		{name: "ledger", run: func(ctx context.Context) error {
			return s.ledger.RecordPayment(ctx, order, orderNumber, obj)
		}},
		{name: "notify", run: func(ctx context.Context) error {
			s.broadcast(order, orderNumber, obj)
			return nil
		}},
		{name: "publish", run: func(ctx context.Context) error {
			return s.publisher.PublishFulfillmentEvent(ctx, &messaging.FulfillmentEvent{
				Type:          "order.paid",
				OrderID:       order.ID.String(),
				UserID:        order.UserID.String(),
				OrderNumber:   orderNumber,
				Amount:        obj.AmountMajor(),
				TransactionID: obj.ID,
				Timestamp:     s.now(),
			})
		}},
	}

	outcomes := make([]string, 0, len(steps))
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			log.Printf("WARN: %s step failed for order %s: %v", step.name, order.ID, err)
			outcomes = append(outcomes, step.name+"=failed")
			continue
		}
		outcomes = append(outcomes, step.name+"=ok")
	}
	log.Printf("order %s approved (%s): %s", order.ID, orderNumber, strings.Join(outcomes, " "))
}

func (s *fulfillmentService) broadcast(order *domain.OrderReview, orderNumber string, obj domain.GatewayObject) {
	amount := obj.AmountMajor()

	s.notifier.Emit(notify.AdminRoom, domain.NotifyOrderPaid, map[string]any{
		"orderId":     order.ID.String(),
		"orderNumber": orderNumber,
		"amount":      amount,
		"message":     fmt.Sprintf("Order %s paid ($%.2f)", orderNumber, amount),
	})

	s.notifier.Emit(notify.UserRoom(order.UserID.String()), domain.NotifyOrderStatusChanged, map[string]any{
		"orderId":         order.ID.String(),
		"previousStatus":  string(domain.OrderPendingPayment),
		"status":          string(domain.OrderApprovedProcessing),
		"paymentIntentId": obj.ID,
	})
}

func fulfillmentDetailsFrom(md domain.CheckoutMetadata, obj domain.GatewayObject, provider string) domain.FulfillmentDetails {
	// Checkout sessions reference the intent separately; intents are their own
	// correlation id.
	intentID := obj.PaymentIntent
	if intentID == "" {
		intentID = obj.ID
	}

	addr := md.ShippingAddress()
	return domain.FulfillmentDetails{
		ShippingAddress: addr,
		BillingAddress:  addr,
		Subtotal:        md.Subtotal,
		Shipping:        md.Shipping,
		Tax:             md.Tax,
		Total:           md.Total,
		PaymentIntentID: intentID,
		TransactionID:   obj.ID,
		PaymentMethod:   obj.PaymentMethod,
		PaymentProvider: provider,
	}
}
