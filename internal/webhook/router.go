package webhook

import (
	"context"
	"log"

	"mayhem-storefront/internal/domain"
	"mayhem-storefront/internal/service"
)

// EventHandler receives the event's data.object only; the envelope never
// leaves the router.
type EventHandler func(ctx context.Context, obj domain.GatewayObject) error

// Router maps verified events to handlers by exact type match against a
// closed allow-list. Unknown types are reported unsupported so the HTTP layer
// can acknowledge them without processing.
type Router struct {
	handlers map[string]EventHandler
}

func NewRouter(fulfillment service.FulfillmentService) *Router {
	r := &Router{handlers: make(map[string]EventHandler)}

	r.handlers[domain.EventPaymentIntentSucceeded] = fulfillment.HandlePaymentSucceeded
	r.handlers[domain.EventCheckoutCompleted] = fulfillment.HandlePaymentSucceeded
	r.handlers[domain.EventPaymentIntentFailed] = fulfillment.HandlePaymentFailed

	// Acknowledged, logged, nothing else. Refunds, disputes and subscription
	// lifecycle are handled by back-office tooling, not this pipeline.
	for _, t := range []string{
		domain.EventPaymentIntentCreated,
		domain.EventCheckoutExpired,
		domain.EventChargeSucceeded,
		domain.EventChargeUpdated,
		domain.EventChargeRefunded,
		domain.EventDisputeCreated,
		domain.EventCustomerCreated,
		domain.EventInvoicePaid,
		domain.EventInvoiceFailed,
		domain.EventSubscriptionCreated,
		domain.EventSubscriptionUpdated,
		domain.EventSubscriptionDeleted,
	} {
		r.handlers[t] = logOnly(t)
	}

	return r
}

// Dispatch runs the handler for the event type, if one exists. Handler errors
// are logged and swallowed here: once an event is classified the response is
// committed as success, and failure information lives in the logs only.
func (r *Router) Dispatch(ctx context.Context, event domain.PaymentEvent) (supported bool) {
	handler, ok := r.handlers[event.Type]
	if !ok {
		return false
	}

	if err := handler(ctx, event.Data.Object); err != nil {
		log.Printf("WARN: handler for %s event %s failed (acked anyway): %v", event.Type, event.ID, err)
	}
	return true
}

func logOnly(eventType string) EventHandler {
	return func(ctx context.Context, obj domain.GatewayObject) error {
		log.Printf("received %s for %s, no action", eventType, obj.ID)
		return nil
	}
}
