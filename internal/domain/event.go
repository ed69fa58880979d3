package domain

import "encoding/json"

// Gateway event types. The router only dispatches exact matches from this set;
// anything else is acknowledged without processing.
const (
	EventPaymentIntentSucceeded = "payment_intent.succeeded"
	EventPaymentIntentFailed    = "payment_intent.payment_failed"
	EventPaymentIntentCreated   = "payment_intent.created"
	EventCheckoutCompleted      = "checkout.session.completed"
	EventCheckoutExpired        = "checkout.session.expired"
	EventChargeSucceeded        = "charge.succeeded"
	EventChargeUpdated          = "charge.updated"
	EventChargeRefunded         = "charge.refunded"
	EventDisputeCreated         = "charge.dispute.created"
	EventCustomerCreated        = "customer.created"
	EventInvoicePaid            = "invoice.paid"
	EventInvoiceFailed          = "invoice.payment_failed"
	EventSubscriptionCreated    = "customer.subscription.created"
	EventSubscriptionUpdated    = "customer.subscription.updated"
	EventSubscriptionDeleted    = "customer.subscription.deleted"
)

// PaymentEvent is the gateway's webhook envelope.
type PaymentEvent struct {
	ID   string           `json:"id"`
	Type string           `json:"type"`
	Data PaymentEventData `json:"data"`
}

type PaymentEventData struct {
	Object GatewayObject `json:"object"`
}

// GatewayObject is the gateway-side object (payment intent, checkout session,
// charge, ...). Only the fields this subsystem consumes are mapped; Raw keeps
// the untouched payload for the ledger's audit capture.
type GatewayObject struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`          // minor units, payment intents
	AmountTotal    int64             `json:"amount_total"`    // minor units, checkout sessions
	Currency       string            `json:"currency"`
	Customer       string            `json:"customer"`
	CustomerName   string            `json:"customer_name"`
	CustomerEmail  string            `json:"customer_email"`
	PaymentIntent  string            `json:"payment_intent"`
	PaymentMethod  string            `json:"payment_method"`
	Status         string            `json:"status"`
	Metadata       map[string]string `json:"metadata"`
	Raw            json.RawMessage   `json:"-"`
}

// UnmarshalJSON keeps the raw object bytes alongside the mapped fields so the
// ledger can persist the payload exactly as the gateway sent it.
func (d *PaymentEventData) UnmarshalJSON(b []byte) error {
	var wrap struct {
		Object json.RawMessage `json:"object"`
	}
	if err := json.Unmarshal(b, &wrap); err != nil {
		return err
	}
	var obj GatewayObject
	if len(wrap.Object) > 0 {
		if err := json.Unmarshal(wrap.Object, &obj); err != nil {
			return err
		}
		obj.Raw = wrap.Object
	}
	d.Object = obj
	return nil
}

// AmountMajor returns the object's amount in major currency units. Checkout
// sessions carry amount_total, payment intents carry amount.
func (o GatewayObject) AmountMajor() float64 {
	if o.AmountTotal != 0 {
		return float64(o.AmountTotal) / 100
	}
	return float64(o.Amount) / 100
}
