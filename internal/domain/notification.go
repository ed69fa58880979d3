package domain

import "time"

// Notification is the transient realtime envelope. It is never persisted;
// rooms with no listener drop it.
type Notification struct {
	Room      string         `json:"room"`
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

const (
	NotifyOrderPaid          = "order.paid"
	NotifyOrderStatusChanged = "order.status_changed"
)
