package models

import "time"

// Event types published to SNS.
const (
	EventOrderPlaced     = "order_placed"
	EventPaymentSuccess  = "payment_succeeded"
	EventPaymentFailure  = "payment_failed"
	EventUserRegistered  = "user_registered"
	EventSubscriberAdded = "subscriber_added"
)

// DomainEvent is the envelope of every published message.
type DomainEvent struct {
	EventType  string            `json:"event_type"`
	OccurredAt time.Time         `json:"occurred_at"`
	UserID     string            `json:"user_id,omitempty"`
	OrderID    string            `json:"order_id,omitempty"`
	PaymentRef string            `json:"payment_ref,omitempty"`
	Amount     Price             `json:"amount,omitempty"`
	Email      string            `json:"email,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}
