package models

import "time"

// Payment methods offered at checkout.
const (
	PaymentCard           = "card"
	PaymentPayPal         = "paypal"
	PaymentBankTransfer   = "bank_transfer"
	PaymentCashOnDelivery = "cash_on_delivery"
)

// Payment statuses recorded on an order.
const (
	PaymentStatusPaid             = "paid"
	PaymentStatusFailed           = "failed"
	PaymentStatusAwaitingTransfer = "awaiting_transfer"
	PaymentStatusDueOnDelivery    = "due_on_delivery"
)

// Order statuses.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

var orderTransitions = map[string][]string{
	OrderPending:    {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Address struct {
	FullName   string `json:"full_name" bson:"full_name" validate:"required"`
	Line1      string `json:"line1" bson:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty" bson:"line2,omitempty"`
	City       string `json:"city" bson:"city" validate:"required"`
	PostalCode string `json:"postal_code" bson:"postal_code" validate:"required"`
	Country    string `json:"country" bson:"country" validate:"required"`
	Phone      string `json:"phone,omitempty" bson:"phone,omitempty"`
}

type Order struct {
	ID            string     `json:"id" bson:"_id"`
	UserID        string     `json:"user_id" bson:"user_id"`
	Email         string     `json:"email" bson:"email"`
	Items         []LineItem `json:"items" bson:"items"`
	Total         Price      `json:"total" bson:"total"`
	Shipping      Address    `json:"shipping" bson:"shipping"`
	PaymentMethod string     `json:"payment_method" bson:"payment_method"`
	PaymentStatus string     `json:"payment_status" bson:"payment_status"`
	PaymentRef    string     `json:"payment_ref,omitempty" bson:"payment_ref,omitempty"`
	Status        string     `json:"status" bson:"status"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" bson:"updated_at"`
}

// PlaceOrderRequest is the checkout payload. PaymentRef is the Stripe
// PaymentIntent id for card payments and the capture id for PayPal.
type PlaceOrderRequest struct {
	Shipping      Address `json:"shipping"`
	PaymentMethod string  `json:"payment_method" validate:"required,oneof=card paypal bank_transfer cash_on_delivery"`
	PaymentRef    string  `json:"payment_ref" validate:"required_if=PaymentMethod card,required_if=PaymentMethod paypal"`
}

type OrderStatusUpdate struct {
	Status string `json:"status" validate:"required,oneof=pending processing shipped delivered cancelled"`
}
