package models

import "time"

// MaxLineQuantity caps the quantity of a single cart line.
const MaxLineQuantity = 99

// LineItem is one product in a cart or order. Quantity is between 1 and
// MaxLineQuantity and Price always has two decimal places.
type LineItem struct {
	ProductID   string    `json:"id" bson:"product_id" validate:"required"`
	Title       string    `json:"title" bson:"title"`
	Price       Price     `json:"price" bson:"price"`
	Quantity    int       `json:"quantity" bson:"quantity"`
	Category    string    `json:"category,omitempty" bson:"category,omitempty"`
	Subcategory string    `json:"subcategory,omitempty" bson:"subcategory,omitempty"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	ImageURL    string    `json:"image,omitempty" bson:"image,omitempty"`
	AddedAt     time.Time `json:"added_at" bson:"added_at"`
}

// Subtotal is price times quantity.
func (li LineItem) Subtotal() Price {
	return li.Price.Times(li.Quantity)
}

// Cart is the persisted snapshot of a user's cart.
type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []LineItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartView is what the cart endpoints return.
type CartView struct {
	UserID string     `json:"user_id,omitempty"`
	Items  []LineItem `json:"items"`
	Count  int        `json:"count"`
	Total  Price      `json:"total"`
}

// TotalOf sums the subtotals of items.
func TotalOf(items []LineItem) Price {
	var total Price
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}
