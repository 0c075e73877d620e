package models

import "time"

// UserProfile is the users collection document.
type UserProfile struct {
	ID        string    `json:"id" bson:"_id"`
	Email     string    `json:"email" bson:"email"`
	Name      string    `json:"name" bson:"name"`
	Phone     string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Address   *Address  `json:"address,omitempty" bson:"address,omitempty"`
	Role      string    `json:"role" bson:"role"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

type ProfilePatch struct {
	Name    *string  `json:"name" validate:"omitempty,min=1,max=100"`
	Phone   *string  `json:"phone" validate:"omitempty,max=30"`
	Address *Address `json:"address"`
}

type Testimonial struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name" validate:"required,max=100"`
	Message   string    `json:"message" bson:"message" validate:"required,max=2000"`
	Rating    int       `json:"rating" bson:"rating" validate:"required,min=1,max=5"`
	Approved  bool      `json:"approved" bson:"approved"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

type FAQRecord struct {
	ID        string    `json:"id" bson:"_id"`
	Question  string    `json:"question" bson:"question" validate:"required,max=500"`
	Answer    string    `json:"answer" bson:"answer" validate:"required,max=5000"`
	Position  int       `json:"position" bson:"position" validate:"gte=0"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Question is a visitor's contact-form message. Answer stays nil until an
// admin replies.
type Question struct {
	ID         string     `json:"id" bson:"_id"`
	Name       string     `json:"name" bson:"name" validate:"required,max=100"`
	Email      string     `json:"email" bson:"email" validate:"required,email"`
	Message    string     `json:"message" bson:"message" validate:"required,max=5000"`
	Answer     *string    `json:"answer,omitempty" bson:"answer,omitempty"`
	AnsweredAt *time.Time `json:"answered_at,omitempty" bson:"answered_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
}

type Subscriber struct {
	ID        string    `json:"id" bson:"_id"`
	Email     string    `json:"email" bson:"email" validate:"required,email"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

type Comment struct {
	ID        string    `json:"id" bson:"_id"`
	ProductID string    `json:"product_id" bson:"product_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Author    string    `json:"author" bson:"author"`
	Text      string    `json:"text" bson:"text" validate:"required,max=2000"`
	Rating    int       `json:"rating" bson:"rating" validate:"required,min=1,max=5"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	Products       int64            `json:"products"`
	Orders         int64            `json:"orders"`
	OrdersByStatus map[string]int64 `json:"orders_by_status"`
	Revenue        Price            `json:"revenue"`
	Users          int64            `json:"users"`
	Subscribers    int64            `json:"subscribers"`
}
