package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Account is the identity-store record: credentials only. Profile data lives
// in the users collection keyed by the same id.
type Account struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email          string     `gorm:"uniqueIndex;not null"`
	PasswordHash   string     `gorm:"not null"`
	Role           string     `gorm:"type:varchar(20);not null"`
	ResetCodeHash  *string    `gorm:"type:varchar(100)"`
	ResetExpiresAt *time.Time
	ResetAttempts  int       `gorm:"not null;default:0"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// Payment records one gateway payment attempt.
type Payment struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID          string    `gorm:"index;not null"`
	OrderID         *string   `gorm:"index"`
	Amount          int64     `gorm:"not null"`
	Currency        string    `gorm:"type:varchar(10);not null"`
	Method          string    `gorm:"type:varchar(20);not null"`
	Status          string    `gorm:"type:varchar(20);not null"`
	ProviderRef     string    `gorm:"uniqueIndex;not null"`
	ProviderPayload *string   `gorm:"type:jsonb"`
	SucceededAt     *time.Time
	FailedAt        *time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// Gateway payment statuses.
const (
	PaymentRequiresAction = "requires_action"
	PaymentSucceeded      = "succeeded"
	PaymentFailedStatus   = "failed"
)

// IsTerminal reports whether no further webhook should change the record.
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentSucceeded || p.Status == PaymentFailedStatus
}

// Migrate creates the relational tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Account{}, &Payment{})
}
