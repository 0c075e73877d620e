package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
)

// PaymentRepo records gateway payments.
type PaymentRepo interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByProviderRef(ctx context.Context, ref string) (*models.Payment, error)
	ClaimForOrder(ctx context.Context, ref, orderID string) error
	ReleaseOrder(ctx context.Context, ref, orderID string) error
	UpdateStatus(ctx context.Context, ref, status string, payload *string) (bool, error)
}

type gormPaymentRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewPaymentRepository(db *gorm.DB) PaymentRepo {
	return &gormPaymentRepo{db: db, now: time.Now}
}

func (r *gormPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	return translate(r.db.WithContext(ctx).Create(payment).Error)
}

func (r *gormPaymentRepo) FindByProviderRef(ctx context.Context, ref string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("provider_ref = ?", ref).First(&payment).Error; err != nil {
		return nil, translate(err)
	}
	return &payment, nil
}

// ClaimForOrder links the payment to orderID only if no order holds it yet,
// so concurrent checkouts cannot spend one payment twice.
func (r *gormPaymentRepo) ClaimForOrder(ctx context.Context, ref, orderID string) error {
	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("provider_ref = ? AND order_id IS NULL", ref).
		Update("order_id", orderID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if _, err := r.FindByProviderRef(ctx, ref); err != nil {
		return err
	}
	return ErrClaimed
}

// ReleaseOrder undoes a claim whose order could not be written.
func (r *gormPaymentRepo) ReleaseOrder(ctx context.Context, ref, orderID string) error {
	return r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("provider_ref = ? AND order_id = ?", ref, orderID).
		Update("order_id", nil).Error
}

// UpdateStatus moves a non-terminal payment to status. It reports false when
// the payment had already reached a terminal state, so replayed webhooks are
// harmless.
func (r *gormPaymentRepo) UpdateStatus(ctx context.Context, ref, status string, payload *string) (bool, error) {
	updates := map[string]interface{}{"status": status}
	if payload != nil {
		updates["provider_payload"] = *payload
	}
	switch status {
	case models.PaymentSucceeded:
		updates["succeeded_at"] = r.now().UTC()
	case models.PaymentFailedStatus:
		updates["failed_at"] = r.now().UTC()
	}

	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("provider_ref = ? AND status NOT IN ?", ref, []string{models.PaymentSucceeded, models.PaymentFailedStatus}).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
