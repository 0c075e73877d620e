package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
)

// AccountRepository stores sign-in credentials in Postgres.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	return translate(r.db.WithContext(ctx).Create(account).Error)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

// SetResetCode stores a hashed reset code that expires at expiresAt and
// restarts its attempt budget.
func (r *AccountRepository) SetResetCode(ctx context.Context, id uuid.UUID, codeHash string, expiresAt time.Time) error {
	return r.updates(ctx, id, map[string]interface{}{
		"reset_code_hash":  codeHash,
		"reset_expires_at": expiresAt,
		"reset_attempts":   0,
	})
}

// ConsumeResetAttempt spends one guess against the pending reset code. It
// reports false once max guesses have been spent or no code is pending.
func (r *AccountRepository) ConsumeResetAttempt(ctx context.Context, id uuid.UUID, max int) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND reset_code_hash IS NOT NULL AND reset_attempts < ?", id, max).
		Update("reset_attempts", gorm.Expr("reset_attempts + 1"))
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// UpdatePassword replaces the hash and invalidates any pending reset code.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return r.updates(ctx, id, map[string]interface{}{
		"password_hash":    passwordHash,
		"reset_code_hash":  nil,
		"reset_expires_at": nil,
		"reset_attempts":   0,
	})
}

func (r *AccountRepository) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	return r.updates(ctx, id, map[string]interface{}{"role": role})
}

func (r *AccountRepository) updates(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Account{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Account{}).Count(&n).Error
	return n, err
}
