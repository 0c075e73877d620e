package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	awspkg "github.com/yashrajoria/pawmart/backend/pkg/aws"
	"github.com/yashrajoria/pawmart/backend/services/common/auth"
	apperrors "github.com/yashrajoria/pawmart/backend/services/common/errors"
	"github.com/yashrajoria/pawmart/backend/services/common/logger"
	"github.com/yashrajoria/pawmart/backend/services/storefront/cart"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
	"github.com/yashrajoria/pawmart/backend/services/storefront/notify"
	"github.com/yashrajoria/pawmart/backend/services/storefront/repository"
)

const (
	resetCodeLength  = 6
	resetCodeTTL     = 15 * time.Minute
	maxResetAttempts = 5 // guesses per emailed code
)

var errInvalidResetCode = apperrors.BadRequest("Invalid or expired reset code")

type SignUpRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=6,max=72"`
}

// AuthResult is returned by sign-up and sign-in.
type AuthResult struct {
	Tokens *auth.TokenPair     `json:"tokens"`
	User   *models.UserProfile `json:"user"`
}

type AuthService struct {
	accounts IAccountRepository
	profiles DocumentStore[models.UserProfile]
	tokens   ITokenIssuer
	carts    *cart.Registry
	mailer   notify.EmailSender
	events   EventPublisher
	metrics  awspkg.Recorder
	log      *zap.Logger
	now      func() time.Time
}

func NewAuthService(
	accounts IAccountRepository,
	profiles DocumentStore[models.UserProfile],
	tokens ITokenIssuer,
	carts *cart.Registry,
	mailer notify.EmailSender,
	events EventPublisher,
	metrics awspkg.Recorder,
	log *zap.Logger,
) *AuthService {
	if metrics == nil {
		metrics = awspkg.NopRecorder{}
	}
	if events == nil {
		events = NewEventPublisher(nil, "", log)
	}
	return &AuthService{
		accounts: accounts,
		profiles: profiles,
		tokens:   tokens,
		carts:    carts,
		mailer:   mailer,
		events:   events,
		metrics:  metrics,
		log:      log,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp validates the request before touching any store, then creates the
// account and its profile document.
func (s *AuthService) SignUp(ctx context.Context, req SignUpRequest) (*AuthResult, error) {
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if err := Validate(req); err != nil {
		return nil, err
	}

	_, err := s.accounts.FindByEmail(ctx, req.Email)
	if err == nil {
		return nil, apperrors.ErrEmailInUse
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(fmt.Errorf("lookup account: %w", err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("hash password: %w", err))
	}

	now := s.now().UTC()
	account := &models.Account{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         models.RoleCustomer,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.ErrEmailInUse
		}
		return nil, apperrors.Internal(fmt.Errorf("create account: %w", err))
	}

	profile := &models.UserProfile{
		ID:        account.ID.String(),
		Email:     account.Email,
		Name:      req.Name,
		Role:      account.Role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.profiles.Insert(ctx, profile); err != nil {
		if delErr := s.accounts.Delete(ctx, account.ID); delErr != nil {
			s.logger(ctx).Error("failed to roll back account", zap.String("user_id", profile.ID), zap.Error(delErr))
		}
		return nil, apperrors.Internal(fmt.Errorf("create profile: %w", err))
	}

	tokens, err := s.tokens.Issue(profile.ID, profile.Email, profile.Role)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.events.Publish(ctx, models.DomainEvent{
		EventType: models.EventUserRegistered,
		UserID:    profile.ID,
		Email:     profile.Email,
	})
	_ = s.metrics.RecordCount(ctx, awspkg.MetricSignups, nil)
	if err := notify.Deliver(ctx, s.mailer, profile.Email, notify.TemplateWelcome, profile); err != nil {
		s.logger(ctx).Warn("welcome email failed", zap.String("user_id", profile.ID), zap.Error(err))
	}

	s.logger(ctx).Info("account created", zap.String("user_id", profile.ID))
	return &AuthResult{Tokens: tokens, User: profile}, nil
}

// SignIn checks credentials and re-hydrates the user's cart.
func (s *AuthService) SignIn(ctx context.Context, req SignInRequest) (*AuthResult, error) {
	req.Email = normalizeEmail(req.Email)
	if err := Validate(req); err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("lookup account: %w", err))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	userID := account.ID.String()
	tokens, err := s.tokens.Issue(userID, account.Email, account.Role)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	profile, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		s.logger(ctx).Warn("profile missing for account", zap.String("user_id", userID), zap.Error(err))
		profile = &models.UserProfile{ID: userID, Email: account.Email, Role: account.Role}
	}

	s.carts.Open(ctx, userID)
	return &AuthResult{Tokens: tokens, User: profile}, nil
}

// RequestPasswordReset emails a short-lived code. Unknown addresses succeed
// silently so the endpoint cannot be used to enumerate accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return apperrors.BadRequest("email is required")
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperrors.Internal(fmt.Errorf("lookup account: %w", err))
	}

	code, err := generateCode(resetCodeLength)
	if err != nil {
		return apperrors.Internal(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Internal(fmt.Errorf("hash reset code: %w", err))
	}
	if err := s.accounts.SetResetCode(ctx, account.ID, string(hash), s.now().UTC().Add(resetCodeTTL)); err != nil {
		return apperrors.Internal(fmt.Errorf("store reset code: %w", err))
	}

	data := map[string]any{"Code": code, "ExpiresInMinutes": int(resetCodeTTL.Minutes())}
	if err := notify.Deliver(ctx, s.mailer, account.Email, notify.TemplatePasswordReset, data); err != nil {
		return apperrors.Internal(fmt.Errorf("send reset email: %w", err))
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	req.Email = normalizeEmail(req.Email)
	if err := Validate(req); err != nil {
		return err
	}

	account, err := s.accounts.FindByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return errInvalidResetCode
	}
	if err != nil {
		return apperrors.Internal(fmt.Errorf("lookup account: %w", err))
	}
	if account.ResetCodeHash == nil || account.ResetExpiresAt == nil || s.now().After(*account.ResetExpiresAt) {
		return errInvalidResetCode
	}
	ok, err := s.accounts.ConsumeResetAttempt(ctx, account.ID, maxResetAttempts)
	if err != nil {
		return apperrors.Internal(fmt.Errorf("count reset attempt: %w", err))
	}
	if !ok {
		s.logger(ctx).Warn("reset code attempts exhausted", zap.String("user_id", account.ID.String()))
		return errInvalidResetCode
	}
	if bcrypt.CompareHashAndPassword([]byte(*account.ResetCodeHash), []byte(req.Code)) != nil {
		return errInvalidResetCode
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Internal(fmt.Errorf("hash password: %w", err))
	}
	if err := s.accounts.UpdatePassword(ctx, account.ID, string(hash)); err != nil {
		return apperrors.Internal(fmt.Errorf("update password: %w", err))
	}
	return nil
}

// Refresh exchanges a refresh token for a new pair. The account is re-read so
// role changes take effect.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	ident, err := s.tokens.Parse(refreshToken, auth.TypeRefresh)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	id, err := uuid.Parse(ident.UserID)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	account, err := s.accounts.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.ErrInvalidToken
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	tokens, err := s.tokens.Issue(account.ID.String(), account.Email, account.Role)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return tokens, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*models.UserProfile, error) {
	profile, err := s.profiles.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("User not found")
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return profile, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, patch models.ProfilePatch) (*models.UserProfile, error) {
	if err := Validate(patch); err != nil {
		return nil, err
	}
	if patch.Address != nil {
		if err := Validate(patch.Address); err != nil {
			return nil, err
		}
	}

	set := bson.M{"updated_at": s.now().UTC()}
	if patch.Name != nil {
		set["name"] = strings.TrimSpace(*patch.Name)
	}
	if patch.Phone != nil {
		set["phone"] = strings.TrimSpace(*patch.Phone)
	}
	if patch.Address != nil {
		set["address"] = patch.Address
	}

	if err := s.profiles.Update(ctx, userID, set); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, apperrors.Internal(err)
	}
	return s.CurrentUser(ctx, userID)
}

// DeleteAccount removes credentials, profile and cart.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	id, err := uuid.Parse(userID)
	if err != nil {
		return apperrors.NotFound("User not found")
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("User not found")
		}
		return apperrors.Internal(err)
	}
	if err := s.profiles.Delete(ctx, userID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger(ctx).Warn("failed to delete profile", zap.String("user_id", userID), zap.Error(err))
	}
	s.Logout(ctx, userID)
	s.logger(ctx).Info("account deleted", zap.String("user_id", userID))
	return nil
}

// Logout clears the user's cart and drops it from memory.
func (s *AuthService) Logout(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	s.carts.Open(ctx, userID).Clear(ctx)
	s.carts.Forget(userID)
}

func (s *AuthService) logger(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, s.log)
}

func generateCode(length int) (string, error) {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b.WriteString(n.String())
	}
	return b.String(), nil
}
