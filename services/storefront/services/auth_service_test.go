package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yashrajoria/pawmart/backend/services/common/auth"
	apperrors "github.com/yashrajoria/pawmart/backend/services/common/errors"
	"github.com/yashrajoria/pawmart/backend/services/storefront/cart"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
	"github.com/yashrajoria/pawmart/backend/services/storefront/repository"
)

// memCarts is an in-memory cart.Persister.
type memCarts struct {
	mu      sync.Mutex
	data    map[string][]models.LineItem
	removed []string
}

func newMemCarts() *memCarts {
	return &memCarts{data: map[string][]models.LineItem{}}
}

func (m *memCarts) Load(_ context.Context, userID string) ([]models.LineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.LineItem(nil), m.data[userID]...), nil
}

func (m *memCarts) Save(_ context.Context, userID string, items []models.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[userID] = append([]models.LineItem(nil), items...)
	return nil
}

func (m *memCarts) Remove(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, userID)
	m.removed = append(m.removed, userID)
	return nil
}

type authFixture struct {
	svc      *AuthService
	accounts *MockAccountRepository
	profiles *MockStore[models.UserProfile]
	tokens   *MockTokenIssuer
	carts    *memCarts
	registry *cart.Registry
	events   *recordingEvents
	mailer   *recordingMailer
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		accounts: new(MockAccountRepository),
		profiles: new(MockStore[models.UserProfile]),
		tokens:   new(MockTokenIssuer),
		carts:    newMemCarts(),
		events:   &recordingEvents{},
		mailer:   &recordingMailer{},
	}
	f.registry = cart.NewRegistry(f.carts, zap.NewNop())
	f.svc = NewAuthService(f.accounts, f.profiles, f.tokens, f.registry, f.mailer, f.events, nil, zap.NewNop())
	return f
}

func hashOf(t *testing.T, s string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(s), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestSignUp(t *testing.T) {
	ctx := context.Background()
	pair := &auth.TokenPair{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 900}

	t.Run("Validation runs before any lookup", func(t *testing.T) {
		f := newAuthFixture()

		_, err := f.svc.SignUp(ctx, SignUpRequest{Name: "Ana", Email: "not-an-email", Password: "secret1"})

		assert.EqualError(t, err, "email must be a valid email address")
		f.accounts.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	})

	t.Run("Short password", func(t *testing.T) {
		f := newAuthFixture()

		_, err := f.svc.SignUp(ctx, SignUpRequest{Name: "Ana", Email: "ana@example.com", Password: "123"})

		assert.EqualError(t, err, "password must be at least 6 characters")
		assert.Equal(t, 400, apperrors.From(err).Code)
	})

	t.Run("Email already in use", func(t *testing.T) {
		f := newAuthFixture()
		f.accounts.On("FindByEmail", ctx, "ana@example.com").Return(&models.Account{Email: "ana@example.com"}, nil).Once()

		_, err := f.svc.SignUp(ctx, SignUpRequest{Name: "Ana", Email: " Ana@Example.com ", Password: "secret1"})

		assert.ErrorIs(t, err, apperrors.ErrEmailInUse)
		assert.Equal(t, 409, apperrors.From(err).Code)
	})

	t.Run("Success", func(t *testing.T) {
		// Arrange
		f := newAuthFixture()
		f.accounts.On("FindByEmail", ctx, "ana@example.com").Return(nil, repository.ErrNotFound).Once()
		f.accounts.On("Create", ctx, mock.MatchedBy(func(a *models.Account) bool {
			return a.Email == "ana@example.com" && a.Role == models.RoleCustomer &&
				bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte("secret1")) == nil
		})).Return(nil).Once()
		f.profiles.On("Insert", ctx, mock.AnythingOfType("*models.UserProfile")).Return(nil).Once()
		f.tokens.On("Issue", mock.AnythingOfType("string"), "ana@example.com", models.RoleCustomer).Return(pair, nil).Once()

		// Act
		res, err := f.svc.SignUp(ctx, SignUpRequest{Name: "Ana", Email: "ana@example.com", Password: "secret1"})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "access", res.Tokens.AccessToken)
		assert.Equal(t, "Ana", res.User.Name)
		assert.Equal(t, []string{models.EventUserRegistered}, f.events.types())
		require.Len(t, f.mailer.sent, 1)
		assert.Equal(t, "ana@example.com", f.mailer.sent[0].to)
		f.accounts.AssertExpectations(t)
		f.profiles.AssertExpectations(t)
		f.tokens.AssertExpectations(t)
	})

	t.Run("Profile failure rolls back the account", func(t *testing.T) {
		f := newAuthFixture()
		f.accounts.On("FindByEmail", ctx, "ana@example.com").Return(nil, repository.ErrNotFound).Once()
		f.accounts.On("Create", ctx, mock.Anything).Return(nil).Once()
		f.profiles.On("Insert", ctx, mock.Anything).Return(errors.New("mongo down")).Once()
		f.accounts.On("Delete", ctx, mock.AnythingOfType("uuid.UUID")).Return(nil).Once()

		_, err := f.svc.SignUp(ctx, SignUpRequest{Name: "Ana", Email: "ana@example.com", Password: "secret1"})

		assert.Equal(t, 500, apperrors.From(err).Code)
		assert.Equal(t, "Something went wrong. Please try again.", apperrors.From(err).Message)
		f.accounts.AssertExpectations(t)
		assert.Empty(t, f.events.events)
	})
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()
	account := &models.Account{ID: uuid.New(), Email: "ana@example.com", PasswordHash: hashOf(t, "secret1"), Role: models.RoleCustomer}

	t.Run("Unknown email", func(t *testing.T) {
		f := newAuthFixture()
		f.accounts.On("FindByEmail", ctx, "ghost@example.com").Return(nil, repository.ErrNotFound).Once()

		_, err := f.svc.SignIn(ctx, SignInRequest{Email: "ghost@example.com", Password: "secret1"})

		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("Wrong password", func(t *testing.T) {
		f := newAuthFixture()
		f.accounts.On("FindByEmail", ctx, "ana@example.com").Return(account, nil).Once()

		_, err := f.svc.SignIn(ctx, SignInRequest{Email: "ana@example.com", Password: "wrong!"})

		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("Success rehydrates the cart", func(t *testing.T) {
		f := newAuthFixture()
		userID := account.ID.String()
		require.NoError(t, f.carts.Save(ctx, userID, []models.LineItem{{ProductID: "P1", Price: models.Cents(500), Quantity: 2}}))
		f.accounts.On("FindByEmail", ctx, "ana@example.com").Return(account, nil).Once()
		f.tokens.On("Issue", userID, "ana@example.com", models.RoleCustomer).Return(&auth.TokenPair{AccessToken: "a"}, nil).Once()
		f.profiles.On("FindByID", ctx, userID).Return(&models.UserProfile{ID: userID, Name: "Ana"}, nil).Once()

		res, err := f.svc.SignIn(ctx, SignInRequest{Email: "ana@example.com", Password: "secret1"})

		require.NoError(t, err)
		assert.Equal(t, "Ana", res.User.Name)
		assert.Equal(t, 1, f.registry.Len())
		assert.Equal(t, 2, f.registry.Open(ctx, userID).Count())
	})
}

var sixDigits = regexp.MustCompile(`\b\d{6}\b`)

func TestPasswordReset(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown email succeeds without sending", func(t *testing.T) {
		f := newAuthFixture()
		f.accounts.On("FindByEmail", ctx, "ghost@example.com").Return(nil, repository.ErrNotFound).Once()

		err := f.svc.RequestPasswordReset(ctx, "ghost@example.com")

		assert.NoError(t, err)
		assert.Empty(t, f.mailer.sent)
	})

	t.Run("Code round trip", func(t *testing.T) {
		f := newAuthFixture()
		now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
		f.svc.now = func() time.Time { return now }
		account := &models.Account{ID: uuid.New(), Email: "ana@example.com"}

		var storedHash string
		f.accounts.On("FindByEmail", ctx, "ana@example.com").Return(account, nil)
		f.accounts.On("SetResetCode", ctx, account.ID, mock.AnythingOfType("string"), now.Add(resetCodeTTL)).
			Run(func(args mock.Arguments) { storedHash = args.String(2) }).
			Return(nil).Once()

		require.NoError(t, f.svc.RequestPasswordReset(ctx, "ana@example.com"))
		require.Len(t, f.mailer.sent, 1)
		code := sixDigits.FindString(f.mailer.sent[0].body)
		require.Len(t, code, 6)
		require.NoError(t, bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(code)))

		expires := now.Add(resetCodeTTL)
		account.ResetCodeHash = &storedHash
		account.ResetExpiresAt = &expires
		f.accounts.On("ConsumeResetAttempt", ctx, account.ID, maxResetAttempts).Return(true, nil).Twice()
		f.accounts.On("UpdatePassword", ctx, account.ID, mock.AnythingOfType("string")).Return(nil).Once()

		wrong := "000000"
		if code == wrong {
			wrong = "111111"
		}
		err := f.svc.ResetPassword(ctx, ResetPasswordRequest{Email: "ana@example.com", Code: wrong, NewPassword: "newsecret"})
		assert.ErrorIs(t, err, errInvalidResetCode)

		err = f.svc.ResetPassword(ctx, ResetPasswordRequest{Email: "ana@example.com", Code: code, NewPassword: "newsecret"})
		assert.NoError(t, err)

		f.svc.now = func() time.Time { return expires.Add(time.Second) }
		err = f.svc.ResetPassword(ctx, ResetPasswordRequest{Email: "ana@example.com", Code: code, NewPassword: "newsecret"})
		assert.ErrorIs(t, err, errInvalidResetCode)
		f.accounts.AssertExpectations(t)
	})

	t.Run("Code stops working after too many guesses", func(t *testing.T) {
		// Arrange
		f := newAuthFixture()
		now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
		f.svc.now = func() time.Time { return now }
		hash, err := bcrypt.GenerateFromPassword([]byte("424242"), bcrypt.MinCost)
		require.NoError(t, err)
		storedHash, expires := string(hash), now.Add(resetCodeTTL)
		account := &models.Account{ID: uuid.New(), Email: "ana@example.com", ResetCodeHash: &storedHash, ResetExpiresAt: &expires}
		f.accounts.On("FindByEmail", ctx, "ana@example.com").Return(account, nil)
		f.accounts.On("ConsumeResetAttempt", ctx, account.ID, maxResetAttempts).Return(true, nil).Times(maxResetAttempts)
		f.accounts.On("ConsumeResetAttempt", ctx, account.ID, maxResetAttempts).Return(false, nil)

		// Act
		for i := 0; i < maxResetAttempts; i++ {
			err := f.svc.ResetPassword(ctx, ResetPasswordRequest{Email: "ana@example.com", Code: fmt.Sprintf("%06d", i), NewPassword: "newsecret"})
			require.ErrorIs(t, err, errInvalidResetCode)
		}
		err = f.svc.ResetPassword(ctx, ResetPasswordRequest{Email: "ana@example.com", Code: "424242", NewPassword: "newsecret"})

		// Assert
		assert.ErrorIs(t, err, errInvalidResetCode)
		f.accounts.AssertNumberOfCalls(t, "ConsumeResetAttempt", maxResetAttempts+1)
		f.accounts.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Attempt counter failure", func(t *testing.T) {
		f := newAuthFixture()
		hash := "x"
		expires := time.Now().Add(time.Minute)
		account := &models.Account{ID: uuid.New(), Email: "ana@example.com", ResetCodeHash: &hash, ResetExpiresAt: &expires}
		f.accounts.On("FindByEmail", ctx, "ana@example.com").Return(account, nil).Once()
		f.accounts.On("ConsumeResetAttempt", ctx, account.ID, maxResetAttempts).Return(false, errors.New("connection reset")).Once()

		err := f.svc.ResetPassword(ctx, ResetPasswordRequest{Email: "ana@example.com", Code: "424242", NewPassword: "newsecret"})

		assert.Equal(t, 500, apperrors.From(err).Code)
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("Invalid token", func(t *testing.T) {
		f := newAuthFixture()
		f.tokens.On("Parse", "bad", auth.TypeRefresh).Return(nil, auth.ErrInvalidToken).Once()

		_, err := f.svc.Refresh(ctx, "bad")

		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("Uses the current role", func(t *testing.T) {
		f := newAuthFixture()
		id := uuid.New()
		f.tokens.On("Parse", "good", auth.TypeRefresh).Return(&auth.Identity{UserID: id.String(), Role: models.RoleCustomer}, nil).Once()
		f.accounts.On("FindByID", ctx, id).Return(&models.Account{ID: id, Email: "ana@example.com", Role: models.RoleAdmin}, nil).Once()
		f.tokens.On("Issue", id.String(), "ana@example.com", models.RoleAdmin).Return(&auth.TokenPair{AccessToken: "new"}, nil).Once()

		pair, err := f.svc.Refresh(ctx, "good")

		require.NoError(t, err)
		assert.Equal(t, "new", pair.AccessToken)
		f.tokens.AssertExpectations(t)
	})
}

func TestLogoutAndDeleteAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("Logout clears the persisted cart", func(t *testing.T) {
		f := newAuthFixture()
		f.registry.Open(ctx, "U1").Add(ctx, models.LineItem{ProductID: "P1", Price: models.Cents(100)})

		f.svc.Logout(ctx, "U1")

		assert.Equal(t, []string{"U1"}, f.carts.removed)
		assert.Equal(t, 0, f.registry.Len())
	})

	t.Run("Delete account", func(t *testing.T) {
		f := newAuthFixture()
		id := uuid.New()
		f.accounts.On("Delete", ctx, id).Return(nil).Once()
		f.profiles.On("Delete", ctx, id.String()).Return(repository.ErrNotFound).Once()

		require.NoError(t, f.svc.DeleteAccount(ctx, id.String()))
		assert.Equal(t, []string{id.String()}, f.carts.removed)

		err := f.svc.DeleteAccount(ctx, "not-a-uuid")
		assert.Equal(t, 404, apperrors.From(err).Code)
	})
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	name := "  Ana Maria "
	f.profiles.On("Update", ctx, "U1", mock.MatchedBy(func(set map[string]interface{}) bool {
		return set["name"] == "Ana Maria" && set["updated_at"] != nil
	})).Return(nil).Once()
	f.profiles.On("FindByID", ctx, "U1").Return(&models.UserProfile{ID: "U1", Name: "Ana Maria"}, nil).Once()

	p, err := f.svc.UpdateProfile(ctx, "U1", models.ProfilePatch{Name: &name})

	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", p.Name)
	f.profiles.AssertExpectations(t)
}
