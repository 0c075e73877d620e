package services

import (
	"context"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson"

	awspkg "github.com/yashrajoria/pawmart/backend/pkg/aws"
	"github.com/yashrajoria/pawmart/backend/services/common/auth"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
	"github.com/yashrajoria/pawmart/backend/services/storefront/notify"
)

// --- Mocks for Dependencies ---

type MockStore[T any] struct{ mock.Mock }

func (m *MockStore[T]) List(ctx context.Context, filter any, page, limit int) ([]T, int64, error) {
	args := m.Called(ctx, filter, page, limit)
	items, _ := args.Get(0).([]T)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *MockStore[T]) Find(ctx context.Context, filter any, sort bson.D) ([]T, error) {
	args := m.Called(ctx, filter, sort)
	items, _ := args.Get(0).([]T)
	return items, args.Error(1)
}

func (m *MockStore[T]) FindByID(ctx context.Context, id string) (*T, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockStore[T]) FindOne(ctx context.Context, filter any) (*T, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockStore[T]) Insert(ctx context.Context, doc *T) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockStore[T]) Update(ctx context.Context, id string, set bson.M) error {
	return m.Called(ctx, id, set).Error(0)
}

func (m *MockStore[T]) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStore[T]) DeleteMany(ctx context.Context, filter any) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore[T]) Count(ctx context.Context, filter any) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

// Aggregate copies the first return value into out.
func (m *MockStore[T]) Aggregate(ctx context.Context, pipeline any, out any) error {
	args := m.Called(ctx, pipeline, out)
	if v := args.Get(0); v != nil {
		reflect.ValueOf(out).Elem().Set(reflect.ValueOf(v))
	}
	return args.Error(1)
}

type MockAccountRepository struct{ mock.Mock }

func (m *MockAccountRepository) Create(ctx context.Context, account *models.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockAccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) SetResetCode(ctx context.Context, id uuid.UUID, codeHash string, expiresAt time.Time) error {
	return m.Called(ctx, id, codeHash, expiresAt).Error(0)
}

func (m *MockAccountRepository) ConsumeResetAttempt(ctx context.Context, id uuid.UUID, max int) (bool, error) {
	args := m.Called(ctx, id, max)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *MockAccountRepository) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	return m.Called(ctx, id, role).Error(0)
}

func (m *MockAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAccountRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockTokenIssuer struct{ mock.Mock }

func (m *MockTokenIssuer) Issue(userID, email, role string) (*auth.TokenPair, error) {
	args := m.Called(userID, email, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.TokenPair), args.Error(1)
}

func (m *MockTokenIssuer) Parse(tokenStr, expectedType string) (*auth.Identity, error) {
	args := m.Called(tokenStr, expectedType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Identity), args.Error(1)
}

// recordingEvents keeps published events in order.
type recordingEvents struct {
	events []models.DomainEvent
}

func (r *recordingEvents) Publish(_ context.Context, ev models.DomainEvent) {
	r.events = append(r.events, ev)
}

func (r *recordingEvents) types() []string {
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.EventType)
	}
	return out
}

// sentMail records outgoing email.
type sentMail struct {
	to, subject, body string
}

type recordingMailer struct {
	sent []sentMail
	err  error
}

func (r *recordingMailer) SendEmail(_ context.Context, to, subject, body string) (notify.SendResult, error) {
	if r.err != nil {
		return notify.SendResult{}, r.err
	}
	r.sent = append(r.sent, sentMail{to, subject, body})
	return notify.SendResult{MessageID: "test"}, nil
}

type MockGateway struct{ mock.Mock }

func (m *MockGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error) {
	args := m.Called(ctx, amount, currency, metadata)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Intent), args.Error(1)
}

func (m *MockGateway) GetIntent(ctx context.Context, id string) (*Intent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Intent), args.Error(1)
}

func (m *MockGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*WebhookEvent), args.Error(1)
}

type MockPaymentRepo struct{ mock.Mock }

func (m *MockPaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

func (m *MockPaymentRepo) FindByProviderRef(ctx context.Context, ref string) (*models.Payment, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentRepo) ClaimForOrder(ctx context.Context, ref, orderID string) error {
	return m.Called(ctx, ref, orderID).Error(0)
}

func (m *MockPaymentRepo) ReleaseOrder(ctx context.Context, ref, orderID string) error {
	return m.Called(ctx, ref, orderID).Error(0)
}

func (m *MockPaymentRepo) UpdateStatus(ctx context.Context, ref, status string, payload *string) (bool, error) {
	args := m.Called(ctx, ref, status, payload)
	return args.Bool(0), args.Error(1)
}

// countingRecorder counts metric calls by name.
type countingRecorder struct {
	awspkg.NopRecorder
	counts map[string]int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{counts: map[string]int{}}
}

func (c *countingRecorder) RecordCount(_ context.Context, name string, _ map[string]string) error {
	c.counts[name]++
	return nil
}
