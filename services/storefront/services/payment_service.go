package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	awspkg "github.com/yashrajoria/pawmart/backend/pkg/aws"
	apperrors "github.com/yashrajoria/pawmart/backend/services/common/errors"
	"github.com/yashrajoria/pawmart/backend/services/common/logger"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
	"github.com/yashrajoria/pawmart/backend/services/storefront/repository"
)

const defaultCurrency = "usd"

// IntentRequest is the body of POST /payments/intent. Amount is in major units.
type IntentRequest struct {
	Amount   models.Price      `json:"amount" validate:"gt=0"`
	Currency string            `json:"currency" validate:"omitempty,len=3,alpha"`
	Metadata map[string]string `json:"metadata"`
}

type IntentResponse struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
}

type PaymentService struct {
	gateway  PaymentGateway
	payments repository.PaymentRepo
	events   EventPublisher
	metrics  awspkg.Recorder
	log      *zap.Logger
}

func NewPaymentService(gateway PaymentGateway, payments repository.PaymentRepo, events EventPublisher, metrics awspkg.Recorder, log *zap.Logger) *PaymentService {
	if metrics == nil {
		metrics = awspkg.NopRecorder{}
	}
	if events == nil {
		events = NewEventPublisher(nil, "", log)
	}
	return &PaymentService{gateway: gateway, payments: payments, events: events, metrics: metrics, log: log}
}

// CreateIntent opens a card payment at the gateway and records it.
func (s *PaymentService) CreateIntent(ctx context.Context, userID string, req IntentRequest) (*IntentResponse, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = defaultCurrency
	}

	metadata := make(map[string]string, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["user_id"] = userID

	intent, err := s.gateway.CreateIntent(ctx, req.Amount.Cents(), currency, metadata)
	if err != nil {
		return nil, apperrors.New(http.StatusBadGateway, "Payment provider unavailable", err)
	}

	payment := &models.Payment{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      req.Amount.Cents(),
		Currency:    currency,
		Method:      models.PaymentCard,
		Status:      models.PaymentRequiresAction,
		ProviderRef: intent.ID,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("record payment: %w", err))
	}

	s.logger(ctx).Info("payment intent created",
		zap.String("user_id", userID),
		zap.String("payment_intent_id", intent.ID),
		zap.Int64("amount", payment.Amount),
	)
	return &IntentResponse{ClientSecret: intent.ClientSecret, PaymentIntentID: intent.ID}, nil
}

// VerifyCardPayment confirms at the gateway that intentID succeeded, belongs
// to userID, is in the store currency, covers total and has not paid for
// another order yet.
func (s *PaymentService) VerifyCardPayment(ctx context.Context, userID, intentID string, total models.Price) error {
	intent, err := s.gateway.GetIntent(ctx, intentID)
	if err != nil {
		return apperrors.New(http.StatusPaymentRequired, "Payment could not be verified", err)
	}
	if owner := intent.Metadata["user_id"]; owner != "" && owner != userID {
		return apperrors.Forbidden("Payment belongs to another user")
	}
	if intent.Status != IntentStatusSucceeded {
		_ = s.metrics.RecordCount(ctx, awspkg.MetricPaymentFailed, map[string]string{"method": models.PaymentCard})
		return apperrors.ErrPaymentRequired
	}
	if !strings.EqualFold(intent.Currency, defaultCurrency) {
		return apperrors.PaymentRequired("Payment currency does not match the store currency")
	}
	if intent.Amount < total.Cents() {
		return apperrors.PaymentRequired("Payment amount does not cover the order total")
	}

	payment, err := s.payments.FindByProviderRef(ctx, intentID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.PaymentRequired("Unknown payment")
	}
	if err != nil {
		return apperrors.Internal(fmt.Errorf("load payment: %w", err))
	}
	if payment.UserID != userID {
		return apperrors.Forbidden("Payment belongs to another user")
	}
	if payment.OrderID != nil {
		return apperrors.Conflict("This payment has already been used for another order")
	}

	if _, err := s.payments.UpdateStatus(ctx, intentID, models.PaymentSucceeded, nil); err != nil {
		s.logger(ctx).Warn("failed to mark payment succeeded", zap.String("payment_intent_id", intentID), zap.Error(err))
	}
	_ = s.metrics.RecordCount(ctx, awspkg.MetricPaymentSucceeded, map[string]string{"method": models.PaymentCard})
	return nil
}

// ClaimPayment binds a verified payment to orderID. Only one order can ever
// hold a payment; a second claim fails with 409.
func (s *PaymentService) ClaimPayment(ctx context.Context, intentID, orderID string) error {
	err := s.payments.ClaimForOrder(ctx, intentID, orderID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrClaimed):
		return apperrors.Conflict("This payment has already been used for another order")
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.PaymentRequired("Unknown payment")
	default:
		return apperrors.Internal(fmt.Errorf("claim payment: %w", err))
	}
}

// ReleasePayment frees a claim whose order was never written.
func (s *PaymentService) ReleasePayment(ctx context.Context, intentID, orderID string) {
	if err := s.payments.ReleaseOrder(ctx, intentID, orderID); err != nil {
		s.logger(ctx).Error("failed to release payment claim",
			zap.String("payment_intent_id", intentID),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}

// HandleWebhook applies a verified gateway notification. Replays of an event
// that already reached a terminal state change nothing and publish nothing.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		s.logger(ctx).Warn("rejected webhook", zap.Error(err))
		return apperrors.BadRequest("Invalid webhook")
	}

	var status, eventType string
	switch event.Type {
	case EventIntentSucceeded:
		status, eventType = models.PaymentSucceeded, models.EventPaymentSuccess
	case EventIntentFailed:
		status, eventType = models.PaymentFailedStatus, models.EventPaymentFailure
	default:
		return nil
	}

	raw := string(event.Raw)
	changed, err := s.payments.UpdateStatus(ctx, event.Intent.ID, status, &raw)
	if err != nil {
		return apperrors.Internal(fmt.Errorf("update payment: %w", err))
	}
	if !changed {
		s.logger(ctx).Debug("webhook ignored, payment already final or unknown", zap.String("payment_intent_id", event.Intent.ID))
		return nil
	}

	domainEvent := models.DomainEvent{
		EventType:  eventType,
		UserID:     event.Intent.Metadata["user_id"],
		PaymentRef: event.Intent.ID,
		Amount:     models.Cents(event.Intent.Amount),
	}
	if payment, err := s.payments.FindByProviderRef(ctx, event.Intent.ID); err == nil && payment.OrderID != nil {
		domainEvent.OrderID = *payment.OrderID
	}
	s.events.Publish(ctx, domainEvent)

	metric := awspkg.MetricPaymentSucceeded
	if status == models.PaymentFailedStatus {
		metric = awspkg.MetricPaymentFailed
	}
	_ = s.metrics.RecordCount(ctx, metric, map[string]string{"method": models.PaymentCard})
	return nil
}

func (s *PaymentService) logger(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, s.log)
}
