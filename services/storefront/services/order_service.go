package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	awspkg "github.com/yashrajoria/pawmart/backend/pkg/aws"
	apperrors "github.com/yashrajoria/pawmart/backend/services/common/errors"
	"github.com/yashrajoria/pawmart/backend/services/common/logger"
	"github.com/yashrajoria/pawmart/backend/services/storefront/cart"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
	"github.com/yashrajoria/pawmart/backend/services/storefront/notify"
	"github.com/yashrajoria/pawmart/backend/services/storefront/repository"
)

const idempotencyTTL = 24 * time.Hour

// CardVerifier confirms card payments before an order is written and binds
// each payment to at most one order.
type CardVerifier interface {
	VerifyCardPayment(ctx context.Context, userID, intentID string, total models.Price) error
	ClaimPayment(ctx context.Context, intentID, orderID string) error
	ReleasePayment(ctx context.Context, intentID, orderID string)
}

// StockReserver decrements product stock.
type StockReserver interface {
	ReserveStock(ctx context.Context, productID string, qty int) error
}

// Customer identifies who is checking out.
type Customer struct {
	UserID string
	Email  string
}

type OrderService struct {
	orders      DocumentStore[models.Order]
	carts       *cart.Registry
	stock       StockReserver
	cards       CardVerifier
	idempotency IdempotencyStore
	mailer      notify.EmailSender
	events      EventPublisher
	metrics     awspkg.Recorder
	log         *zap.Logger
	now         func() time.Time
}

func NewOrderService(
	orders DocumentStore[models.Order],
	carts *cart.Registry,
	stock StockReserver,
	cards CardVerifier,
	idempotency IdempotencyStore,
	mailer notify.EmailSender,
	events EventPublisher,
	metrics awspkg.Recorder,
	log *zap.Logger,
) *OrderService {
	if metrics == nil {
		metrics = awspkg.NopRecorder{}
	}
	if events == nil {
		events = NewEventPublisher(nil, "", log)
	}
	return &OrderService{
		orders:      orders,
		carts:       carts,
		stock:       stock,
		cards:       cards,
		idempotency: idempotency,
		mailer:      mailer,
		events:      events,
		metrics:     metrics,
		log:         log,
		now:         time.Now,
	}
}

// PlaceOrder turns the customer's cart into an order. Card payments must have
// succeeded at the gateway before anything is written. A repeated request with
// the same idempotency key returns the order created by the first one.
func (s *OrderService) PlaceOrder(ctx context.Context, who Customer, req models.PlaceOrderRequest, idemKey string) (order *models.Order, err error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	if idemKey != "" && s.idempotency != nil {
		existing, claimErr := s.idempotency.ClaimIdempotency(ctx, who.UserID, idemKey, idempotencyTTL)
		switch {
		case errors.Is(claimErr, repository.ErrInProgress):
			return nil, apperrors.Conflict("This order is already being processed")
		case claimErr != nil:
			return nil, apperrors.Internal(claimErr)
		case existing != "":
			return s.Get(ctx, who.UserID, existing, false)
		}
		defer func() {
			if err != nil {
				if relErr := s.idempotency.ReleaseIdempotency(ctx, who.UserID, idemKey); relErr != nil {
					s.logger(ctx).Warn("failed to release idempotency key", zap.Error(relErr))
				}
				return
			}
			if doneErr := s.idempotency.CompleteIdempotency(ctx, who.UserID, idemKey, order.ID, idempotencyTTL); doneErr != nil {
				s.logger(ctx).Warn("failed to record idempotency key", zap.Error(doneErr))
			}
		}()
	}

	store := s.carts.Open(ctx, who.UserID)
	items := store.Items()
	if len(items) == 0 {
		return nil, apperrors.ErrEmptyCart
	}
	total := models.TotalOf(items)

	var paymentStatus string
	switch req.PaymentMethod {
	case models.PaymentCard:
		if err := s.cards.VerifyCardPayment(ctx, who.UserID, req.PaymentRef, total); err != nil {
			return nil, err
		}
		paymentStatus = models.PaymentStatusPaid
	case models.PaymentPayPal:
		paymentStatus = models.PaymentStatusPaid
	case models.PaymentBankTransfer:
		paymentStatus = models.PaymentStatusAwaitingTransfer
	case models.PaymentCashOnDelivery:
		paymentStatus = models.PaymentStatusDueOnDelivery
	}

	orderID := uuid.NewString()
	card := req.PaymentMethod == models.PaymentCard
	if card {
		if err := s.cards.ClaimPayment(ctx, req.PaymentRef, orderID); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	order = &models.Order{
		ID:            orderID,
		UserID:        who.UserID,
		Email:         who.Email,
		Items:         items,
		Total:         total,
		Shipping:      req.Shipping,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: paymentStatus,
		PaymentRef:    req.PaymentRef,
		Status:        models.OrderPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		if card {
			s.cards.ReleasePayment(ctx, req.PaymentRef, orderID)
		}
		return nil, apperrors.Internal(fmt.Errorf("insert order: %w", err))
	}

	log := s.logger(ctx).With(zap.String("order_id", order.ID), zap.String("user_id", who.UserID))
	for _, it := range items {
		if err := s.stock.ReserveStock(ctx, it.ProductID, it.Quantity); err != nil {
			log.Warn("stock not decremented", zap.String("product_id", it.ProductID), zap.Int("quantity", it.Quantity), zap.Error(err))
		}
	}
	store.Clear(ctx)

	s.events.Publish(ctx, models.DomainEvent{
		EventType:  models.EventOrderPlaced,
		UserID:     who.UserID,
		OrderID:    order.ID,
		PaymentRef: order.PaymentRef,
		Amount:     order.Total,
		Email:      order.Email,
		Attributes: map[string]string{"payment_method": order.PaymentMethod},
	})
	dims := map[string]string{"payment_method": order.PaymentMethod}
	_ = s.metrics.RecordCount(ctx, awspkg.MetricOrdersPlaced, dims)
	_ = s.metrics.RecordValue(ctx, awspkg.MetricOrderRevenue, order.Total.Float(), dims)

	if order.Email != "" {
		if err := notify.Deliver(ctx, s.mailer, order.Email, notify.TemplateOrderPlaced, map[string]any{
			"OrderID":       order.ID,
			"Items":         order.Items,
			"Total":         order.Total,
			"PaymentMethod": order.PaymentMethod,
			"PaymentStatus": order.PaymentStatus,
		}); err != nil {
			log.Warn("order confirmation email failed", zap.Error(err))
		}
	}

	log.Info("order placed", zap.String("total", order.Total.String()), zap.String("payment_method", order.PaymentMethod))
	return order, nil
}

// ListForUser returns the user's orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID string, page, limit int) (*models.Page[models.Order], error) {
	return s.list(ctx, bson.M{"user_id": userID}, page, limit)
}

// ListAll returns every order, optionally filtered by status.
func (s *OrderService) ListAll(ctx context.Context, status string, page, limit int) (*models.Page[models.Order], error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return s.list(ctx, filter, page, limit)
}

func (s *OrderService) list(ctx context.Context, filter bson.M, page, limit int) (*models.Page[models.Order], error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > MaxPerPage {
		limit = DefaultPerPage
	}
	items, total, err := s.orders.List(ctx, filter, page, limit)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	out := models.NewPage(items, page, limit, total)
	return &out, nil
}

// FeedForUser and Feed load the whole result set for live streams.
func (s *OrderService) FeedForUser(userID string) func(ctx context.Context) ([]models.Order, error) {
	return func(ctx context.Context) ([]models.Order, error) {
		return s.orders.Find(ctx, bson.M{"user_id": userID}, nil)
	}
}

func (s *OrderService) Feed(ctx context.Context) ([]models.Order, error) {
	return s.orders.Find(ctx, nil, nil)
}

// Get returns an order. Unless admin is set, orders of other users are
// reported as not found.
func (s *OrderService) Get(ctx context.Context, userID, id string, admin bool) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("Order not found")
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if !admin && order.UserID != userID {
		return nil, apperrors.NotFound("Order not found")
	}
	return order, nil
}

// UpdateStatus moves an order along its lifecycle.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, update models.OrderStatusUpdate) (*models.Order, error) {
	if err := Validate(update); err != nil {
		return nil, err
	}
	order, err := s.Get(ctx, "", id, true)
	if err != nil {
		return nil, err
	}
	if order.Status == update.Status {
		return order, nil
	}
	if !models.CanTransition(order.Status, update.Status) {
		return nil, apperrors.ErrInvalidStatus
	}

	now := s.now().UTC()
	if err := s.orders.Update(ctx, id, bson.M{"status": update.Status, "updated_at": now}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Order not found")
		}
		return nil, apperrors.Internal(err)
	}
	order.Status, order.UpdatedAt = update.Status, now
	s.logger(ctx).Info("order status changed", zap.String("order_id", id), zap.String("status", update.Status))
	return order, nil
}

func (s *OrderService) Delete(ctx context.Context, id string) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("Order not found")
		}
		return apperrors.Internal(err)
	}
	return nil
}

// HandlePaymentEvent consumes payment events delivered through SQS and
// records the outcome on the matching order. Unrelated events and payments
// without an order yet are acknowledged and skipped.
func (s *OrderService) HandlePaymentEvent(ctx context.Context, body string) error {
	var event models.DomainEvent
	if err := json.Unmarshal([]byte(awspkg.UnwrapSNS(body)), &event); err != nil {
		s.logger(ctx).Warn("dropping malformed payment event", zap.Error(err))
		return nil
	}
	_ = s.metrics.RecordCount(ctx, awspkg.MetricSQSMessages, map[string]string{"event_type": event.EventType})

	var paymentStatus string
	switch event.EventType {
	case models.EventPaymentSuccess:
		paymentStatus = models.PaymentStatusPaid
	case models.EventPaymentFailure:
		paymentStatus = models.PaymentStatusFailed
	default:
		return nil
	}

	filter := bson.M{"payment_ref": event.PaymentRef}
	if event.OrderID != "" {
		filter = bson.M{"_id": event.OrderID}
	}
	if event.PaymentRef == "" && event.OrderID == "" {
		return nil
	}
	order, err := s.orders.FindOne(ctx, filter)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find order for payment: %w", err)
	}
	if order.PaymentStatus == paymentStatus {
		return nil
	}
	if err := s.orders.Update(ctx, order.ID, bson.M{"payment_status": paymentStatus, "updated_at": s.now().UTC()}); err != nil {
		return fmt.Errorf("update order payment status: %w", err)
	}
	s.logger(ctx).Info("order payment status updated", zap.String("order_id", order.ID), zap.String("payment_status", paymentStatus))
	return nil
}

func (s *OrderService) logger(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, s.log)
}
