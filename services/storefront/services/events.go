package services

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	awspkg "github.com/yashrajoria/pawmart/backend/pkg/aws"
	"github.com/yashrajoria/pawmart/backend/services/common/logger"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
)

// EventPublisher announces domain events. Publishing is best effort: callers
// never fail because an event could not be sent.
type EventPublisher interface {
	Publish(ctx context.Context, event models.DomainEvent)
}

type snsEventPublisher struct {
	sns      awspkg.SNSPublisher
	topicArn string
	log      *zap.Logger
}

// NewEventPublisher publishes to topicArn. With no topic configured events are
// only logged at debug level.
func NewEventPublisher(sns awspkg.SNSPublisher, topicArn string, log *zap.Logger) EventPublisher {
	return &snsEventPublisher{sns: sns, topicArn: topicArn, log: log}
}

func (p *snsEventPublisher) Publish(ctx context.Context, event models.DomainEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	log := logger.FromContext(ctx, p.log).With(zap.String("event_type", event.EventType))
	if p.sns == nil || p.topicArn == "" {
		log.Debug("event publishing disabled")
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error("failed to marshal event", zap.Error(err))
		return
	}
	if err := p.sns.Publish(ctx, p.topicArn, payload); err != nil {
		log.Error("failed to publish event to SNS", zap.Error(err))
		return
	}
	log.Debug("event published")
}
