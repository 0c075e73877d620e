package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	apperrors "github.com/yashrajoria/pawmart/backend/services/common/errors"
	"github.com/yashrajoria/pawmart/backend/services/common/logger"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
	"github.com/yashrajoria/pawmart/backend/services/storefront/notify"
	"github.com/yashrajoria/pawmart/backend/services/storefront/repository"
)

type TestimonialInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Message string `json:"message" validate:"required,max=2000"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
}

type FAQInput struct {
	Question string `json:"question" validate:"required,max=500"`
	Answer   string `json:"answer" validate:"required,max=5000"`
	Position int    `json:"position" validate:"gte=0"`
}

type QuestionInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,max=5000"`
}

type AnswerInput struct {
	Answer string `json:"answer" validate:"required,max=5000"`
}

type SubscribeInput struct {
	Email string `json:"email" validate:"required,email"`
}

// ContentService manages the storefront's editorial collections.
type ContentService struct {
	testimonials DocumentStore[models.Testimonial]
	faqs         DocumentStore[models.FAQRecord]
	questions    DocumentStore[models.Question]
	subscribers  DocumentStore[models.Subscriber]
	mailer       notify.EmailSender
	events       EventPublisher
	log          *zap.Logger
	now          func() time.Time
}

func NewContentService(
	testimonials DocumentStore[models.Testimonial],
	faqs DocumentStore[models.FAQRecord],
	questions DocumentStore[models.Question],
	subscribers DocumentStore[models.Subscriber],
	mailer notify.EmailSender,
	events EventPublisher,
	log *zap.Logger,
) *ContentService {
	if events == nil {
		events = NewEventPublisher(nil, "", log)
	}
	return &ContentService{
		testimonials: testimonials,
		faqs:         faqs,
		questions:    questions,
		subscribers:  subscribers,
		mailer:       mailer,
		events:       events,
		log:          log,
		now:          time.Now,
	}
}

func notFoundAs(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(msg)
	}
	return apperrors.Internal(err)
}

// Testimonials lists approved testimonials, or all of them for admins.
func (s *ContentService) Testimonials(ctx context.Context, includeUnapproved bool) ([]models.Testimonial, error) {
	filter := bson.M{"approved": true}
	if includeUnapproved {
		filter = nil
	}
	items, err := s.testimonials.Find(ctx, filter, nil)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return items, nil
}

// SubmitTestimonial stores a testimonial awaiting approval.
func (s *ContentService) SubmitTestimonial(ctx context.Context, in TestimonialInput) (*models.Testimonial, error) {
	in.Name, in.Message = strings.TrimSpace(in.Name), strings.TrimSpace(in.Message)
	if err := Validate(in); err != nil {
		return nil, err
	}
	t := &models.Testimonial{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Message:   in.Message,
		Rating:    in.Rating,
		CreatedAt: s.now().UTC(),
	}
	if err := s.testimonials.Insert(ctx, t); err != nil {
		return nil, apperrors.Internal(err)
	}
	return t, nil
}

func (s *ContentService) SetTestimonialApproval(ctx context.Context, id string, approved bool) error {
	if err := s.testimonials.Update(ctx, id, bson.M{"approved": approved}); err != nil {
		return notFoundAs(err, "Testimonial not found")
	}
	return nil
}

func (s *ContentService) DeleteTestimonial(ctx context.Context, id string) error {
	if err := s.testimonials.Delete(ctx, id); err != nil {
		return notFoundAs(err, "Testimonial not found")
	}
	return nil
}

// FAQs lists entries by position.
func (s *ContentService) FAQs(ctx context.Context) ([]models.FAQRecord, error) {
	items, err := s.faqs.Find(ctx, nil, bson.D{{Key: "position", Value: 1}, {Key: "created_at", Value: 1}})
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return items, nil
}

func (s *ContentService) CreateFAQ(ctx context.Context, in FAQInput) (*models.FAQRecord, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	f := &models.FAQRecord{
		ID:        uuid.NewString(),
		Question:  strings.TrimSpace(in.Question),
		Answer:    strings.TrimSpace(in.Answer),
		Position:  in.Position,
		CreatedAt: s.now().UTC(),
	}
	if err := s.faqs.Insert(ctx, f); err != nil {
		return nil, apperrors.Internal(err)
	}
	return f, nil
}

func (s *ContentService) UpdateFAQ(ctx context.Context, id string, in FAQInput) (*models.FAQRecord, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	set := bson.M{"question": strings.TrimSpace(in.Question), "answer": strings.TrimSpace(in.Answer), "position": in.Position}
	if err := s.faqs.Update(ctx, id, set); err != nil {
		return nil, notFoundAs(err, "FAQ not found")
	}
	f, err := s.faqs.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "FAQ not found")
	}
	return f, nil
}

func (s *ContentService) DeleteFAQ(ctx context.Context, id string) error {
	if err := s.faqs.Delete(ctx, id); err != nil {
		return notFoundAs(err, "FAQ not found")
	}
	return nil
}

func (s *ContentService) AskQuestion(ctx context.Context, in QuestionInput) (*models.Question, error) {
	in.Email = normalizeEmail(in.Email)
	in.Name, in.Message = strings.TrimSpace(in.Name), strings.TrimSpace(in.Message)
	if err := Validate(in); err != nil {
		return nil, err
	}
	q := &models.Question{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Email:     in.Email,
		Message:   in.Message,
		CreatedAt: s.now().UTC(),
	}
	if err := s.questions.Insert(ctx, q); err != nil {
		return nil, apperrors.Internal(err)
	}
	return q, nil
}

// Questions lists contact-form questions; unansweredOnly narrows to open ones.
func (s *ContentService) Questions(ctx context.Context, unansweredOnly bool) ([]models.Question, error) {
	var filter any
	if unansweredOnly {
		filter = bson.M{"answer": bson.M{"$exists": false}}
	}
	items, err := s.questions.Find(ctx, filter, nil)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return items, nil
}

// AnswerQuestion records the reply and emails it to the asker.
func (s *ContentService) AnswerQuestion(ctx context.Context, id string, in AnswerInput) (*models.Question, error) {
	in.Answer = strings.TrimSpace(in.Answer)
	if err := Validate(in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := s.questions.Update(ctx, id, bson.M{"answer": in.Answer, "answered_at": now}); err != nil {
		return nil, notFoundAs(err, "Question not found")
	}
	q, err := s.questions.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "Question not found")
	}
	if err := notify.Deliver(ctx, s.mailer, q.Email, notify.TemplateQuestionReply, map[string]any{
		"Name": q.Name, "Question": q.Message, "Answer": in.Answer,
	}); err != nil {
		logger.FromContext(ctx, s.log).Warn("question reply email failed", zap.String("question_id", id), zap.Error(err))
	}
	return q, nil
}

func (s *ContentService) DeleteQuestion(ctx context.Context, id string) error {
	if err := s.questions.Delete(ctx, id); err != nil {
		return notFoundAs(err, "Question not found")
	}
	return nil
}

// Subscribe adds an address to the newsletter. Subscribing twice returns the
// existing subscription.
func (s *ContentService) Subscribe(ctx context.Context, in SubscribeInput) (*models.Subscriber, error) {
	in.Email = normalizeEmail(in.Email)
	if err := Validate(in); err != nil {
		return nil, err
	}
	existing, err := s.subscribers.FindOne(ctx, bson.M{"email": in.Email})
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}

	sub := &models.Subscriber{ID: uuid.NewString(), Email: in.Email, CreatedAt: s.now().UTC()}
	if err := s.subscribers.Insert(ctx, sub); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.subscribers.FindOne(ctx, bson.M{"email": in.Email})
		}
		return nil, apperrors.Internal(err)
	}
	s.events.Publish(ctx, models.DomainEvent{EventType: models.EventSubscriberAdded, Email: sub.Email})
	return sub, nil
}

func (s *ContentService) Subscribers(ctx context.Context, page, limit int) (*models.Page[models.Subscriber], error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > MaxPerPage {
		limit = DefaultPerPage
	}
	items, total, err := s.subscribers.List(ctx, nil, page, limit)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	out := models.NewPage(items, page, limit, total)
	return &out, nil
}

func (s *ContentService) Unsubscribe(ctx context.Context, id string) error {
	if err := s.subscribers.Delete(ctx, id); err != nil {
		return notFoundAs(err, "Subscriber not found")
	}
	return nil
}
