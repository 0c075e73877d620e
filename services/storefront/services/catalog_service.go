package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	awspkg "github.com/yashrajoria/pawmart/backend/pkg/aws"
	apperrors "github.com/yashrajoria/pawmart/backend/services/common/errors"
	"github.com/yashrajoria/pawmart/backend/services/common/logger"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
	"github.com/yashrajoria/pawmart/backend/services/storefront/repository"
)

const (
	DefaultPerPage = 12
	MaxPerPage     = 100
	uploadExpiry   = 15 * time.Minute
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

var errProductNotFound = apperrors.NotFound("Product not found")

type CommentInput struct {
	Text   string `json:"text" validate:"required,max=2000"`
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
}

type CatalogService struct {
	products repository.ProductRepo
	cache    ProductCacheStore
	comments DocumentStore[models.Comment]
	images   ImagePresigner
	metrics  awspkg.Recorder
	log      *zap.Logger
	now      func() time.Time
}

func NewCatalogService(
	products repository.ProductRepo,
	cache ProductCacheStore,
	comments DocumentStore[models.Comment],
	images ImagePresigner,
	metrics awspkg.Recorder,
	log *zap.Logger,
) *CatalogService {
	if metrics == nil {
		metrics = awspkg.NopRecorder{}
	}
	return &CatalogService{
		products: products,
		cache:    cache,
		comments: comments,
		images:   images,
		metrics:  metrics,
		log:      log,
		now:      time.Now,
	}
}

// NormalizeQuery clamps pagination and rejects unknown sort orders.
func NormalizeQuery(q models.ProductQuery) (models.ProductQuery, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	switch q.Sort {
	case "":
		q.Sort = models.SortNewest
	case models.SortNewest, models.SortPriceAsc, models.SortPriceDesc, models.SortTitleAsc:
	default:
		return q, apperrors.BadRequest("sort must be one of: price_asc price_desc created_at_desc title_asc")
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return q, apperrors.BadRequest("minPrice must not exceed maxPrice")
	}
	q.Category = strings.TrimSpace(q.Category)
	q.Subcategory = strings.TrimSpace(q.Subcategory)
	q.Search = strings.TrimSpace(q.Search)
	return q, nil
}

func (s *CatalogService) List(ctx context.Context, q models.ProductQuery) (*models.Page[models.Product], error) {
	q, err := NormalizeQuery(q)
	if err != nil {
		return nil, err
	}

	if page, ok := s.cache.GetList(ctx, q); ok {
		_ = s.metrics.RecordCount(ctx, awspkg.MetricCacheHits, map[string]string{"cache": "product_list"})
		return page, nil
	}
	_ = s.metrics.RecordCount(ctx, awspkg.MetricCacheMisses, map[string]string{"cache": "product_list"})

	items, total, err := s.products.List(ctx, q)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("list products: %w", err))
	}
	page := models.NewPage(items, q.Page, q.PerPage, total)
	s.cache.SetList(ctx, q, page)
	return &page, nil
}

// All returns the full catalog, newest first. It feeds the live product stream.
func (s *CatalogService) All(ctx context.Context) ([]models.Product, error) {
	return s.products.All(ctx)
}

func (s *CatalogService) Get(ctx context.Context, id string) (*models.Product, error) {
	if p, ok := s.cache.GetProduct(ctx, id); ok {
		return p, nil
	}
	p, err := s.products.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errProductNotFound
	}
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("get product: %w", err))
	}
	s.cache.SetProduct(ctx, p)
	return p, nil
}

func (s *CatalogService) Create(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p := &models.Product{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Price:       in.Price,
		Category:    strings.TrimSpace(in.Category),
		Subcategory: strings.TrimSpace(in.Subcategory),
		Description: in.Description,
		Images:      in.Images,
		Stock:       in.Stock,
		Featured:    in.Featured,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("create product: %w", err))
	}
	s.cache.Invalidate(ctx, "")
	s.logger(ctx).Info("product created", zap.String("product_id", p.ID))
	return p, nil
}

func (s *CatalogService) Update(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	if err := Validate(patch); err != nil {
		return nil, err
	}
	p, err := s.products.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, errProductNotFound
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	patch.Apply(p)
	p.UpdatedAt = s.now().UTC()
	if err := s.products.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errProductNotFound
		}
		return nil, apperrors.Internal(fmt.Errorf("update product: %w", err))
	}
	s.cache.Invalidate(ctx, id)
	return p, nil
}

func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errProductNotFound
		}
		return apperrors.Internal(fmt.Errorf("delete product: %w", err))
	}
	s.cache.Invalidate(ctx, id)
	if _, err := s.comments.DeleteMany(ctx, bson.M{"product_id": id}); err != nil {
		s.logger(ctx).Warn("failed to delete product comments", zap.String("product_id", id), zap.Error(err))
	}
	return nil
}

// ReserveStock decrements stock for an ordered line. Out-of-stock is reported
// to the caller; the cached product is dropped either way.
func (s *CatalogService) ReserveStock(ctx context.Context, productID string, qty int) error {
	err := s.products.DecrementStock(ctx, productID, qty)
	s.cache.Invalidate(ctx, productID)
	return err
}

func (s *CatalogService) Count(ctx context.Context) (int64, error) {
	return s.products.Count(ctx)
}

// PresignImageUpload returns a URL the admin UI can PUT an image to directly.
func (s *CatalogService) PresignImageUpload(ctx context.Context, filename, contentType string) (*awspkg.PresignedUpload, error) {
	if s.images == nil {
		return nil, apperrors.ErrServiceUnavailable
	}
	ext, ok := allowedImageTypes[strings.ToLower(contentType)]
	if !ok {
		return nil, apperrors.BadRequest("Allowed image types: jpeg, png, webp, gif")
	}
	if given := strings.ToLower(path.Ext(filename)); given == ".jpeg" || given == ext {
		ext = given
	}
	key := fmt.Sprintf("products/%s%s", uuid.NewString(), ext)
	upload, err := s.images.PresignPut(ctx, key, contentType, uploadExpiry)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("presign upload: %w", err))
	}
	return upload, nil
}

func (s *CatalogService) Comments(ctx context.Context, productID string, page, limit int) (*models.Page[models.Comment], error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > MaxPerPage {
		limit = DefaultPerPage
	}
	items, total, err := s.comments.List(ctx, bson.M{"product_id": productID}, page, limit)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	out := models.NewPage(items, page, limit, total)
	return &out, nil
}

func (s *CatalogService) AddComment(ctx context.Context, userID, author, productID string, in CommentInput) (*models.Comment, error) {
	in.Text = strings.TrimSpace(in.Text)
	if err := Validate(in); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, productID); err != nil {
		return nil, err
	}
	c := &models.Comment{
		ID:        uuid.NewString(),
		ProductID: productID,
		UserID:    userID,
		Author:    author,
		Text:      in.Text,
		Rating:    in.Rating,
		CreatedAt: s.now().UTC(),
	}
	if err := s.comments.Insert(ctx, c); err != nil {
		return nil, apperrors.Internal(err)
	}
	return c, nil
}

func (s *CatalogService) DeleteComment(ctx context.Context, id string) error {
	if err := s.comments.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("Comment not found")
		}
		return apperrors.Internal(err)
	}
	return nil
}

func (s *CatalogService) logger(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, s.log)
}
