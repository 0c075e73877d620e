package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
)

// ProductRepo is the catalog store.
type ProductRepo interface {
	FindByID(ctx context.Context, id string) (*models.Product, error)
	All(ctx context.Context) ([]models.Product, error)
	List(ctx context.Context, q models.ProductQuery) ([]models.Product, int64, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
	DecrementStock(ctx context.Context, id string, qty int) error
	Count(ctx context.Context) (int64, error)
}

// DynamoAPI is the subset of the DynamoDB client the repository uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoProductRepository stores products in a table keyed by product_id.
type DynamoProductRepository struct {
	client DynamoAPI
	table  string
}

func NewDynamoProductRepository(client DynamoAPI, table string) *DynamoProductRepository {
	return &DynamoProductRepository{client: client, table: table}
}

type ddbProduct struct {
	ProductID   string   `dynamodbav:"product_id"`
	Title       string   `dynamodbav:"title"`
	PriceCents  int64    `dynamodbav:"price_cents"`
	Category    string   `dynamodbav:"category"`
	Subcategory *string  `dynamodbav:"subcategory,omitempty"`
	Description *string  `dynamodbav:"description,omitempty"`
	Images      []string `dynamodbav:"images,omitempty"`
	Stock       int      `dynamodbav:"stock"`
	Featured    bool     `dynamodbav:"featured"`
	CreatedAt   string   `dynamodbav:"created_at"`
	UpdatedAt   string   `dynamodbav:"updated_at"`
}

func toDDB(p *models.Product) ddbProduct {
	d := ddbProduct{
		ProductID:  p.ID,
		Title:      p.Title,
		PriceCents: p.Price.Cents(),
		Category:   p.Category,
		Images:     p.Images,
		Stock:      p.Stock,
		Featured:   p.Featured,
		CreatedAt:  p.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:  p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if p.Subcategory != "" {
		d.Subcategory = &p.Subcategory
	}
	if p.Description != "" {
		d.Description = &p.Description
	}
	return d
}

func (d ddbProduct) toModel() models.Product {
	p := models.Product{
		ID:       d.ProductID,
		Title:    d.Title,
		Price:    models.Cents(d.PriceCents),
		Category: d.Category,
		Images:   d.Images,
		Stock:    d.Stock,
		Featured: d.Featured,
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if d.Subcategory != nil {
		p.Subcategory = *d.Subcategory
	}
	if d.Description != nil {
		p.Description = *d.Description
	}
	if t, err := time.Parse(time.RFC3339Nano, d.CreatedAt); err == nil {
		p.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, d.UpdatedAt); err == nil {
		p.UpdatedAt = t
	}
	return p
}

func (r *DynamoProductRepository) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"product_id": &types.AttributeValueMemberS{Value: id}}
}

func (r *DynamoProductRepository) FindByID(ctx context.Context, id string) (*models.Product, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{TableName: &r.table, Key: r.key(id)})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var d ddbProduct
	if err := attributevalue.UnmarshalMap(out.Item, &d); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	p := d.toModel()
	return &p, nil
}

// All scans the whole table, newest first.
func (r *DynamoProductRepository) All(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{TableName: &r.table})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan products: %w", err)
		}
		for _, it := range page.Items {
			var d ddbProduct
			if err := attributevalue.UnmarshalMap(it, &d); err != nil {
				return nil, fmt.Errorf("unmarshal product: %w", err)
			}
			products = append(products, d.toModel())
		}
	}
	sortProducts(products, models.SortNewest)
	return products, nil
}

// List filters, sorts and paginates the scanned catalog. The catalog is small
// enough that a scan per uncached listing is acceptable.
func (r *DynamoProductRepository) List(ctx context.Context, q models.ProductQuery) ([]models.Product, int64, error) {
	all, err := r.All(ctx)
	if err != nil {
		return nil, 0, err
	}
	matched := FilterProducts(all, q)
	sortProducts(matched, q.Sort)

	total := int64(len(matched))
	start := (q.Page - 1) * q.PerPage
	if start < 0 {
		start = 0
	}
	if start >= len(matched) {
		return []models.Product{}, total, nil
	}
	end := start + q.PerPage
	if q.PerPage <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// FilterProducts applies the query's filters.
func FilterProducts(products []models.Product, q models.ProductQuery) []models.Product {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if q.Category != "" && !strings.EqualFold(p.Category, q.Category) {
			continue
		}
		if q.Subcategory != "" && !strings.EqualFold(p.Subcategory, q.Subcategory) {
			continue
		}
		if q.Featured != nil && p.Featured != *q.Featured {
			continue
		}
		if q.MinPrice != nil && p.Price < *q.MinPrice {
			continue
		}
		if q.MaxPrice != nil && p.Price > *q.MaxPrice {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Title+" "+p.Description), search) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func sortProducts(products []models.Product, order string) {
	var less func(a, b models.Product) bool
	switch order {
	case models.SortPriceAsc:
		less = func(a, b models.Product) bool { return a.Price < b.Price }
	case models.SortPriceDesc:
		less = func(a, b models.Product) bool { return a.Price > b.Price }
	case models.SortTitleAsc:
		less = func(a, b models.Product) bool { return strings.ToLower(a.Title) < strings.ToLower(b.Title) }
	default:
		less = func(a, b models.Product) bool { return a.CreatedAt.After(b.CreatedAt) }
	}
	sort.SliceStable(products, func(i, j int) bool { return less(products[i], products[j]) })
}

func (r *DynamoProductRepository) Create(ctx context.Context, p *models.Product) error {
	item, err := attributevalue.MarshalMap(toDDB(p))
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.table,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(product_id)"),
	})
	var failed *types.ConditionalCheckFailedException
	if errors.As(err, &failed) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}

// Update replaces an existing product.
func (r *DynamoProductRepository) Update(ctx context.Context, p *models.Product) error {
	item, err := attributevalue.MarshalMap(toDDB(p))
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.table,
		Item:                item,
		ConditionExpression: aws.String("attribute_exists(product_id)"),
	})
	var failed *types.ConditionalCheckFailedException
	if errors.As(err, &failed) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("dynamodb PutItem failed: %w", err)
	}
	return nil
}

func (r *DynamoProductRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           &r.table,
		Key:                 r.key(id),
		ConditionExpression: aws.String("attribute_exists(product_id)"),
	})
	var failed *types.ConditionalCheckFailedException
	if errors.As(err, &failed) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete item failed: %w", err)
	}
	return nil
}

// DecrementStock subtracts qty only if enough stock remains.
func (r *DynamoProductRepository) DecrementStock(ctx context.Context, id string, qty int) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &r.table,
		Key:                 r.key(id),
		UpdateExpression:    aws.String("SET stock = stock - :qty, updated_at = :now"),
		ConditionExpression: aws.String("attribute_exists(product_id) AND stock >= :qty"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":qty": &types.AttributeValueMemberN{Value: strconv.Itoa(qty)},
			":now": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
	})
	var failed *types.ConditionalCheckFailedException
	if errors.As(err, &failed) {
		return ErrOutOfStock
	}
	if err != nil {
		return fmt.Errorf("update stock failed: %w", err)
	}
	return nil
}

func (r *DynamoProductRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{TableName: &r.table, Select: types.SelectCount})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, fmt.Errorf("scan count failed: %w", err)
		}
		total += int64(page.Count)
	}
	return total, nil
}
