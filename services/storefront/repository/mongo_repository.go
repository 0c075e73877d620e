package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	CollectionOrders       = "orders"
	CollectionUsers        = "users"
	CollectionTestimonials = "testimonials"
	CollectionFAQs         = "faqs"
	CollectionQuestions    = "questions"
	CollectionSubscribers  = "subscribers"
	CollectionComments     = "comments"
)

// newestFirst is the default order of every listing.
var newestFirst = bson.D{{Key: "created_at", Value: -1}}

// MongoRepository gives typed access to one collection whose documents are
// keyed by a string _id.
type MongoRepository[T any] struct {
	coll *mongo.Collection
}

func NewMongoRepository[T any](coll *mongo.Collection) *MongoRepository[T] {
	return &MongoRepository[T]{coll: coll}
}

func orAll(filter any) any {
	if filter == nil {
		return bson.M{}
	}
	return filter
}

// List returns one page of documents matching filter, newest first, and the
// total number of matches. page starts at 1.
func (r *MongoRepository[T]) List(ctx context.Context, filter any, page, limit int) ([]T, int64, error) {
	filter = orAll(filter)
	if page < 1 {
		page = 1
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", r.coll.Name(), err)
	}

	opts := options.Find().SetSort(newestFirst)
	if limit > 0 {
		opts.SetSkip(int64((page - 1) * limit)).SetLimit(int64(limit))
	}
	docs, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

// Find returns every document matching filter in the given order, newest
// first when sort is nil.
func (r *MongoRepository[T]) Find(ctx context.Context, filter any, sort bson.D) ([]T, error) {
	if sort == nil {
		sort = newestFirst
	}
	return r.find(ctx, orAll(filter), options.Find().SetSort(sort))
}

func (r *MongoRepository[T]) find(ctx context.Context, filter any, opts *options.FindOptions) ([]T, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", r.coll.Name(), err)
	}
	defer cursor.Close(ctx)

	docs := []T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.coll.Name(), err)
	}
	return docs, nil
}

func (r *MongoRepository[T]) FindByID(ctx context.Context, id string) (*T, error) {
	return r.FindOne(ctx, bson.M{"_id": id})
}

func (r *MongoRepository[T]) FindOne(ctx context.Context, filter any) (*T, error) {
	var doc T
	err := r.coll.FindOne(ctx, orAll(filter)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find one %s: %w", r.coll.Name(), err)
	}
	return &doc, nil
}

func (r *MongoRepository[T]) Insert(ctx context.Context, doc *T) error {
	_, err := r.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert %s: %w", r.coll.Name(), err)
	}
	return nil
}

// Update applies $set to the document with the given id.
func (r *MongoRepository[T]) Update(ctx context.Context, id string, set bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update %s: %w", r.coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository[T]) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.coll.Name(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteMany removes every document matching filter and reports how many went.
func (r *MongoRepository[T]) DeleteMany(ctx context.Context, filter any) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, orAll(filter))
	if err != nil {
		return 0, fmt.Errorf("delete many %s: %w", r.coll.Name(), err)
	}
	return res.DeletedCount, nil
}

func (r *MongoRepository[T]) Count(ctx context.Context, filter any) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, orAll(filter))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.coll.Name(), err)
	}
	return n, nil
}

// Aggregate runs pipeline and decodes every result into out, which must be a
// pointer to a slice.
func (r *MongoRepository[T]) Aggregate(ctx context.Context, pipeline any, out any) error {
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregate %s: %w", r.coll.Name(), err)
	}
	defer cursor.Close(ctx)
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("decode %s aggregate: %w", r.coll.Name(), err)
	}
	return nil
}

// Changes opens a change stream on the collection and signals on the returned
// channel after every change. Signals coalesce when the reader is slow. The
// channel closes when ctx ends or the stream fails. Change streams need a
// replica set; on a standalone server the error tells the caller to poll.
func (r *MongoRepository[T]) Changes(ctx context.Context) (<-chan struct{}, error) {
	stream, err := r.coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", r.coll.Name(), err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer stream.Close(context.Background())
		for stream.Next(ctx) {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}()
	return ch, nil
}

// EnsureIndexes creates the given indexes; existing identical indexes are left alone.
func (r *MongoRepository[T]) EnsureIndexes(ctx context.Context, indexes ...mongo.IndexModel) error {
	if len(indexes) == 0 {
		return nil
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create indexes on %s: %w", r.coll.Name(), err)
	}
	return nil
}

// CreatedAtIndex is the index behind every newest-first listing.
func CreatedAtIndex() mongo.IndexModel {
	return mongo.IndexModel{Keys: newestFirst}
}

// UniqueIndex builds a unique single-field ascending index.
func UniqueIndex(field string) mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true),
	}
}

// FieldIndex builds a plain single-field ascending index.
func FieldIndex(field string) mongo.IndexModel {
	return mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}}
}
