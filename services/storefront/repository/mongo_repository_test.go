package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
)

func ns(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func TestMongoRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mt.Run("FindByID decodes the document", func(mt *mtest.T) {
		repo := NewMongoRepository[models.Testimonial](mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, ns(mt), mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "T1"},
			{Key: "name", Value: "Ana"},
			{Key: "message", Value: "Great leash"},
			{Key: "rating", Value: 5},
			{Key: "approved", Value: true},
			{Key: "created_at", Value: created},
		}))

		got, err := repo.FindByID(ctx, "T1")
		require.NoError(mt, err)
		assert.Equal(mt, "Ana", got.Name)
		assert.Equal(mt, 5, got.Rating)
		assert.True(mt, got.Approved)
		assert.True(mt, created.Equal(got.CreatedAt))
	})

	mt.Run("FindOne maps no documents to ErrNotFound", func(mt *mtest.T) {
		repo := NewMongoRepository[models.Testimonial](mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))

		_, err := repo.FindOne(ctx, bson.M{"name": "nobody"})
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("List returns page and total", func(mt *mtest.T) {
		repo := NewMongoRepository[models.Subscriber](mt.Coll)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, ns(mt), mtest.FirstBatch, bson.D{{Key: "n", Value: 3}}),
			mtest.CreateCursorResponse(1, ns(mt), mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "S3"}, {Key: "email", Value: "c@example.com"}},
				bson.D{{Key: "_id", Value: "S2"}, {Key: "email", Value: "b@example.com"}},
			),
			mtest.CreateCursorResponse(0, ns(mt), mtest.NextBatch),
		)

		docs, total, err := repo.List(ctx, nil, 1, 2)
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), total)
		require.Len(mt, docs, 2)
		assert.Equal(mt, "S3", docs[0].ID)
	})

	mt.Run("Insert maps duplicate key to ErrDuplicate", func(mt *mtest.T) {
		repo := NewMongoRepository[models.Subscriber](mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key error",
		}))

		err := repo.Insert(ctx, &models.Subscriber{ID: "S1", Email: "a@example.com"})
		assert.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("Insert succeeds", func(mt *mtest.T) {
		repo := NewMongoRepository[models.Subscriber](mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(mt, repo.Insert(ctx, &models.Subscriber{ID: "S1", Email: "a@example.com"}))
	})

	mt.Run("Update reports missing documents", func(mt *mtest.T) {
		repo := NewMongoRepository[models.Order](mt.Coll)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
		)

		assert.NoError(mt, repo.Update(ctx, "O1", bson.M{"status": models.OrderShipped}))
		assert.ErrorIs(mt, repo.Update(ctx, "O2", bson.M{"status": models.OrderShipped}), ErrNotFound)
	})

	mt.Run("Delete reports missing documents", func(mt *mtest.T) {
		repo := NewMongoRepository[models.FAQRecord](mt.Coll)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		assert.NoError(mt, repo.Delete(ctx, "F1"))
		assert.ErrorIs(mt, repo.Delete(ctx, "F1"), ErrNotFound)
	})

	mt.Run("Count", func(mt *mtest.T) {
		repo := NewMongoRepository[models.UserProfile](mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, ns(mt), mtest.FirstBatch, bson.D{{Key: "n", Value: 7}}))

		n, err := repo.Count(ctx, bson.M{"role": models.RoleCustomer})
		require.NoError(mt, err)
		assert.Equal(mt, int64(7), n)
	})
}
