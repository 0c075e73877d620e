// Command import-products copies a legacy MongoDB products collection into the
// DynamoDB catalog table the storefront serves from.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	awspkg "github.com/yashrajoria/pawmart/backend/pkg/aws"
	dynamopkg "github.com/yashrajoria/pawmart/backend/pkg/dynamodb"
	"github.com/yashrajoria/pawmart/backend/services/common/logger"
	"github.com/yashrajoria/pawmart/backend/services/storefront/models"
	"github.com/yashrajoria/pawmart/backend/services/storefront/repository"
)

// legacyProduct is the document shape written by the old storefront. Field names
// drifted over time, so both spellings are accepted.
type legacyProduct struct {
	ID             bson.RawValue `bson:"_id"`
	Title          string        `bson:"title"`
	Name           string        `bson:"name"`
	Price          bson.RawValue `bson:"price"`
	Category       string        `bson:"category"`
	Subcategory    string        `bson:"subcategory"`
	Description    string        `bson:"description"`
	Image          string        `bson:"image"`
	Images         []string      `bson:"images"`
	Stock          int           `bson:"stock"`
	Featured       bool          `bson:"featured"`
	CreatedAt      time.Time     `bson:"created_at"`
	CreatedAtCamel time.Time     `bson:"createdAt"`
}

// toProduct maps a legacy document onto the catalog model. now stamps
// documents that carry no creation time.
func toProduct(doc legacyProduct, now time.Time) (models.Product, error) {
	p := models.Product{
		ID:          legacyID(doc.ID),
		Title:       strings.TrimSpace(doc.Title),
		Category:    strings.TrimSpace(doc.Category),
		Subcategory: strings.TrimSpace(doc.Subcategory),
		Description: doc.Description,
		Images:      doc.Images,
		Stock:       doc.Stock,
		Featured:    doc.Featured,
		CreatedAt:   doc.CreatedAt,
	}
	if p.Title == "" {
		p.Title = strings.TrimSpace(doc.Name)
	}
	if p.Title == "" {
		return p, fmt.Errorf("product %s has no title", p.ID)
	}

	price, err := legacyPrice(doc.Price)
	if err != nil {
		return p, fmt.Errorf("product %s: %w", p.ID, err)
	}
	p.Price = price

	if doc.Image != "" && !contains(p.Images, doc.Image) {
		p.Images = append([]string{doc.Image}, p.Images...)
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Stock < 0 {
		p.Stock = 0
	}

	if p.CreatedAt.IsZero() {
		p.CreatedAt = doc.CreatedAtCamel
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.CreatedAt
	return p, nil
}

func legacyID(v bson.RawValue) string {
	switch v.Type {
	case bsontype.String:
		if s := v.StringValue(); s != "" {
			return s
		}
	case bsontype.ObjectID:
		return v.ObjectID().Hex()
	}
	return uuid.NewString()
}

func legacyPrice(v bson.RawValue) (models.Price, error) {
	switch v.Type {
	case bsontype.Double:
		return models.ParsePrice(strconv.FormatFloat(v.Double(), 'f', -1, 64))
	case bsontype.Int32:
		return models.ParsePrice(strconv.FormatInt(int64(v.Int32()), 10))
	case bsontype.Int64:
		return models.ParsePrice(strconv.FormatInt(v.Int64(), 10))
	case bsontype.Decimal128:
		return models.ParsePrice(v.Decimal128().String())
	case bsontype.String:
		return models.ParsePrice(v.StringValue())
	}
	return 0, errors.New("missing or unsupported price")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type stats struct {
	imported, skipped, failed int
}

func run(ctx context.Context, cur *mongo.Cursor, repo repository.ProductRepo, dryRun bool, log *zap.Logger) (stats, error) {
	var st stats
	for cur.Next(ctx) {
		var doc legacyProduct
		if err := cur.Decode(&doc); err != nil {
			log.Warn("skipping undecodable document", zap.Error(err))
			st.failed++
			continue
		}
		p, err := toProduct(doc, time.Now())
		if err != nil {
			log.Warn("skipping invalid product", zap.Error(err))
			st.failed++
			continue
		}
		if dryRun {
			log.Info("would import product", zap.String("product_id", p.ID), zap.String("title", p.Title), zap.Stringer("price", p.Price))
			st.imported++
			continue
		}

		err = repo.Create(ctx, &p)
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			st.skipped++
		case err != nil:
			log.Error("failed to write product", zap.String("product_id", p.ID), zap.Error(err))
			st.failed++
		default:
			st.imported++
			if st.imported%100 == 0 {
				log.Info("import progress", zap.Int("imported", st.imported))
			}
		}
	}
	return st, cur.Err()
}

func main() {
	var mongoURI, dbName, collection, table string
	var dryRun bool
	flag.StringVar(&mongoURI, "mongo", os.Getenv("MONGO_URI"), "MongoDB URI")
	flag.StringVar(&dbName, "db", os.Getenv("MONGO_DB"), "MongoDB database name")
	flag.StringVar(&collection, "collection", "products", "source collection")
	flag.StringVar(&table, "table", os.Getenv("DDB_TABLE_PRODUCTS"), "DynamoDB table name")
	flag.BoolVar(&dryRun, "dry-run", false, "log what would be imported without writing")
	flag.Parse()

	log := logger.Initialize(os.Getenv("ENV"), nil)
	defer log.Sync()

	if mongoURI == "" || dbName == "" {
		log.Fatal("MONGO_URI and MONGO_DB must be set or provided via flags")
	}
	if table == "" {
		table = "Products"
	}

	ctx := context.Background()
	mclient, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatal("mongo connect failed", zap.Error(err))
	}
	defer mclient.Disconnect(ctx)

	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		log.Fatal("aws config failed", zap.Error(err))
	}
	ddb := dynamopkg.NewClientFromConfig(awsCfg)
	if !dryRun {
		if err := dynamopkg.EnsureTable(ctx, ddb, table, "product_id"); err != nil {
			log.Fatal("ensure table failed", zap.String("table", table), zap.Error(err))
		}
	}

	batchSize := int32(500)
	cur, err := mclient.Database(dbName).Collection(collection).Find(ctx, bson.M{}, &options.FindOptions{
		BatchSize: &batchSize,
		Sort:      bson.D{{Key: "_id", Value: 1}},
	})
	if err != nil {
		log.Fatal("mongo find failed", zap.Error(err))
	}
	defer cur.Close(ctx)

	st, err := run(ctx, cur, repository.NewDynamoProductRepository(ddb, table), dryRun, log)
	if err != nil {
		log.Fatal("cursor error", zap.Error(err))
	}
	log.Info("import complete",
		zap.Int("imported", st.imported),
		zap.Int("skipped_existing", st.skipped),
		zap.Int("failed", st.failed),
		zap.Bool("dry_run", dryRun))
}
