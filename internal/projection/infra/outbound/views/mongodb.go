// en internal/projection/infra/outbound/views/mongodb.go
package views

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/davicafu/inventorylab/internal/projection/domain"
)

// MongoViewRepo implementa ProductViewRepository sobre MongoDB.
// El documento es la vista completa; ReplaceOne con upsert mantiene la
// aplicación de eventos idempotente ante redeliveries.
type MongoViewRepo struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ domain.ProductViewRepository = (*MongoViewRepo)(nil)

func NewMongoViewRepo(ctx context.Context, client *mongo.Client, dbName string) (*MongoViewRepo, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	return &MongoViewRepo{
		client: client,
		coll:   client.Database(dbName).Collection("product_views"),
	}, nil
}

func (r *MongoViewRepo) Upsert(ctx context.Context, v *domain.ProductView) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": v.ID}, v, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert product view %s: %w", v.ID, err)
	}
	return nil
}

func (r *MongoViewRepo) GetByID(ctx context.Context, id string) (*domain.ProductView, error) {
	var v domain.ProductView
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&v)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrViewNotFound
		}
		return nil, err
	}
	return &v, nil
}

func (r *MongoViewRepo) List(ctx context.Context) ([]*domain.ProductView, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*domain.ProductView
	for cursor.Next(ctx) {
		var v domain.ProductView
		if err := cursor.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cursor.Err()
}

func (r *MongoViewRepo) DeleteAll(ctx context.Context) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{})
	return err
}
