package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/keshav-const/BTP-sub000/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const maxCartUpdateAttempts = 3

// MongoCartRepository stores carts in the carts collection, unique on user_id.
type MongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{collection: db.Collection("carts")}
}

// GetOrCreate upserts an empty cart for the user. Two concurrent first
// accesses race on the unique index; the loser simply reads the winner's cart.
func (r *MongoCartRepository) GetOrCreate(ctx context.Context, userID string) (*models.Cart, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$setOnInsert": bson.M{
			"_id":        uuid.NewString(),
			"items":      bson.A{},
			"created_at": now,
			"updated_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var cart models.Cart
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"user_id": userID}, update, opts).Decode(&cart)
	if mongo.IsDuplicateKeyError(err) {
		err = r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart)
	}
	if err != nil {
		return nil, fmt.Errorf("get or create cart for %s: %w", userID, err)
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}

// AddItem increments the existing line for productID or appends a new one.
// The $push is guarded by $ne so two concurrent adds of the same product
// never produce two lines.
func (r *MongoCartRepository) AddItem(ctx context.Context, userID, productID string, qty int) (*models.Cart, error) {
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxCartUpdateAttempts; attempt++ {
		now := time.Now().UTC()

		res, err := r.collection.UpdateOne(ctx,
			bson.M{"user_id": userID, "items.product_id": productID},
			bson.M{
				"$inc": bson.M{"items.$.quantity": qty},
				"$set": bson.M{"updated_at": now},
			},
		)
		if err != nil {
			return nil, fmt.Errorf("increment cart item: %w", err)
		}
		if res.MatchedCount == 1 {
			return r.find(ctx, userID)
		}

		item := models.CartItem{ID: uuid.NewString(), ProductID: productID, Quantity: qty}
		res, err = r.collection.UpdateOne(ctx,
			bson.M{"user_id": userID, "items.product_id": bson.M{"$ne": productID}},
			bson.M{
				"$push": bson.M{"items": item},
				"$set":  bson.M{"updated_at": now},
			},
		)
		if err != nil {
			return nil, fmt.Errorf("append cart item: %w", err)
		}
		if res.MatchedCount == 1 {
			return r.find(ctx, userID)
		}
	}
	return nil, fmt.Errorf("add cart item for %s: %w", userID, ErrConflict)
}

func (r *MongoCartRepository) SetItemQuantity(ctx context.Context, userID, itemID string, qty int) (*models.Cart, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"user_id": userID, "items.id": itemID},
		bson.M{"$set": bson.M{"items.$.quantity": qty, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return nil, fmt.Errorf("update cart item: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrItemNotFound
	}
	return r.find(ctx, userID)
}

func (r *MongoCartRepository) RemoveItem(ctx context.Context, userID, itemID string) (*models.Cart, error) {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"user_id": userID, "items.id": itemID},
		bson.M{
			"$pull": bson.M{"items": bson.M{"id": itemID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("remove cart item: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, ErrItemNotFound
	}
	return r.find(ctx, userID)
}

// Clear empties the cart, creating it if needed. Clearing an empty cart is
// a no-op.
func (r *MongoCartRepository) Clear(ctx context.Context, userID string) error {
	now := time.Now().UTC()
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set":         bson.M{"items": bson.A{}, "updated_at": now},
			"$setOnInsert": bson.M{"_id": uuid.NewString(), "created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		// Lost the upsert race; the cart exists now.
		_, err = r.collection.UpdateOne(ctx,
			bson.M{"user_id": userID},
			bson.M{"$set": bson.M{"items": bson.A{}, "updated_at": now}},
		)
	}
	if err != nil {
		return fmt.Errorf("clear cart for %s: %w", userID, err)
	}
	return nil
}

func (r *MongoCartRepository) find(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find cart for %s: %w", userID, err)
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}
