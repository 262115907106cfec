package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/carmarket/car-marketplace/internal/core/domain"
)

const (
	collectionCars = "cars"
	carTextIndex   = "car_text"
)

// CarRepository implements ports.CarRepository using MongoDB.
type CarRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewCarRepository(db *mongo.Database) *CarRepository {
	return &CarRepository{
		col: db.Collection(collectionCars),
		now: func() time.Time { return time.Now().UTC() },
	}
}

type mongoCar struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Brand       string             `bson:"brand"`
	Price       float64            `bson:"price"`
	Year        int                `bson:"year"`
	Description string             `bson:"description"`
	Images      []string           `bson:"images"`
	User        primitive.ObjectID `bson:"user"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func (m *mongoCar) toDomain() *domain.Car {
	images := m.Images
	if images == nil {
		images = []string{}
	}
	return &domain.Car{
		ID:          m.ID.Hex(),
		Name:        m.Name,
		Brand:       m.Brand,
		Price:       m.Price,
		Year:        m.Year,
		Description: m.Description,
		Images:      images,
		OwnerID:     m.User.Hex(),
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

// Create inserts a new car document and sets car.ID.
func (r *CarRepository) Create(ctx context.Context, car *domain.Car) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	owner, err := primitive.ObjectIDFromHex(car.OwnerID)
	if err != nil {
		return fmt.Errorf("insert car: invalid owner id %q: %w", car.OwnerID, err)
	}

	doc := mongoCar{
		Name:        car.Name,
		Brand:       car.Brand,
		Price:       car.Price,
		Year:        car.Year,
		Description: car.Description,
		Images:      car.Images,
		User:        owner,
		CreatedAt:   car.CreatedAt,
		UpdatedAt:   car.UpdatedAt,
	}

	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("insert car: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		car.ID = oid.Hex()
	}
	return nil
}

// FindByID retrieves a car. Malformed ids are reported as not found.
func (r *CarRepository) FindByID(ctx context.Context, id string) (*domain.Car, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrCarNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoCar
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCarNotFound
		}
		return nil, fmt.Errorf("find car: %w", err)
	}
	return doc.toDomain(), nil
}

// ListByOwner returns the owner's cars, newest first.
func (r *CarRepository) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Car, error) {
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return []*domain.Car{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"user": owner}, opts)
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	return decodeCars(ctx, cur)
}

// UpdateOwned atomically applies changes to the car only if ownerID owns it.
func (r *CarRepository) UpdateOwned(ctx context.Context, id, ownerID string, changes domain.CarChanges) (*domain.Car, error) {
	filter, ok := ownedFilter(id, ownerID)
	if !ok {
		return nil, domain.ErrCarNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc mongoCar
	err := r.col.FindOneAndUpdate(ctx, filter, bson.M{"$set": carUpdate(changes, r.now())}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCarNotFound
		}
		return nil, fmt.Errorf("update car: %w", err)
	}
	return doc.toDomain(), nil
}

// DeleteOwned removes the car only if ownerID owns it.
func (r *CarRepository) DeleteOwned(ctx context.Context, id, ownerID string) error {
	filter, ok := ownedFilter(id, ownerID)
	if !ok {
		return domain.ErrCarNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete car: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrCarNotFound
	}
	return nil
}

// Search runs a $text query over the text index, best matches first.
func (r *CarRepository) Search(ctx context.Context, keyword string, limit int) ([]*domain.Car, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	score := bson.M{"$meta": "textScore"}
	opts := options.Find().
		SetProjection(bson.M{"score": score}).
		SetSort(bson.D{{Key: "score", Value: score}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := r.col.Find(ctx, bson.M{"$text": bson.M{"$search": keyword}}, opts)
	if err != nil {
		return nil, fmt.Errorf("search cars: %w", err)
	}
	return decodeCars(ctx, cur)
}

// EnsureIndexes creates the text index used by Search and the owner index
// used by ListByOwner and the conditional writes.
func (r *CarRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "name", Value: "text"},
				{Key: "brand", Value: "text"},
				{Key: "description", Value: "text"},
			},
			Options: options.Index().SetName(carTextIndex),
		},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func ownedFilter(id, ownerID string) (bson.M, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	owner, err := primitive.ObjectIDFromHex(ownerID)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "user": owner}, true
}

// carUpdate builds the $set document. The owner field is never part of it.
func carUpdate(ch domain.CarChanges, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if ch.Name != nil {
		set["name"] = *ch.Name
	}
	if ch.Brand != nil {
		set["brand"] = *ch.Brand
	}
	if ch.Price != nil {
		set["price"] = *ch.Price
	}
	if ch.Year != nil {
		set["year"] = *ch.Year
	}
	if ch.Description != nil {
		set["description"] = *ch.Description
	}
	if ch.Images != nil {
		set["images"] = ch.Images
	}
	return set
}

func decodeCars(ctx context.Context, cur *mongo.Cursor) ([]*domain.Car, error) {
	var docs []mongoCar
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode cars: %w", err)
	}
	cars := make([]*domain.Car, len(docs))
	for i := range docs {
		cars[i] = docs[i].toDomain()
	}
	return cars, nil
}
