package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shakti-shield/internal/models"
	"shakti-shield/internal/repositories/interfaces"
	"shakti-shield/internal/utils"
	"shakti-shield/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type sosRepository struct {
	collection *mongo.Collection
}

func NewSOSRepository(db *mongo.Database) interfaces.SOSRepository {
	return &sosRepository{
		collection: db.Collection(database.SOSRequestsCollection),
	}
}

func (r *sosRepository) Create(ctx context.Context, sos *models.SOSRequest) error {
	now := time.Now()
	if sos.ID.IsZero() {
		sos.ID = primitive.NewObjectID()
	}
	sos.CreatedAt = now
	sos.UpdatedAt = now
	if sos.Notes == nil {
		sos.Notes = []models.SOSNote{}
	}
	if sos.TrustedContactsNotified == nil {
		sos.TrustedContactsNotified = []models.ContactNotification{}
	}

	_, err := r.collection.InsertOne(ctx, sos)
	if err != nil {
		return fmt.Errorf("failed to create sos request: %w", err)
	}

	return nil
}

func (r *sosRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.SOSRequest, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *sosRepository) GetActiveByUser(ctx context.Context, userID primitive.ObjectID) (*models.SOSRequest, error) {
	return r.findOne(ctx, bson.M{"user_id": userID, "status": models.SOSStatusActive})
}

func (r *sosRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SOSRequest, int64, error) {
	filter := bson.M{"user_id": userID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count sos requests: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetFindOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sos requests: %w", err)
	}
	defer cursor.Close(ctx)

	requests := make([]*models.SOSRequest, 0, params.GetLimit())
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, 0, fmt.Errorf("failed to decode sos requests: %w", err)
	}

	return requests, total, nil
}

func (r *sosRepository) TransitionFromActive(ctx context.Context, id primitive.ObjectID, t interfaces.StatusTransition) (*models.SOSRequest, error) {
	now := time.Now()
	set := bson.M{
		"status":      t.Status,
		"resolved_at": now,
		"updated_at":  now,
	}
	if t.ResolvedBy != nil {
		set["resolved_by"] = *t.ResolvedBy
	}

	update := bson.M{"$set": set}
	if t.Note != nil {
		update["$push"] = bson.M{"notes": t.Note}
	}

	// The status filter makes the transition a compare-and-set.
	return r.findOneAndUpdate(ctx, bson.M{"_id": id, "status": models.SOSStatusActive}, update)
}

func (r *sosRepository) AddNote(ctx context.Context, id primitive.ObjectID, note models.SOSNote) (*models.SOSRequest, error) {
	update := bson.M{
		"$push": bson.M{"notes": note},
		"$set":  bson.M{"updated_at": time.Now()},
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, update)
}

func (r *sosRepository) SetContactNotifications(ctx context.Context, id primitive.ObjectID, notified []models.ContactNotification) error {
	if notified == nil {
		notified = []models.ContactNotification{}
	}

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"trusted_contacts_notified": notified,
			"updated_at":                time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to save contact notifications: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}

	return nil
}

func (r *sosRepository) findOne(ctx context.Context, filter bson.M) (*models.SOSRequest, error) {
	var sos models.SOSRequest
	err := r.collection.FindOne(ctx, filter).Decode(&sos)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get sos request: %w", err)
	}
	return &sos, nil
}

func (r *sosRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.SOSRequest, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var sos models.SOSRequest
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&sos)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update sos request: %w", err)
	}
	return &sos, nil
}
