package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shakti-shield/internal/models"
	"shakti-shield/internal/repositories/interfaces"
	"shakti-shield/pkg/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) interfaces.UserRepository {
	return &userRepository{
		collection: db.Collection(database.UsersCollection),
	}
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *userRepository) FindByEmailOrPhone(ctx context.Context, email, phone string) (*models.User, error) {
	or := bson.A{}
	if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
		or = append(or, bson.M{"email": email})
	}
	if phone = strings.TrimSpace(phone); phone != "" {
		or = append(or, bson.M{"phone": phone})
	}
	if len(or) == 0 {
		return nil, interfaces.ErrNotFound
	}

	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"$or": or}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by email or phone: %w", err)
	}

	return &user, nil
}

func (r *userRepository) ListWithPushToken(ctx context.Context) ([]*models.User, error) {
	filter := bson.M{"fcm_token": bson.M{"$nin": bson.A{nil, ""}}}
	return r.find(ctx, filter)
}

func (r *userRepository) ListWithoutPushToken(ctx context.Context, exclude primitive.ObjectID) ([]*models.User, error) {
	filter := bson.M{
		"_id":       bson.M{"$ne": exclude},
		"fcm_token": bson.M{"$in": bson.A{nil, ""}},
		"phone":     bson.M{"$nin": bson.A{nil, ""}},
	}
	return r.find(ctx, filter)
}

func (r *userRepository) SetPushToken(ctx context.Context, id primitive.ObjectID, token *string) error {
	return r.updateOne(ctx, id, bson.M{"fcm_token": token})
}

func (r *userRepository) ClearPushTokens(ctx context.Context, tokens []string) (int64, error) {
	if len(tokens) == 0 {
		return 0, nil
	}

	result, err := r.collection.UpdateMany(
		ctx,
		bson.M{"fcm_token": bson.M{"$in": tokens}},
		bson.M{"$set": bson.M{"fcm_token": nil, "updated_at": time.Now()}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clear push tokens: %w", err)
	}

	return result.ModifiedCount, nil
}

func (r *userRepository) SetTrustedContacts(ctx context.Context, id primitive.ObjectID, contacts []models.TrustedContact) error {
	if contacts == nil {
		contacts = []models.TrustedContact{}
	}
	return r.updateOne(ctx, id, bson.M{"trusted_contacts": contacts})
}

func (r *userRepository) UpdateLastKnownLocation(ctx context.Context, id primitive.ObjectID, loc models.LastKnownLocation) error {
	return r.updateOne(ctx, id, bson.M{"last_known_location": loc})
}

func (r *userRepository) updateOne(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	set["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return interfaces.ErrNotFound
	}

	return nil
}

func (r *userRepository) find(ctx context.Context, filter bson.M) ([]*models.User, error) {
	opts := options.Find().SetProjection(bson.M{
		"name":      1,
		"email":     1,
		"phone":     1,
		"fcm_token": 1,
	})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []*models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	return users, nil
}
