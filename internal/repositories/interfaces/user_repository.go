package interfaces

import (
	"context"

	"shakti-shield/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	// FindByEmailOrPhone matches a lowercased email or an exact phone.
	FindByEmailOrPhone(ctx context.Context, email, phone string) (*models.User, error)

	// Broadcast selection
	ListWithPushToken(ctx context.Context) ([]*models.User, error)
	ListWithoutPushToken(ctx context.Context, exclude primitive.ObjectID) ([]*models.User, error)

	// Push tokens
	SetPushToken(ctx context.Context, id primitive.ObjectID, token *string) error
	ClearPushTokens(ctx context.Context, tokens []string) (int64, error)

	// Embedded trusted contacts
	SetTrustedContacts(ctx context.Context, id primitive.ObjectID, contacts []models.TrustedContact) error

	UpdateLastKnownLocation(ctx context.Context, id primitive.ObjectID, loc models.LastKnownLocation) error
}
