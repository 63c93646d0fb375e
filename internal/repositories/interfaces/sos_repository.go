package interfaces

import (
	"context"

	"shakti-shield/internal/models"
	"shakti-shield/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StatusTransition describes a move out of the active state.
type StatusTransition struct {
	Status     models.SOSStatus
	ResolvedBy *primitive.ObjectID
	Note       *models.SOSNote
}

type SOSRepository interface {
	Create(ctx context.Context, sos *models.SOSRequest) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.SOSRequest, error)
	GetActiveByUser(ctx context.Context, userID primitive.ObjectID) (*models.SOSRequest, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.SOSRequest, int64, error)

	// TransitionFromActive applies t only while the request is still active.
	// It returns ErrNotFound when no active request with that id exists.
	TransitionFromActive(ctx context.Context, id primitive.ObjectID, t StatusTransition) (*models.SOSRequest, error)
	AddNote(ctx context.Context, id primitive.ObjectID, note models.SOSNote) (*models.SOSRequest, error)
	SetContactNotifications(ctx context.Context, id primitive.ObjectID, notified []models.ContactNotification) error
}
