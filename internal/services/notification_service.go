package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"shakti-shield/internal/models"
	"shakti-shield/internal/repositories/interfaces"
	"shakti-shield/internal/validators"
	"shakti-shield/pkg/logger"
)

const testNotificationMessage = "This is a test notification from Shakti Shield"

// NotificationService manages the caller's push token and the test sends
// used to check delivery end to end.
type NotificationService interface {
	RegisterPushToken(ctx context.Context, userID primitive.ObjectID, token string) error
	ClearPushToken(ctx context.Context, userID primitive.ObjectID) error
	SendTestPush(ctx context.Context, user *models.AuthUser, token string) models.ChannelResult
	SendTestContact(ctx context.Context, user *models.AuthUser, req *models.TestContactRequest) (*models.ContactNotificationResult, error)
}

type notificationService struct {
	userRepo interfaces.UserRepository
	push     *PushChannel
	notifier Notifier
	logger   *logger.Logger
}

func NewNotificationService(userRepo interfaces.UserRepository, pushChannel *PushChannel, notifier Notifier, log *logger.Logger) NotificationService {
	if log == nil {
		log = logger.NewNop()
	}
	return &notificationService{
		userRepo: userRepo,
		push:     pushChannel,
		notifier: notifier,
		logger:   log,
	}
}

func (s *notificationService) RegisterPushToken(ctx context.Context, userID primitive.ObjectID, token string) error {
	if errs := validators.ValidatePushTokenRequest(&models.PushTokenRequest{Token: token}); len(errs) > 0 {
		return errs
	}
	token = strings.TrimSpace(token)
	return s.setToken(ctx, userID, &token)
}

func (s *notificationService) ClearPushToken(ctx context.Context, userID primitive.ObjectID) error {
	return s.setToken(ctx, userID, nil)
}

func (s *notificationService) setToken(ctx context.Context, userID primitive.ObjectID, token *string) error {
	if err := s.userRepo.SetPushToken(ctx, userID, token); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update push token: %w", err)
	}
	return nil
}

// SendTestPush sends straight through the push channel, bypassing the SOS
// lifecycle.
func (s *notificationService) SendTestPush(ctx context.Context, user *models.AuthUser, token string) models.ChannelResult {
	return s.push.Send(ctx, strings.TrimSpace(token), testPayload(user, testNotificationMessage))
}

func (s *notificationService) SendTestContact(ctx context.Context, user *models.AuthUser, req *models.TestContactRequest) (*models.ContactNotificationResult, error) {
	if errs := validators.ValidateTestContactRequest(req); len(errs) > 0 {
		return nil, errs
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		message = testNotificationMessage
	}

	contact := models.TrustedContact{
		Name:  req.Name,
		Phone: req.Phone,
		Email: req.Email,
	}

	result := s.notifier.Notify(ctx, contact, testPayload(user, message))
	return &result, nil
}

func testPayload(user *models.AuthUser, message string) models.NotificationPayload {
	return models.NotificationPayload{
		SOSID:     fmt.Sprintf("test_%d", time.Now().UnixMilli()),
		UserName:  user.Name,
		UserPhone: user.Phone,
		Location: models.Location{
			Latitude:  0,
			Longitude: 0,
			Address:   "Test Location",
		},
		Message:   message,
		Timestamp: time.Now(),
	}
}
