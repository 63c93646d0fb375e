package push

import (
	"context"
	"fmt"
	"sync"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// fcmClient is the subset of *messaging.Client used here.
type fcmClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type FCMConfig struct {
	ProjectID       string
	CredentialsFile string
	CredentialsJSON string
}

// FCMProvider connects to Firebase on first use. A failed initialization is
// remembered and every later send fails fast with ErrNotInitialized.
type FCMProvider struct {
	init    func(ctx context.Context) (fcmClient, error)
	once    sync.Once
	client  fcmClient
	initErr error
}

func NewFCMProvider(cfg FCMConfig) *FCMProvider {
	return &FCMProvider{
		init: func(ctx context.Context) (fcmClient, error) {
			return newMessagingClient(ctx, cfg)
		},
	}
}

func newMessagingClient(ctx context.Context, cfg FCMConfig) (fcmClient, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.ProjectID == "":
		return nil, fmt.Errorf("firebase project id or credentials are required")
	}

	var appConfig *firebase.Config
	if cfg.ProjectID != "" {
		appConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, appConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get messaging client: %w", err)
	}

	return client, nil
}

func (f *FCMProvider) Name() string { return "fcm" }

func (f *FCMProvider) messaging(ctx context.Context) (fcmClient, error) {
	f.once.Do(func() {
		// Initialization must outlive the request that happens to trigger it.
		f.client, f.initErr = f.init(context.WithoutCancel(ctx))
	})
	if f.initErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotInitialized, f.initErr)
	}
	return f.client, nil
}

func (f *FCMProvider) SendNotification(ctx context.Context, request *NotificationRequest) (*NotificationResponse, error) {
	client, err := f.messaging(ctx)
	if err != nil {
		return &NotificationResponse{Success: false, Error: err.Error(), Token: request.Token}, err
	}

	message := buildMessage(request)
	message.Token = request.Token

	id, err := client.Send(ctx, message)
	if err != nil {
		return &NotificationResponse{
			Success:      false,
			Error:        err.Error(),
			Token:        request.Token,
			InvalidToken: isInvalidTokenError(err),
		}, err
	}

	return &NotificationResponse{
		MessageID: id,
		Success:   true,
		Token:     request.Token,
	}, nil
}

func (f *FCMProvider) SendMulticast(ctx context.Context, request *NotificationRequest, tokens []string) (*MulticastResponse, error) {
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}
	if len(tokens) > MaxMulticastTokens {
		return nil, fmt.Errorf("multicast supports at most %d tokens, got %d", MaxMulticastTokens, len(tokens))
	}

	client, err := f.messaging(ctx)
	if err != nil {
		return nil, err
	}

	single := buildMessage(request)
	batch, err := client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens:       tokens,
		Data:         single.Data,
		Notification: single.Notification,
		Android:      single.Android,
		Webpush:      single.Webpush,
		APNS:         single.APNS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send multicast: %w", err)
	}

	out := &MulticastResponse{
		SuccessCount: batch.SuccessCount,
		FailureCount: batch.FailureCount,
		Responses:    make([]*NotificationResponse, len(batch.Responses)),
	}
	for i, r := range batch.Responses {
		resp := &NotificationResponse{Token: tokens[i], Success: r.Success, MessageID: r.MessageID}
		if !r.Success && r.Error != nil {
			resp.Error = r.Error.Error()
			resp.InvalidToken = isInvalidTokenError(r.Error)
		}
		out.Responses[i] = resp
	}

	return out, nil
}

// isInvalidTokenError reports unregistered and invalid-argument failures,
// the two classes after which a token is dropped.
var isInvalidTokenError = func(err error) bool {
	return messaging.IsUnregistered(err) || messaging.IsInvalidArgument(err)
}

func buildMessage(request *NotificationRequest) *messaging.Message {
	message := &messaging.Message{
		Data: request.Data,
	}

	if request.Title != "" || request.Body != "" {
		message.Notification = &messaging.Notification{
			Title: request.Title,
			Body:  request.Body,
		}
	}

	if request.Android != nil {
		message.Android = &messaging.AndroidConfig{
			Priority: request.Android.Priority,
			Notification: &messaging.AndroidNotification{
				Sound:     request.Android.Sound,
				ChannelID: request.Android.ChannelID,
				Priority:  androidNotificationPriority(request.Android.Priority),
			},
		}
	}

	if request.IOS != nil {
		badge := request.IOS.Badge
		message.APNS = &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: request.Title,
						Body:  request.Body,
					},
					Sound:    request.IOS.Sound,
					Badge:    &badge,
					Category: request.IOS.Category,
				},
			},
		}
	}

	if request.Link != "" {
		message.Webpush = &messaging.WebpushConfig{
			FCMOptions: &messaging.WebpushFCMOptions{Link: request.Link},
		}
	}

	return message
}

func androidNotificationPriority(p string) messaging.AndroidNotificationPriority {
	if p == "high" {
		return messaging.PriorityHigh
	}
	return messaging.PriorityDefault
}
