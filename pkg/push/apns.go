package push

import (
	"context"
	"fmt"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

type apnsClient interface {
	PushWithContext(ctx apns2.Context, n *apns2.Notification) (*apns2.Response, error)
}

type APNSProvider struct {
	client apnsClient
	topic  string
}

func NewAPNSProvider(keyFile, keyID, teamID, topic string, production bool) (*APNSProvider, error) {
	authKey, err := token.AuthKeyFromFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load auth key: %w", err)
	}

	tokenProvider := &token.Token{
		AuthKey: authKey,
		KeyID:   keyID,
		TeamID:  teamID,
	}

	client := apns2.NewTokenClient(tokenProvider)
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNSProvider{
		client: client,
		topic:  topic,
	}, nil
}

func (a *APNSProvider) Name() string { return "apns" }

func (a *APNSProvider) SendNotification(ctx context.Context, request *NotificationRequest) (*NotificationResponse, error) {
	notification := a.buildNotification(request, request.Token)

	response, err := a.client.PushWithContext(ctx, notification)
	if err != nil {
		return &NotificationResponse{
			Success: false,
			Error:   err.Error(),
			Token:   request.Token,
		}, err
	}

	if response.Sent() {
		return &NotificationResponse{
			MessageID: response.ApnsID,
			Success:   true,
			Token:     request.Token,
		}, nil
	}

	return &NotificationResponse{
		Success:      false,
		Error:        response.Reason,
		Token:        request.Token,
		InvalidToken: isInvalidAPNSReason(response.Reason),
	}, fmt.Errorf("APNS error: %s", response.Reason)
}

// SendMulticast has no native APNs equivalent, so tokens are pushed one by
// one over the shared HTTP/2 connection.
func (a *APNSProvider) SendMulticast(ctx context.Context, request *NotificationRequest, tokens []string) (*MulticastResponse, error) {
	if len(tokens) == 0 {
		return nil, ErrNoTokens
	}

	out := &MulticastResponse{Responses: make([]*NotificationResponse, len(tokens))}
	for i, tok := range tokens {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req := *request
		req.Token = tok
		resp, _ := a.SendNotification(ctx, &req)
		out.Responses[i] = resp
		if resp.Success {
			out.SuccessCount++
		} else {
			out.FailureCount++
		}
	}

	return out, nil
}

func (a *APNSProvider) buildNotification(request *NotificationRequest, deviceToken string) *apns2.Notification {
	p := payload.NewPayload().
		AlertTitle(request.Title).
		AlertBody(request.Body)

	sound := request.Sound
	if request.IOS != nil && request.IOS.Sound != "" {
		sound = request.IOS.Sound
	}
	if sound != "" {
		p.Sound(sound)
	}

	badge := request.Badge
	if request.IOS != nil && request.IOS.Badge > 0 {
		badge = request.IOS.Badge
	}
	if badge > 0 {
		p.Badge(badge)
	}

	if request.IOS != nil && request.IOS.Category != "" {
		p.Category(request.IOS.Category)
	}

	for k, v := range request.Data {
		p.Custom(k, v)
	}

	n := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       a.topic,
		Payload:     p,
	}
	if request.Priority == "high" {
		n.Priority = apns2.PriorityHigh
	}
	return n
}

func isInvalidAPNSReason(reason string) bool {
	switch reason {
	case apns2.ReasonBadDeviceToken, apns2.ReasonUnregistered, apns2.ReasonDeviceTokenNotForTopic:
		return true
	}
	return false
}
