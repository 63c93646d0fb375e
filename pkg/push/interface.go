package push

import (
	"context"
	"errors"
)

// MaxMulticastTokens is the per-call token limit of FCM multicast.
const MaxMulticastTokens = 500

var (
	ErrNotInitialized = errors.New("push provider not initialized")
	ErrNoTokens       = errors.New("no device tokens supplied")
)

type PushProvider interface {
	Name() string
	SendNotification(ctx context.Context, request *NotificationRequest) (*NotificationResponse, error)
	// SendMulticast delivers one message to many tokens. Responses are in
	// token order. An error means the whole call failed.
	SendMulticast(ctx context.Context, request *NotificationRequest, tokens []string) (*MulticastResponse, error)
}

type NotificationRequest struct {
	Token    string            `json:"token"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Sound    string            `json:"sound,omitempty"`
	Badge    int               `json:"badge,omitempty"`
	Priority string            `json:"priority,omitempty"` // high, normal
	Link     string            `json:"link,omitempty"`
	Android  *AndroidConfig    `json:"android,omitempty"`
	IOS      *IOSConfig        `json:"ios,omitempty"`
}

type NotificationResponse struct {
	MessageID string `json:"message_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Token     string `json:"token,omitempty"`
	// InvalidToken marks tokens the provider reported as unregistered or
	// malformed. They should not be retried.
	InvalidToken bool `json:"invalid_token,omitempty"`
}

type MulticastResponse struct {
	SuccessCount int                     `json:"success_count"`
	FailureCount int                     `json:"failure_count"`
	Responses    []*NotificationResponse `json:"responses"`
}

// InvalidTokens returns the tokens flagged invalid in this response.
func (m *MulticastResponse) InvalidTokens() []string {
	var tokens []string
	for _, r := range m.Responses {
		if r != nil && r.InvalidToken && r.Token != "" {
			tokens = append(tokens, r.Token)
		}
	}
	return tokens
}

type IOSConfig struct {
	Sound    string `json:"sound,omitempty"`
	Badge    int    `json:"badge,omitempty"`
	Category string `json:"category,omitempty"`
}

type AndroidConfig struct {
	Priority  string `json:"priority,omitempty"`
	Sound     string `json:"sound,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
}
