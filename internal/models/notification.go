package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	ChannelPush  Channel = "push"
)

// NotificationPayload is the content shared by every delivery channel.
type NotificationPayload struct {
	SOSID     string    `json:"sos_id"`
	UserName  string    `json:"user_name"`
	UserPhone string    `json:"user_phone"`
	Location  Location  `json:"location"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func NewNotificationPayload(sos *SOSRequest) NotificationPayload {
	return NotificationPayload{
		SOSID:     sos.ID.Hex(),
		UserName:  sos.User.Name,
		UserPhone: sos.User.Phone,
		Location:  sos.Location,
		Message:   sos.Message,
		Timestamp: sos.CreatedAt,
	}
}

type ChannelResult struct {
	Channel   Channel `json:"channel"`
	Success   bool    `json:"success"`
	MessageID string  `json:"message_id,omitempty"`
	Error     string  `json:"error,omitempty"`
	Simulated bool    `json:"simulated,omitempty"`
}

type ContactNotificationResult struct {
	ContactID primitive.ObjectID `json:"contact_id"`
	Success   bool               `json:"success"`
	Results   []ChannelResult    `json:"results"`
	Errors    []string           `json:"errors,omitempty"`
}

func (r *ContactNotificationResult) SuccessfulCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Success {
			n++
		}
	}
	return n
}

func (r *ContactNotificationResult) FailedCount() int {
	return len(r.Results) - r.SuccessfulCount()
}

type BroadcastResult struct {
	TotalUsers           int    `json:"total_users"`
	Sent                 int    `json:"sent"`
	Failed               int    `json:"failed"`
	InvalidTokensCleared int    `json:"invalid_tokens_cleared,omitempty"`
	Error                string `json:"error,omitempty"`
}

func (r BroadcastResult) OK() bool {
	return r.Error == ""
}

type BroadcastSummary struct {
	Push    BroadcastResult `json:"push"`
	SMS     BroadcastResult `json:"sms"`
	Success bool            `json:"success"`
}

type TestContactRequest struct {
	Name    string `json:"name" validate:"omitempty,max=50"`
	Phone   string `json:"phone" validate:"omitempty,contact_phone"`
	Email   string `json:"email" validate:"omitempty,email"`
	Message string `json:"message" validate:"omitempty,max=500"`
}
