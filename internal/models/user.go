package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Relationship string

const (
	RelationshipFamily    Relationship = "family"
	RelationshipFriend    Relationship = "friend"
	RelationshipColleague Relationship = "colleague"
	RelationshipNeighbor  Relationship = "neighbor"
	RelationshipOther     Relationship = "other"
)

type User struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name              string             `json:"name" bson:"name"`
	Email             string             `json:"email" bson:"email"`
	Phone             string             `json:"phone" bson:"phone"`
	FCMToken          *string            `json:"-" bson:"fcm_token"`
	TrustedContacts   []TrustedContact   `json:"trusted_contacts" bson:"trusted_contacts"`
	EmergencySettings EmergencySettings  `json:"emergency_settings" bson:"emergency_settings"`
	LastKnownLocation *LastKnownLocation `json:"last_known_location,omitempty" bson:"last_known_location,omitempty"`
	IsActive          bool               `json:"is_active" bson:"is_active"`
	CreatedAt         time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" bson:"updated_at"`
}

type TrustedContact struct {
	ID           primitive.ObjectID `json:"id" bson:"_id"`
	Name         string             `json:"name" bson:"name"`
	Phone        string             `json:"phone" bson:"phone"`
	Email        string             `json:"email,omitempty" bson:"email,omitempty"`
	Relationship Relationship       `json:"relationship" bson:"relationship"`
	IsPrimary    bool               `json:"is_primary" bson:"is_primary"`
}

type EmergencySettings struct {
	AutoLocation  bool `json:"auto_location" bson:"auto_location"`
	VoiceCommands bool `json:"voice_commands" bson:"voice_commands"`
	PanicMode     bool `json:"panic_mode" bson:"panic_mode"`
}

// AuthUser is the authenticated caller as resolved by the auth middleware.
type AuthUser struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Phone string             `json:"phone"`
	Email string             `json:"email"`
}

func (u *User) PushToken() string {
	if u == nil || u.FCMToken == nil {
		return ""
	}
	return *u.FCMToken
}

func (u *User) ToAuthUser() *AuthUser {
	return &AuthUser{ID: u.ID, Name: u.Name, Phone: u.Phone, Email: u.Email}
}

type ContactRequest struct {
	Name         string       `json:"name" validate:"required,min=2,max=50"`
	Phone        string       `json:"phone" validate:"required,contact_phone"`
	Email        string       `json:"email" validate:"omitempty,email"`
	Relationship Relationship `json:"relationship" validate:"omitempty,oneof=family friend colleague neighbor other"`
	IsPrimary    bool         `json:"is_primary"`
}

type ImportContactsRequest struct {
	Contacts []ContactRequest `json:"contacts" validate:"required,min=1,dive"`
}

type SkippedContact struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Reason string `json:"reason"`
}

type ImportContactsResult struct {
	Imported      []TrustedContact `json:"imported"`
	Skipped       []SkippedContact `json:"skipped"`
	TotalImported int              `json:"total_imported"`
	TotalSkipped  int              `json:"total_skipped"`
}

type PushTokenRequest struct {
	Token string `json:"token" validate:"required,max=4096"`
}
