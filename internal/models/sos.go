package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SOSStatus string
type SOSPriority string
type SOSTrigger string
type ContactNotificationStatus string

const (
	SOSStatusActive     SOSStatus = "active"
	SOSStatusResolved   SOSStatus = "resolved"
	SOSStatusCancelled  SOSStatus = "cancelled"
	SOSStatusFalseAlarm SOSStatus = "false_alarm"

	SOSPriorityLow      SOSPriority = "low"
	SOSPriorityMedium   SOSPriority = "medium"
	SOSPriorityHigh     SOSPriority = "high"
	SOSPriorityCritical SOSPriority = "critical"

	SOSTriggerButton SOSTrigger = "button"
	SOSTriggerVoice  SOSTrigger = "voice"
	SOSTriggerAuto   SOSTrigger = "auto"
	SOSTriggerManual SOSTrigger = "manual"

	ContactNotificationSent      ContactNotificationStatus = "sent"
	ContactNotificationDelivered ContactNotificationStatus = "delivered"
	ContactNotificationFailed    ContactNotificationStatus = "failed"
	ContactNotificationRead      ContactNotificationStatus = "read"

	DefaultSOSMessage = "Emergency SOS activated"
	AutoResolveNote   = "Auto-resolved due to new SOS trigger"
	RetriggerNote     = "SOS re-triggered while this request was still active"
)

func (s SOSStatus) IsTerminal() bool {
	return s == SOSStatusResolved || s == SOSStatusCancelled || s == SOSStatusFalseAlarm
}

type SOSRequest struct {
	ID                        primitive.ObjectID    `json:"id" bson:"_id,omitempty"`
	UserID                    primitive.ObjectID    `json:"user_id" bson:"user_id"`
	User                      UserSnapshot          `json:"user" bson:"user"`
	Location                  Location              `json:"location" bson:"location"`
	Status                    SOSStatus             `json:"status" bson:"status"`
	Priority                  SOSPriority           `json:"priority" bson:"priority"`
	TriggeredBy               SOSTrigger            `json:"triggered_by" bson:"triggered_by"`
	Message                   string                `json:"message" bson:"message"`
	TrustedContactsNotified   []ContactNotification `json:"trusted_contacts_notified" bson:"trusted_contacts_notified"`
	EmergencyServicesNotified bool                  `json:"emergency_services_notified" bson:"emergency_services_notified"`
	ResolvedAt                *time.Time            `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
	ResolvedBy                *primitive.ObjectID   `json:"resolved_by,omitempty" bson:"resolved_by,omitempty"`
	Notes                     []SOSNote             `json:"notes" bson:"notes"`
	Metadata                  *SOSMetadata          `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt                 time.Time             `json:"created_at" bson:"created_at"`
	UpdatedAt                 time.Time             `json:"updated_at" bson:"updated_at"`
}

// UserSnapshot is copied from the triggering user when the request is created
// and never refreshed.
type UserSnapshot struct {
	Name  string `json:"name" bson:"name"`
	Phone string `json:"phone" bson:"phone"`
	Email string `json:"email" bson:"email"`
}

type ContactNotification struct {
	ContactID          primitive.ObjectID        `json:"contact_id" bson:"contact_id"`
	Name               string                    `json:"name" bson:"name"`
	Phone              string                    `json:"phone" bson:"phone"`
	Email              string                    `json:"email,omitempty" bson:"email,omitempty"`
	NotifiedAt         time.Time                 `json:"notified_at" bson:"notified_at"`
	NotificationStatus ContactNotificationStatus `json:"notification_status" bson:"notification_status"`
	ResponseReceived   bool                      `json:"response_received" bson:"response_received"`
}

type SOSNote struct {
	AddedBy   primitive.ObjectID `json:"added_by" bson:"added_by"`
	Message   string             `json:"message" bson:"message"`
	Timestamp time.Time          `json:"timestamp" bson:"timestamp"`
}

type SOSMetadata struct {
	DeviceInfo   *DeviceInfo `json:"device_info,omitempty" bson:"device_info,omitempty"`
	AppVersion   string      `json:"app_version,omitempty" bson:"app_version,omitempty"`
	BatteryLevel *float64    `json:"battery_level,omitempty" bson:"battery_level,omitempty"`
	NetworkType  string      `json:"network_type,omitempty" bson:"network_type,omitempty"`
}

type DeviceInfo struct {
	UserAgent string `json:"user_agent,omitempty" bson:"user_agent,omitempty"`
	Platform  string `json:"platform,omitempty" bson:"platform,omitempty"`
	Language  string `json:"language,omitempty" bson:"language,omitempty"`
}

// Request DTOs

type LocationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Address   string   `json:"address" validate:"required,max=500"`
	Accuracy  *float64 `json:"accuracy" validate:"omitempty,gte=0"`
}

func (r LocationRequest) ToLocation() Location {
	loc := Location{Address: r.Address, Accuracy: r.Accuracy}
	if r.Latitude != nil {
		loc.Latitude = *r.Latitude
	}
	if r.Longitude != nil {
		loc.Longitude = *r.Longitude
	}
	return loc
}

type TriggerSOSRequest struct {
	Location    *LocationRequest `json:"location" validate:"required"`
	Message     string           `json:"message" validate:"omitempty,max=500"`
	TriggeredBy SOSTrigger       `json:"triggered_by" validate:"omitempty,oneof=button voice auto manual"`
	Priority    SOSPriority      `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Metadata    *SOSMetadata     `json:"metadata"`
}

type ResolveSOSRequest struct {
	Notes string `json:"notes" validate:"omitempty,max=500"`
}

type AddSOSNoteRequest struct {
	Message string `json:"message" validate:"required,max=500"`
}

// SOSSummary is returned to the caller after a trigger.
type SOSSummary struct {
	ID               primitive.ObjectID `json:"id"`
	Status           SOSStatus          `json:"status"`
	Priority         SOSPriority        `json:"priority"`
	Location         Location           `json:"location"`
	Message          string             `json:"message"`
	TriggeredBy      SOSTrigger         `json:"triggered_by"`
	CreatedAt        time.Time          `json:"created_at"`
	ContactsNotified int                `json:"contacts_notified"`
}

// ActiveSOSView is the normalized shape of the current active request.
type ActiveSOSView struct {
	ID                      primitive.ObjectID    `json:"id"`
	Status                  SOSStatus             `json:"status"`
	Priority                SOSPriority           `json:"priority"`
	Location                Location              `json:"location"`
	Message                 string                `json:"message"`
	TriggeredBy             SOSTrigger            `json:"triggered_by"`
	CreatedAt               time.Time             `json:"created_at"`
	TrustedContactsNotified []ContactNotification `json:"trusted_contacts_notified"`
}

func (s *SOSRequest) Summary() *SOSSummary {
	return &SOSSummary{
		ID:               s.ID,
		Status:           s.Status,
		Priority:         s.Priority,
		Location:         s.Location,
		Message:          s.Message,
		TriggeredBy:      s.TriggeredBy,
		CreatedAt:        s.CreatedAt,
		ContactsNotified: len(s.TrustedContactsNotified),
	}
}

func (s *SOSRequest) ActiveView() *ActiveSOSView {
	return &ActiveSOSView{
		ID:                      s.ID,
		Status:                  s.Status,
		Priority:                s.Priority,
		Location:                s.Location,
		Message:                 s.Message,
		TriggeredBy:             s.TriggeredBy,
		CreatedAt:               s.CreatedAt,
		TrustedContactsNotified: s.TrustedContactsNotified,
	}
}
