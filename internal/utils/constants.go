package utils

import "time"

// Application Constants
const (
	AppName    = "ShaktiShield"
	AppVersion = "1.0.0"

	// Pagination
	DefaultPageSize = 10
	MaxPageSize     = 100
	MinPageSize     = 1

	// Emergency
	TriggerLockTTL = 60 * time.Second
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusFailed  = "failed"
)

// Error Messages
const (
	ErrUserNotFound      = "user not found"
	ErrInvalidToken      = "invalid token"
	ErrTokenExpired      = "token expired"
	ErrInternalServer    = "internal server error"
	ErrUnauthorized      = "unauthorized"
	ErrForbidden         = "forbidden"
	ErrNotFound          = "not found"
	ErrValidationFailed  = "validation failed"
	ErrSOSNotActive      = "SOS request is not active"
	ErrSOSNotFound       = "SOS request not found"
	ErrContactNotFound   = "contact not found"
	ErrDuplicateContact  = "contact with this phone number already exists"
	ErrTriggerInProgress = "an SOS trigger is already in progress"
)

// Error Codes
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeBadRequest      = "BAD_REQUEST"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeInternalError   = "INTERNAL_ERROR"
	CodeSOSNotActive    = "SOS_NOT_ACTIVE"
	CodeRateLimited     = "RATE_LIMITED"
)

// Cache Keys
const (
	CacheTriggerLockPrefix  = "sos:trigger_lock:"
	CacheContactsLockPrefix = "contacts:lock:"
)

// Event Types
const (
	EventSOSTriggered     = "sos_triggered"
	EventSOSAutoResolved  = "sos_auto_resolved"
	EventSOSMerged        = "sos_merged_into_active"
	EventSOSResolved      = "sos_resolved"
	EventSOSCancelled     = "sos_cancelled"
	EventSOSFalseAlarm    = "sos_false_alarm"
	EventSOSNoteAdded     = "sos_note_added"
	EventSOSBroadcastDone = "sos_broadcast_completed"
)
