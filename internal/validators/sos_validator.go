package validators

import (
	"strings"

	"shakti-shield/internal/models"
)

func ValidateTriggerSOSRequest(req *models.TriggerSOSRequest) ValidationErrors {
	errs := ValidateStruct(req)

	if req.Location != nil && strings.TrimSpace(req.Location.Address) == "" && !hasField(errs, "location.address") {
		errs = append(errs, ValidationError{
			Field:   "location.address",
			Tag:     "required",
			Message: "Address is required",
		})
	}

	if req.Metadata != nil && req.Metadata.BatteryLevel != nil {
		level := *req.Metadata.BatteryLevel
		if level < 0 || level > 100 {
			errs = append(errs, ValidationError{
				Field:   "metadata.battery_level",
				Tag:     "range",
				Message: "Battery level must be between 0 and 100",
			})
		}
	}

	return errs
}

func ValidateResolveSOSRequest(req *models.ResolveSOSRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateAddSOSNoteRequest(req *models.AddSOSNoteRequest) ValidationErrors {
	errs := ValidateStruct(req)
	if len(errs) == 0 && strings.TrimSpace(req.Message) == "" {
		errs = append(errs, ValidationError{
			Field:   "message",
			Tag:     "required",
			Message: "message is required",
		})
	}
	return errs
}

func hasField(errs ValidationErrors, field string) bool {
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}
