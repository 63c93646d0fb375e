package validators

import (
	"fmt"

	"shakti-shield/internal/models"
)

func ValidateContactRequest(req *models.ContactRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateImportContactsRequest(req *models.ImportContactsRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidatePushTokenRequest(req *models.PushTokenRequest) ValidationErrors {
	return ValidateStruct(req)
}

func ValidateTestContactRequest(req *models.TestContactRequest) ValidationErrors {
	errs := ValidateStruct(req)
	if req.Phone == "" && req.Email == "" {
		errs = append(errs, ValidationError{
			Field:   "phone",
			Tag:     "required_without",
			Message: fmt.Sprintf("%s or %s is required", "phone", "email"),
		})
	}
	return errs
}
