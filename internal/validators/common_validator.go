package validators

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var (
	contactPhoneRegex = regexp.MustCompile(`^\+?[\d\s\-()]+$`)
	htmlTagRegex      = regexp.MustCompile(`<[^>]*>`)
)

func init() {
	validate = validator.New()

	// Report json names so field errors match the request body.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validation functions
	validate.RegisterValidation("contact_phone", validateContactPhone)
}

// ValidationError represents a field validation error
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var messages []string
	for _, err := range v {
		messages = append(messages, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return strings.Join(messages, "; ")
}

// Details flattens the errors into the field -> message map used by the
// API error envelope. The first error per field wins.
func (v ValidationErrors) Details() map[string]string {
	details := make(map[string]string, len(v))
	for _, err := range v {
		if _, ok := details[err.Field]; !ok {
			details[err.Field] = err.Message
		}
	}
	return details
}

// ValidateStruct validates a struct and returns detailed errors
func ValidateStruct(s interface{}) ValidationErrors {
	var validationErrors ValidationErrors

	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return ValidationErrors{{Field: "body", Tag: "invalid", Message: err.Error()}}
	}

	for _, fe := range fieldErrors {
		validationErrors = append(validationErrors, ValidationError{
			Field:   fieldPath(fe),
			Tag:     fe.Tag(),
			Value:   fmt.Sprintf("%v", fe.Value()),
			Message: getErrorMessage(fe),
		})
	}

	return validationErrors
}

// fieldPath drops the top-level struct name from the namespace, so a nested
// error reads "location.latitude".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "email":
		return "Please provide a valid email"
	case "min":
		if err.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s items", err.Field(), err.Param())
		}
		return fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param())
	case "max":
		return fmt.Sprintf("%s cannot exceed %s characters", err.Field(), err.Param())
	case "gte", "lte":
		switch err.Field() {
		case "latitude":
			return "Valid latitude is required"
		case "longitude":
			return "Valid longitude is required"
		}
		return fmt.Sprintf("%s is out of range", err.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
	case "contact_phone":
		return "Please provide a valid phone number"
	default:
		return fmt.Sprintf("Validation failed for %s", err.Field())
	}
}

// validateContactPhone accepts the loose formats people type into an address
// book: digits, spaces, dashes, parentheses and an optional leading plus.
func validateContactPhone(fl validator.FieldLevel) bool {
	phone := fl.Field().String()
	if phone == "" {
		return true
	}
	return contactPhoneRegex.MatchString(phone)
}

func IsValidContactPhone(phone string) bool {
	return phone != "" && contactPhoneRegex.MatchString(phone)
}

func SanitizeInput(input string) string {
	// Remove HTML tags and trim whitespace
	cleaned := htmlTagRegex.ReplaceAllString(input, "")
	return strings.TrimSpace(cleaned)
}
