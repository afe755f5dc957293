package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "rendezvous/pkg/errors"
	"rendezvous/pkg/locale"
	"rendezvous/pkg/logger"

	"github.com/go-playground/validator/v10"
)

const (
	TagTimeOfDay = "valid_time_range"
	TagTimeZone  = "time_zone"

	ClockLayout = "15:04"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

func Field(field, message string) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message}}
}

// Validator wraps go-playground/validator with the scheduling tags registered.
type Validator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func New(log *logger.Logger) *Validator {
	v := validator.New()

	if err := v.RegisterValidation(TagTimeOfDay, validateTimeOfDay); err != nil {
		log.Fatal("Failed to register 'valid_time_range' validator", "error", err)
	}
	if err := v.RegisterValidation(TagTimeZone, validateTimeZone); err != nil {
		log.Fatal("Failed to register 'time_zone' validator", "error", err)
	}

	return &Validator{
		validate: v,
		logger:   log,
	}
}

func validateTimeOfDay(fl validator.FieldLevel) bool {
	_, err := ParseClock(fl.Field().String())
	return err == nil
}

func validateTimeZone(fl validator.FieldLevel) bool {
	return locale.IsValid(fl.Field().String())
}

// ParseClock parses a strict 24-hour HH:MM value into minutes since midnight.
func ParseClock(value string) (int, error) {
	value = strings.TrimSpace(value)
	if len(value) != len(ClockLayout) {
		return 0, fmt.Errorf("%q is not in HH:MM format", value)
	}
	t, err := time.Parse(ClockLayout, value)
	if err != nil {
		return 0, fmt.Errorf("%q is not in HH:MM format", value)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Struct runs tag validation and returns ValidationErrors for field failures.
func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

// Var validates a single value against tag, reporting failures under field.
func (v *Validator) Var(field string, value any, tag string) error {
	if err := v.validate.Var(value, tag); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return Field(field, fmt.Sprintf("%s failed %q validation", field, validationErrs[0].Tag()))
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "uuid":
			message = fmt.Sprintf("%s must be a valid UUID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		case TagTimeOfDay:
			message = fmt.Sprintf("%s must be in HH:MM 24-hour format", err.Field())
		case TagTimeZone:
			message = fmt.Sprintf("%s must be a valid IANA or Windows time zone", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}

// ToAppError converts a validation failure into the VALIDATION_ERROR response shape.
func ToAppError(message string, err error) *apperrors.AppError {
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, map[string]any{"errors": verrs})
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}
