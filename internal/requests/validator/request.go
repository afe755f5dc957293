package validator

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"rendezvous/pkg/logger"
	"rendezvous/pkg/model"
	"rendezvous/pkg/sanitizer"
	"rendezvous/pkg/validation"
)

const maxTextAnswer = 2000

type RequestValidator struct {
	v      *validation.Validator
	logger *logger.Logger
}

func NewRequestValidator(log *logger.Logger) *RequestValidator {
	log.Info("Booking request validator initialized successfully")
	return &RequestValidator{
		v:      validation.New(log),
		logger: log,
	}
}

func (rv *RequestValidator) ValidateInput(input *model.BookingRequestInput) error {
	return rv.v.Struct(input)
}

// ValidateAnswers checks answers against the event type's questions and returns them normalized:
// emails lowercased, phone numbers in E.164. Keys that match no question are rejected.
func (rv *RequestValidator) ValidateAnswers(questions []model.EventQuestion, answers map[string]string, phoneRegion string) (map[string]string, error) {
	var errs validation.ValidationErrors
	normalized := make(map[string]string, len(answers))
	known := make(map[string]bool, len(questions))

	for _, q := range questions {
		known[q.Key] = true
		raw, ok := answers[q.Key]
		value := sanitizer.TrimAndNormalize(raw)
		if !ok || value == "" {
			if q.Required {
				errs = append(errs, validation.ValidationError{Field: q.Key, Message: fmt.Sprintf("%s is required", q.Label)})
			}
			continue
		}

		switch q.Type {
		case model.QuestionEmail:
			value = sanitizer.NormalizeEmail(value)
			if err := rv.v.Var(q.Key, value, "email"); err != nil {
				errs = append(errs, validation.ValidationError{Field: q.Key, Message: "must be a valid email address"})
				continue
			}
		case model.QuestionPhone:
			phone := sanitizer.NormalizePhone(value, phoneRegion)
			if phone == "" {
				errs = append(errs, validation.ValidationError{Field: q.Key, Message: "must be a valid phone number"})
				continue
			}
			value = phone
		case model.QuestionChoice:
			if !contains(q.Options, value) {
				errs = append(errs, validation.ValidationError{Field: q.Key, Message: fmt.Sprintf("must be one of the offered options for %s", q.Label)})
				continue
			}
		default:
			if utf8.RuneCountInString(value) > maxTextAnswer {
				errs = append(errs, validation.ValidationError{Field: q.Key, Message: fmt.Sprintf("must be at most %d characters", maxTextAnswer)})
				continue
			}
		}
		normalized[q.Key] = value
	}

	var unknown []string
	for key := range answers {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		errs = append(errs, validation.ValidationError{Field: key, Message: "does not match any question"})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return normalized, nil
}

func contains(options []string, value string) bool {
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}
