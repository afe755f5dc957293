package validator

import (
	"fmt"

	"rendezvous/pkg/logger"
	"rendezvous/pkg/model"
	"rendezvous/pkg/validation"
)

type AvailabilityValidator struct {
	v      *validation.Validator
	logger *logger.Logger
}

func NewAvailabilityValidator(log *logger.Logger) *AvailabilityValidator {
	log.Info("Availability validator initialized successfully")
	return &AvailabilityValidator{
		v:      validation.New(log),
		logger: log,
	}
}

func (av *AvailabilityValidator) ValidateRule(rule *model.AvailabilityRule) error {
	if err := av.v.Struct(rule); err != nil {
		return err
	}

	start, _ := validation.ParseClock(rule.StartTime)
	end, _ := validation.ParseClock(rule.EndTime)
	if start >= end {
		return validation.Field("EndTime", "EndTime must be after StartTime")
	}
	return nil
}

func (av *AvailabilityValidator) ValidateEventType(et *model.EventType) error {
	if err := av.v.Struct(et); err != nil {
		return err
	}

	var verrs validation.ValidationErrors
	seen := make(map[string]bool, len(et.Questions))
	for i, q := range et.Questions {
		field := fmt.Sprintf("Questions[%d]", i)
		if seen[q.Key] {
			verrs = append(verrs, validation.ValidationError{Field: field + ".Key", Message: fmt.Sprintf("duplicate question key %q", q.Key)})
		}
		seen[q.Key] = true

		switch q.Type {
		case model.QuestionChoice:
			if len(q.Options) < 2 {
				verrs = append(verrs, validation.ValidationError{Field: field + ".Options", Message: "choice questions need at least 2 options"})
			}
		default:
			if len(q.Options) > 0 {
				verrs = append(verrs, validation.ValidationError{Field: field + ".Options", Message: "options are only allowed on choice questions"})
			}
		}
	}

	if et.MaximumAdvanceMin > 0 && et.MaximumAdvanceMin <= et.MinimumNoticeMin {
		verrs = append(verrs, validation.ValidationError{Field: "MaximumAdvanceMin", Message: "MaximumAdvanceMin must exceed MinimumNoticeMin"})
	}

	if len(verrs) > 0 {
		return verrs
	}
	return nil
}
