package validator

import (
	"errors"
	"testing"

	"rendezvous/pkg/logger"
	"rendezvous/pkg/model"
	"rendezvous/pkg/validation"
)

func newTestValidator() *AvailabilityValidator {
	return NewAvailabilityValidator(logger.Nop())
}

func TestValidateRule(t *testing.T) {
	tests := []struct {
		name    string
		rule    model.AvailabilityRule
		wantErr bool
	}{
		{"valid", model.AvailabilityRule{OwnerID: "o", DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", TimeZone: "Europe/Berlin"}, false},
		{"windows zone", model.AvailabilityRule{OwnerID: "o", DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", TimeZone: "Pacific Standard Time"}, false},
		{"inverted", model.AvailabilityRule{OwnerID: "o", DayOfWeek: 1, StartTime: "17:00", EndTime: "09:00"}, true},
		{"bad clock", model.AvailabilityRule{OwnerID: "o", DayOfWeek: 1, StartTime: "9:00", EndTime: "17:00"}, true},
		{"bad day", model.AvailabilityRule{OwnerID: "o", DayOfWeek: 7, StartTime: "09:00", EndTime: "17:00"}, true},
		{"bad zone", model.AvailabilityRule{OwnerID: "o", DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", TimeZone: "Mars/Olympus"}, true},
		{"missing owner", model.AvailabilityRule{DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00"}, true},
	}

	v := newTestValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateRule(&tt.rule)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRule() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateEventType_Questions(t *testing.T) {
	base := func() model.EventType {
		return model.EventType{OwnerID: "o", Name: "Intro call", DurationMin: 30, BookingHorizonDays: 30}
	}

	v := newTestValidator()

	ok := base()
	ok.Questions = []model.EventQuestion{
		{Key: "topic", Label: "Topic", Type: model.QuestionText, Required: true},
		{Key: "size", Label: "Team size", Type: model.QuestionChoice, Options: []string{"1-10", "11+"}},
	}
	if err := v.ValidateEventType(&ok); err != nil {
		t.Fatalf("ValidateEventType() error = %v", err)
	}

	dup := base()
	dup.Questions = []model.EventQuestion{
		{Key: "topic", Label: "Topic", Type: model.QuestionText},
		{Key: "topic", Label: "Again", Type: model.QuestionText},
	}
	var verrs validation.ValidationErrors
	if err := v.ValidateEventType(&dup); !errors.As(err, &verrs) || len(verrs) != 1 {
		t.Errorf("duplicate keys: error = %v", err)
	}

	choice := base()
	choice.Questions = []model.EventQuestion{{Key: "size", Label: "Size", Type: model.QuestionChoice, Options: []string{"one"}}}
	if err := v.ValidateEventType(&choice); err == nil {
		t.Error("choice with a single option should fail")
	}

	advance := base()
	advance.MinimumNoticeMin = 60
	advance.MaximumAdvanceMin = 30
	if err := v.ValidateEventType(&advance); err == nil {
		t.Error("maximum advance below minimum notice should fail")
	}
}
