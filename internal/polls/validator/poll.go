package validator

import (
	"fmt"
	"time"

	"rendezvous/pkg/logger"
	"rendezvous/pkg/model"
	"rendezvous/pkg/validation"
)

type PollValidator struct {
	v      *validation.Validator
	logger *logger.Logger
}

func NewPollValidator(log *logger.Logger) *PollValidator {
	log.Info("Poll validator initialized successfully")
	return &PollValidator{
		v:      validation.New(log),
		logger: log,
	}
}

// ValidateInput checks the poll and its proposed slots. Every slot must last exactly the poll's
// duration and start at a distinct time.
func (pv *PollValidator) ValidateInput(input *model.PollInput, now time.Time) error {
	if err := pv.v.Struct(input); err != nil {
		return err
	}

	var verrs validation.ValidationErrors
	poll := &input.Poll
	duration := time.Duration(poll.DurationMin) * time.Minute
	starts := make(map[int64]bool, len(input.Slots))
	for i, slot := range input.Slots {
		field := fmt.Sprintf("Slots[%d]", i)
		if slot.EndTime.Sub(slot.StartTime) != duration {
			verrs = append(verrs, validation.ValidationError{Field: field + ".EndTime", Message: fmt.Sprintf("slot must last %d minutes", poll.DurationMin)})
		}
		if starts[slot.StartTime.UnixNano()] {
			verrs = append(verrs, validation.ValidationError{Field: field + ".StartTime", Message: "duplicate slot start time"})
		}
		starts[slot.StartTime.UnixNano()] = true
	}

	if poll.Deadline != nil && !poll.Deadline.After(now) {
		verrs = append(verrs, validation.ValidationError{Field: "Poll.Deadline", Message: "Deadline must be in the future"})
	}
	if poll.Notifications.ReminderBeforeDeadlineMin != nil && poll.Deadline == nil {
		verrs = append(verrs, validation.ValidationError{Field: "Poll.Notifications.ReminderBeforeDeadlineMin", Message: "a reminder needs a deadline"})
	}

	if len(verrs) > 0 {
		return verrs
	}
	return nil
}

func (pv *PollValidator) ValidateParticipant(p *model.Participant) error {
	return pv.v.Struct(p)
}
