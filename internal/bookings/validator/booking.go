package validator

import (
	"rendezvous/pkg/logger"
	"rendezvous/pkg/model"
	"rendezvous/pkg/validation"
)

type BookingValidator struct {
	v      *validation.Validator
	logger *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	log.Info("Booking validator initialized successfully")
	return &BookingValidator{
		v:      validation.New(log),
		logger: log,
	}
}

// Validate checks a booking about to be committed.
func (bv *BookingValidator) Validate(booking *model.Booking) error {
	if err := bv.v.Struct(booking); err != nil {
		return err
	}
	if booking.Status != model.BookingConfirmed {
		return validation.Field("status", "new bookings must be confirmed")
	}
	return nil
}

func (bv *BookingValidator) ValidateFilter(filter *model.BookingFilter) error {
	var errs validation.ValidationErrors
	if filter.OwnerID == "" {
		errs = append(errs, validation.ValidationError{Field: "owner_id", Message: "is required"})
	}
	if filter.Status != "" && !filter.Status.Valid() {
		errs = append(errs, validation.ValidationError{Field: "status", Message: "must be one of pending, confirmed, cancelled"})
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.From.Before(filter.To) {
		errs = append(errs, validation.ValidationError{Field: "from", Message: "must be before to"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
