package service

import (
	"context"

	apperrors "rendezvous/pkg/errors"
	"rendezvous/pkg/kafka"
	"rendezvous/pkg/logger"
	"rendezvous/pkg/model"
)

// NewMessageHandler consumes calendar-sync messages. The record key is the owner id and fills in
// imports that omit it. Malformed batches go straight to the DLQ; fetch and storage failures are
// retried.
func NewMessageHandler(svc BusyService, log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var batch model.FeedBatch
		if err := msg.DecodeValue(&batch); err != nil {
			return err
		}
		for i := range batch.Imports {
			if batch.Imports[i].OwnerID == "" {
				batch.Imports[i].OwnerID = msg.Key
			}
		}

		results, err := svc.ImportBatch(ctx, &batch)
		if err != nil {
			if apperrors.HasCode(err, apperrors.CodeValidation) || apperrors.HasCode(err, apperrors.CodeInvalidInput) {
				return kafka.NewPermanentError("invalid calendar batch", err)
			}
			return kafka.NewTransientError("calendar import failed", err)
		}

		log.Debug("Calendar batch processed",
			"event_id", msg.GetEventID(),
			"owner_id", msg.Key,
			"feeds", len(results),
		)
		return nil
	}
}
