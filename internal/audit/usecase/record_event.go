package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/shandysiswandi/totpguard/internal/audit/entity"
	"github.com/shandysiswandi/totpguard/internal/pkg/goerror"
	"github.com/shandysiswandi/totpguard/internal/pkg/idempotency"
	"github.com/shandysiswandi/totpguard/internal/pkg/instrument"
)

type RecordEventInput struct {
	EventID    string      `validate:"required,uuid"`
	Kind       entity.Kind `validate:"required,oneof=totp.locked_out totp.lockout_cleared"`
	UserID     int64       `validate:"required,gt=0"`
	Username   string      `validate:"required"`
	Tick       int64
	OccurredAt time.Time `validate:"required"`
}

// RecordEvent stores one lockout transition. Invalid input and repeats are
// dropped with a nil error so the broker does not redeliver them.
func (s *Usecase) RecordEvent(ctx context.Context, in RecordEventInput) error {
	ctx, span := s.startSpan(ctx, "RecordEvent")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "error", err)
		return nil
	}

	err := s.idempotency.Exec(ctx, "audit:"+in.EventID, func(ctx context.Context) error {
		err := s.repoDB.CreateEvent(ctx, entity.SecurityEvent{
			ID:            in.EventID,
			Kind:          in.Kind,
			UserID:        in.UserID,
			Username:      in.Username,
			Tick:          in.Tick,
			CorrelationID: instrument.GetCorrelationID(ctx),
			OccurredAt:    in.OccurredAt,
		})
		if errors.Is(err, goerror.ErrConflict) {
			// stored before the idempotency key expired
			return nil
		}
		return err
	})
	switch {
	case errors.Is(err, idempotency.ErrCompleted):
		slog.InfoContext(ctx, "duplicate security event skipped", "event_id", in.EventID)
		return nil
	case err != nil:
		// ErrInProgress lands here too so the broker redelivers after the
		// other worker's claim expires.
		slog.ErrorContext(ctx, "failed to record security event", "event_id", in.EventID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	slog.InfoContext(ctx, "security event recorded",
		"event_id", in.EventID,
		"kind", in.Kind.String(),
		"user_id", in.UserID,
		"username", in.Username,
		"tick", in.Tick,
	)

	return nil
}
