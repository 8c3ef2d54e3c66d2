package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/totpguard/internal/audit/entity"
	"github.com/shandysiswandi/totpguard/internal/audit/usecase"
	"github.com/shandysiswandi/totpguard/internal/pkg/instrument"
	"github.com/shandysiswandi/totpguard/internal/pkg/messaging"
	"github.com/shandysiswandi/totpguard/internal/pkg/uid"
	"github.com/shandysiswandi/totpguard/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, headers []messaging.Header) context.Context {
	for i := range headers {
		if headers[i].Key == keyOfCorrelationID && len(headers[i].Value) > 0 {
			return instrument.SetCorrelationID(ctx, string(headers[i].Value))
		}
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

func (h *MQHandler) TOTPLockedOut(ctx context.Context, msg messaging.Message) error {
	return h.record(ctx, "TOTPLockedOut", entity.KindLockedOut, msg)
}

func (h *MQHandler) TOTPLockoutCleared(ctx context.Context, msg messaging.Message) error {
	return h.record(ctx, "TOTPLockoutCleared", entity.KindLockoutCleared, msg)
}

func (h *MQHandler) record(ctx context.Context, name string, kind entity.Kind, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers())

	ctx, span := h.ins.Tracer("audit.inbound.mq").Start(ctx, name)
	defer span.End()

	body := msg.Body()
	slog.InfoContext(ctx, "consume: totp lockout event", "kind", kind.String(), "msg_id", msg.ID(), "msg_body", string(body))

	var payload event.TOTPLockoutMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of totp lockout event", "msg_body", string(body), "error", err)
		return nil
	}

	if err := h.uc.RecordEvent(ctx, usecase.RecordEventInput{
		EventID:    payload.EventID,
		Kind:       kind,
		UserID:     payload.UserID,
		Username:   payload.Username,
		Tick:       payload.Tick,
		OccurredAt: payload.OccurredAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to record totp lockout event", "msg_body", string(body), "error", err)
		return err
	}

	return nil
}
