package mq

import (
	"context"
	"encoding/json"
	"strconv"

	"go.opentelemetry.io/otel/codes"

	"github.com/shandysiswandi/totpguard/internal/identity/usecase"
	"github.com/shandysiswandi/totpguard/internal/pkg/instrument"
	"github.com/shandysiswandi/totpguard/internal/pkg/messaging"
	"github.com/shandysiswandi/totpguard/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Publisher
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, ins: ins}
}

func (m *Messaging) PublishLockedOut(ctx context.Context, msg usecase.LockoutEvent) error {
	return m.publish(ctx, "PublishLockedOut", event.TOTPLockedOutDestination, msg)
}

func (m *Messaging) PublishLockoutCleared(ctx context.Context, msg usecase.LockoutEvent) error {
	return m.publish(ctx, "PublishLockoutCleared", event.TOTPLockoutClearedDestination, msg)
}

// publish keys the message by user so per-user events stay ordered on
// partitioned brokers.
func (m *Messaging) publish(ctx context.Context, name, destination string, msg usecase.LockoutEvent) error {
	ctx, span := m.ins.Tracer("identity.outbound.mq").Start(ctx, name)
	defer span.End()

	body, err := json.Marshal(event.TOTPLockoutMessage{
		EventID:    msg.EventID,
		UserID:     msg.UserID,
		Username:   msg.Username,
		Tick:       msg.Tick,
		OccurredAt: msg.OccurredAt,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	cID := instrument.GetCorrelationID(ctx)
	if _, err := m.client.Publish(ctx, destination, messaging.OutgoingMessage{
		Body:    body,
		Key:     []byte(strconv.FormatInt(msg.UserID, 10)),
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte(cID)}},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	return nil
}
