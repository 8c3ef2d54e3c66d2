package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/totpguard/internal/identity/usecase"
	"github.com/shandysiswandi/totpguard/internal/pkg/instrument"
	"github.com/shandysiswandi/totpguard/internal/pkg/messaging"
	"github.com/shandysiswandi/totpguard/internal/shared/event"
)

type fakePublisher struct {
	destination string
	msg         messaging.OutgoingMessage
	err         error
}

func (f *fakePublisher) Publish(_ context.Context, destination string, msg messaging.OutgoingMessage) (messaging.PublishResult, error) {
	f.destination = destination
	f.msg = msg
	return messaging.PublishResult{Topic: destination}, f.err
}

func TestMessaging_Publish(t *testing.T) {
	at := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	in := usecase.LockoutEvent{EventID: "ev-1", UserID: 7, Username: "alice", Tick: 56666666, OccurredAt: at}

	tests := []struct {
		name            string
		publish         func(m *Messaging, ctx context.Context) error
		wantDestination string
		publishErr      error
	}{
		{
			name:            "locked out",
			publish:         func(m *Messaging, ctx context.Context) error { return m.PublishLockedOut(ctx, in) },
			wantDestination: event.TOTPLockedOutDestination,
		},
		{
			name:            "lockout cleared",
			publish:         func(m *Messaging, ctx context.Context) error { return m.PublishLockoutCleared(ctx, in) },
			wantDestination: event.TOTPLockoutClearedDestination,
		},
		{
			name:            "broker failure",
			publish:         func(m *Messaging, ctx context.Context) error { return m.PublishLockedOut(ctx, in) },
			wantDestination: event.TOTPLockedOutDestination,
			publishErr:      errors.New("broker down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			pub := &fakePublisher{err: tt.publishErr}
			m := NewMessaging(pub, instrument.NewNoop())
			ctx := instrument.SetCorrelationID(context.Background(), "corr-1")

			// Act
			err := tt.publish(m, ctx)

			// Assert
			if !errors.Is(err, tt.publishErr) {
				t.Fatalf("err = %v, want %v", err, tt.publishErr)
			}
			if pub.destination != tt.wantDestination {
				t.Fatalf("destination = %q, want %q", pub.destination, tt.wantDestination)
			}
			if string(pub.msg.Key) != "7" {
				t.Fatalf("key = %q, want 7", pub.msg.Key)
			}
			if len(pub.msg.Headers) != 1 || pub.msg.Headers[0].Key != keyOfCorrelationID || string(pub.msg.Headers[0].Value) != "corr-1" {
				t.Fatalf("headers = %+v", pub.msg.Headers)
			}

			var got event.TOTPLockoutMessage
			if err := json.Unmarshal(pub.msg.Body, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.EventID != "ev-1" || got.UserID != 7 || got.Username != "alice" || got.Tick != 56666666 || !got.OccurredAt.Equal(at) {
				t.Fatalf("body = %+v", got)
			}
		})
	}
}
