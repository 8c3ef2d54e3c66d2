package inbound

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/totpguard/internal/audit/entity"
	"github.com/shandysiswandi/totpguard/internal/audit/usecase"
	"github.com/shandysiswandi/totpguard/internal/pkg/config"
	"github.com/shandysiswandi/totpguard/internal/pkg/goroutine"
	"github.com/shandysiswandi/totpguard/internal/pkg/instrument"
	"github.com/shandysiswandi/totpguard/internal/pkg/messaging"
	"github.com/shandysiswandi/totpguard/internal/shared/event"
)

type fakeUsecase struct {
	got []usecase.RecordEventInput
	cID string
	err error
}

func (f *fakeUsecase) RecordEvent(ctx context.Context, in usecase.RecordEventInput) error {
	f.got = append(f.got, in)
	f.cID = instrument.GetCorrelationID(ctx)
	return f.err
}

type fakeMessage struct {
	body    []byte
	headers []messaging.Header
}

func (m *fakeMessage) Body() []byte                { return m.body }
func (m *fakeMessage) Key() []byte                 { return nil }
func (m *fakeMessage) Headers() []messaging.Header { return m.headers }
func (m *fakeMessage) Header(key string) string {
	for _, h := range m.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
func (m *fakeMessage) ID() string                 { return "m-1" }
func (m *fakeMessage) Source() string             { return "test" }
func (m *fakeMessage) Timestamp() time.Time       { return time.Time{} }
func (m *fakeMessage) Ack(context.Context) error  { return nil }
func (m *fakeMessage) Nack(context.Context) error { return nil }

type fixedUUID string

func (f fixedUUID) Generate() string { return string(f) }

func TestMQHandler(t *testing.T) {
	body := []byte(`{"event_id":"0190a0e4-0000-7000-8000-000000000001","user_id":7,"username":"alice","tick":56666666,"occurred_at":"2024-05-01T12:00:00Z"}`)

	tests := []struct {
		name     string
		handle   func(h *MQHandler, ctx context.Context, msg messaging.Message) error
		msg      *fakeMessage
		ucErr    error
		wantKind entity.Kind
		wantCID  string
		wantErr  bool
		wantCall bool
	}{
		{
			name:     "locked out with correlation header",
			handle:   (*MQHandler).TOTPLockedOut,
			msg:      &fakeMessage{body: body, headers: []messaging.Header{{Key: keyOfCorrelationID, Value: []byte("corr-1")}}},
			wantKind: entity.KindLockedOut,
			wantCID:  "corr-1",
			wantCall: true,
		},
		{
			name:     "lockout cleared without header",
			handle:   (*MQHandler).TOTPLockoutCleared,
			msg:      &fakeMessage{body: body},
			wantKind: entity.KindLockoutCleared,
			wantCID:  "generated",
			wantCall: true,
		},
		{
			name:   "malformed body is dropped",
			handle: (*MQHandler).TOTPLockedOut,
			msg:    &fakeMessage{body: []byte("{")},
		},
		{
			name:     "usecase failure is returned",
			handle:   (*MQHandler).TOTPLockedOut,
			msg:      &fakeMessage{body: body},
			ucErr:    errors.New("db down"),
			wantKind: entity.KindLockedOut,
			wantCID:  "generated",
			wantErr:  true,
			wantCall: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			uc := &fakeUsecase{err: tt.ucErr}
			h := &MQHandler{uc: uc, uuid: fixedUUID("generated"), ins: instrument.NewNoop()}

			// Act
			err := tt.handle(h, context.Background(), tt.msg)

			// Assert
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantCall {
				if len(uc.got) != 0 {
					t.Fatalf("usecase called with %+v", uc.got)
				}
				return
			}
			if len(uc.got) != 1 {
				t.Fatalf("calls = %d, want 1", len(uc.got))
			}
			in := uc.got[0]
			if in.Kind != tt.wantKind || in.UserID != 7 || in.Username != "alice" || in.Tick != 56666666 {
				t.Fatalf("input = %+v", in)
			}
			if !in.OccurredAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
				t.Fatalf("occurred_at = %v", in.OccurredAt)
			}
			if uc.cID != tt.wantCID {
				t.Fatalf("correlation id = %q, want %q", uc.cID, tt.wantCID)
			}
		})
	}
}

type fakeConsumer struct {
	mu     sync.Mutex
	topics map[string]int
}

func (f *fakeConsumer) Consume(_ context.Context, source string, _ messaging.Handler, opts ...messaging.ConsumeOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics[source] = len(opts)
	return nil
}

func TestRegisterMQConsumer(t *testing.T) {
	tests := []struct {
		name       string
		yaml       string
		wantTopics []string
	}{
		{
			name:       "all consumers",
			yaml:       "modules:\n  audit:\n    consumer_names: audit_totp_locked_out, audit_totp_lockout_cleared\n    concurrency: 4\n",
			wantTopics: []string{event.TOTPLockedOutDestination, event.TOTPLockoutClearedDestination},
		},
		{
			name:       "one consumer",
			yaml:       "modules:\n  audit:\n    consumer_names: audit_totp_lockout_cleared\n",
			wantTopics: []string{event.TOTPLockoutClearedDestination},
		},
		{
			name: "none enabled",
			yaml: "modules:\n  audit:\n    consumer_names: \"\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			cfg, err := config.NewViperFromBytes("yaml", []byte(tt.yaml))
			if err != nil {
				t.Fatalf("config: %v", err)
			}
			routine := goroutine.NewManager(4)
			consumer := &fakeConsumer{topics: map[string]int{}}

			// Act
			started := RegisterMQConsumer(context.Background(), cfg, routine, consumer, fixedUUID("x"), &fakeUsecase{}, instrument.NewNoop())
			waitErr := routine.Wait()

			// Assert
			if waitErr != nil {
				t.Fatalf("wait: %v", waitErr)
			}
			if started != len(tt.wantTopics) {
				t.Fatalf("started = %d, want %d", started, len(tt.wantTopics))
			}
			for _, topic := range tt.wantTopics {
				if consumer.topics[topic] != 3 {
					t.Fatalf("topic %s options = %d, want 3", topic, consumer.topics[topic])
				}
			}
			if len(consumer.topics) != len(tt.wantTopics) {
				t.Fatalf("topics = %v", consumer.topics)
			}
		})
	}
}
