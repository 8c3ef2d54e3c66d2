package usecase

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/totpguard/internal/audit/entity"
	"github.com/shandysiswandi/totpguard/internal/pkg/idempotency"
	"github.com/shandysiswandi/totpguard/internal/pkg/instrument"
	"github.com/shandysiswandi/totpguard/internal/pkg/validator"
)

type repoDB interface {
	// CreateEvent returns goerror.ErrConflict when the id is already stored.
	CreateEvent(ctx context.Context, ev entity.SecurityEvent) error
	ListEvents(ctx context.Context, username string, limit int) ([]entity.SecurityEvent, error)
}

type Usecase struct {
	repoDB      repoDB
	idempotency idempotency.Idempotency
	validator   validator.Validator
	ins         instrument.Instrumentation
}

type Dependency struct {
	RepoDB      repoDB
	Idempotency idempotency.Idempotency
	Validator   validator.Validator
	Instrument  instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:      dep.RepoDB,
		idempotency: dep.Idempotency,
		validator:   dep.Validator,
		ins:         dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("audit.usecase").Start(ctx, name)
}
