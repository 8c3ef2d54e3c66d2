package audit

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shandysiswandi/totpguard/internal/audit/inbound"
	"github.com/shandysiswandi/totpguard/internal/audit/outbound/db"
	"github.com/shandysiswandi/totpguard/internal/audit/usecase"
	"github.com/shandysiswandi/totpguard/internal/pkg/config"
	"github.com/shandysiswandi/totpguard/internal/pkg/goroutine"
	"github.com/shandysiswandi/totpguard/internal/pkg/idempotency"
	"github.com/shandysiswandi/totpguard/internal/pkg/instrument"
	"github.com/shandysiswandi/totpguard/internal/pkg/messaging"
	"github.com/shandysiswandi/totpguard/internal/pkg/uid"
	"github.com/shandysiswandi/totpguard/internal/pkg/validator"
)

type Dependency struct {
	DBConn      *pgxpool.Pool              `validate:"required"`
	Idempotency idempotency.Idempotency    `validate:"required"`
	Config      config.Config              `validate:"required"`
	Instrument  instrument.Instrumentation `validate:"required"`
	UUID        uid.StringID               `validate:"required"`
	Validator   validator.Validator        `validate:"required"`
}

type Module struct {
	uc  *usecase.Usecase
	dep Dependency
}

func New(dep Dependency) (*Module, error) {
	if err := dep.Validator.Validate(dep); err != nil {
		return nil, err
	}

	uc := usecase.New(usecase.Dependency{
		RepoDB:      db.NewDB(dep.DBConn, dep.Instrument),
		Idempotency: dep.Idempotency,
		Validator:   dep.Validator,
		Instrument:  dep.Instrument,
	})

	return &Module{uc: uc, dep: dep}, nil
}

// Usecase exposes the queries used by the CLI.
func (m *Module) Usecase() *usecase.Usecase {
	return m.uc
}

// StartConsumers runs the enabled consumers on routine until ctx is done.
func (m *Module) StartConsumers(ctx context.Context, routine *goroutine.Manager, messenger messaging.Consumer) int {
	return inbound.RegisterMQConsumer(ctx, m.dep.Config, routine, messenger, m.dep.UUID, m.uc, m.dep.Instrument)
}
