package identity

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shandysiswandi/totpguard/internal/identity/outbound/db"
	"github.com/shandysiswandi/totpguard/internal/identity/outbound/mq"
	"github.com/shandysiswandi/totpguard/internal/identity/usecase"
	"github.com/shandysiswandi/totpguard/internal/pkg/clock"
	"github.com/shandysiswandi/totpguard/internal/pkg/hash"
	"github.com/shandysiswandi/totpguard/internal/pkg/instrument"
	"github.com/shandysiswandi/totpguard/internal/pkg/lockout"
	"github.com/shandysiswandi/totpguard/internal/pkg/messaging"
	"github.com/shandysiswandi/totpguard/internal/pkg/mfa"
	"github.com/shandysiswandi/totpguard/internal/pkg/random"
	"github.com/shandysiswandi/totpguard/internal/pkg/uid"
	"github.com/shandysiswandi/totpguard/internal/pkg/validator"
)

type Dependency struct {
	DBConn     *pgxpool.Pool              `validate:"required"`
	Messaging  messaging.Publisher        `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	Hasher     hash.PasswordHasher        `validate:"required"`
	Sealer     mfa.Sealer                 `validate:"required"`
	Sampler    random.Sampler             `validate:"required"`
	Policy     *lockout.Policy            `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Issuer     string                     `validate:"required"`
	CASRetries uint64
	CASBackoff time.Duration
}

func New(dep Dependency) (*usecase.Usecase, error) {
	if err := dep.Validator.Validate(dep); err != nil {
		return nil, err
	}

	return usecase.New(usecase.Dependency{
		RepoDB:        db.NewDB(dep.DBConn, dep.Instrument),
		RepoMessaging: mq.NewMessaging(dep.Messaging, dep.Instrument),
		Validator:     dep.Validator,
		Hasher:        dep.Hasher,
		Sealer:        dep.Sealer,
		Sampler:       dep.Sampler,
		Policy:        dep.Policy,
		UID:           dep.UID,
		UUID:          dep.UUID,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
		Issuer:        dep.Issuer,
		CASRetries:    dep.CASRetries,
		CASBackoff:    dep.CASBackoff,
	}), nil
}
