package app

import (
	"context"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	auditentity "github.com/shandysiswandi/totpguard/internal/audit/entity"
	auditusecase "github.com/shandysiswandi/totpguard/internal/audit/usecase"
	"github.com/shandysiswandi/totpguard/internal/identity/entity"
	"github.com/shandysiswandi/totpguard/internal/identity/usecase"
	"github.com/shandysiswandi/totpguard/internal/pkg/clock"
	"github.com/shandysiswandi/totpguard/internal/pkg/config"
	"github.com/shandysiswandi/totpguard/internal/pkg/goroutine"
	"github.com/shandysiswandi/totpguard/internal/pkg/hash"
	"github.com/shandysiswandi/totpguard/internal/pkg/idempotency"
	"github.com/shandysiswandi/totpguard/internal/pkg/instrument"
	"github.com/shandysiswandi/totpguard/internal/pkg/lockout"
	"github.com/shandysiswandi/totpguard/internal/pkg/messaging"
	"github.com/shandysiswandi/totpguard/internal/pkg/mfa"
	"github.com/shandysiswandi/totpguard/internal/pkg/otp"
	"github.com/shandysiswandi/totpguard/internal/pkg/random"
	"github.com/shandysiswandi/totpguard/internal/pkg/uid"
	"github.com/shandysiswandi/totpguard/internal/pkg/validator"
)

type identityService interface {
	StartEnrollment(ctx context.Context, in usecase.StartEnrollmentInput) (*usecase.StartEnrollmentOutput, error)
	Signup(ctx context.Context, in usecase.SignupInput) (*usecase.SignupOutput, error)
	Login(ctx context.Context, in usecase.LoginInput) (*usecase.LoginOutput, error)
	ConfirmLogin(ctx context.Context, in usecase.ConfirmLoginInput) (*entity.Verification, error)
	Troubleshoot(ctx context.Context, in usecase.TroubleshootInput) (*entity.Verification, error)
	StartReEnrollment(ctx context.Context, in usecase.StartReEnrollmentInput) (*usecase.StartEnrollmentOutput, error)
	ReEnroll(ctx context.Context, in usecase.ReEnrollInput) (*usecase.ReEnrollOutput, error)
}

type auditService interface {
	ListEvents(ctx context.Context, in auditusecase.ListEventsInput) ([]auditentity.SecurityEvent, error)
}

// App wires dependencies and runs one command.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	random    *random.Crypto
	bcrypt    *hash.Bcrypt
	uid       uid.NumberID
	uuid      uid.StringID
	totp      *otp.TOTP
	policy    *lockout.Policy
	sealer    mfa.Sealer

	// resources, opened only by commands that need them
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	idemp     idempotency.Idempotency
	messaging messaging.Messaging

	// ready is set once initResources ran.
	ready bool

	// modules
	identity       identityService
	audit          auditService
	startConsumers func(ctx context.Context) int

	// terminal
	stdout io.Writer
	stderr io.Writer
	prompt prompter

	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New loads configuration and libraries. Database, cache and broker
// connections are opened later by the commands that use them.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
		stdout: os.Stdout,
		stderr: os.Stderr,
		prompt: newTerminalPrompter(os.Stdin, os.Stderr),
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initClosers()

	return app
}

// initResources opens every connection and builds the modules.
func (a *App) initResources() {
	a.initDatabase()
	a.initCache()
	a.initMessaging()
	a.initModules()
}
