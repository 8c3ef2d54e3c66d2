package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/totpguard/internal/identity/entity"
	"github.com/shandysiswandi/totpguard/internal/pkg/clock"
	"github.com/shandysiswandi/totpguard/internal/pkg/goerror"
	"github.com/shandysiswandi/totpguard/internal/pkg/hash"
	"github.com/shandysiswandi/totpguard/internal/pkg/instrument"
	"github.com/shandysiswandi/totpguard/internal/pkg/lockout"
	"github.com/shandysiswandi/totpguard/internal/pkg/mfa"
	"github.com/shandysiswandi/totpguard/internal/pkg/otp"
	"github.com/shandysiswandi/totpguard/internal/pkg/random"
	"github.com/shandysiswandi/totpguard/internal/pkg/uid"
	"github.com/shandysiswandi/totpguard/internal/pkg/validator"
)

// LockoutEvent describes a lockout transition for the publisher.
type LockoutEvent struct {
	EventID    string
	UserID     int64
	Username   string
	Tick       int64
	OccurredAt time.Time
}

type repoMessaging interface {
	PublishLockedOut(ctx context.Context, msg LockoutEvent) error
	PublishLockoutCleared(ctx context.Context, msg LockoutEvent) error
}

type repoDB interface {
	GetUserByUsername(ctx context.Context, username string) (*entity.User, error)
	GetFactor(ctx context.Context, userID int64) (*entity.Factor, error)

	NewUser(ctx context.Context, user entity.User, factor entity.Factor) error

	// UpdateFactorState and ReplaceFactor return goerror.ErrConflict when
	// version no longer matches the stored row.
	UpdateFactorState(ctx context.Context, userID int64, state lockout.State, version int64) error
	ReplaceFactor(ctx context.Context, factor entity.Factor) error
}

// Usecase holds the identity operations.
type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	validator     validator.Validator
	hasher        hash.PasswordHasher
	sealer        mfa.Sealer
	sampler       random.Sampler
	policy        *lockout.Policy
	uid           uid.NumberID
	uuid          uid.StringID
	clock         clock.Clocker
	ins           instrument.Instrumentation
	issuer        string
	casRetries    uint64
	casBackoff    time.Duration

	totpCounter     metric.Int64Counter
	passwordCounter metric.Int64Counter

	dummyOnce   sync.Once
	dummyRecord string
	// decoy stands in for the secret of unknown usernames.
	decoy otp.Secret
}

// Dependency lists what New needs.
type Dependency struct {
	RepoDB        repoDB
	RepoMessaging repoMessaging
	Validator     validator.Validator
	Hasher        hash.PasswordHasher
	Sealer        mfa.Sealer
	Sampler       random.Sampler
	Policy        *lockout.Policy
	UID           uid.NumberID
	UUID          uid.StringID
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	// Issuer is shown by authenticator apps next to the account name.
	Issuer string
	// CASRetries bounds re-reads after a lost concurrent update.
	CASRetries uint64
	// CASBackoff is the first Fibonacci backoff step.
	CASBackoff time.Duration
}

func New(dep Dependency) *Usecase {
	uc := &Usecase{
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		validator:     dep.Validator,
		hasher:        dep.Hasher,
		sealer:        dep.Sealer,
		sampler:       dep.Sampler,
		policy:        dep.Policy,
		uid:           dep.UID,
		uuid:          dep.UUID,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		issuer:        dep.Issuer,
		casRetries:    dep.CASRetries,
		casBackoff:    dep.CASBackoff,
	}
	if uc.casRetries == 0 {
		uc.casRetries = 5
	}
	if uc.casBackoff <= 0 {
		uc.casBackoff = 10 * time.Millisecond
	}
	if decoy, err := otp.NewSecret(uc.sampler); err == nil {
		uc.decoy = decoy
	} else {
		slog.Warn("failed to draw decoy totp secret", "error", err)
	}

	meter := uc.ins.Meter("identity.usecase")
	var err error
	if uc.totpCounter, err = meter.Int64Counter("identity.totp.verifications",
		metric.WithDescription("TOTP verifications by outcome")); err != nil {
		slog.Warn("failed to create totp counter", "error", err)
	}
	if uc.passwordCounter, err = meter.Int64Counter("identity.password.verifications",
		metric.WithDescription("Password verifications by result")); err != nil {
		slog.Warn("failed to create password counter", "error", err)
	}

	return uc
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, name)
}

func (s *Usecase) recordTOTP(ctx context.Context, op string, outcome lockout.Outcome) {
	if s.totpCounter == nil {
		return
	}
	s.totpCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome.String()),
	))
}

func (s *Usecase) recordPassword(ctx context.Context, result string) {
	if s.passwordCounter == nil {
		return
	}
	s.passwordCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// verifyPassword checks password against record. A nil user runs a dummy
// check so unknown usernames take as long as known ones.
func (s *Usecase) verifyPassword(ctx context.Context, user *entity.User, password string) (bool, error) {
	if user == nil {
		s.dummyOnce.Do(func() {
			rec, err := s.hasher.Hash("totpguard-dummy-password")
			if err != nil {
				slog.WarnContext(ctx, "failed to build dummy password record", "error", err)
				return
			}
			s.dummyRecord = rec
		})
		if s.dummyRecord != "" {
			//nolint:errcheck // result is discarded, only the cost matters
			_, _ = s.hasher.Verify(s.dummyRecord, password)
		}
		s.recordPassword(ctx, "unknown_user")
		return false, nil
	}

	ok, err := s.hasher.Verify(user.PasswordRecord, password)
	if err != nil {
		slog.ErrorContext(ctx, "stored password record is malformed", "user_id", user.ID, "error", err)
		s.recordPassword(ctx, "malformed_record")
		return false, goerror.NewServer(err)
	}
	if !ok {
		s.recordPassword(ctx, "mismatch")
		return false, nil
	}

	s.recordPassword(ctx, "match")
	return true, nil
}

// lookupUser returns nil without error when the username is unknown.
func (s *Usecase) lookupUser(ctx context.Context, username string) (*entity.User, error) {
	user, err := s.repoDB.GetUserByUsername(ctx, username)
	if errors.Is(err, goerror.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get user by username", "username", username, "error", err)
		return nil, goerror.NewServer(err)
	}
	return user, nil
}

// withFactor runs fn on a fresh read of the user's factor, re-reading and
// retrying when the conditional write inside fn loses a race.
func (s *Usecase) withFactor(ctx context.Context, user *entity.User, fn func(*entity.Factor) error) error {
	b := retry.WithMaxRetries(s.casRetries, retry.WithCappedDuration(200*time.Millisecond, retry.NewFibonacci(s.casBackoff)))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		factor, err := s.repoDB.GetFactor(ctx, user.ID)
		if errors.Is(err, goerror.ErrNotFound) {
			slog.WarnContext(ctx, "user has no totp factor", "user_id", user.ID)
			return goerror.NewBusiness("verification is not set up for this account", goerror.CodeNotFound)
		}
		if err != nil {
			slog.ErrorContext(ctx, "failed to repo get totp factor", "user_id", user.ID, "error", err)
			return goerror.NewServer(err)
		}

		err = fn(factor)
		if errors.Is(err, goerror.ErrConflict) {
			slog.InfoContext(ctx, "totp factor changed concurrently, retrying", "user_id", user.ID, "version", factor.Version)
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *Usecase) publishLockout(ctx context.Context, user *entity.User, tick int64, cleared bool) {
	msg := LockoutEvent{
		EventID:    s.uuid.Generate(),
		UserID:     user.ID,
		Username:   user.Username,
		Tick:       tick,
		OccurredAt: s.clock.Now().UTC(),
	}

	publish := s.repoMessaging.PublishLockedOut
	if cleared {
		publish = s.repoMessaging.PublishLockoutCleared
	}

	// The state is already stored; a lost event only costs an audit line.
	if err := publish(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "failed to publish lockout event", "user_id", user.ID, "cleared", cleared, "error", err)
	}
}
