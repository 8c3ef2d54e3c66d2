package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/totpguard/internal/identity/entity"
	"github.com/shandysiswandi/totpguard/internal/pkg/goerror"
	"github.com/shandysiswandi/totpguard/internal/pkg/lockout"
	"github.com/shandysiswandi/totpguard/internal/pkg/mfa"
	"github.com/shandysiswandi/totpguard/internal/pkg/otp"
)

type LoginInput struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type LoginOutput struct {
	UserID       int64
	TOTPRequired bool
}

// Login checks the password. Unknown usernames and wrong passwords get the
// same answer.
func (s *Usecase) Login(ctx context.Context, in LoginInput) (*LoginOutput, error) {
	ctx, span := s.startSpan(ctx, "Login")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	username := strings.TrimSpace(in.Username)
	user, err := s.lookupUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		slog.WarnContext(ctx, "user account not found", "username", username)
	}

	ok, err := s.verifyPassword(ctx, user, in.Password)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	if !ok {
		if user != nil {
			slog.WarnContext(ctx, "password user account not match", "user_id", user.ID)
		}
		return nil, goerror.NewBusiness(entity.MsgInvalidLogin, goerror.CodeUnauthorized)
	}

	return &LoginOutput{UserID: user.ID, TOTPRequired: true}, nil
}

type ConfirmLoginInput struct {
	Username string `validate:"required"`
	// Code is not format checked here; a malformed code is an InvalidInput
	// outcome rather than an error.
	Code string
}

// ConfirmLogin verifies the second factor and persists the new state.
func (s *Usecase) ConfirmLogin(ctx context.Context, in ConfirmLoginInput) (*entity.Verification, error) {
	ctx, span := s.startSpan(ctx, "ConfirmLogin")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	username := strings.TrimSpace(in.Username)
	user, err := s.lookupUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		slog.WarnContext(ctx, "totp login for unknown user", "username", username)
		out := s.unknownUser(ctx, "login", s.policy.Verify(s.decoy, in.Code, lockout.State{}), s.firstMiss())
		return &out, nil
	}

	var res lockout.Result
	err = s.withFactor(ctx, user, func(f *entity.Factor) error {
		secret, err := s.openSecret(ctx, user.ID, f)
		if err != nil {
			return err
		}

		res = s.policy.Verify(secret, in.Code, f.State)
		if !res.Changed() {
			return nil
		}
		return s.repoDB.UpdateFactorState(ctx, user.ID, res.State, f.Version)
	})
	if err != nil {
		return nil, s.factorError(ctx, span, user.ID, err)
	}

	s.recordTOTP(ctx, "login", res.Outcome)
	out := entity.NewVerification(user.ID, res)

	switch res.Outcome {
	case lockout.Success:
		slog.InfoContext(ctx, "totp login confirmed", "user_id", user.ID, "skew", res.Skew)
	case lockout.NowLockedOut:
		slog.WarnContext(ctx, "account locked out after wrong verification code", "user_id", user.ID, "failures", res.State.Failures)
		s.publishLockout(ctx, user, res.State.LastTick, false)
	default:
		slog.WarnContext(ctx, "totp login rejected", "user_id", user.ID, "outcome", res.Outcome.String(), "mismatch", res.Mismatch.String(), "skew", res.Skew)
	}

	return &out, nil
}

// unknownUser answers a code path for a username that does not exist the
// way a fresh account answers a wrong code. res comes from the same search
// against a decoy secret, so both cases take about as long; only its input
// check is kept.
func (s *Usecase) unknownUser(ctx context.Context, op string, res lockout.Result, miss lockout.Outcome) entity.Verification {
	if res.Outcome != lockout.InvalidInput {
		res = lockout.Result{Outcome: miss}
	}
	s.recordTOTP(ctx, op, res.Outcome)
	return entity.NewVerification(0, res)
}

// firstMiss is the outcome of a wrong code on an account with no failures.
func (s *Usecase) firstMiss() lockout.Outcome {
	if s.policy.Config().Threshold <= 1 {
		return lockout.NowLockedOut
	}
	return lockout.CodeVerificationFailure
}

func (s *Usecase) openSecret(ctx context.Context, userID int64, f *entity.Factor) (otp.Secret, error) {
	secret, err := mfa.OpenSecret(s.sealer, f.SealedSecret, userID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to open totp secret", "user_id", userID, "error", err)
		return otp.Secret{}, goerror.NewServer(err)
	}
	return secret, nil
}

// factorError maps what withFactor returned to the error the caller sees.
func (s *Usecase) factorError(ctx context.Context, span trace.Span, userID int64, err error) error {
	var ge *goerror.Error
	if errors.As(err, &ge) {
		return err
	}
	if errors.Is(err, goerror.ErrConflict) {
		slog.WarnContext(ctx, "gave up on concurrent totp factor updates", "user_id", userID)
		return goerror.NewBusiness("the account is busy, try again", goerror.CodeConflict)
	}

	slog.ErrorContext(ctx, "failed to update totp factor", "user_id", userID, "error", err)
	failSpan(span, err)
	return goerror.NewServer(err)
}
