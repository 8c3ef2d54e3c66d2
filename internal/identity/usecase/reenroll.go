package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/totpguard/internal/identity/entity"
	"github.com/shandysiswandi/totpguard/internal/pkg/goerror"
	"github.com/shandysiswandi/totpguard/internal/pkg/lockout"
	"github.com/shandysiswandi/totpguard/internal/pkg/mfa"
	"github.com/shandysiswandi/totpguard/internal/pkg/otp"
)

type StartReEnrollmentInput struct {
	Username string `validate:"required"`
}

// StartReEnrollment draws a replacement secret. Nothing changes until
// ReEnroll proves the authenticator holds it, so the username is not looked
// up here and unknown names get a secret like any other.
func (s *Usecase) StartReEnrollment(ctx context.Context, in StartReEnrollmentInput) (*StartEnrollmentOutput, error) {
	ctx, span := s.startSpan(ctx, "StartReEnrollment")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	secret, err := otp.NewSecret(s.sampler)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate totp secret", "error", err)
		failSpan(span, err)
		return nil, goerror.NewServer(err)
	}

	return &StartEnrollmentOutput{
		Secret: secret,
		URI:    otp.ProvisioningURI(strings.TrimSpace(in.Username), s.issuer, secret),
	}, nil
}

type ReEnrollInput struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
	// CurrentCode comes from the authenticator being replaced. It goes
	// through the routine verification, failures and lockout included.
	CurrentCode string `validate:"required"`
	Secret      string `validate:"required,len=16"`
	Code        string `validate:"required,totpcode"`
}

type ReEnrollOutput struct {
	UserID int64
	Skew   int64
}

// ReEnroll replaces the TOTP secret of an account that is not locked out
// and resets its verification state. It needs the password, a code from the
// current authenticator and a code from the new one.
func (s *Usecase) ReEnroll(ctx context.Context, in ReEnrollInput) (*ReEnrollOutput, error) {
	ctx, span := s.startSpan(ctx, "ReEnroll")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	secret, err := otp.ParseSecret(in.Secret)
	if err != nil {
		return nil, goerror.NewInvalidInput(nil, "secret", "secret must be 16 base32 characters")
	}

	user, err := s.lookupUser(ctx, strings.TrimSpace(in.Username))
	if err != nil {
		return nil, err
	}
	ok, err := s.verifyPassword(ctx, user, in.Password)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	if !ok {
		slog.WarnContext(ctx, "re-enrolment with bad credentials", "username", in.Username)
		return nil, goerror.NewBusiness(entity.MsgInvalidLogin, goerror.CodeUnauthorized)
	}

	res, err := s.checkFirstCode(ctx, "reenroll", secret, in.Code)
	if err != nil {
		return nil, err
	}

	sealed, err := mfa.SealSecret(s.sealer, secret, user.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to seal totp secret", "user_id", user.ID, "error", err)
		failSpan(span, err)
		return nil, goerror.NewServer(err)
	}

	var current lockout.Result
	err = s.withFactor(ctx, user, func(f *entity.Factor) error {
		old, err := s.openSecret(ctx, user.ID, f)
		if err != nil {
			return err
		}

		current = s.policy.Verify(old, in.CurrentCode, f.State)
		if current.Outcome != lockout.Success {
			if !current.Changed() {
				return nil
			}
			return s.repoDB.UpdateFactorState(ctx, user.ID, current.State, f.Version)
		}

		return s.repoDB.ReplaceFactor(ctx, entity.Factor{
			UserID:       user.ID,
			SealedSecret: sealed,
			State:        res.State,
			Version:      f.Version,
		})
	})
	if err != nil {
		return nil, s.factorError(ctx, span, user.ID, err)
	}

	s.recordTOTP(ctx, "reenroll_current", current.Outcome)
	if current.Outcome != lockout.Success {
		slog.WarnContext(ctx, "re-enrolment refused, current code rejected", "user_id", user.ID, "outcome", current.Outcome.String())
		if current.Outcome == lockout.NowLockedOut {
			s.publishLockout(ctx, user, current.State.LastTick, false)
		}
		return nil, verificationError(user.ID, "current_code", current)
	}

	slog.InfoContext(ctx, "totp secret replaced", "user_id", user.ID, "skew", res.Skew)

	return &ReEnrollOutput{UserID: user.ID, Skew: res.Skew}, nil
}

// verificationError turns a rejected code into the error of an operation
// that cannot go on without it.
func verificationError(userID int64, field string, res lockout.Result) error {
	v := entity.NewVerification(userID, res)
	switch res.Outcome {
	case lockout.AlreadyLockedOut, lockout.NowLockedOut:
		return goerror.NewBusiness(v.Message, goerror.CodeLocked)
	case lockout.InvalidInput:
		return goerror.NewInvalidInput(nil, field, v.Message)
	default:
		return goerror.NewBusiness(v.Message, goerror.CodeUnauthorized)
	}
}
