package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/totpguard/internal/identity/entity"
	"github.com/shandysiswandi/totpguard/internal/pkg/goerror"
	"github.com/shandysiswandi/totpguard/internal/pkg/lockout"
	"github.com/shandysiswandi/totpguard/internal/pkg/mfa"
	"github.com/shandysiswandi/totpguard/internal/pkg/otp"
)

type StartEnrollmentInput struct {
	Username string `validate:"required,username"`
}

type StartEnrollmentOutput struct {
	Secret otp.Secret
	URI    string
}

// StartEnrollment draws a secret for a new account. Nothing is stored until
// Signup proves the authenticator holds it.
func (s *Usecase) StartEnrollment(ctx context.Context, in StartEnrollmentInput) (*StartEnrollmentOutput, error) {
	ctx, span := s.startSpan(ctx, "StartEnrollment")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	username := strings.TrimSpace(in.Username)
	user, err := s.lookupUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if user != nil {
		slog.WarnContext(ctx, "username already taken", "username", username)
		return nil, goerror.NewBusiness("username is already taken", goerror.CodeConflict)
	}

	secret, err := otp.NewSecret(s.sampler)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate totp secret", "error", err)
		failSpan(span, err)
		return nil, goerror.NewServer(err)
	}

	return &StartEnrollmentOutput{
		Secret: secret,
		URI:    otp.ProvisioningURI(username, s.issuer, secret),
	}, nil
}

type SignupInput struct {
	Username string `validate:"required,username"`
	Password string `validate:"required,password"`
	Secret   string `validate:"required,len=16"`
	Code     string `validate:"required,totpcode"`
}

type SignupOutput struct {
	UserID int64
	Skew   int64
}

// Signup creates the account once the first code matches the pending secret.
func (s *Usecase) Signup(ctx context.Context, in SignupInput) (*SignupOutput, error) {
	ctx, span := s.startSpan(ctx, "Signup")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	secret, err := otp.ParseSecret(in.Secret)
	if err != nil {
		return nil, goerror.NewInvalidInput(nil, "secret", "secret must be 16 base32 characters")
	}

	username := strings.TrimSpace(in.Username)
	user, err := s.lookupUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if user != nil {
		slog.WarnContext(ctx, "username already taken", "username", username)
		return nil, goerror.NewBusiness("username is already taken", goerror.CodeConflict)
	}

	res, err := s.checkFirstCode(ctx, "signup", secret, in.Code)
	if err != nil {
		return nil, err
	}

	record, err := s.hasher.Hash(in.Password)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash password", "username", username, "error", err)
		failSpan(span, err)
		return nil, goerror.NewServer(err)
	}

	id := s.uid.Generate()
	sealed, err := mfa.SealSecret(s.sealer, secret, id)
	if err != nil {
		slog.ErrorContext(ctx, "failed to seal totp secret", "user_id", id, "error", err)
		failSpan(span, err)
		return nil, goerror.NewServer(err)
	}

	err = s.repoDB.NewUser(ctx,
		entity.User{ID: id, Username: username, PasswordRecord: record, CreatedAt: s.clock.Now()},
		entity.Factor{UserID: id, SealedSecret: sealed, State: res.State, Version: 1},
	)
	if errors.Is(err, goerror.ErrConflict) {
		slog.WarnContext(ctx, "username taken concurrently", "username", username)
		return nil, goerror.NewBusiness("username is already taken", goerror.CodeConflict)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo new user", "username", username, "error", err)
		failSpan(span, err)
		return nil, goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "user signed up", "user_id", id, "username", username, "skew", res.Skew)

	return &SignupOutput{UserID: id, Skew: res.Skew}, nil
}

// checkFirstCode runs the enrolment check and maps every non success outcome
// to a business error carrying the setup message.
func (s *Usecase) checkFirstCode(ctx context.Context, op string, secret otp.Secret, code string) (lockout.Result, error) {
	res := s.policy.Check(secret, code, 0)
	s.recordTOTP(ctx, op, res.Outcome)

	switch res.Outcome {
	case lockout.Success:
		return res, nil
	case lockout.InvalidInput:
		return res, goerror.NewInvalidInput(nil, "code", entity.SetupMessage(res))
	default:
		slog.WarnContext(ctx, "first verification code rejected", "outcome", res.Outcome.String(), "skew", res.Skew)
		return res, goerror.NewBusiness(entity.SetupMessage(res), goerror.CodeUnauthorized)
	}
}
