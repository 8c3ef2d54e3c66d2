package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/totpguard/internal/identity/entity"
	"github.com/shandysiswandi/totpguard/internal/pkg/goerror"
	"github.com/shandysiswandi/totpguard/internal/pkg/lockout"
)

type TroubleshootInput struct {
	Username string `validate:"required"`
	// Codes are consecutive codes, oldest first.
	Codes []string
}

// Troubleshoot lifts a lockout when the user proves possession of the
// device with consecutive codes, wherever its clock is.
func (s *Usecase) Troubleshoot(ctx context.Context, in TroubleshootInput) (*entity.Verification, error) {
	ctx, span := s.startSpan(ctx, "Troubleshoot")
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
		slog.WarnContext(ctx, "troubleshooting for unknown user", "username", username)
		out := s.unknownUser(ctx, "troubleshoot", s.policy.CancelLockout(s.decoy, in.Codes, lockout.State{}), lockout.CodeVerificationFailure)
		return &out, nil
	}

	var (
		res       lockout.Result
		wasLocked bool
	)
	err = s.withFactor(ctx, user, func(f *entity.Factor) error {
		secret, err := s.openSecret(ctx, user.ID, f)
		if err != nil {
			return err
		}

		wasLocked = f.State.LockedOut
		res = s.policy.CancelLockout(secret, in.Codes, f.State)
		if !res.Changed() {
			return nil
		}
		return s.repoDB.UpdateFactorState(ctx, user.ID, res.State, f.Version)
	})
	if err != nil {
		return nil, s.factorError(ctx, span, user.ID, err)
	}

	s.recordTOTP(ctx, "troubleshoot", res.Outcome)
	out := entity.NewVerification(user.ID, res)

	if res.Outcome != lockout.Success {
		slog.WarnContext(ctx, "troubleshooting codes rejected", "user_id", user.ID, "outcome", res.Outcome.String())
		return &out, nil
	}

	slog.InfoContext(ctx, "troubleshooting codes accepted", "user_id", user.ID, "skew", res.Skew, "was_locked", wasLocked)
	if wasLocked {
		out.Message = entity.MsgLockoutCleared
		s.publishLockout(ctx, user, res.Tick, true)
	}

	return &out, nil
}
