package db

import (
	"context"

	"github.com/shandysiswandi/totpguard/internal/pkg/goerror"
	"github.com/shandysiswandi/totpguard/internal/pkg/lockout"

	"github.com/shandysiswandi/totpguard/internal/identity/entity"
)

const updateFactorState = `
UPDATE identity_totp_factors
SET last_tick = $3, failures = $4, locked_out = $5, version = version + 1, updated_at = NOW()
WHERE user_id = $1 AND version = $2`

// UpdateFactorState writes state if the row still has version.
func (s *DB) UpdateFactorState(ctx context.Context, userID int64, state lockout.State, version int64) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateFactorState")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, updateFactorState, userID, version, state.LastTick, int32(state.Failures), state.LockedOut)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrConflict
	}

	return nil
}

const replaceFactor = `
UPDATE identity_totp_factors
SET sealed_secret = $3, last_tick = $4, failures = $5, locked_out = $6, version = version + 1, updated_at = NOW()
WHERE user_id = $1 AND version = $2`

// ReplaceFactor swaps the sealed secret and state if the row still has
// factor.Version.
func (s *DB) ReplaceFactor(ctx context.Context, factor entity.Factor) (err error) {
	ctx, span := s.startSpan(ctx, "ReplaceFactor")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, replaceFactor,
		factor.UserID,
		factor.Version,
		factor.SealedSecret,
		factor.State.LastTick,
		int32(factor.State.Failures),
		factor.State.LockedOut,
	)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrConflict
	}

	return nil
}
