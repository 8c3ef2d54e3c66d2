package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/shandysiswandi/totpguard/internal/identity/entity"
)

const (
	createUser = `
INSERT INTO identity_users (id, username, password_record, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)`

	createFactor = `
INSERT INTO identity_totp_factors (user_id, sealed_secret, last_tick, failures, locked_out, version, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
)

// NewUser stores the account and its factor in one transaction.
func (s *DB) NewUser(ctx context.Context, user entity.User, factor entity.Factor) (err error) {
	ctx, span := s.startSpan(ctx, "NewUser")
	defer func() { s.endSpan(span, err) }()

	tx, err := s.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if rErr := tx.Rollback(ctx); rErr != nil && !errors.Is(rErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rollback", "error", rErr)
		}
	}()

	if _, err := tx.Exec(ctx, createUser, user.ID, user.Username, user.PasswordRecord, user.CreatedAt); err != nil {
		return s.mapError(err)
	}

	if _, err := tx.Exec(ctx, createFactor,
		user.ID,
		factor.SealedSecret,
		factor.State.LastTick,
		int32(factor.State.Failures),
		factor.State.LockedOut,
		factor.Version,
		user.CreatedAt,
	); err != nil {
		return s.mapError(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return s.mapError(err)
	}

	return nil
}
