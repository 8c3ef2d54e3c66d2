package db

import (
	"context"

	"github.com/shandysiswandi/totpguard/internal/identity/entity"
)

const getUserByUsername = `
SELECT id, username, password_record, created_at
FROM identity_users
WHERE LOWER(username) = LOWER($1)`

func (s *DB) GetUserByUsername(ctx context.Context, username string) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByUsername")
	defer func() { s.endSpan(span, err) }()

	var u entity.User
	err = s.conn.QueryRow(ctx, getUserByUsername, username).Scan(&u.ID, &u.Username, &u.PasswordRecord, &u.CreatedAt)
	if err != nil {
		return nil, s.mapError(err)
	}

	return &u, nil
}

const getFactor = `
SELECT user_id, sealed_secret, last_tick, failures, locked_out, version
FROM identity_totp_factors
WHERE user_id = $1`

func (s *DB) GetFactor(ctx context.Context, userID int64) (_ *entity.Factor, err error) {
	ctx, span := s.startSpan(ctx, "GetFactor")
	defer func() { s.endSpan(span, err) }()

	var (
		f        entity.Factor
		failures int32
	)
	err = s.conn.QueryRow(ctx, getFactor, userID).Scan(
		&f.UserID, &f.SealedSecret, &f.State.LastTick, &failures, &f.State.LockedOut, &f.Version,
	)
	if err != nil {
		return nil, s.mapError(err)
	}
	f.State.Failures = int(failures)

	return &f, nil
}
