package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/totpguard/internal/audit/entity"
	"github.com/shandysiswandi/totpguard/internal/pkg/goerror"
	"github.com/shandysiswandi/totpguard/internal/pkg/instrument"
)

type DB struct {
	conn *pgxpool.Pool
	ins  instrument.Instrumentation
}

func NewDB(conn *pgxpool.Pool, ins instrument.Instrumentation) *DB {
	return &DB{conn: conn, ins: ins}
}

func (s *DB) mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return goerror.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return goerror.ErrConflict
	}

	return err
}

func (s *DB) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("audit.outbound.db").Start(ctx, name)
}

func (s *DB) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrConflict) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

const createEvent = `
INSERT INTO audit_security_events (id, kind, user_id, username, tick, correlation_id, occurred_at)
VALUES ($1::text::uuid, $2, $3, $4, $5, $6, $7)`

func (s *DB) CreateEvent(ctx context.Context, ev entity.SecurityEvent) (err error) {
	ctx, span := s.startSpan(ctx, "CreateEvent")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, createEvent,
		ev.ID,
		ev.Kind.String(),
		ev.UserID,
		ev.Username,
		ev.Tick,
		ev.CorrelationID,
		ev.OccurredAt,
	)
	return s.mapError(err)
}

const listEvents = `
SELECT id::text, kind, user_id, username, tick, correlation_id, occurred_at, recorded_at
FROM audit_security_events
WHERE LOWER(username) = LOWER($1)
ORDER BY occurred_at DESC, recorded_at DESC
LIMIT $2`

func (s *DB) ListEvents(ctx context.Context, username string, limit int) (_ []entity.SecurityEvent, err error) {
	ctx, span := s.startSpan(ctx, "ListEvents")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, listEvents, username, limit)
	if err != nil {
		return nil, s.mapError(err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.SecurityEvent, error) {
		var (
			ev   entity.SecurityEvent
			kind string
		)
		err := row.Scan(&ev.ID, &kind, &ev.UserID, &ev.Username, &ev.Tick, &ev.CorrelationID, &ev.OccurredAt, &ev.RecordedAt)
		ev.Kind = entity.Kind(kind)
		return ev, err
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return events, nil
}
