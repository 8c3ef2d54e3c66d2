package usecase

import (
	"context"
	"log/slog"

	"github.com/samber/lo"

	"github.com/shandysiswandi/totpguard/internal/audit/entity"
	"github.com/shandysiswandi/totpguard/internal/pkg/goerror"
)

const defaultListLimit = 20

type ListEventsInput struct {
	Username string `validate:"required"`
	Limit    int    `validate:"gte=0,lte=500"`
}

// ListEvents returns the newest events of a user first.
func (s *Usecase) ListEvents(ctx context.Context, in ListEventsInput) ([]entity.SecurityEvent, error) {
	ctx, span := s.startSpan(ctx, "ListEvents")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	limit := lo.Ternary(in.Limit == 0, defaultListLimit, in.Limit)

	events, err := s.repoDB.ListEvents(ctx, in.Username, limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list security events", "username", in.Username, "error", err)
		return nil, goerror.NewServer(err)
	}

	return events, nil
}
