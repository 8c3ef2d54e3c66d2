package inbound

import (
	"context"

	"github.com/shandysiswandi/totpguard/internal/audit/usecase"
)

type uc interface {
	RecordEvent(ctx context.Context, in usecase.RecordEventInput) error
}
