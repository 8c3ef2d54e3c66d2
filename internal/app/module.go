package app

import (
	"context"
	"log/slog"
	"os"

	"github.com/shandysiswandi/totpguard/internal/audit"
	"github.com/shandysiswandi/totpguard/internal/identity"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.identity.enabled") {
		uc, err := identity.New(identity.Dependency{
			DBConn:     a.dbConn,
			Messaging:  a.messaging,
			Instrument: a.ins,
			Validator:  a.validator,
			Hasher:     a.bcrypt,
			Sealer:     a.sealer,
			Sampler:    a.random,
			Policy:     a.policy,
			UID:        a.uid,
			UUID:       a.uuid,
			Clock:      a.clock,
			Issuer:     a.config.GetString("mfa.totp.issuer"),
			CASRetries: uint64(max(a.config.GetInt64("modules.identity.cas_retries"), 0)),
			CASBackoff: a.config.GetMillisecond("modules.identity.cas_backoff_ms"),
		})
		if err != nil {
			slog.Error("failed to init module identity", "error", err)
			os.Exit(1)
		}
		a.identity = uc
	}

	if a.config.GetBool("modules.audit.enabled") {
		mod, err := audit.New(audit.Dependency{
			DBConn:      a.dbConn,
			Idempotency: a.idemp,
			Config:      a.config,
			Instrument:  a.ins,
			UUID:        a.uuid,
			Validator:   a.validator,
		})
		if err != nil {
			slog.Error("failed to init module audit", "error", err)
			os.Exit(1)
		}
		a.audit = mod.Usecase()
		a.startConsumers = func(ctx context.Context) int {
			return mod.StartConsumers(ctx, a.goroutine, a.messaging)
		}
	}
}
