package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shandysiswandi/totpguard/internal/pkg/goerror"
	"github.com/shandysiswandi/totpguard/internal/pkg/hash"
	"github.com/shandysiswandi/totpguard/internal/pkg/migration"
	"github.com/shandysiswandi/totpguard/internal/pkg/otp"
)

func (a *App) cmdMigrate(ctx context.Context, args []string) error {
	fs := a.newFlagSet("migrate")
	down := fs.Bool("down", false, "roll back the latest migration")
	status := fs.Bool("status", false, "print the current schema version only")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	dsn := a.config.GetString("database.url")
	switch {
	case *status:
	case *down:
		if err := migration.Down(ctx, dsn); err != nil {
			return goerror.NewServer(err)
		}
	default:
		if err := migration.Up(ctx, dsn); err != nil {
			return goerror.NewServer(err)
		}
	}

	version, err := migration.Version(ctx, dsn)
	if err != nil {
		return goerror.NewServer(err)
	}

	fmt.Fprintf(a.stdout, "Schema version %d.\n", version)
	return nil
}

func (a *App) cmdCode(_ context.Context, args []string) error {
	fs := a.newFlagSet("code")
	raw := fs.String("secret", "", "16 character base32 secret")
	at := fs.String("at", "", "RFC3339 time, default now")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	secret, err := otp.ParseSecret(*raw)
	if err != nil {
		return goerror.NewInvalidInput(nil, "secret", "secret must be 16 base32 characters")
	}

	when := a.clock.Now()
	if *at != "" {
		if when, err = time.Parse(time.RFC3339, *at); err != nil {
			return goerror.NewInvalidInput(nil, "at", "at must be an RFC3339 time")
		}
	}

	tick := otp.TickAt(when)
	code, err := a.totp.CodeAt(secret, tick)
	if err != nil {
		return goerror.NewInvalidInput(nil, "at", err.Error())
	}

	fmt.Fprintf(a.stdout, "%s (tick %d, valid until %s)\n", code, tick, otp.TickStart(tick+1).UTC().Format(time.RFC3339))
	return nil
}

func (a *App) cmdHashPassword(_ context.Context, args []string) error {
	fs := a.newFlagSet("hash-password")
	cost := fs.Int("cost", a.config.GetInt("hash.bcrypt.cost"), "bcrypt cost")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	password, err := a.prompt.Secret("Password: ")
	if err != nil {
		return err
	}

	record, err := hash.NewBcrypt(*cost, a.random).Hash(password)
	switch {
	case errors.Is(err, hash.ErrEmptyPassword):
		return goerror.NewInvalidInput(nil, "password", "password is required")
	case errors.Is(err, hash.ErrInvalidCost):
		return goerror.NewInvalidInput(nil, "cost", fmt.Sprintf("cost must be between %d and %d", hash.MinCost, hash.MaxCost))
	case err != nil:
		return goerror.NewServer(err)
	}

	fmt.Fprintln(a.stdout, record)
	return nil
}
