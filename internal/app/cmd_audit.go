package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	auditusecase "github.com/shandysiswandi/totpguard/internal/audit/usecase"
	"github.com/shandysiswandi/totpguard/internal/pkg/goerror"
)

var errAuditDisabled = goerror.NewBusiness("the audit module is disabled", goerror.CodeInvalidInput)

func (a *App) cmdEvents(ctx context.Context, args []string) error {
	fs := a.newFlagSet("events")
	user := fs.String("user", "", "account name")
	limit := fs.Int("limit", 0, "maximum number of events, newest first")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := requireFlag("user", *user); err != nil {
		return err
	}
	if a.audit == nil {
		return errAuditDisabled
	}

	events, err := a.audit.ListEvents(ctx, auditusecase.ListEventsInput{Username: *user, Limit: *limit})
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintf(a.stdout, "No security events for %s.\n", *user)
		return nil
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "OCCURRED AT\tEVENT\tTICK\tCORRELATION ID")
	for _, ev := range events {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", ev.OccurredAt.UTC().Format(time.RFC3339), ev.Kind, ev.Tick, ev.CorrelationID)
	}
	return tw.Flush()
}

func (a *App) cmdWorker(ctx context.Context, args []string) error {
	fs := a.newFlagSet("worker")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if a.startConsumers == nil {
		return errAuditDisabled
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if n := a.startConsumers(ctx); n == 0 {
		return goerror.NewBusiness("no audit consumers enabled in modules.audit.consumer_names", goerror.CodeInvalidInput)
	}

	<-ctx.Done()
	slog.Info("worker received termination signal")

	return nil
}
