package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"

	"github.com/samber/lo"

	"github.com/shandysiswandi/totpguard/internal/pkg/goerror"
)

type command struct {
	name  string
	usage string
	// resources means the command needs the database, cache, broker and
	// modules.
	resources bool
	run       func(a *App, ctx context.Context, args []string) error
}

var commands = []command{
	{name: "migrate", usage: "apply database migrations [-down] [-status]", run: (*App).cmdMigrate},
	{name: "enroll", usage: "create an account with a new authenticator -user NAME [-qr FILE]", resources: true, run: (*App).cmdEnroll},
	{name: "login", usage: "check a password and a verification code -user NAME", resources: true, run: (*App).cmdLogin},
	{name: "troubleshoot", usage: "lift a lockout with consecutive codes -user NAME [-codes N]", resources: true, run: (*App).cmdTroubleshoot},
	{name: "reenroll", usage: "replace the authenticator of an account -user NAME [-qr FILE]", resources: true, run: (*App).cmdReEnroll},
	{name: "events", usage: "show the security audit trail -user NAME [-limit N]", resources: true, run: (*App).cmdEvents},
	{name: "worker", usage: "record lockout events until interrupted", resources: true, run: (*App).cmdWorker},
	{name: "code", usage: "print the code of a secret -secret SECRET [-at RFC3339]", run: (*App).cmdCode},
	{name: "hash-password", usage: "print a bcrypt record for a password [-cost N]", run: (*App).cmdHashPassword},
}

// Run executes the command named by args[0] and returns the process exit
// status.
func (a *App) Run(args []string) int {
	if len(args) == 0 {
		a.usage(a.stderr)
		return 2
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.usage(a.stdout)
		return 0
	}

	cmd, ok := lo.Find(commands, func(c command) bool { return c.name == args[0] })
	if !ok {
		fmt.Fprintf(a.stderr, "unknown command %q\n\n", args[0])
		a.usage(a.stderr)
		return 2
	}

	if cmd.resources && !a.ready {
		a.initResources()
		a.ready = true
	}

	err := cmd.run(a, a.ctx, args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		a.printError(err)
		return goerror.ExitCode(err)
	}

	return 0
}

func (a *App) usage(w io.Writer) {
	fmt.Fprintln(w, "usage: totpguard <command> [flags]")
	fmt.Fprintln(w)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-14s %s\n", c.name, c.usage)
	}
}

func (a *App) printError(err error) {
	fmt.Fprintln(a.stderr, goerror.Message(err))

	var ge *goerror.Error
	if !errors.As(err, &ge) {
		return
	}
	fields := ge.Fields()
	if len(fields) == 0 {
		var ve interface{ Values() map[string]string }
		if errors.As(err, &ve) {
			fields = ve.Values()
		}
	}

	keys := lo.Keys(fields)
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(a.stderr, "  %s: %s\n", k, fields[k])
	}
}

// newFlagSet returns a flag set whose parse errors become invalid format
// errors.
func (a *App) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return goerror.NewInvalidFormat(err.Error())
	}
	if fs.NArg() > 0 {
		return goerror.NewInvalidFormat(fmt.Sprintf("unexpected argument %q", fs.Arg(0)))
	}
	return nil
}

func requireFlag(name, value string) error {
	if value == "" {
		return goerror.NewInvalidInput(nil, name, name+" is required")
	}
	return nil
}
