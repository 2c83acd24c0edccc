package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"haushalt/internal/amqp"
	"haushalt/internal/cli"
	"haushalt/internal/core"
)

const (
	shutdownTimeout = 5 * time.Second
	timeLayout      = "2006-01-02 15:04:05"
)

func (r *runner) password(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageErr("password: expected set, change or clear")
	}
	switch sub, rest := args[0], args[1:]; sub {
	case "set":
		if len(rest) != 2 {
			return usageErr("password set: expected NEW CONFIRM")
		}
		if set, err := r.app.Settings.PasswordSet(ctx); err != nil {
			return err
		} else if set {
			return errors.New("a password is already set, use password change")
		}
		if err := r.app.Settings.SetPassword(ctx, rest[0], rest[1]); err != nil {
			return err
		}
		fmt.Fprintln(r.out, "Password set")
	case "change":
		if len(rest) != 3 {
			return usageErr("password change: expected CURRENT NEW CONFIRM")
		}
		if err := r.app.Settings.ChangePassword(ctx, rest[0], rest[1], rest[2]); err != nil {
			return err
		}
		fmt.Fprintln(r.out, "Password changed")
	case "clear":
		if err := r.app.Settings.RemovePassword(ctx); err != nil {
			return err
		}
		fmt.Fprintln(r.out, "Password removed")
	default:
		return usageErr("unknown password command %q", sub)
	}
	return nil
}

func (r *runner) currency(ctx context.Context, args []string) error {
	if len(args) == 0 {
		args = []string{"get"}
	}
	switch sub, rest := args[0], args[1:]; sub {
	case "get":
		code := r.app.Settings.DefaultCurrency(ctx)
		fmt.Fprintf(r.out, "%s (%s)\n", code, r.app.Table.SymbolOf(code))
	case "list":
		current := r.app.Settings.DefaultCurrency(ctx)
		w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\tCODE\tSYMBOL\tNAME\tPER USD")
		for _, code := range r.app.Table.Codes() {
			e, _ := r.app.Table.Lookup(code)
			mark := ""
			if e.Code == current {
				mark = "*"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\n", mark, e.Code, e.Symbol, e.Name, e.Rate)
		}
		return w.Flush()
	case "set":
		if len(rest) != 1 {
			return usageErr("currency set: expected CODE")
		}
		if err := r.app.Settings.SetDefaultCurrency(ctx, rest[0]); err != nil {
			if errors.Is(err, core.ErrUnknownCurrency) {
				return fmt.Errorf("%w; known codes: %s", err, strings.Join(r.app.Table.Codes(), " "))
			}
			return err
		}
		fmt.Fprintf(r.out, "Default currency is now %s\n", r.app.Settings.DefaultCurrency(ctx))
	default:
		return usageErr("unknown currency command %q", sub)
	}
	return nil
}

func (r *runner) reset(ctx context.Context, args []string) error {
	fs := newFlagSet("reset")
	yes := fs.Bool("yes", false, "confirm deleting all transactions and settings")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if !*yes {
		return usageErr("reset deletes all transactions, the password and the default currency; pass -yes to confirm")
	}
	if err := r.app.Settings.DeleteAllUserData(ctx); err != nil {
		return err
	}
	fmt.Fprintln(r.out, "All user data deleted")
	return nil
}

func (r *runner) watch() error {
	if r.broker == nil {
		return errors.New("watch needs a reachable broker, set AMQP_URL")
	}
	ctx, done := cli.GracefulShutdown(r.logger, shutdownTimeout, nil)
	err := r.broker.ConsumeChanges(ctx, func(msg *amqp.ChangeMessage) error {
		_, err := fmt.Fprintf(r.out, "%s %-7s count=%d ids=%v event=%s\n",
			msg.Timestamp.Format(timeLayout), msg.Op, msg.Count, msg.IDs, msg.EventID)
		return err
	})
	if errors.Is(err, context.Canceled) {
		cli.WaitForShutdown(ctx, done)
		return nil
	}
	return err
}
