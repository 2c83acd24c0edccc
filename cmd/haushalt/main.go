package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"haushalt/internal/amqp"
	"haushalt/internal/app"
	"haushalt/internal/cli"
	"haushalt/internal/core"
	"haushalt/internal/kv"
	"haushalt/internal/log"
)

const usage = `Usage: haushalt [-password PW] <command> [flags] [args]

Transactions:
  add      -amount A [-type expense|income] [-category C] [-account A]
           [-date "DD Month YYYY"] [-repeat No|Monthly|Quarterly|Annually]
           [-notes N] [-currency CODE]
  list     [-q TEXT] [-type T] [-category C1,C2] [-month YYYY-MM]
           [-min A] [-max A] [-sort date|amount]
  show     ID
  notes    ID TEXT...
  update   [-amount A] [-type T] [-category C] [-account A] [-date D]
           [-repeat R] [-notes N] [-currency CODE] ID
  remove   ID
  summary  [-month YYYY-MM]
  export   print all transactions as JSON
  import   FILE|-  replace all transactions with an export

Lists:
  categories|accounts list [-q TEXT]
  categories|accounts add [-icon ICON] LABEL
  categories|accounts edit [-icon ICON] ID LABEL
  categories|accounts delete ID

Settings:
  password set NEW CONFIRM
  password change CURRENT NEW CONFIRM
  password clear
  currency get|list
  currency set CODE
  reset -yes

Broker:
  watch    stream ledger change events until interrupted
`

// errUsage marks errors caused by a malformed command line.
var errUsage = errors.New("usage")

func usageErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))

	if err := run(context.Background(), os.Args[1:], os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, "haushalt:", err)
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, logger *log.Logger) error {
	global := flag.NewFlagSet("haushalt", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	password := global.String("password", "", "app password (defaults to HAUSHALT_PASSWORD)")
	if err := global.Parse(args); err != nil {
		return usageErr("%v", err)
	}
	rest := global.Args()
	if len(rest) == 0 {
		return usageErr("missing command")
	}
	command := rest[0]
	if command == "help" || command == "-h" {
		fmt.Fprint(out, usage)
		return nil
	}

	cfg, err := cli.LoadAndValidateConfig(logger)
	if err != nil {
		return err
	}
	if *password == "" {
		*password = cfg.Password
	}

	res, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer res.Close()

	broker := cli.InitAMQP(logger, cfg)
	if broker != nil {
		defer broker.Close()
	}

	ctx = log.WithCommand(log.NewContext(ctx, logger), command)
	r, err := newRunner(ctx, res.Store, broker, out, log.FromContext(ctx))
	if err != nil {
		return err
	}
	return r.dispatch(ctx, *password, rest)
}

type runner struct {
	app    *app.App
	broker *amqp.Client
	out    io.Writer
	logger *log.Logger
}

func newRunner(ctx context.Context, store kv.Store, broker *amqp.Client, out io.Writer, logger *log.Logger) (*runner, error) {
	opts := app.Options{Logger: logger}
	if broker != nil {
		opts.Publisher = broker
	}
	a := app.New(store, opts)
	if err := a.Load(ctx); err != nil {
		return nil, err
	}
	return &runner{app: a, broker: broker, out: out, logger: logger}, nil
}

// dispatch runs one command. A stored app password gates every command
// except "password clear", the emergency unlock.
func (r *runner) dispatch(ctx context.Context, password string, args []string) error {
	command, rest := args[0], args[1:]

	emergency := command == "password" && len(rest) > 0 && rest[0] == "clear"
	if !emergency {
		if err := r.unlock(ctx, password); err != nil {
			return err
		}
	}

	err := r.runCommand(ctx, command, rest)
	if err != nil && core.IsValidation(err) {
		r.logger.DebugContext(ctx, "Command rejected input",
			log.NewFields().WithError(err, log.ErrorTypeValidation).ToSlice()...)
	}
	return err
}

func (r *runner) runCommand(ctx context.Context, command string, rest []string) error {
	switch command {
	case "add":
		return r.add(ctx, rest)
	case "list":
		return r.list(rest)
	case "show":
		return r.show(rest)
	case "notes":
		return r.notes(ctx, rest)
	case "update":
		return r.update(ctx, rest)
	case "remove", "rm":
		return r.remove(ctx, rest)
	case "summary":
		return r.summary(ctx, rest)
	case "export":
		return r.export()
	case "import":
		return r.importFile(ctx, rest)
	case "categories":
		return r.labels(ctx, "category", r.app.Categories, rest)
	case "accounts":
		return r.labels(ctx, "account", r.app.Accounts, rest)
	case "password":
		return r.password(ctx, rest)
	case "currency":
		return r.currency(ctx, rest)
	case "reset":
		return r.reset(ctx, rest)
	case "watch":
		return r.watch()
	default:
		return usageErr("unknown command %q", command)
	}
}

func (r *runner) unlock(ctx context.Context, password string) error {
	set, err := r.app.Settings.PasswordSet(ctx)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if !set {
		return nil
	}
	ok, err := r.app.Settings.VerifyPassword(ctx, password)
	if err != nil {
		return err
	}
	if !ok {
		r.logger.WarnContext(ctx, "Rejected command with wrong password",
			log.NewFields().WithError(core.ErrIncorrectPassword, log.ErrorTypeAuth).ToSlice()...)
		return core.ErrIncorrectPassword
	}
	return nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageErr("%s: %v", fs.Name(), err)
	}
	return nil
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
