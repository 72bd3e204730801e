package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"salon/internal/core"
	applog "salon/internal/log"
	"salon/internal/services"
	"salon/internal/settings"
	"salon/internal/sheets"
)

// ErrUsage marks a malformed command line.
var ErrUsage = errors.New("usage")

// App runs one salon command against already loaded services.
type App struct {
	Store     *services.DataStore
	Settings  *settings.Manager
	Backups   *services.BackupService
	Reports   *services.ReportService
	Location  *time.Location
	BackupDir string

	// Optional outbound transports, resolved on first use.
	AMQP   func() (services.BackupPublisher, error)
	Sheets func(ctx context.Context) (sheets.ReportPublisher, error)

	Out    io.Writer
	Logger *applog.Logger
}

// NewApp builds an App on the components of rt.
func NewApp(rt *Runtime, out io.Writer) *App {
	return &App{
		Store:     rt.Store,
		Settings:  rt.Settings,
		Backups:   rt.Backups,
		Reports:   rt.Reports,
		Location:  rt.Config.Location(),
		BackupDir: rt.Config.BackupDir,
		AMQP: func() (services.BackupPublisher, error) {
			return rt.AMQP()
		},
		Sheets: rt.ReportPublisher,
		Out:    out,
		Logger: rt.Logger.WithComponent(applog.ComponentCLI),
	}
}

type command func(ctx context.Context, args []string) error

func (a *App) commands() map[string]command {
	return map[string]command{
		"client":      a.clientCmd,
		"service":     a.serviceCmd,
		"appointment": a.appointmentCmd,
		"expense":     a.expenseCmd,
		"category":    a.categoryCmd,
		"settings":    a.settingsCmd,
		"report":      a.reportCmd,
		"dashboard":   a.dashboardCmd,
		"export":      a.exportCmd,
		"import":      a.importCmd,
		"aggregates":  a.aggregatesCmd,
	}
}

// Run executes args, where args[0] is the command group.
func (a *App) Run(ctx context.Context, args []string) error {
	if a.Location == nil {
		a.Location = time.Local
	}
	if a.Logger == nil {
		a.Logger = applog.Discard()
	}
	ctx = applog.NewContext(ctx, a.Logger)
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.usage()
		return nil
	}
	cmd, ok := a.commands()[args[0]]
	if !ok {
		a.usage()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
	start := time.Now()
	err := cmd(ctx, args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	a.Logger.LogOperation(ctx, strings.Join(head(args, 2), " "), start, err, nil)
	return err
}

func (a *App) usage() {
	names := make([]string, 0, len(a.commands()))
	for name := range a.commands() {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(a.Out, "usage: salon <command> [action] [flags]")
	fmt.Fprintln(a.Out)
	fmt.Fprintln(a.Out, "commands:")
	for _, n := range names {
		fmt.Fprintf(a.Out, "  %-12s %s\n", n, commandHelp[n])
	}
}

var commandHelp = map[string]string{
	"client":      "list|show|add|update|delete",
	"service":     "list|add|update|delete",
	"appointment": "list|book|add|update|complete|cancel|delete",
	"expense":     "list|add|update|delete",
	"category":    "list|add|rename|delete",
	"settings":    "show|set",
	"report":      "[-period P | -from D -to D] [-publish]",
	"dashboard":   "today's figures",
	"export":      "[-sink file,stdout,amqp] [-dir D]",
	"import":      "FILE",
	"aggregates":  "recompute [-apply]",
}

// dispatch runs the action named by args[0] from actions.
func dispatch(ctx context.Context, group string, args []string, actions map[string]command) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: salon %s <%s>", ErrUsage, group, actionList(actions))
	}
	act, ok := actions[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown %s action %q, want one of %s", ErrUsage, group, args[0], actionList(actions))
	}
	return act(ctx, args[1:])
}

func actionList(actions map[string]command) string {
	names := make([]string, 0, len(actions))
	for n := range actions {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.Out)
	return fs
}

// parse parses args into fs and returns the positional arguments. Flags may
// come before or after them.
func parse(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return pos, nil
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}

// parseOne is parse for actions that take exactly one positional argument.
func parseOne(fs *flag.FlagSet, args []string, what string) (string, error) {
	pos, err := parse(fs, args)
	if err != nil {
		return "", err
	}
	if len(pos) != 1 {
		return "", fmt.Errorf("%w: salon %s %s", ErrUsage, fs.Name(), what)
	}
	return pos[0], nil
}

// setFlags names the flags given on the command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func (a *App) render(asJSON bool, v any, table func(w io.Writer)) error {
	if asJSON {
		enc := json.NewEncoder(a.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

func (a *App) day(d core.Date) string {
	if d.IsZero() {
		return "-"
	}
	return d.CalendarDay(a.Location)
}

func (a *App) optDay(d *core.Date) string {
	if d == nil {
		return "-"
	}
	return a.day(*d)
}

func (a *App) parseDay(s string) (core.Date, error) {
	return core.ParseDate(strings.TrimSpace(s), a.Location)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, services.ErrNotFound)
}

func head(in []string, n int) []string {
	if len(in) > n {
		return in[:n]
	}
	return in
}
