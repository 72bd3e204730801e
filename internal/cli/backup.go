package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"salon/internal/services"
)

func (a *App) exportCmd(ctx context.Context, args []string) error {
	fs := a.flags("export")
	sinkNames := fs.String("sink", "file", "comma-separated destinations: file, stdout, amqp")
	dir := fs.String("dir", a.BackupDir, "directory for the file sink")
	if _, err := parse(fs, args); err != nil {
		return err
	}

	var sinks []services.BackupSink
	for _, name := range strings.Split(*sinkNames, ",") {
		switch strings.TrimSpace(name) {
		case "file":
			sinks = append(sinks, services.FileSink{Dir: *dir})
		case "stdout":
			sinks = append(sinks, services.WriterSink{W: a.Out})
		case "amqp":
			if a.AMQP == nil {
				return fmt.Errorf("AMQP sink is not available")
			}
			pub, err := a.AMQP()
			if err != nil {
				return err
			}
			sinks = append(sinks, services.AMQPSink{Publisher: pub})
		default:
			return fmt.Errorf("%w: unknown sink %q", ErrUsage, name)
		}
	}

	bk, err := a.Backups.Deliver(ctx, sinks...)
	if err != nil {
		return err
	}
	if !strings.Contains(*sinkNames, "stdout") {
		fmt.Fprintf(a.Out, "Exported %s (revision %d)\n", bk.FileName, bk.Revision)
	}
	return nil
}

func (a *App) importCmd(ctx context.Context, args []string) error {
	path, err := parseOne(a.flags("import"), args, "FILE")
	if err != nil {
		return err
	}
	ok, err := a.Backups.ImportFile(ctx, path)
	if !ok {
		return fmt.Errorf("import %s: %w", path, err)
	}
	st := a.Store.Snapshot()
	fmt.Fprintf(a.Out, "Imported %d clients, %d services, %d appointments, %d expenses\n",
		len(st.Clients), len(st.Services), len(st.Appointments), len(st.Expenses))
	return nil
}

func (a *App) aggregatesCmd(ctx context.Context, args []string) error {
	return dispatch(ctx, "aggregates", args, map[string]command{
		"recompute": a.aggregatesRecompute,
	})
}

// aggregatesRecompute lists clients whose stored totals differ from their
// completed appointments, and with -apply overwrites them.
func (a *App) aggregatesRecompute(ctx context.Context, args []string) error {
	fs := a.flags("aggregates recompute")
	apply := fs.Bool("apply", false, "overwrite stored totals with the recomputed ones")
	asJSON := fs.Bool("json", false, "print JSON")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	drifts := a.Store.AggregateDrifts()
	if err := a.render(*asJSON, drifts, func(w io.Writer) {
		fmt.Fprintln(w, "CLIENT\tVISITS\tSPENT\tLAST VISIT")
		for _, d := range drifts {
			fmt.Fprintf(w, "%s\t%d -> %d\t%s -> %s\t%s -> %s\n",
				d.Stored.Name,
				d.Stored.TotalVisits, d.Derived.TotalVisits,
				d.Stored.TotalSpent, d.Derived.TotalSpent,
				a.optDay(d.Stored.LastVisit), a.optDay(d.Derived.LastVisit))
		}
	}); err != nil {
		return err
	}
	if *apply {
		n := a.Store.ApplyDerivedAggregates(ctx)
		if !*asJSON {
			fmt.Fprintf(a.Out, "Updated %d clients\n", n)
		}
	}
	return nil
}
