package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"salon/internal/core"
	"salon/internal/report"
	"salon/internal/sheets"
)

func (a *App) reportCmd(ctx context.Context, args []string) error {
	fs := a.flags("report")
	period := fs.String("period", string(report.PeriodMonth), "day, week, month, quarter or year")
	from := fs.String("from", "", "first day of a custom range (YYYY-MM-DD)")
	to := fs.String("to", "", "last day of a custom range (YYYY-MM-DD)")
	publish := fs.Bool("publish", false, "also write the summary row to the report spreadsheet")
	asJSON := fs.Bool("json", false, "print JSON")
	if _, err := parse(fs, args); err != nil {
		return err
	}

	var (
		rep core.Report
		err error
		p   = report.Period(*period)
	)
	switch {
	case *from != "" || *to != "":
		if *from == "" || *to == "" {
			return fmt.Errorf("%w: -from and -to go together", ErrUsage)
		}
		f, err := a.parseDay(*from)
		if err != nil {
			return err
		}
		t, err := a.parseDay(*to)
		if err != nil {
			return err
		}
		p = ""
		rep, err = a.Reports.ReportBetween(ctx, f.Time, t.Time)
		if err != nil {
			return err
		}
	default:
		if rep, err = a.Reports.ReportForPeriod(ctx, p); err != nil {
			return err
		}
	}

	if *publish {
		if err := a.publish(ctx, periodLabel(p, rep), rep); err != nil {
			return err
		}
	}
	return a.render(*asJSON, rep, func(w io.Writer) { a.writeReport(w, rep) })
}

func (a *App) publish(ctx context.Context, label string, rep core.Report) error {
	if a.Sheets == nil {
		return errors.New("report publishing is not available")
	}
	pub, err := a.Sheets(ctx)
	if err != nil {
		return err
	}
	if pub == nil {
		return errors.New("no report spreadsheet configured (set GOOGLE_SPREADSHEET_ID)")
	}
	ref, err := pub.PublishReport(ctx, sheets.RowFromReport(label, rep))
	if err != nil {
		return fmt.Errorf("publish report: %w", err)
	}
	a.Logger.InfoContext(ctx, "Report published", "period", label, "ref", ref)
	return nil
}

// periodLabel names the row a report is published under. Custom ranges are
// labelled by their bounds.
func periodLabel(p report.Period, rep core.Report) string {
	switch p {
	case report.PeriodDay:
		return rep.From.Format("2006-01-02")
	case report.PeriodWeek:
		y, w := rep.From.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case report.PeriodMonth:
		return rep.From.Format("2006-01")
	case report.PeriodQuarter:
		return fmt.Sprintf("%d-Q%d", rep.From.Year(), (int(rep.From.Month())-1)/3+1)
	case report.PeriodYear:
		return rep.From.Format("2006")
	}
	return rep.From.Format("2006-01-02") + ".." + rep.To.Format("2006-01-02")
}

func (a *App) writeReport(w io.Writer, rep core.Report) {
	fmt.Fprintf(w, "Period:\t%s .. %s\n", rep.From.Format("2006-01-02"), rep.To.Format("2006-01-02"))
	fmt.Fprintf(w, "Revenue:\t%s\n", rep.Revenue)
	fmt.Fprintf(w, "Expenses:\t%s\n", rep.Expenses)
	fmt.Fprintf(w, "Profit:\t%s\n", rep.Profit)
	fmt.Fprintf(w, "Appointments:\t%d (%d completed, %d cancelled)\n", rep.Appointments, rep.Completed, rep.Cancelled)

	fmt.Fprintf(w, "\n%s\tREVENUE\tEXPENSES\n", granularityTitle(rep.Granularity))
	for _, b := range rep.Series {
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.Label, b.Revenue, b.Expenses)
	}

	if len(rep.TopServices) > 0 {
		fmt.Fprintln(w, "\nTOP SERVICES\tCOUNT\tREVENUE")
		for _, s := range rep.TopServices {
			fmt.Fprintf(w, "%s\t%d\t%s\n", s.Name, s.Count, s.Revenue)
		}
	}
	if len(rep.TopClientsByVisits) > 0 {
		fmt.Fprintln(w, "\nTOP CLIENTS (VISITS)\tVISITS\tREVENUE")
		for _, c := range rep.TopClientsByVisits {
			fmt.Fprintf(w, "%s\t%d\t%s\n", c.Name, c.Visits, c.Revenue)
		}
	}
	if len(rep.TopClientsByRevenue) > 0 {
		fmt.Fprintln(w, "\nTOP CLIENTS (REVENUE)\tVISITS\tREVENUE")
		for _, c := range rep.TopClientsByRevenue {
			fmt.Fprintf(w, "%s\t%d\t%s\n", c.Name, c.Visits, c.Revenue)
		}
	}
	if len(rep.ExpenseBreakdown) > 0 {
		fmt.Fprintln(w, "\nEXPENSE CATEGORY\tAMOUNT\t")
		for _, c := range rep.ExpenseBreakdown {
			fmt.Fprintf(w, "%s\t%s\t\n", c.Name, c.Amount)
		}
	}
}

func granularityTitle(g core.Granularity) string {
	switch g {
	case core.ByWeek:
		return "WEEK"
	case core.ByMonth:
		return "MONTH"
	}
	return "DAY"
}

func (a *App) dashboardCmd(_ context.Context, args []string) error {
	fs := a.flags("dashboard")
	asJSON := fs.Bool("json", false, "print JSON")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	d := a.Reports.Dashboard()
	return a.render(*asJSON, d, func(w io.Writer) {
		fmt.Fprintf(w, "Today:\t%s\n", d.Day)
		fmt.Fprintf(w, "Scheduled today:\t%d\n", d.ScheduledToday)
		fmt.Fprintf(w, "Hours booked:\t%.1f\n", d.HoursBookedToday)
		fmt.Fprintf(w, "Revenue today:\t%s\n", d.RevenueToday)
		fmt.Fprintf(w, "Month revenue:\t%s\n", d.MonthRevenue)
		fmt.Fprintf(w, "Month expenses:\t%s\n", d.MonthExpenses)
		fmt.Fprintf(w, "Month profit:\t%s\n", d.MonthProfit)
		fmt.Fprintf(w, "Active clients:\t%d\n", d.ActiveClientsMonth)
	})
}
