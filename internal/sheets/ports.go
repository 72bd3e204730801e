// Package sheets publishes period reports as spreadsheet rows.
package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"salon/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportPublisher writes one row per period, replacing an earlier row
	// for the same period.
	ReportPublisher interface {
		PublishReport(ctx context.Context, row ReportRow) (rowRef string, err error)
	}

	// ReportLister returns the rows already published for a year.
	ReportLister interface {
		ListReports(ctx context.Context, year int) ([]ReportRow, error)
	}
)

// Header is the first row of a report sheet.
var Header = []string{"Period", "From", "To", "Revenue", "Expenses", "Profit", "Appointments", "Completed", "Cancelled", "Top service"}

// ReportRow is the spreadsheet form of a core.Report.
type ReportRow struct {
	Period       string
	From         string
	To           string
	Revenue      core.Money
	Expenses     core.Money
	Profit       core.Money
	Appointments int
	Completed    int
	Cancelled    int
	TopService   string
}

// Year is the calendar year the row's period starts in, used to pick the
// year sheet.
func (r ReportRow) Year() int {
	if len(r.From) >= 4 {
		if y, err := strconv.Atoi(r.From[:4]); err == nil {
			return y
		}
	}
	return 0
}

// RowFromReport labels rep with period and flattens it.
func RowFromReport(period string, rep core.Report) ReportRow {
	row := ReportRow{
		Period:       period,
		From:         rep.From.Format("2006-01-02"),
		To:           rep.To.Format("2006-01-02"),
		Revenue:      rep.Revenue,
		Expenses:     rep.Expenses,
		Profit:       rep.Profit,
		Appointments: rep.Appointments,
		Completed:    rep.Completed,
		Cancelled:    rep.Cancelled,
	}
	if len(rep.TopServices) > 0 {
		row.TopService = rep.TopServices[0].Name
	}
	return row
}

// Values returns the cells of the row, amounts as plain decimals.
func (r ReportRow) Values() []any {
	return []any{
		r.Period, r.From, r.To,
		r.Revenue.Major(), r.Expenses.Major(), r.Profit.Major(),
		r.Appointments, r.Completed, r.Cancelled,
		r.TopService,
	}
}

// ParseRow reads a row written by Values. Cells may come back as numbers
// or as formatted strings.
func ParseRow(cells []any) (ReportRow, error) {
	cols := make([]string, len(Header))
	for i := 0; i < len(cells) && i < len(cols); i++ {
		cols[i] = cellString(cells[i])
	}
	if cols[0] == "" {
		return ReportRow{}, fmt.Errorf("row without period")
	}

	row := ReportRow{Period: cols[0], From: cols[1], To: cols[2], TopService: cols[9]}
	var err error
	for i, dst := range []*core.Money{&row.Revenue, &row.Expenses, &row.Profit} {
		if *dst, err = parseMoney(cols[3+i]); err != nil {
			return ReportRow{}, fmt.Errorf("column %s: %w", Header[3+i], err)
		}
	}
	for i, dst := range []*int{&row.Appointments, &row.Completed, &row.Cancelled} {
		if cols[6+i] == "" {
			continue
		}
		if *dst, err = strconv.Atoi(cols[6+i]); err != nil {
			return ReportRow{}, fmt.Errorf("column %s: %w", Header[6+i], err)
		}
	}
	return row, nil
}

func cellString(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case nil:
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func parseMoney(s string) (core.Money, error) {
	if s == "" {
		return core.Money{}, nil
	}
	neg := strings.HasPrefix(s, "-")
	m, err := core.ParseAmount(strings.TrimPrefix(s, "-"))
	if err != nil {
		return core.Money{}, err
	}
	if neg {
		m.Cents = -m.Cents
	}
	return m, nil
}
