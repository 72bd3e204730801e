package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	applog "salon/internal/log"
	ports "salon/internal/sheets"
)

// Client writes report rows to one sheet per year, named "<year> <base>".
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *applog.Logger
}

// Ensure interface conformance
var (
	_ ports.ReportPublisher = (*Client)(nil)
	_ ports.ReportLister    = (*Client)(nil)
)

// Options configures New. One of CredentialsJSON or CredentialsFile must
// hold a service account key.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

func New(ctx context.Context, opts Options, logger *applog.Logger) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentSheets)

	svc, err := newSheetsService(ctx, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	base := strings.TrimSpace(opts.SheetName)
	if base == "" {
		base = "Reports"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(opts.SpreadsheetID),
		sheetBase:     base,
		logger:        logger,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, opts Options, logger *applog.Logger) (*gsheet.Service, error) {
	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		logger.DebugContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(opts.CredentialsJSON)
	case strings.TrimSpace(opts.CredentialsFile) != "":
		logger.DebugContext(ctx, "Reading credentials from file", applog.FieldPath, opts.CredentialsFile)
		b, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// PublishReport overwrites the row whose first cell matches row.Period, or
// appends a new one. An empty sheet gets the header first.
func (c *Client) PublishReport(ctx context.Context, row ports.ReportRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if row.Period == "" {
		return "", errors.New("report row without period")
	}
	sheet := yearPrefixedName(c.sheetBase, row.Year())

	rng := fmt.Sprintf("%s!A:A", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to read periods from %s: %w", sheet, err)
	}

	target := findPeriodRow(resp.Values, row.Period)
	if len(resp.Values) == 0 {
		if err := c.writeRow(ctx, sheet, 1, headerValues()); err != nil {
			return "", fmt.Errorf("write header: %w", err)
		}
		target = 2
	} else if target == 0 {
		target = len(resp.Values) + 1
	}

	if err := c.writeRow(ctx, sheet, target, row.Values()); err != nil {
		return "", err
	}
	ref := fmt.Sprintf("%s!A%d:J%d", sheet, target, target)
	c.logger.InfoContext(ctx, "Published report row", applog.FieldSheetsRef, ref, "period", row.Period)
	return ref, nil
}

func (c *Client) writeRow(ctx context.Context, sheet string, n int, values []any) error {
	dataRange := fmt.Sprintf("%s!A%d:J%d", sheet, n, n)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", dataRange, err)
	}
	return nil
}

// ListReports reads every report row of the year sheet, skipping the
// header and rows it cannot parse.
func (c *Client) ListReports(ctx context.Context, year int) ([]ports.ReportRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A2:J", yearPrefixedName(c.sheetBase, year))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseRows(ctx, c.logger, resp.Values), nil
}

func parseRows(ctx context.Context, logger *applog.Logger, values [][]any) []ports.ReportRow {
	out := make([]ports.ReportRow, 0, len(values))
	for i, cells := range values {
		row, err := ports.ParseRow(cells)
		if err != nil {
			logger.WarnContext(ctx, "Skipping unreadable report row", "row", i+2, applog.FieldError, err)
			continue
		}
		out = append(out, row)
	}
	return out
}

// findPeriodRow returns the 1-based row whose first cell is period, or 0.
// Row 1 is the header and never matches.
func findPeriodRow(values [][]any, period string) int {
	for i, cells := range values {
		if i == 0 || len(cells) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(cells[0])) == period {
			return i + 1
		}
	}
	return 0
}

func headerValues() []any {
	out := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		out[i] = h
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
