package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"salon/internal/core"
	"salon/internal/report"
	"salon/internal/services"
	"salon/internal/settings"
	"salon/internal/sheets"
	sheetsmem "salon/internal/sheets/memory"
	"salon/internal/storage/memory"
)

type testApp struct {
	*App
	out    *bytes.Buffer
	sheets *sheetsmem.Store
}

func newTestApp(t *testing.T) testApp {
	t.Helper()
	store := services.NewDataStore(core.State{}, services.DataStoreConfig{Location: time.UTC})
	set := settings.NewManager(memory.New(), nil)
	out := &bytes.Buffer{}
	pub := sheetsmem.New()
	app := &App{
		Store:     store,
		Settings:  set,
		Backups:   services.NewBackupService(store, nil),
		Reports:   services.NewReportService(store, set, nil, nil),
		Location:  time.UTC,
		BackupDir: t.TempDir(),
		Sheets: func(context.Context) (sheets.ReportPublisher, error) {
			return pub, nil
		},
		Out: out,
	}
	return testApp{App: app, out: out, sheets: pub}
}

// run executes one command line and returns what it printed.
func (a testApp) run(t *testing.T, line ...string) string {
	t.Helper()
	a.out.Reset()
	if err := a.Run(context.Background(), line); err != nil {
		t.Fatalf("salon %s: %v", strings.Join(line, " "), err)
	}
	return a.out.String()
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
	return v
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}

func TestClientLifecycle(t *testing.T) {
	app := newTestApp(t)

	c := decode[core.Client](t, app.run(t, "client", "add", "-name", "Maria Popescu", "-phone", "0722 123 456", "-json"))
	if c.ID == "" || c.Name != "Maria Popescu" || c.TotalVisits != 0 {
		t.Fatalf("added client = %+v", c)
	}

	app.run(t, "client", "update", c.ID, "-notes", "Preferă dimineața")
	got, _ := app.Store.Client(c.ID)
	if got.Notes != "Preferă dimineața" || got.Phone != "0722 123 456" {
		t.Errorf("update touched other fields: %+v", got)
	}

	out := app.run(t, "client", "list", "-search", "maria")
	if !strings.Contains(out, "Maria Popescu") || !strings.HasPrefix(out, "ID") {
		t.Errorf("list output:\n%s", out)
	}
	if out := app.run(t, "client", "list", "-search", "nobody", "-json"); strings.TrimSpace(out) != "[]" {
		t.Errorf("empty search = %s", out)
	}

	app.run(t, "client", "delete", c.ID)
	if _, ok := app.Store.Client(c.ID); ok {
		t.Error("client still present after delete")
	}
}

func TestUnknownIDReportsNotFound(t *testing.T) {
	app := newTestApp(t)
	for _, line := range [][]string{
		{"client", "delete", "missing"},
		{"client", "show", "missing"},
		{"service", "update", "missing", "-name", "x"},
		{"appointment", "cancel", "missing"},
		{"expense", "delete", "missing"},
		{"category", "delete", "missing"},
	} {
		err := app.Run(context.Background(), line)
		if !errors.Is(err, services.ErrNotFound) {
			t.Errorf("salon %s: error = %v", strings.Join(line, " "), err)
		}
	}
	if app.Store.Revision() != 0 {
		t.Error("state changed")
	}
}

func TestUsageErrors(t *testing.T) {
	app := newTestApp(t)
	for _, line := range [][]string{
		{"nope"},
		{"client"},
		{"client", "frobnicate"},
		{"client", "show"},
		{"settings", "set", "themeMode"},
		{"report", "-from", "2025-01-01"},
		{"export", "-sink", "ftp"},
	} {
		if err := app.Run(context.Background(), line); !errors.Is(err, ErrUsage) {
			t.Errorf("salon %s: error = %v, want usage", strings.Join(line, " "), err)
		}
	}

	if err := app.Run(context.Background(), nil); err != nil {
		t.Errorf("no args: %v", err)
	}
	if !strings.Contains(app.out.String(), "appointment") {
		t.Errorf("usage does not list commands:\n%s", app.out.String())
	}
}

func TestBookCompleteAndReport(t *testing.T) {
	app := newTestApp(t)
	c := decode[core.Client](t, app.run(t, "client", "add", "-name", "Elena", "-json"))
	s := decode[core.Service](t, app.run(t, "service", "add", "-name", "Tratament Facial", "-category", "Facial", "-duration", "60", "-price", "150", "-json"))

	ap := decode[core.Appointment](t, app.run(t, "appointment", "book", "-client", c.ID, "-service", s.ID, "-date", today(), "-time", "10:00", "-json"))
	if ap.Price.Cents != 15000 || ap.ServiceName != "Tratament Facial" || ap.Status != core.StatusScheduled {
		t.Fatalf("booked = %+v", ap)
	}
	client, _ := app.Store.Client(c.ID)
	if client.TotalVisits != 1 || client.TotalSpent.Cents != 15000 {
		t.Errorf("client after booking = %+v", client)
	}

	app.run(t, "appointment", "complete", ap.ID, "-final-price", "180")
	if err := app.Run(context.Background(), []string{"appointment", "cancel", ap.ID}); !errors.Is(err, services.ErrInvalidTransition) {
		t.Errorf("cancel completed = %v", err)
	}

	rep := decode[core.Report](t, app.run(t, "report", "-period", "day", "-json"))
	if rep.Revenue.Cents != 18000 || rep.Completed != 1 || len(rep.TopServices) != 1 {
		t.Errorf("day report = %+v", rep)
	}
	client, _ = app.Store.Client(c.ID)
	if client.TotalSpent.Cents != 15000 {
		t.Errorf("completion changed totalSpent to %d", client.TotalSpent.Cents)
	}

	list := decode[[]core.Appointment](t, app.run(t, "appointment", "list", "-date", today(), "-status", "completed", "-json"))
	if len(list) != 1 || list[0].FinalPrice == nil || list[0].FinalPrice.Cents != 18000 {
		t.Errorf("list = %+v", list)
	}

	d := decode[core.DashboardStats](t, app.run(t, "dashboard", "-json"))
	if d.RevenueToday.Cents != 18000 {
		t.Errorf("dashboard = %+v", d)
	}
	if out := app.run(t, "report"); !strings.Contains(out, "Revenue:") || !strings.Contains(out, "Tratament Facial") {
		t.Errorf("text report:\n%s", out)
	}
}

func TestAppointmentReschedule(t *testing.T) {
	app := newTestApp(t)
	c := decode[core.Client](t, app.run(t, "client", "add", "-name", "Elena", "-json"))
	s := decode[core.Service](t, app.run(t, "service", "add", "-name", "Masaj", "-duration", "45", "-price", "120", "-json"))
	ap := decode[core.Appointment](t, app.run(t, "appointment", "book", "-client", c.ID, "-service", s.ID, "-date", "2025-03-03", "-time", "10:00", "-json"))

	app.run(t, "appointment", "update", ap.ID, "-date", "2025-03-05", "-time", "15:15")
	if list := decode[[]core.Appointment](t, app.run(t, "appointment", "list", "-date", "2025-03-03", "-json")); len(list) != 0 {
		t.Errorf("old day still lists %+v", list)
	}
	list := decode[[]core.Appointment](t, app.run(t, "appointment", "list", "-date", "2025-03-05", "-json"))
	if len(list) != 1 || list[0].Time != "15:15" || list[0].ServiceName != "Masaj" {
		t.Errorf("new day = %+v", list)
	}
}

func TestReportPublish(t *testing.T) {
	app := newTestApp(t)
	app.run(t, "expense", "add", "-category", "produse", "-amount", "100", "-date", today())
	app.run(t, "expense", "add", "-category", "Produse", "-amount", "50.50", "-date", today())

	rep := decode[core.Report](t, app.run(t, "report", "-publish", "-json"))
	if len(rep.ExpenseBreakdown) != 1 || rep.ExpenseBreakdown[0].Name != "Produse" || rep.ExpenseBreakdown[0].Amount.Cents != 15050 {
		t.Errorf("breakdown = %+v", rep.ExpenseBreakdown)
	}

	rows, _ := app.sheets.ListReports(context.Background(), time.Now().UTC().Year())
	if len(rows) != 1 || rows[0].Period != time.Now().UTC().Format("2006-01") || rows[0].Expenses.Cents != 15050 {
		t.Errorf("published rows = %+v", rows)
	}
}

func TestExpenseListAndUpdate(t *testing.T) {
	app := newTestApp(t)
	e := decode[core.Expense](t, app.run(t, "expense", "add", "-category", "Chirie", "-amount", "2000", "-json"))
	if e.Date.IsZero() {
		t.Fatal("expense without -date got no date")
	}
	app.run(t, "expense", "update", e.ID, "-amount", "2100", "-date", "2025-01-01")
	got, _ := app.Store.Expense(e.ID)
	if got.Amount.Cents != 210000 || got.Date.CalendarDay(time.UTC) != "2025-01-01" {
		t.Errorf("updated expense = %+v", got)
	}
	if out := app.run(t, "expense", "list", "-category", "chirie"); !strings.Contains(out, "2100.00") {
		t.Errorf("list output:\n%s", out)
	}
}

func TestExportAndImport(t *testing.T) {
	app := newTestApp(t)
	app.run(t, "client", "add", "-name", "Ana")
	app.run(t, "client", "add", "-name", "Irina")

	app.run(t, "export", "-sink", "file")
	entries, err := os.ReadDir(app.BackupDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("backup dir: %v, %d entries", err, len(entries))
	}
	path := filepath.Join(app.BackupDir, entries[0].Name())

	stdout := app.run(t, "export", "-sink", "stdout")
	if !strings.Contains(stdout, `"exportedAt"`) || !strings.Contains(stdout, "Irina") {
		t.Errorf("stdout export:\n%s", stdout)
	}

	for _, c := range app.Store.Clients("") {
		app.run(t, "client", "delete", c.ID)
	}
	out := app.run(t, "import", path)
	if !strings.Contains(out, "Imported 2 clients") {
		t.Errorf("import output: %s", out)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte(`{"hello": "world"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := app.Run(context.Background(), []string{"import", bad}); err == nil {
		t.Error("foreign document imported")
	}
	if len(app.Store.Clients("")) != 2 {
		t.Error("failed import changed the clients")
	}
}

func TestCategoriesAndSettings(t *testing.T) {
	app := newTestApp(t)

	c := decode[core.Category](t, app.run(t, "category", "add", "-type", "expense", "-json", "Curățenie"))
	if c.Name != "Curățenie" || c.Type != core.CategoryExpense {
		t.Fatalf("added = %+v", c)
	}
	if err := app.Run(context.Background(), []string{"category", "add", "-type", "expense", "curățenie"}); !errors.Is(err, settings.ErrDuplicateCategory) {
		t.Errorf("duplicate add error = %v", err)
	}
	app.run(t, "category", "rename", c.ID, "Curățenie", "generală")
	list := decode[[]core.Category](t, app.run(t, "category", "list", "-type", "expense", "-json"))
	if list[len(list)-1].Name != "Curățenie generală" {
		t.Errorf("renamed list = %+v", list)
	}

	app.run(t, "settings", "set", "themeMode", "dark")
	s := decode[settings.Settings](t, app.run(t, "settings", "show", "-json"))
	if s.ThemeMode != "dark" || s.Language != "ro" {
		t.Errorf("settings = %+v", s)
	}
	if err := app.Run(context.Background(), []string{"settings", "set", "language", "de"}); !errors.Is(err, settings.ErrInvalidValue) {
		t.Errorf("invalid language error = %v", err)
	}
}

func TestAggregatesRecompute(t *testing.T) {
	app := newTestApp(t)
	c := decode[core.Client](t, app.run(t, "client", "add", "-name", "Ana", "-json"))
	ap := decode[core.Appointment](t, app.run(t, "appointment", "add",
		"-client-id", c.ID, "-client-name", "Ana", "-service-id", "s1", "-service-name", "Masaj",
		"-date", today(), "-time", "09:00", "-duration", "60", "-price", "200", "-json"))
	app.run(t, "appointment", "cancel", ap.ID)

	drifts := decode[[]services.AggregateDrift](t, app.run(t, "aggregates", "recompute", "-json"))
	if len(drifts) != 1 || drifts[0].Stored.TotalVisits != 1 || drifts[0].Derived.TotalVisits != 0 {
		t.Fatalf("drifts = %+v", drifts)
	}
	if out := app.run(t, "aggregates", "recompute", "-apply"); !strings.Contains(out, "Updated 1 clients") {
		t.Errorf("apply output:\n%s", out)
	}
	if got, _ := app.Store.Client(c.ID); got.TotalVisits != 0 || got.TotalSpent.Cents != 0 {
		t.Errorf("client after apply = %+v", got)
	}
}

func TestParseAcceptsFlagsAfterPositionals(t *testing.T) {
	fs := flag.NewFlagSet("t", flag.ContinueOnError)
	name := fs.String("name", "", "")
	pos, err := parse(fs, []string{"id-1", "-name", "Ana", "extra"})
	if err != nil {
		t.Fatal(err)
	}
	if *name != "Ana" || len(pos) != 2 || pos[0] != "id-1" || pos[1] != "extra" {
		t.Errorf("name=%q pos=%v", *name, pos)
	}
}

func TestPeriodLabel(t *testing.T) {
	rep := core.Report{
		From: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 2, 16, 23, 59, 59, 0, time.UTC),
	}
	tests := []struct {
		period report.Period
		want   string
	}{
		{report.PeriodDay, "2025-02-10"},
		{report.PeriodWeek, "2025-W07"},
		{report.PeriodMonth, "2025-02"},
		{report.PeriodQuarter, "2025-Q1"},
		{report.PeriodYear, "2025"},
		{"", "2025-02-10..2025-02-16"},
	}
	for _, tt := range tests {
		if got := periodLabel(tt.period, rep); got != tt.want {
			t.Errorf("periodLabel(%q) = %q, want %q", tt.period, got, tt.want)
		}
	}
}
