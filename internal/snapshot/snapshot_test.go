package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"salon/internal/core"
	"salon/internal/storage/memory"
)

var fixedNow = time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)

func sampleState() core.State {
	s := DefaultSeed(fixedNow)
	final := core.Money{Cents: 17550}
	s.Appointments[0].Status = core.StatusCompleted
	s.Appointments[0].FinalPrice = &final
	s.Appointments[0].Notes = "a adus voucher"
	s.Expenses = []core.Expense{{
		ID: "e1", Category: "Produse", Description: "gel", Amount: core.Money{Cents: 4599},
		Date: core.DateOf(time.Date(2025, 1, 3, 15, 4, 5, 0, time.UTC)),
	}}
	return s
}

func statesEqual(t *testing.T, got, want core.State) {
	t.Helper()
	a, _ := json.Marshal(got)
	b, _ := json.Marshal(want)
	if string(a) != string(b) {
		t.Fatalf("states differ:\n got %s\nwant %s", a, b)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := sampleState()
	data, err := Encode(s)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	statesEqual(t, back, s)
	if !back.Clients[0].CreatedAt.Equal(s.Clients[0].CreatedAt.Time) {
		t.Errorf("createdAt not rehydrated by value")
	}
	if !back.Clients[0].LastVisit.Equal(s.Clients[0].LastVisit.Time) {
		t.Errorf("lastVisit not rehydrated by value")
	}
	if !back.Appointments[0].Date.Equal(fixedNow) {
		t.Errorf("appointment date = %v, want %v", back.Appointments[0].Date, fixedNow)
	}
}

func TestEncodeWritesExpectedShape(t *testing.T) {
	data, err := Encode(core.State{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if string(data) != `{"clients":[],"services":[],"appointments":[],"expenses":[]}` {
		t.Fatalf("unexpected empty encoding %s", data)
	}

	data, _ = Encode(sampleState())
	for _, want := range []string{`"clientId":`, `"finalPrice":175.5`, `"totalSpent":1850`, `"createdAt":"2024-01-15T00:00:00Z"`, `"status":"completed"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("encoded snapshot missing %s", want)
		}
	}
}

func TestDecodeAcceptsForeignClientSnapshot(t *testing.T) {
	doc := `{
		"clients":[{"id":"1","name":"Maria","phone":"0722","createdAt":"2024-01-15T00:00:00.000Z","lastVisit":"2024-12-28T00:00:00.000Z","totalVisits":12,"totalSpent":1850}],
		"appointments":[{"id":"a","clientId":"1","clientName":"Maria","serviceId":"1","serviceName":"Facial","date":"2025-01-06T08:12:00.000Z","time":"09:00","duration":60,"price":150,"status":"scheduled"}]
	}`
	s, err := Decode([]byte(doc))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(s.Services) != 0 || s.Services == nil || s.Expenses == nil {
		t.Errorf("missing collections should decode as empty, got %+v", s)
	}
	if s.Clients[0].TotalSpent.Cents != 185000 {
		t.Errorf("totalSpent = %d", s.Clients[0].TotalSpent.Cents)
	}
}

func TestDecodeFailures(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{"not json", `{"clients": [`, ErrMalformed},
		{"array", `[]`, ErrMalformed},
		{"null", `null`, ErrForeignShape},
		{"unrelated object", `{"theme":"dark"}`, ErrForeignShape},
		{"clients not a list", `{"clients":{"id":"1"}}`, ErrMalformed},
		{"bad date", `{"expenses":[{"id":"e","category":"x","description":"","amount":1,"date":"yesterday"}]}`, ErrMalformed},
		{"missing date", `{"expenses":[{"id":"e","category":"x","description":"","amount":1}]}`, ErrMalformed},
		{"bad status", `{"appointments":[{"id":"a","date":"2025-01-01","time":"09:00","status":"done"}]}`, ErrMalformed},
		{"string amount", `{"services":[{"id":"s","name":"x","price":"150"}]}`, ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.doc))
			if !errors.Is(err, tt.want) {
				t.Fatalf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExportDocument(t *testing.T) {
	s := sampleState()
	data, err := Export(s, fixedNow)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		t.Fatalf("export is not an object: %v", err)
	}
	if string(top["exportedAt"]) != `"2025-01-06T10:00:00Z"` {
		t.Errorf("exportedAt = %s", top["exportedAt"])
	}
	back, err := Decode(data)
	if err != nil {
		t.Fatalf("export does not decode: %v", err)
	}
	statesEqual(t, back, s)

	if got := BackupFileName(fixedNow); got != "beauty-salon-backup-2025-01-06.json" {
		t.Errorf("BackupFileName = %s", got)
	}
}

type failingKV struct{ memory.Store }

func (*failingKV) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("disk unplugged")
}

func TestPersisterLoad(t *testing.T) {
	ctx := context.Background()
	good, _ := Encode(sampleState())

	tests := []struct {
		name       string
		stored     map[string]string
		wantSource Source
		wantCount  int
	}{
		{"missing snapshot uses seed", nil, SourceSeed, 5},
		{"corrupt snapshot uses seed", map[string]string{StorageKey: "{oops"}, SourceRecovered, 5},
		{"foreign snapshot uses seed", map[string]string{StorageKey: `{"a":1}`}, SourceRecovered, 5},
		{"stored snapshot", map[string]string{StorageKey: string(good)}, SourceStored, 5},
		{"stored empty snapshot", map[string]string{StorageKey: `{"clients":[]}`}, SourceStored, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPersister(memory.NewWith(tt.stored), nil, nil)
			s, src, err := p.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if src != tt.wantSource || len(s.Clients) != tt.wantCount {
				t.Fatalf("Load = %s with %d clients, want %s with %d", src, len(s.Clients), tt.wantSource, tt.wantCount)
			}
		})
	}

	p := NewPersister(&failingKV{}, nil, nil)
	if _, _, err := p.Load(ctx); err == nil {
		t.Fatalf("expected storage error to surface")
	}
}

func TestPersisterSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	p := NewPersister(kv, nil, nil)

	s := sampleState()
	if err := p.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s.Clients = s.Clients[:1]
	if err := p.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	back, src, err := p.Load(ctx)
	if err != nil || src != SourceStored {
		t.Fatalf("Load = %s, %v", src, err)
	}
	if len(back.Clients) != 1 {
		t.Fatalf("last write did not win: %d clients", len(back.Clients))
	}
}

func TestDefaultSeed(t *testing.T) {
	s := DefaultSeed(fixedNow)
	if len(s.Services) != 8 || len(s.Clients) != 5 || len(s.Appointments) != 4 || len(s.Expenses) != 0 {
		t.Fatalf("unexpected seed sizes %d/%d/%d/%d", len(s.Services), len(s.Clients), len(s.Appointments), len(s.Expenses))
	}
	again := DefaultSeed(fixedNow)
	if s.Clients[0].ID != again.Clients[0].ID {
		t.Errorf("seed ids not stable")
	}
	a := s.Appointments[1]
	if a.ServiceName != "Extensii Gene" || a.Price.Cents != 25000 || a.Duration != 120 || a.ClientName != "Elena Ionescu" {
		t.Errorf("appointment not denormalized from seed catalogue: %+v", a)
	}
	for _, app := range s.Appointments {
		if err := app.Validate(); err != nil {
			t.Errorf("seed appointment invalid: %v", err)
		}
	}
}

func TestSeedFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	content := `
services:
  - name: Tuns
    category: Coafor
    duration: 30
    price: 60
clients:
  - name: Ioana
    phone: "0700 000 000"
appointments:
  - client: 1
    service: 1
    days_from_today: 1
    time: "11:00"
expenses:
  - category: Chirie
    description: ianuarie
    amount: 1500.5
    days_ago: 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	seed, err := SeedFromFile(path)
	if err != nil {
		t.Fatalf("SeedFromFile: %v", err)
	}
	s := seed(fixedNow)
	if len(s.Services) != 1 || len(s.Clients) != 1 || len(s.Appointments) != 1 || len(s.Expenses) != 1 {
		t.Fatalf("unexpected seed %+v", s)
	}
	if s.Appointments[0].ServiceName != "Tuns" || !s.Appointments[0].Date.Equal(fixedNow.AddDate(0, 0, 1)) {
		t.Errorf("unexpected appointment %+v", s.Appointments[0])
	}
	if s.Expenses[0].Amount.Cents != 150050 {
		t.Errorf("amount = %d", s.Expenses[0].Amount.Cents)
	}
}

func TestSeedFromFileRejectsBadEntries(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"bad yaml":         "services: [",
		"zero duration":    "services:\n  - name: X\n    duration: 0\n",
		"index out of rng": "appointments:\n  - client: 9\n    service: 1\n    time: \"10:00\"\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(name, " ", "_")+".yaml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := SeedFromFile(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
