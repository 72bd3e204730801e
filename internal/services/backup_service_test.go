package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"salon/internal/amqp"
	"salon/internal/core"
	applog "salon/internal/log"
	"salon/internal/snapshot"
)

func newTestBackups(s *DataStore) *BackupService {
	b := NewBackupService(s, nil)
	b.now = func() time.Time { return testNow }
	return b
}

func encodeClients(t *testing.T, clients []core.Client) string {
	t.Helper()
	data, err := json.Marshal(clients)
	if err != nil {
		t.Fatalf("marshal clients: %v", err)
	}
	return string(data)
}

func TestExportDeleteImportRestoresClients(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(snapshot.DefaultSeed(testNow), AggregatesIncremental)
	b := newTestBackups(s)
	before := encodeClients(t, s.Snapshot().Clients)

	bk, err := b.Export()
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if bk.FileName != "beauty-salon-backup-2025-01-06.json" {
		t.Errorf("FileName = %q", bk.FileName)
	}
	if !bytes.Contains(bk.Document, []byte(`"exportedAt"`)) {
		t.Error("export document has no exportedAt")
	}

	for _, c := range s.Snapshot().Clients {
		s.DeleteClient(ctx, c.ID)
	}
	if len(s.Snapshot().Clients) != 0 {
		t.Fatal("clients not deleted")
	}

	ok, err := b.Import(ctx, bk.Document)
	if !ok || err != nil {
		t.Fatalf("Import = %v, %v", ok, err)
	}
	if after := encodeClients(t, s.Snapshot().Clients); after != before {
		t.Errorf("clients not restored:\n got %s\nwant %s", after, before)
	}
}

func TestImportIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(snapshot.DefaultSeed(testNow), AggregatesIncremental)
	b := newTestBackups(s)

	bk, _ := b.Export()
	if ok, err := b.Import(ctx, bk.Document); !ok || err != nil {
		t.Fatalf("first Import = %v, %v", ok, err)
	}
	first, _ := b.Export()
	if ok, err := b.Import(ctx, bk.Document); !ok || err != nil {
		t.Fatalf("second Import = %v, %v", ok, err)
	}
	second, _ := b.Export()
	if !bytes.Equal(first.Document, second.Document) {
		t.Error("importing the same document twice changed the state")
	}
	if !bytes.Equal(bk.Document, first.Document) {
		t.Error("import then export does not reproduce the document")
	}
}

func TestMalformedImportLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(snapshot.DefaultSeed(testNow), AggregatesIncremental)
	b := newTestBackups(s)
	before, _ := b.Export()

	for _, doc := range []string{
		`not json`,
		`[1, 2, 3]`,
		`{"foo": "bar"}`,
		`{"appointments": [{"id": "a", "status": "done", "date": "2025-01-01"}]}`,
		`{"clients": "nope"}`,
	} {
		ok, err := b.Import(ctx, []byte(doc))
		if ok || err == nil {
			t.Errorf("Import(%s) = %v, %v", doc, ok, err)
		}
	}
	after, _ := b.Export()
	if !bytes.Equal(before.Document, after.Document) || s.Revision() != 0 {
		t.Error("rejected import modified the state")
	}
}

func TestImportFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(fixtureState(), AggregatesIncremental)
	b := newTestBackups(s)

	path := filepath.Join(t.TempDir(), "backup.json")
	if err := os.WriteFile(path, []byte(`{"clients": [{"id": "x", "name": "Ana", "createdAt": "2024-05-01T00:00:00.000Z"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	ok, err := b.ImportFile(ctx, path)
	if !ok || err != nil {
		t.Fatalf("ImportFile = %v, %v", ok, err)
	}
	st := s.Snapshot()
	if len(st.Clients) != 1 || st.Clients[0].Name != "Ana" || len(st.Services) != 0 {
		t.Errorf("state after partial import = %+v", st)
	}
	if _, err := b.ImportFile(ctx, filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDeliverToSinks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(fixtureState(), AggregatesIncremental)
	b := newTestBackups(s)
	dir := t.TempDir()
	var out bytes.Buffer
	rec := &recordingSink{name: "rec"}

	bk, err := b.Deliver(ctx, FileSink{Dir: dir}, WriterSink{W: &out}, rec)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	written, err := os.ReadFile(filepath.Join(dir, bk.FileName))
	if err != nil {
		t.Fatalf("read backup file: %v", err)
	}
	if !bytes.Equal(written, bk.Document) {
		t.Error("file sink wrote a different document")
	}
	if strings.TrimSpace(out.String()) != string(bk.Document) {
		t.Error("writer sink wrote a different document")
	}
	if len(rec.got) != 1 {
		t.Errorf("recording sink got %d backups", len(rec.got))
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("backup dir has %d entries, want 1", len(entries))
	}
}

func TestDeliverJoinsSinkErrors(t *testing.T) {
	ctx := context.Background()
	b := newTestBackups(newTestStore(fixtureState(), AggregatesIncremental))
	broken := &recordingSink{name: "broken", err: errors.New("offline")}
	ok := &recordingSink{name: "ok"}

	_, err := b.Deliver(ctx, broken, ok)
	if !errors.Is(err, ErrDelivery) {
		t.Fatalf("error = %v, want ErrDelivery", err)
	}
	if !strings.Contains(err.Error(), "broken: offline") {
		t.Errorf("error does not name the sink: %v", err)
	}
	if len(ok.got) != 1 {
		t.Error("healthy sink was skipped after a failure")
	}
}

type fakePublisher struct {
	msgs []*amqp.BackupMessage
}

func (f *fakePublisher) PublishBackup(_ context.Context, msg *amqp.BackupMessage) error {
	f.msgs = append(f.msgs, msg)
	return nil
}

func TestAMQPSinkPublishesDocument(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(fixtureState(), AggregatesIncremental)
	s.AddClient(ctx, core.Client{Name: "Ana"})
	b := newTestBackups(s)
	pub := &fakePublisher{}

	bk, err := b.Deliver(ctx, AMQPSink{Publisher: pub})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(pub.msgs) != 1 {
		t.Fatalf("published %d messages", len(pub.msgs))
	}
	msg := pub.msgs[0]
	if msg.FileName != bk.FileName || msg.Revision != 1 || !bytes.Equal(msg.Document, bk.Document) {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestFileSinkLogsThroughContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{
		Level:   slog.LevelDebug,
		Handler: slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
	ctx := applog.NewContext(context.Background(), logger)
	dir := t.TempDir()

	bk := Backup{FileName: "beauty-salon-backup-2025-01-06.json", Document: []byte(`{"clients":[]}`)}
	if err := (FileSink{Dir: dir}).Deliver(ctx, bk); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if !strings.Contains(buf.String(), "Backup written") || !strings.Contains(buf.String(), filepath.Join(dir, bk.FileName)) {
		t.Errorf("log output = %q", buf.String())
	}
}
