package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"salon/internal/amqp"
	applog "salon/internal/log"
	"salon/internal/snapshot"
)

// ErrDelivery wraps failures to hand an export to a sink. It never means
// the document itself was bad.
var ErrDelivery = errors.New("backup delivery failed")

// Backup is one export document ready for delivery.
type Backup struct {
	FileName   string
	ExportedAt time.Time
	Revision   uint64
	Document   []byte
}

// BackupSink delivers an export somewhere outside the process.
type BackupSink interface {
	Name() string
	Deliver(ctx context.Context, b Backup) error
}

// BackupService exports and restores the store's state.
type BackupService struct {
	store  *DataStore
	now    func() time.Time
	logger *applog.Logger
}

func NewBackupService(store *DataStore, logger *applog.Logger) *BackupService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &BackupService{
		store:  store,
		now:    time.Now,
		logger: logger.WithComponent(applog.ComponentBackup),
	}
}

// Export returns the export document for the current state.
func (b *BackupService) Export() (Backup, error) {
	st, rev := b.store.SnapshotAt()
	at := b.now()
	doc, err := snapshot.Export(st, at)
	if err != nil {
		return Backup{}, fmt.Errorf("export snapshot: %w", err)
	}
	return Backup{
		FileName:   b.FileName(at),
		ExportedAt: at,
		Revision:   rev,
		Document:   doc,
	}, nil
}

func (b *BackupService) FileName(t time.Time) string {
	return snapshot.BackupFileName(t)
}

// Import replaces the whole state with the collections in doc. It reports
// false, with the decode error, when doc is not a usable snapshot; the
// state is then left as it was.
func (b *BackupService) Import(ctx context.Context, doc []byte) (bool, error) {
	st, err := snapshot.Decode(doc)
	if err != nil {
		fields := applog.NewFields().
			WithOperation(applog.OpImport).
			WithError(err, applog.ErrorTypeValidation)
		fields[applog.FieldBytes] = len(doc)
		b.logger.WarnContext(ctx, "Rejected import document", fields.ToSlice()...)
		return false, err
	}
	b.store.Replace(ctx, st)
	return true, nil
}

// Deliver exports once and hands the document to every sink. Sink failures
// are joined and wrapped in ErrDelivery; the other sinks still run.
func (b *BackupService) Deliver(ctx context.Context, sinks ...BackupSink) (Backup, error) {
	bk, err := b.Export()
	if err != nil {
		return Backup{}, err
	}

	var errs []error
	for _, sink := range sinks {
		start := time.Now()
		err := sink.Deliver(ctx, bk)
		fields := applog.NewFields()
		fields[applog.FieldSink] = sink.Name()
		fields[applog.FieldFileName] = bk.FileName
		b.logger.LogOperation(ctx, applog.OpExport, start, err, fields)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	if len(errs) > 0 {
		return bk, fmt.Errorf("%w: %w", ErrDelivery, errors.Join(errs...))
	}
	return bk, nil
}

// FileSink writes exports into a directory.
type FileSink struct {
	Dir string
}

func (FileSink) Name() string { return "file" }

// Deliver writes a temporary file and renames it into place. It logs
// through the logger carried by ctx.
func (f FileSink) Deliver(ctx context.Context, b Backup) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	path := filepath.Join(f.Dir, b.FileName)
	tmp, err := os.CreateTemp(f.Dir, ".backup-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b.Document); err != nil {
		tmp.Close()
		return fmt.Errorf("write backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close backup: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("move backup into place: %w", err)
	}
	applog.FromContext(ctx).DebugContext(ctx, "Backup written",
		applog.FieldPath, path,
		applog.FieldBytes, len(b.Document))
	return nil
}

// WriterSink copies exports to a writer such as stdout.
type WriterSink struct {
	W io.Writer
}

func (WriterSink) Name() string { return "stdout" }

func (w WriterSink) Deliver(_ context.Context, b Backup) error {
	if _, err := w.W.Write(b.Document); err != nil {
		return err
	}
	_, err := io.WriteString(w.W, "\n")
	return err
}

// BackupPublisher is the part of amqp.Client the AMQP sink needs.
type BackupPublisher interface {
	PublishBackup(ctx context.Context, msg *amqp.BackupMessage) error
}

// AMQPSink publishes exports as persistent messages.
type AMQPSink struct {
	Publisher BackupPublisher
}

func (AMQPSink) Name() string { return "amqp" }

func (s AMQPSink) Deliver(ctx context.Context, b Backup) error {
	return s.Publisher.PublishBackup(ctx, amqp.NewBackupMessage(b.FileName, b.ExportedAt, b.Revision, b.Document))
}

// ImportFile reads path and imports it.
func (b *BackupService) ImportFile(ctx context.Context, path string) (bool, error) {
	doc, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	return b.Import(ctx, doc)
}
