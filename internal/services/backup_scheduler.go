package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"salon/internal/core"
	applog "salon/internal/log"
	"salon/internal/report"
	"salon/internal/sheets"
	"salon/internal/snapshot"
	"salon/internal/storage"
)

// LastBackupKey stores the time of the last successful backup run.
const LastBackupKey = "lastBackupAt"

// BackupSchedulerConfig holds scheduling settings
type BackupSchedulerConfig struct {
	// Schedule is a standard cron expression or descriptor such as @daily.
	Schedule string
	// Frequency decides whether a missed backup is run at startup.
	Frequency Frequency
	Location  *time.Location
	// Loader, when set, rereads the persisted snapshot before each run so
	// changes saved by other processes are included.
	Loader SnapshotLoader
}

// SnapshotLoader reads the persisted state. *snapshot.Persister is one.
type SnapshotLoader interface {
	Load(ctx context.Context) (core.State, snapshot.Source, error)
}

// BackupScheduler takes periodic backups and, when a publisher is set,
// publishes the current month's report after each one.
type BackupScheduler struct {
	cfg       BackupSchedulerConfig
	backups   *BackupService
	sinks     []BackupSink
	kv        storage.KV
	reports   *ReportService
	publisher sheets.ReportPublisher
	checker   DuenessChecker
	now       func() time.Time
	logger    *applog.Logger

	runMu sync.Mutex
}

// NewBackupScheduler validates the schedule and frequency. reports and
// publisher may both be nil.
func NewBackupScheduler(
	cfg BackupSchedulerConfig,
	backups *BackupService,
	sinks []BackupSink,
	kv storage.KV,
	reports *ReportService,
	publisher sheets.ReportPublisher,
	logger *applog.Logger,
) (*BackupScheduler, error) {
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", cfg.Schedule, err)
	}
	checker, err := GetDuenessChecker(cfg.Frequency)
	if err != nil {
		return nil, err
	}
	if len(sinks) == 0 {
		return nil, errors.New("backup scheduler needs at least one sink")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if logger == nil {
		logger = applog.Discard()
	}
	return &BackupScheduler{
		cfg:       cfg,
		backups:   backups,
		sinks:     sinks,
		kv:        kv,
		reports:   reports,
		publisher: publisher,
		checker:   checker,
		now:       time.Now,
		logger:    logger.WithComponent(applog.ComponentScheduler),
	}, nil
}

// LastBackup returns the time of the last successful run, zero if none.
func (s *BackupScheduler) LastBackup(ctx context.Context) (time.Time, error) {
	raw, ok, err := s.kv.Get(ctx, LastBackupKey)
	if err != nil {
		return time.Time{}, fmt.Errorf("read %s: %w", LastBackupKey, err)
	}
	if !ok {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		s.logger.WarnContext(ctx, "Ignoring unreadable last backup time", "value", raw)
		return time.Time{}, nil
	}
	return t, nil
}

// RunOnce takes one backup and publishes the month report. The backup time
// is recorded only when every sink succeeded. A publishing failure is
// returned but does not undo the backup.
func (s *BackupScheduler) RunOnce(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if err := s.refresh(ctx); err != nil {
		return err
	}

	start := time.Now()
	bk, err := s.backups.Deliver(ctx, s.sinks...)
	fields := applog.NewFields()
	fields[applog.FieldFileName] = bk.FileName
	fields[applog.FieldRevision] = bk.Revision
	s.logger.LogOperation(ctx, applog.OpExport, start, err, fields)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, LastBackupKey, bk.ExportedAt.UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record backup time: %w", err)
	}

	if s.publisher != nil && s.reports != nil {
		if err := s.publishMonth(ctx); err != nil {
			return fmt.Errorf("publish report: %w", err)
		}
	}
	return nil
}

// refresh loads the stored snapshot into the data store. A missing or
// unreadable snapshot leaves the in-memory state as it is.
func (s *BackupScheduler) refresh(ctx context.Context) error {
	if s.cfg.Loader == nil {
		return nil
	}
	st, src, err := s.cfg.Loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload snapshot: %w", err)
	}
	if src != snapshot.SourceStored {
		s.logger.WarnContext(ctx, "Stored snapshot unavailable, backing up the loaded state", applog.FieldSource, string(src))
		return nil
	}
	s.backups.store.Reload(ctx, st)
	return nil
}

func (s *BackupScheduler) publishMonth(ctx context.Context) error {
	now := s.now().In(s.cfg.Location)
	rep, err := s.reports.ReportForPeriod(ctx, report.PeriodMonth)
	if err != nil {
		return err
	}
	ref, err := s.publisher.PublishReport(ctx, sheets.RowFromReport(now.Format("2006-01"), rep))
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Month report published", applog.FieldSheetsRef, ref)
	return nil
}

// CatchUp runs a backup now if the last one is older than the frequency
// allows. It reports whether a backup ran.
func (s *BackupScheduler) CatchUp(ctx context.Context) (bool, error) {
	last, err := s.LastBackup(ctx)
	if err != nil {
		return false, err
	}
	if !s.checker.IsDue(last, s.now().In(s.cfg.Location)) {
		s.logger.DebugContext(ctx, "Backup is up to date", "last_backup", last)
		return false, nil
	}
	s.logger.InfoContext(ctx, "Backup overdue, running now", "last_backup", last, "frequency", s.cfg.Frequency)
	return true, s.RunOnce(ctx)
}

// Run catches up, then runs on the cron schedule until ctx is done. Failed
// runs are logged and retried on the next tick.
func (s *BackupScheduler) Run(ctx context.Context) error {
	ctx = applog.NewContext(ctx, s.logger)
	if _, err := s.CatchUp(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Catch-up backup failed", applog.FieldError, err)
	}

	c := cron.New(cron.WithLocation(s.cfg.Location))
	_, err := c.AddFunc(s.cfg.Schedule, func() {
		if err := s.RunOnce(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Scheduled backup failed", applog.FieldError, err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule backups: %w", err)
	}
	c.Start()
	s.logger.InfoContext(ctx, "Backup scheduler started", "schedule", s.cfg.Schedule, "sinks", len(s.sinks))

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	s.logger.InfoContext(ctx, "Backup scheduler stopped")
	return nil
}
