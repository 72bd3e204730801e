package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"salon/internal/cache"
	"salon/internal/core"
	applog "salon/internal/log"
	"salon/internal/report"
)

// LabelSource supplies the configured expense category names.
type LabelSource interface {
	ExpenseLabels(ctx context.Context) ([]string, error)
}

// ReportService builds reports from the store. Results are cached per
// store revision, so a cached report always matches the current state.
type ReportService struct {
	store  *DataStore
	labels LabelSource
	cache  cache.Cache[core.Report]
	now    func() time.Time
	logger *applog.Logger
}

// NewReportService wires the reporting engine to a store. labels and c may
// be nil.
func NewReportService(store *DataStore, labels LabelSource, c cache.Cache[core.Report], logger *applog.Logger) *ReportService {
	if logger == nil {
		logger = applog.Discard()
	}
	return &ReportService{
		store:  store,
		labels: labels,
		cache:  c,
		now:    time.Now,
		logger: logger.WithComponent(applog.ComponentReport),
	}
}

// Report returns the full report for r.
func (s *ReportService) Report(ctx context.Context, r report.Range) (core.Report, error) {
	var labels []string
	if s.labels != nil {
		var err error
		if labels, err = s.labels.ExpenseLabels(ctx); err != nil {
			return core.Report{}, fmt.Errorf("load expense labels: %w", err)
		}
	}

	st, rev := s.store.SnapshotAt()
	key := fmt.Sprintf("%d|%d|%d|%s", rev, r.From.UnixNano(), r.To.UnixNano(), strings.Join(labels, "\x1f"))
	if s.cache != nil {
		if rep, ok := s.cache.Get(key); ok {
			s.logger.DebugContext(ctx, "Report cache hit", applog.FieldRevision, rev)
			return rep, nil
		}
	}

	start := time.Now()
	rep := report.Build(st, r, labels)
	if s.cache != nil {
		s.cache.Set(key, rep)
	}
	s.logger.DebugContext(ctx, "Report built",
		applog.FieldRevision, rev,
		applog.FieldFrom, r.From.Format("2006-01-02"),
		applog.FieldTo, r.To.Format("2006-01-02"),
		applog.FieldDuration, time.Since(start).Milliseconds())
	return rep, nil
}

// ReportForPeriod reports on the period containing now.
func (s *ReportService) ReportForPeriod(ctx context.Context, p report.Period) (core.Report, error) {
	r, err := report.PeriodRange(p, s.now().In(s.store.loc))
	if err != nil {
		return core.Report{}, err
	}
	return s.Report(ctx, r)
}

// ReportBetween reports on the whole days from..to in the store's location.
func (s *ReportService) ReportBetween(ctx context.Context, from, to time.Time) (core.Report, error) {
	r, err := report.NewRange(from, to, s.store.loc)
	if err != nil {
		return core.Report{}, err
	}
	return s.Report(ctx, r)
}

func (s *ReportService) Dashboard() core.DashboardStats {
	return report.Dashboard(s.store.Snapshot(), s.now().In(s.store.loc))
}
