// Package memory keeps published report rows in process, for tests and for
// running the scheduler without a spreadsheet.
package memory

import (
	"context"
	"fmt"
	"sync"

	ports "salon/internal/sheets"
)

type Store struct {
	mu    sync.Mutex
	years map[int][]ports.ReportRow
}

var (
	_ ports.ReportPublisher = (*Store)(nil)
	_ ports.ReportLister    = (*Store)(nil)
)

func New() *Store {
	return &Store{years: map[int][]ports.ReportRow{}}
}

// PublishReport replaces the row for row.Period or appends it, and returns
// a synthetic row reference.
func (s *Store) PublishReport(_ context.Context, row ports.ReportRow) (string, error) {
	if row.Period == "" {
		return "", fmt.Errorf("report row without period")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	year := row.Year()
	rows := s.years[year]
	for i, r := range rows {
		if r.Period == row.Period {
			rows[i] = row
			return fmt.Sprintf("mem:%d:%d", year, i+1), nil
		}
	}
	s.years[year] = append(rows, row)
	return fmt.Sprintf("mem:%d:%d", year, len(rows)+1), nil
}

func (s *Store) ListReports(_ context.Context, year int) ([]ports.ReportRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.ReportRow(nil), s.years[year]...), nil
}
