package report

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"salon/internal/core"
)

// TopN is the length of every ranking.
const TopN = 5

// Revenue sums the realized amount of completed appointments in r.
func Revenue(apps []core.Appointment, r Range) core.Money {
	var total core.Money
	for _, a := range apps {
		if a.Status == core.StatusCompleted && r.Contains(a.Date.Time) {
			total = total.Add(a.Realized())
		}
	}
	return total
}

// ExpenseTotal sums expense amounts in r.
func ExpenseTotal(exps []core.Expense, r Range) core.Money {
	var total core.Money
	for _, e := range exps {
		if r.Contains(e.Date.Time) {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// Counts returns how many appointments fall in r, and how many of those
// are completed and cancelled.
func Counts(apps []core.Appointment, r Range) (total, completed, cancelled int) {
	for _, a := range apps {
		if !r.Contains(a.Date.Time) {
			continue
		}
		total++
		switch a.Status {
		case core.StatusCompleted:
			completed++
		case core.StatusCancelled:
			cancelled++
		}
	}
	return total, completed, cancelled
}

// Series fills Buckets(r) with completed revenue and expenses.
func Series(apps []core.Appointment, exps []core.Expense, r Range) []core.Bucket {
	buckets := Buckets(r)
	find := func(t time.Time) int {
		if !r.Contains(t) {
			return -1
		}
		return sort.Search(len(buckets), func(i int) bool { return !buckets[i].End.Before(t) })
	}
	for _, a := range apps {
		if a.Status != core.StatusCompleted {
			continue
		}
		if i := find(a.Date.Time); i >= 0 {
			buckets[i].Revenue = buckets[i].Revenue.Add(a.Realized())
		}
	}
	for _, e := range exps {
		if i := find(e.Date.Time); i >= 0 {
			buckets[i].Expenses = buckets[i].Expenses.Add(e.Amount)
		}
	}
	return buckets
}

// TopServices ranks services by completed appointment count.
// Ties keep the order in which services were first seen.
func TopServices(apps []core.Appointment, r Range, n int) []core.ServiceRank {
	index := map[string]int{}
	var ranks []core.ServiceRank
	for _, a := range completedIn(apps, r) {
		i, ok := index[a.ServiceID]
		if !ok {
			i = len(ranks)
			index[a.ServiceID] = i
			ranks = append(ranks, core.ServiceRank{ServiceID: a.ServiceID, Name: a.ServiceName})
		}
		ranks[i].Count++
		ranks[i].Revenue = ranks[i].Revenue.Add(a.Realized())
	}
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].Count > ranks[j].Count })
	return head(ranks, n)
}

// TopClientsByVisits ranks clients by completed visits.
func TopClientsByVisits(apps []core.Appointment, r Range, n int) []core.ClientRank {
	ranks := clientRanks(apps, r)
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].Visits > ranks[j].Visits })
	return head(ranks, n)
}

// TopClientsByRevenue ranks clients by realized revenue.
func TopClientsByRevenue(apps []core.Appointment, r Range, n int) []core.ClientRank {
	ranks := clientRanks(apps, r)
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].Revenue.Cents > ranks[j].Revenue.Cents })
	return head(ranks, n)
}

func clientRanks(apps []core.Appointment, r Range) []core.ClientRank {
	index := map[string]int{}
	var ranks []core.ClientRank
	for _, a := range completedIn(apps, r) {
		i, ok := index[a.ClientID]
		if !ok {
			i = len(ranks)
			index[a.ClientID] = i
			ranks = append(ranks, core.ClientRank{ClientID: a.ClientID, Name: a.ClientName})
		}
		ranks[i].Visits++
		ranks[i].Revenue = ranks[i].Revenue.Add(a.Realized())
	}
	return ranks
}

func completedIn(apps []core.Appointment, r Range) []core.Appointment {
	var out []core.Appointment
	for _, a := range apps {
		if a.Status == core.StatusCompleted && r.Contains(a.Date.Time) {
			out = append(out, a)
		}
	}
	return out
}

func head[T any](in []T, n int) []T {
	if n >= 0 && len(in) > n {
		return in[:n]
	}
	return in
}

// ExpenseBreakdown groups expenses in r by category, ignoring case.
// A group takes the spelling of the matching configured label, or the first
// spelling seen when no label matches. Groups keep first-seen order.
func ExpenseBreakdown(exps []core.Expense, r Range, labels []string) []core.CategoryAmount {
	known := make(map[string]string, len(labels))
	for _, l := range labels {
		known[categoryKey(l)] = strings.TrimSpace(l)
	}
	index := map[string]int{}
	var out []core.CategoryAmount
	for _, e := range exps {
		if !r.Contains(e.Date.Time) {
			continue
		}
		key := categoryKey(e.Category)
		i, ok := index[key]
		if !ok {
			name, ok := known[key]
			if !ok {
				name = strings.TrimSpace(e.Category)
			}
			i = len(out)
			index[key] = i
			out = append(out, core.CategoryAmount{Name: name})
		}
		out[i].Amount = out[i].Amount.Add(e.Amount)
	}
	return out
}

func categoryKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Build assembles the full report for r.
func Build(s core.State, r Range, expenseLabels []string) core.Report {
	revenue := Revenue(s.Appointments, r)
	expenses := ExpenseTotal(s.Expenses, r)
	total, completed, cancelled := Counts(s.Appointments, r)
	return core.Report{
		From:                r.From,
		To:                  r.To,
		Granularity:         GranularityFor(r),
		Revenue:             revenue,
		Expenses:            expenses,
		Profit:              revenue.Sub(expenses),
		Appointments:        total,
		Completed:           completed,
		Cancelled:           cancelled,
		Series:              Series(s.Appointments, s.Expenses, r),
		TopServices:         TopServices(s.Appointments, r, TopN),
		TopClientsByVisits:  TopClientsByVisits(s.Appointments, r, TopN),
		TopClientsByRevenue: TopClientsByRevenue(s.Appointments, r, TopN),
		ExpenseBreakdown:    ExpenseBreakdown(s.Expenses, r, expenseLabels),
	}
}

// Dashboard computes today's and this month's headline figures.
func Dashboard(s core.State, now time.Time) core.DashboardStats {
	today, _ := PeriodRange(PeriodDay, now)
	month, _ := PeriodRange(PeriodMonth, now)

	stats := core.DashboardStats{Day: now.Format("2006-01-02")}
	minutes := 0
	active := map[string]struct{}{}
	for _, a := range s.Appointments {
		if today.Contains(a.Date.Time) {
			switch a.Status {
			case core.StatusScheduled:
				stats.ScheduledToday++
				minutes += a.Duration
			case core.StatusCompleted:
				stats.RevenueToday = stats.RevenueToday.Add(a.Realized())
			}
		}
		if month.Contains(a.Date.Time) {
			active[a.ClientID] = struct{}{}
		}
	}
	stats.HoursBookedToday = float64(minutes) / 60
	stats.ActiveClientsMonth = len(active)
	stats.MonthRevenue = Revenue(s.Appointments, month)
	stats.MonthExpenses = ExpenseTotal(s.Expenses, month)
	stats.MonthProfit = stats.MonthRevenue.Sub(stats.MonthExpenses)
	return stats
}
