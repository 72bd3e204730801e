package core

import "time"

// Granularity of a report series.
type Granularity string

const (
	ByDay   Granularity = "day"
	ByWeek  Granularity = "week"
	ByMonth Granularity = "month"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// Bucket is one slice of a report series. Start and End are inclusive.
type Bucket struct {
	Label    string    `json:"label"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Revenue  Money     `json:"revenue"`
	Expenses Money     `json:"expenses"`
}

type ServiceRank struct {
	ServiceID string `json:"serviceId"`
	Name      string `json:"name"`
	Count     int    `json:"count"`
	Revenue   Money  `json:"revenue"`
}

type ClientRank struct {
	ClientID string `json:"clientId"`
	Name     string `json:"name"`
	Visits   int    `json:"visits"`
	Revenue  Money  `json:"revenue"`
}

// Report is the full view model for one date range.
type Report struct {
	From         time.Time   `json:"from"`
	To           time.Time   `json:"to"`
	Granularity  Granularity `json:"granularity"`
	Revenue      Money       `json:"revenue"`
	Expenses     Money       `json:"expenses"`
	Profit       Money       `json:"profit"`
	Appointments int         `json:"appointments"`
	Completed    int         `json:"completed"`
	Cancelled    int         `json:"cancelled"`

	Series              []Bucket         `json:"series"`
	TopServices         []ServiceRank    `json:"topServices"`
	TopClientsByVisits  []ClientRank     `json:"topClientsByVisits"`
	TopClientsByRevenue []ClientRank     `json:"topClientsByRevenue"`
	ExpenseBreakdown    []CategoryAmount `json:"expenseBreakdown"`
}

// DashboardStats is the at-a-glance summary for a single day.
type DashboardStats struct {
	Day                string  `json:"day"`
	ScheduledToday     int     `json:"scheduledToday"`
	RevenueToday       Money   `json:"revenueToday"`
	HoursBookedToday   float64 `json:"hoursBookedToday"`
	MonthRevenue       Money   `json:"monthRevenue"`
	MonthExpenses      Money   `json:"monthExpenses"`
	MonthProfit        Money   `json:"monthProfit"`
	ActiveClientsMonth int     `json:"activeClientsMonth"`
}
