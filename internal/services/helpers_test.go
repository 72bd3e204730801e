package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"salon/internal/core"
)

var testNow = time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return "id-" + strconv.Itoa(n)
	}
}

func newTestStore(initial core.State, mode AggregateMode) *DataStore {
	return NewDataStore(initial, DataStoreConfig{
		Mode:     mode,
		NewID:    sequentialIDs(),
		Now:      func() time.Time { return testNow },
		Location: time.UTC,
	})
}

// fixtureState has one client with zero totals, two services and no
// appointments.
func fixtureState() core.State {
	return core.State{
		Clients: []core.Client{
			{ID: "c1", Name: "Maria Popescu", Phone: "0722 123 456", CreatedAt: core.NewDate(2024, 1, 15)},
			{ID: "c2", Name: "Elena Ionescu", Phone: "0733 234 567", CreatedAt: core.NewDate(2024, 3, 20)},
		},
		Services: []core.Service{
			{ID: "s1", Name: "Tratament Facial", Category: "Facial", Duration: 60, Price: core.Money{Cents: 15000}},
			{ID: "s2", Name: "Extensii Gene", Category: "Gene", Duration: 120, Price: core.Money{Cents: 25000}},
		},
		Appointments: []core.Appointment{},
		Expenses:     []core.Expense{},
	}
}

func appointmentFor(clientID string, price int64, day core.Date, status core.Status) core.Appointment {
	return core.Appointment{
		ClientID:    clientID,
		ClientName:  "x",
		ServiceID:   "s1",
		ServiceName: "Tratament Facial",
		Date:        day,
		Time:        "09:00",
		Duration:    60,
		Price:       core.Money{Cents: price},
		Status:      status,
	}
}

// recordingSink keeps every backup it receives.
type recordingSink struct {
	mu   sync.Mutex
	name string
	got  []Backup
	err  error
}

func (r *recordingSink) Name() string { return r.name }

func (r *recordingSink) Deliver(_ context.Context, b Backup) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, b)
	return nil
}
