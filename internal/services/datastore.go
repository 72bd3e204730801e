// Package services holds the salon's stateful components: the in-memory
// data store and the services that persist, back up and report on it.
package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"salon/internal/core"
	applog "salon/internal/log"
)

// AggregateMode selects how client visit and spending totals are kept.
type AggregateMode string

const (
	// AggregatesIncremental bumps totals once when an appointment is added
	// and never revisits them.
	AggregatesIncremental AggregateMode = "incremental"
	// AggregatesDerived recomputes totals from completed appointments after
	// every appointment change.
	AggregatesDerived AggregateMode = "derived"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ChangeFunc receives a copy of the state after every successful mutation.
type ChangeFunc func(revision uint64, s core.State)

// DataStoreConfig holds the optional collaborators of a DataStore. Zero
// values select UUIDv4 ids, the wall clock and incremental aggregates.
type DataStoreConfig struct {
	Mode     AggregateMode
	NewID    func() string
	Now      func() time.Time
	Location *time.Location
	Logger   *applog.Logger
}

// DataStore owns the four entity collections. It is the only writer; every
// reader gets copies.
type DataStore struct {
	mu        sync.RWMutex
	state     core.State
	revision  uint64
	listeners []ChangeFunc

	mode   AggregateMode
	newID  func() string
	now    func() time.Time
	loc    *time.Location
	logger *applog.Logger
}

func NewDataStore(initial core.State, cfg DataStoreConfig) *DataStore {
	if cfg.Mode == "" {
		cfg.Mode = AggregatesIncremental
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Logger == nil {
		cfg.Logger = applog.Discard()
	}
	state := initial.Clone()
	return &DataStore{
		state:  state,
		mode:   cfg.Mode,
		newID:  cfg.NewID,
		now:    cfg.Now,
		loc:    cfg.Location,
		logger: cfg.Logger.WithComponent(applog.ComponentStore),
	}
}

// OnChange registers fn to be called after each mutation. Listeners run on
// the mutating goroutine after the store lock is released.
func (s *DataStore) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *DataStore) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *DataStore) Mode() AggregateMode { return s.mode }

// Snapshot returns a deep copy of the current state.
func (s *DataStore) Snapshot() core.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// SnapshotAt returns the state together with the revision it belongs to.
func (s *DataStore) SnapshotAt() (core.State, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone(), s.revision
}

// mutate runs fn under the write lock. fn must validate before it touches
// the state and reports whether anything changed.
func (s *DataStore) mutate(ctx context.Context, op string, fn func(st *core.State) (bool, error)) (bool, error) {
	s.mu.Lock()
	changed, err := fn(&s.state)
	if err != nil || !changed {
		s.mu.Unlock()
		return false, err
	}
	s.revision++
	rev := s.revision
	snap := s.state.Clone()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "State changed", applog.FieldOperation, op, applog.FieldRevision, rev)
	for _, fn := range listeners {
		fn(rev, snap)
	}
	return true, nil
}

func (s *DataStore) logMutation(ctx context.Context, op, kind, id string) {
	fields := applog.NewFields().WithOperation(op).WithEntity(kind, id)
	s.logger.InfoContext(ctx, "Entity "+op+"d", fields.ToSlice()...)
}

// Replace swaps all four collections at once.
func (s *DataStore) Replace(ctx context.Context, next core.State) {
	next = next.Clone()
	changed, _ := s.mutate(ctx, applog.OpImport, func(st *core.State) (bool, error) {
		*st = next
		return true, nil
	})
	if !changed {
		return
	}
	s.logger.InfoContext(ctx, "State replaced",
		"clients", len(next.Clients),
		"services", len(next.Services),
		"appointments", len(next.Appointments),
		"expenses", len(next.Expenses))
}

// Reload swaps in a state that was read back from storage. The revision
// moves on so cached reports are dropped, but listeners are not called:
// the state is already persisted.
func (s *DataStore) Reload(ctx context.Context, next core.State) {
	next = next.Clone()
	s.mu.Lock()
	s.state = next
	s.revision++
	rev := s.revision
	s.mu.Unlock()
	s.logger.DebugContext(ctx, "State reloaded from storage",
		applog.FieldRevision, rev,
		"clients", len(next.Clients),
		"appointments", len(next.Appointments))
}

func indexByID[T any](items []T, id string, idOf func(T) string) int {
	return slices.IndexFunc(items, func(v T) bool { return idOf(v) == id })
}

func clientID(c core.Client) string           { return c.ID }
func serviceID(v core.Service) string         { return v.ID }
func appointmentID(a core.Appointment) string { return a.ID }
func expenseID(e core.Expense) string         { return e.ID }

// Clients

// AddClient stores a new client with a fresh id, createdAt set to now and
// zeroed totals.
func (s *DataStore) AddClient(ctx context.Context, c core.Client) (core.Client, error) {
	c.ID = s.newID()
	c.CreatedAt = core.DateOf(s.now())
	c.LastVisit = nil
	c.TotalVisits = 0
	c.TotalSpent = core.Money{}
	if err := c.Validate(); err != nil {
		return core.Client{}, err
	}
	s.mutate(ctx, applog.OpCreate, func(st *core.State) (bool, error) {
		st.Clients = append(st.Clients, c)
		return true, nil
	})
	s.logMutation(ctx, applog.OpCreate, "client", c.ID)
	return c, nil
}

// UpdateClient merges patch into the client with id. ok is false when no
// such client exists.
func (s *DataStore) UpdateClient(ctx context.Context, id string, patch core.ClientPatch) (core.Client, bool, error) {
	var out core.Client
	ok, err := s.mutate(ctx, applog.OpUpdate, func(st *core.State) (bool, error) {
		i := indexByID(st.Clients, id, clientID)
		if i < 0 {
			return false, nil
		}
		next := patch.Apply(st.Clients[i])
		if err := next.Validate(); err != nil {
			return false, err
		}
		st.Clients[i] = next
		out = next
		return true, nil
	})
	if ok {
		s.logMutation(ctx, applog.OpUpdate, "client", id)
	}
	return out, ok, err
}

// DeleteClient removes the client. Its appointments stay.
func (s *DataStore) DeleteClient(ctx context.Context, id string) bool {
	ok, _ := s.mutate(ctx, applog.OpDelete, func(st *core.State) (bool, error) {
		n := len(st.Clients)
		st.Clients = slices.DeleteFunc(st.Clients, func(c core.Client) bool { return c.ID == id })
		return len(st.Clients) != n, nil
	})
	if ok {
		s.logMutation(ctx, applog.OpDelete, "client", id)
	}
	return ok
}

// Services

func (s *DataStore) AddService(ctx context.Context, v core.Service) (core.Service, error) {
	v.ID = s.newID()
	if err := v.Validate(); err != nil {
		return core.Service{}, err
	}
	s.mutate(ctx, applog.OpCreate, func(st *core.State) (bool, error) {
		st.Services = append(st.Services, v)
		return true, nil
	})
	s.logMutation(ctx, applog.OpCreate, "service", v.ID)
	return v, nil
}

func (s *DataStore) UpdateService(ctx context.Context, id string, patch core.ServicePatch) (core.Service, bool, error) {
	var out core.Service
	ok, err := s.mutate(ctx, applog.OpUpdate, func(st *core.State) (bool, error) {
		i := indexByID(st.Services, id, serviceID)
		if i < 0 {
			return false, nil
		}
		next := patch.Apply(st.Services[i])
		if err := next.Validate(); err != nil {
			return false, err
		}
		st.Services[i] = next
		out = next
		return true, nil
	})
	if ok {
		s.logMutation(ctx, applog.OpUpdate, "service", id)
	}
	return out, ok, err
}

// DeleteService removes the service. Booked appointments keep their copy of
// its name, price and duration.
func (s *DataStore) DeleteService(ctx context.Context, id string) bool {
	ok, _ := s.mutate(ctx, applog.OpDelete, func(st *core.State) (bool, error) {
		n := len(st.Services)
		st.Services = slices.DeleteFunc(st.Services, func(v core.Service) bool { return v.ID == id })
		return len(st.Services) != n, nil
	})
	if ok {
		s.logMutation(ctx, applog.OpDelete, "service", id)
	}
	return ok
}

// Appointments

// AddAppointment stores a with a fresh id. An empty status means
// scheduled. In incremental mode the referenced client, if any, gains one
// visit, the appointment price and a lastVisit of the appointment date,
// whatever the status.
func (s *DataStore) AddAppointment(ctx context.Context, a core.Appointment) (core.Appointment, error) {
	a.ID = s.newID()
	if a.Status == "" {
		a.Status = core.StatusScheduled
	}
	if err := a.Validate(); err != nil {
		return core.Appointment{}, err
	}
	s.mutate(ctx, applog.OpCreate, func(st *core.State) (bool, error) {
		s.insertAppointment(st, a)
		return true, nil
	})
	fields := applog.NewFields().
		WithOperation(applog.OpCreate).
		WithAppointment(a.ID, a.ClientID, string(a.Status), a.Price.Cents)
	s.logger.InfoContext(ctx, "Appointment created", fields.ToSlice()...)
	return a, nil
}

func (s *DataStore) insertAppointment(st *core.State, a core.Appointment) {
	st.Appointments = append(st.Appointments, a)
	if s.mode == AggregatesDerived {
		st.Clients = RecomputeClientAggregates(*st)
		return
	}
	if i := indexByID(st.Clients, a.ClientID, clientID); i >= 0 {
		c := &st.Clients[i]
		c.TotalVisits++
		c.TotalSpent = c.TotalSpent.Add(a.Price)
		lv := a.Date
		c.LastVisit = &lv
	}
}

// BookingRequest names the client and service to book; the appointment
// copies their current name, price and duration.
type BookingRequest struct {
	ClientID  string
	ServiceID string
	Date      core.Date
	Time      string
	Notes     string
}

// BookAppointment creates a scheduled appointment from live catalogue data.
// Unlike AddAppointment it requires the client and service to exist.
func (s *DataStore) BookAppointment(ctx context.Context, req BookingRequest) (core.Appointment, error) {
	var out core.Appointment
	_, err := s.mutate(ctx, applog.OpCreate, func(st *core.State) (bool, error) {
		ci := indexByID(st.Clients, req.ClientID, clientID)
		if ci < 0 {
			return false, fmt.Errorf("client %s: %w", req.ClientID, ErrNotFound)
		}
		si := indexByID(st.Services, req.ServiceID, serviceID)
		if si < 0 {
			return false, fmt.Errorf("service %s: %w", req.ServiceID, ErrNotFound)
		}
		c, svc := st.Clients[ci], st.Services[si]
		a := core.Appointment{
			ID:          s.newID(),
			ClientID:    c.ID,
			ClientName:  c.Name,
			ServiceID:   svc.ID,
			ServiceName: svc.Name,
			Date:        req.Date,
			Time:        req.Time,
			Duration:    svc.Duration,
			Price:       svc.Price,
			Status:      core.StatusScheduled,
			Notes:       req.Notes,
		}
		if err := a.Validate(); err != nil {
			return false, err
		}
		s.insertAppointment(st, a)
		out = a
		return true, nil
	})
	if err != nil {
		return core.Appointment{}, err
	}
	fields := applog.NewFields().
		WithOperation(applog.OpCreate).
		WithAppointment(out.ID, out.ClientID, string(out.Status), out.Price.Cents)
	s.logger.InfoContext(ctx, "Appointment booked", fields.ToSlice()...)
	return out, nil
}

// UpdateAppointment merges patch into the appointment. Client totals are
// left alone in incremental mode.
func (s *DataStore) UpdateAppointment(ctx context.Context, id string, patch core.AppointmentPatch) (core.Appointment, bool, error) {
	return s.updateAppointment(ctx, id, func(a core.Appointment) (core.Appointment, error) {
		return patch.Apply(a), nil
	})
}

// CompleteAppointment marks a scheduled appointment completed. A nil
// finalPrice keeps the booked price.
func (s *DataStore) CompleteAppointment(ctx context.Context, id string, finalPrice *core.Money) (core.Appointment, bool, error) {
	return s.updateAppointment(ctx, id, func(a core.Appointment) (core.Appointment, error) {
		if a.Status != core.StatusScheduled {
			return a, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, core.StatusCompleted)
		}
		fp := a.Price
		if finalPrice != nil {
			fp = *finalPrice
		}
		return core.AppointmentPatch{Status: core.Ptr(core.StatusCompleted), FinalPrice: &fp}.Apply(a), nil
	})
}

func (s *DataStore) CancelAppointment(ctx context.Context, id string) (core.Appointment, bool, error) {
	return s.updateAppointment(ctx, id, func(a core.Appointment) (core.Appointment, error) {
		if a.Status != core.StatusScheduled {
			return a, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, core.StatusCancelled)
		}
		return core.AppointmentPatch{Status: core.Ptr(core.StatusCancelled)}.Apply(a), nil
	})
}

func (s *DataStore) updateAppointment(ctx context.Context, id string, edit func(core.Appointment) (core.Appointment, error)) (core.Appointment, bool, error) {
	var out core.Appointment
	ok, err := s.mutate(ctx, applog.OpUpdate, func(st *core.State) (bool, error) {
		i := indexByID(st.Appointments, id, appointmentID)
		if i < 0 {
			return false, nil
		}
		next, err := edit(st.Appointments[i])
		if err != nil {
			return false, err
		}
		if err := next.Validate(); err != nil {
			return false, err
		}
		st.Appointments[i] = next
		if s.mode == AggregatesDerived {
			st.Clients = RecomputeClientAggregates(*st)
		}
		out = next
		return true, nil
	})
	if ok {
		fields := applog.NewFields().
			WithOperation(applog.OpUpdate).
			WithAppointment(out.ID, out.ClientID, string(out.Status), out.Realized().Cents)
		s.logger.InfoContext(ctx, "Appointment updated", fields.ToSlice()...)
	}
	return out, ok, err
}

// DeleteAppointment removes the appointment without touching client totals
// in incremental mode.
func (s *DataStore) DeleteAppointment(ctx context.Context, id string) bool {
	ok, _ := s.mutate(ctx, applog.OpDelete, func(st *core.State) (bool, error) {
		n := len(st.Appointments)
		st.Appointments = slices.DeleteFunc(st.Appointments, func(a core.Appointment) bool { return a.ID == id })
		if len(st.Appointments) == n {
			return false, nil
		}
		if s.mode == AggregatesDerived {
			st.Clients = RecomputeClientAggregates(*st)
		}
		return true, nil
	})
	if ok {
		s.logMutation(ctx, applog.OpDelete, "appointment", id)
	}
	return ok
}

// Expenses

// AddExpense stores a new expense. A zero date means now.
func (s *DataStore) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.ID = s.newID()
	if e.Date.IsZero() {
		e.Date = core.DateOf(s.now())
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mutate(ctx, applog.OpCreate, func(st *core.State) (bool, error) {
		st.Expenses = append(st.Expenses, e)
		return true, nil
	})
	fields := applog.NewFields().
		WithOperation(applog.OpCreate).
		WithEntity("expense", e.ID).
		WithExpense(e.Category, e.Amount.Cents)
	s.logger.InfoContext(ctx, "Expense created", fields.ToSlice()...)
	return e, nil
}

func (s *DataStore) UpdateExpense(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, bool, error) {
	var out core.Expense
	ok, err := s.mutate(ctx, applog.OpUpdate, func(st *core.State) (bool, error) {
		i := indexByID(st.Expenses, id, expenseID)
		if i < 0 {
			return false, nil
		}
		next := patch.Apply(st.Expenses[i])
		if err := next.Validate(); err != nil {
			return false, err
		}
		st.Expenses[i] = next
		out = next
		return true, nil
	})
	if ok {
		s.logMutation(ctx, applog.OpUpdate, "expense", id)
	}
	return out, ok, err
}

func (s *DataStore) DeleteExpense(ctx context.Context, id string) bool {
	ok, _ := s.mutate(ctx, applog.OpDelete, func(st *core.State) (bool, error) {
		n := len(st.Expenses)
		st.Expenses = slices.DeleteFunc(st.Expenses, func(e core.Expense) bool { return e.ID == id })
		return len(st.Expenses) != n, nil
	})
	if ok {
		s.logMutation(ctx, applog.OpDelete, "expense", id)
	}
	return ok
}

// Aggregates

// RecomputeClientAggregates derives every client's totals from completed
// appointments: one visit and the realized price per appointment, and the
// latest appointment date as lastVisit. Clients with no completed
// appointments keep a nil lastVisit. The input is not modified.
func RecomputeClientAggregates(st core.State) []core.Client {
	type totals struct {
		visits int
		spent  core.Money
		last   core.Date
	}
	byClient := make(map[string]*totals, len(st.Clients))
	for _, a := range st.Appointments {
		if a.Status != core.StatusCompleted {
			continue
		}
		t := byClient[a.ClientID]
		if t == nil {
			t = &totals{}
			byClient[a.ClientID] = t
		}
		t.visits++
		t.spent = t.spent.Add(a.Realized())
		if a.Date.After(t.last.Time) {
			t.last = a.Date
		}
	}

	out := make([]core.Client, len(st.Clients))
	for i, c := range st.Clients {
		c.TotalVisits, c.TotalSpent, c.LastVisit = 0, core.Money{}, nil
		if t := byClient[c.ID]; t != nil {
			last := t.last
			c.TotalVisits, c.TotalSpent, c.LastVisit = t.visits, t.spent, &last
		}
		out[i] = c
	}
	return out
}

// AggregateDrift pairs a client's stored totals with the derived ones.
type AggregateDrift struct {
	Stored  core.Client
	Derived core.Client
}

// AggregateDrifts lists the clients whose stored totals differ from
// RecomputeClientAggregates.
func (s *DataStore) AggregateDrifts() []AggregateDrift {
	st := s.Snapshot()
	derived := RecomputeClientAggregates(st)
	var out []AggregateDrift
	for i, c := range st.Clients {
		d := derived[i]
		if c.TotalVisits != d.TotalVisits || c.TotalSpent != d.TotalSpent || !sameDate(c.LastVisit, d.LastVisit) {
			out = append(out, AggregateDrift{Stored: c, Derived: d})
		}
	}
	return out
}

// ApplyDerivedAggregates overwrites stored totals with derived ones and
// returns how many clients changed.
func (s *DataStore) ApplyDerivedAggregates(ctx context.Context) int {
	changed := 0
	s.mutate(ctx, applog.OpUpdate, func(st *core.State) (bool, error) {
		derived := RecomputeClientAggregates(*st)
		for i, c := range st.Clients {
			d := derived[i]
			if c.TotalVisits != d.TotalVisits || c.TotalSpent != d.TotalSpent || !sameDate(c.LastVisit, d.LastVisit) {
				changed++
			}
		}
		if changed == 0 {
			return false, nil
		}
		st.Clients = derived
		return true, nil
	})
	s.logger.InfoContext(ctx, "Client aggregates recomputed", "changed", changed)
	return changed
}

func sameDate(a, b *core.Date) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b.Time)
}

// Queries

// Client returns the client with id.
func (s *DataStore) Client(id string) (core.Client, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexByID(s.state.Clients, id, clientID); i >= 0 {
		c := s.state.Clients[i]
		if c.LastVisit != nil {
			lv := *c.LastVisit
			c.LastVisit = &lv
		}
		return c, true
	}
	return core.Client{}, false
}

func (s *DataStore) Service(id string) (core.Service, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexByID(s.state.Services, id, serviceID); i >= 0 {
		return s.state.Services[i], true
	}
	return core.Service{}, false
}

func (s *DataStore) Appointment(id string) (core.Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexByID(s.state.Appointments, id, appointmentID); i >= 0 {
		a := s.state.Appointments[i]
		if a.FinalPrice != nil {
			fp := *a.FinalPrice
			a.FinalPrice = &fp
		}
		return a, true
	}
	return core.Appointment{}, false
}

func (s *DataStore) Expense(id string) (core.Expense, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexByID(s.state.Expenses, id, expenseID); i >= 0 {
		return s.state.Expenses[i], true
	}
	return core.Expense{}, false
}

// Clients lists clients whose name or phone contains search, ignoring case.
// An empty search lists everyone.
func (s *DataStore) Clients(search string) []core.Client {
	q := strings.ToLower(strings.TrimSpace(search))
	return slices.DeleteFunc(s.Snapshot().Clients, func(c core.Client) bool {
		return q != "" &&
			!strings.Contains(strings.ToLower(c.Name), q) &&
			!strings.Contains(strings.ToLower(c.Phone), q)
	})
}

// Services lists services in category, or all of them when category is empty.
func (s *DataStore) Services(category string) []core.Service {
	return slices.DeleteFunc(s.Snapshot().Services, func(v core.Service) bool {
		return category != "" && !strings.EqualFold(v.Category, category)
	})
}

// AppointmentsOn lists the appointments on the calendar day of day, in the
// store's location, ordered by time.
func (s *DataStore) AppointmentsOn(day time.Time) []core.Appointment {
	key := day.In(s.loc).Format("2006-01-02")
	out := slices.DeleteFunc(s.Snapshot().Appointments, func(a core.Appointment) bool {
		return a.Date.CalendarDay(s.loc) != key
	})
	slices.SortStableFunc(out, func(a, b core.Appointment) int { return cmp.Compare(a.Time, b.Time) })
	return out
}

// Appointments lists every appointment, most recent first.
func (s *DataStore) Appointments() []core.Appointment {
	out := s.Snapshot().Appointments
	slices.SortStableFunc(out, func(a, b core.Appointment) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		return cmp.Compare(b.Time, a.Time)
	})
	return out
}

// Expenses lists expenses in category (any when empty), newest first.
func (s *DataStore) Expenses(category string) []core.Expense {
	out := slices.DeleteFunc(s.Snapshot().Expenses, func(e core.Expense) bool {
		return category != "" && !strings.EqualFold(e.Category, category)
	})
	slices.SortStableFunc(out, func(a, b core.Expense) int { return b.Date.Compare(a.Date.Time) })
	return out
}
