package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func validAppointment() Appointment {
	return Appointment{
		ClientID:    "c1",
		ClientName:  "Maria",
		ServiceID:   "s1",
		ServiceName: "Facial",
		Date:        NewDate(2024, 5, 10),
		Time:        "09:30",
		Duration:    60,
		Price:       Money{Cents: 15000},
		Status:      StatusScheduled,
	}
}

func TestAppointmentValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(a *Appointment)
		wantErr error
	}{
		{"valid", func(a *Appointment) {}, nil},
		{"bad time", func(a *Appointment) { a.Time = "9:30pm" }, ErrInvalidTime},
		{"hour out of range", func(a *Appointment) { a.Time = "25:00" }, ErrInvalidTime},
		{"bad status", func(a *Appointment) { a.Status = "done" }, ErrInvalidStatus},
		{"zero date", func(a *Appointment) { a.Date = Date{} }, ErrInvalidDate},
		{"negative price", func(a *Appointment) { a.Price = Money{Cents: -1} }, ErrInvalidAmount},
		{"missing client", func(a *Appointment) { a.ClientID = "" }, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := validAppointment()
			tt.mutate(&a)
			err := a.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestClientValidate(t *testing.T) {
	c := Client{Name: "Ana", Phone: "0744", CreatedAt: NewDate(2024, 1, 1)}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Email = "not-an-email"
	if err := c.Validate(); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	c.Email = ""
	c.Name = "   "
	if err := c.Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestServiceValidate(t *testing.T) {
	s := Service{Name: "Masaj", Category: "Facial", Duration: 45, Price: Money{Cents: 13000}}
	if err := s.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Duration = 0
	if err := s.Validate(); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
}

func TestExpenseValidate(t *testing.T) {
	e := Expense{Category: "Produse", Description: "oja", Amount: Money{Cents: 5000}, Date: NewDate(2024, 2, 2)}
	if err := e.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e.Category = ""
	if err := e.Validate(); !errors.Is(err, ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
}

func TestRealized(t *testing.T) {
	a := validAppointment()
	if a.Realized().Cents != 15000 {
		t.Fatalf("Realized without final price = %d", a.Realized().Cents)
	}
	a.FinalPrice = &Money{Cents: 18000}
	if a.Realized().Cents != 18000 {
		t.Fatalf("Realized with final price = %d", a.Realized().Cents)
	}
}

func TestDateJSON(t *testing.T) {
	in := Date{Time: time.Date(2024, 12, 28, 9, 30, 15, 123000000, time.FixedZone("EET", 2*3600))}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-12-28T07:30:15.123Z"` {
		t.Fatalf("marshal = %s", b)
	}
	var out Date
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !out.Equal(in.Time) {
		t.Fatalf("round trip = %v, want %v", out, in)
	}
}

func TestParseDateLayouts(t *testing.T) {
	for _, s := range []string{"2024-01-15", "2024-01-15T10:00:00", "2024-01-15T10:00:00.000Z", "2024-01-15T10:00:00+02:00"} {
		if _, err := ParseDate(s, time.UTC); err != nil {
			t.Errorf("ParseDate(%q): %v", s, err)
		}
	}
	if _, err := ParseDate("15/01/2024", time.UTC); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
}

func TestPatchApply(t *testing.T) {
	a := validAppointment()
	out := AppointmentPatch{Status: Ptr(StatusCompleted), FinalPrice: &Money{Cents: 18000}}.Apply(a)
	if out.Status != StatusCompleted || out.FinalPrice == nil || out.FinalPrice.Cents != 18000 {
		t.Fatalf("unexpected patched appointment: %+v", out)
	}
	if out.Price.Cents != 15000 || out.ClientName != "Maria" {
		t.Fatalf("patch touched snapshot fields: %+v", out)
	}
	if a.FinalPrice != nil {
		t.Fatalf("original appointment mutated")
	}

	moved := AppointmentPatch{Date: Ptr(NewDate(2024, 6, 2)), Time: Ptr("14:30")}.Apply(a)
	if moved.Date.CalendarDay(time.UTC) != "2024-06-02" || moved.Time != "14:30" {
		t.Fatalf("reschedule not applied: %+v", moved)
	}
	if moved.Status != a.Status || moved.Notes != a.Notes {
		t.Fatalf("reschedule touched other fields: %+v", moved)
	}
}

func TestStateCloneIsDeep(t *testing.T) {
	lv := NewDate(2024, 1, 1)
	s := State{
		Clients:      []Client{{ID: "1", Name: "A", LastVisit: &lv}},
		Appointments: []Appointment{{ID: "a", FinalPrice: &Money{Cents: 1}}},
	}
	c := s.Clone()
	c.Clients[0].LastVisit.Time = time.Time{}
	c.Appointments[0].FinalPrice.Cents = 99
	c.Clients[0].Name = "B"
	if s.Clients[0].LastVisit.IsZero() || s.Appointments[0].FinalPrice.Cents != 1 || s.Clients[0].Name != "A" {
		t.Fatalf("clone shares memory with original")
	}
}
