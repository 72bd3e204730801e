// Package snapshot converts the salon state to and from its JSON document,
// and keeps that document in device storage.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salon/internal/core"
)

// StorageKey is the device storage key holding the current snapshot.
const StorageKey = "salon-data"

const (
	keyClients      = "clients"
	keyServices     = "services"
	keyAppointments = "appointments"
	keyExpenses     = "expenses"
)

var (
	ErrMalformed    = errors.New("malformed snapshot")
	ErrForeignShape = errors.New("document is not a salon snapshot")
)

// exportDocument is the backup shape: the four collections plus exportedAt.
type exportDocument struct {
	core.State
	ExportedAt core.Date `json:"exportedAt"`
}

// Encode serializes s. Missing collections are written as empty arrays.
func Encode(s core.State) ([]byte, error) {
	return json.Marshal(normalize(s))
}

// Export serializes s as a backup document stamped with at.
func Export(s core.State, at time.Time) ([]byte, error) {
	return json.MarshalIndent(exportDocument{State: normalize(s), ExportedAt: core.DateOf(at)}, "", "  ")
}

// BackupFileName is the suggested file name for a backup taken at t.
func BackupFileName(t time.Time) string {
	return "beauty-salon-backup-" + t.Format("2006-01-02") + ".json"
}

// Decode parses a stored snapshot or a backup document. The top level must
// be an object with at least one of the four collections; absent ones come
// back empty. Every date field is parsed back into a date value.
func Decode(data []byte) (core.State, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(data), &top); err != nil {
		return core.State{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if top == nil {
		return core.State{}, ErrForeignShape
	}

	var s core.State
	found := 0
	fields := []struct {
		key string
		dst any
	}{
		{keyClients, &s.Clients},
		{keyServices, &s.Services},
		{keyAppointments, &s.Appointments},
		{keyExpenses, &s.Expenses},
	}
	for _, f := range fields {
		raw, ok := top[f.key]
		if !ok {
			continue
		}
		found++
		if err := json.Unmarshal(raw, f.dst); err != nil {
			return core.State{}, fmt.Errorf("%w: %s: %v", ErrMalformed, f.key, err)
		}
	}
	if found == 0 {
		return core.State{}, ErrForeignShape
	}
	if err := checkShape(s); err != nil {
		return core.State{}, err
	}
	return normalize(s), nil
}

func checkShape(s core.State) error {
	for _, a := range s.Appointments {
		if !a.Status.Valid() {
			return fmt.Errorf("%w: appointment %s: status %q", ErrMalformed, a.ID, a.Status)
		}
		if a.Date.IsZero() {
			return fmt.Errorf("%w: appointment %s: missing date", ErrMalformed, a.ID)
		}
	}
	for _, e := range s.Expenses {
		if e.Date.IsZero() {
			return fmt.Errorf("%w: expense %s: missing date", ErrMalformed, e.ID)
		}
	}
	return nil
}

func normalize(s core.State) core.State {
	if s.Clients == nil {
		s.Clients = []core.Client{}
	}
	if s.Services == nil {
		s.Services = []core.Service{}
	}
	if s.Appointments == nil {
		s.Appointments = []core.Appointment{}
	}
	if s.Expenses == nil {
		s.Expenses = []core.Expense{}
	}
	return s
}
