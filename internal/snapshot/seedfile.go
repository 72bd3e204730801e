package snapshot

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"salon/internal/core"
)

// seedFile is the YAML layout of SEED_FILE. Each list that is present
// replaces the matching built-in list.
type seedFile struct {
	Services *[]struct {
		Name        string  `yaml:"name"`
		Category    string  `yaml:"category"`
		Duration    int     `yaml:"duration"`
		Price       float64 `yaml:"price"`
		Description string  `yaml:"description"`
	} `yaml:"services"`

	Clients *[]struct {
		Name  string `yaml:"name"`
		Phone string `yaml:"phone"`
		Email string `yaml:"email"`
		Notes string `yaml:"notes"`
	} `yaml:"clients"`

	// Appointments name their client and service by position (1-based) in
	// the lists above and are booked relative to today.
	Appointments *[]struct {
		Client        int    `yaml:"client"`
		Service       int    `yaml:"service"`
		DaysFromToday int    `yaml:"days_from_today"`
		Time          string `yaml:"time"`
		Status        string `yaml:"status"`
	} `yaml:"appointments"`

	Expenses *[]struct {
		Category    string  `yaml:"category"`
		Description string  `yaml:"description"`
		Amount      float64 `yaml:"amount"`
		DaysAgo     int     `yaml:"days_ago"`
	} `yaml:"expenses"`
}

// SeedFromFile reads a YAML seed file and returns a SeedFunc built on it.
func SeedFromFile(path string) (SeedFunc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	// A bad file fails here, at startup.
	if _, err := sf.build(time.Now()); err != nil {
		return nil, err
	}
	return func(now time.Time) core.State {
		s, _ := sf.build(now)
		return s
	}, nil
}

func (sf seedFile) build(now time.Time) (core.State, error) {
	s := DefaultSeed(now)
	if sf.Services != nil {
		s.Services = []core.Service{}
		for i, d := range *sf.Services {
			svc := core.Service{
				ID:          seedID("service", i+1),
				Name:        d.Name,
				Category:    d.Category,
				Duration:    d.Duration,
				Price:       core.FromMajor(d.Price),
				Description: d.Description,
			}
			if err := svc.Validate(); err != nil {
				return core.State{}, fmt.Errorf("seed service %d: %w", i+1, err)
			}
			s.Services = append(s.Services, svc)
		}
	}
	if sf.Clients != nil {
		s.Clients = []core.Client{}
		for i, d := range *sf.Clients {
			c := core.Client{
				ID:        seedID("client", i+1),
				Name:      d.Name,
				Phone:     d.Phone,
				Email:     d.Email,
				Notes:     d.Notes,
				CreatedAt: core.DateOf(now),
			}
			if err := c.Validate(); err != nil {
				return core.State{}, fmt.Errorf("seed client %d: %w", i+1, err)
			}
			s.Clients = append(s.Clients, c)
		}
	}
	if sf.Appointments != nil {
		s.Appointments = []core.Appointment{}
		for i, d := range *sf.Appointments {
			if d.Client < 1 || d.Client > len(s.Clients) || d.Service < 1 || d.Service > len(s.Services) {
				return core.State{}, fmt.Errorf("seed appointment %d: client or service index out of range", i+1)
			}
			c, svc := s.Clients[d.Client-1], s.Services[d.Service-1]
			status := core.Status(d.Status)
			if status == "" {
				status = core.StatusScheduled
			}
			a := core.Appointment{
				ID:          seedID("appointment", i+1),
				ClientID:    c.ID,
				ClientName:  c.Name,
				ServiceID:   svc.ID,
				ServiceName: svc.Name,
				Date:        core.DateOf(now.AddDate(0, 0, d.DaysFromToday)),
				Time:        d.Time,
				Duration:    svc.Duration,
				Price:       svc.Price,
				Status:      status,
			}
			if err := a.Validate(); err != nil {
				return core.State{}, fmt.Errorf("seed appointment %d: %w", i+1, err)
			}
			s.Appointments = append(s.Appointments, a)
		}
	} else if sf.Clients != nil || sf.Services != nil {
		// The built-in appointments point at built-in clients and services.
		s.Appointments = []core.Appointment{}
	}
	if sf.Expenses != nil {
		s.Expenses = []core.Expense{}
		for i, d := range *sf.Expenses {
			e := core.Expense{
				ID:          seedID("expense", i+1),
				Category:    d.Category,
				Description: d.Description,
				Amount:      core.FromMajor(d.Amount),
				Date:        core.DateOf(now.AddDate(0, 0, -d.DaysAgo)),
			}
			if err := e.Validate(); err != nil {
				return core.State{}, fmt.Errorf("seed expense %d: %w", i+1, err)
			}
			s.Expenses = append(s.Expenses, e)
		}
	}
	return s, nil
}
