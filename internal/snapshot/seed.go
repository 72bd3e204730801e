package snapshot

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"salon/internal/core"
)

// seedNamespace keeps seed ids stable across runs.
var seedNamespace = uuid.MustParse("6f1c2b8e-4a57-4c1e-9d0a-5b1f3e7c9a21")

func seedID(kind string, n int) string {
	return uuid.NewSHA1(seedNamespace, []byte(kind+"/"+strconv.Itoa(n))).String()
}

type seedService struct {
	name, category string
	duration       int
	price          int64
	description    string
}

type seedClient struct {
	name, phone, email, notes string
	created, lastVisit        core.Date
	visits                    int
	spent                     int64
}

type seedAppointment struct {
	client, service int // 1-based indexes into the seeded lists
	time            string
}

var defaultServices = []seedService{
	{"Tratament Facial Hidratant", "Facial", 60, 150, "Hidratare profundă cu acid hialuronic"},
	{"Manichiură Semipermanentă", "Unghii", 90, 120, "Aplicare gel cu durată lungă"},
	{"Pedichiură SPA", "Unghii", 75, 100, "Îngrijire completă cu masaj relaxant"},
	{"Epilare cu Ceară", "Epilare", 45, 80, "Epilare profesională zone multiple"},
	{"Masaj Facial Anti-Aging", "Facial", 45, 130, "Tehnici de lifting natural"},
	{"Tratament Acnee", "Facial", 60, 180, "Curățare profundă și tratament"},
	{"Extensii Gene", "Gene", 120, 250, "Aspect natural sau dramatic"},
	{"Laminare Gene", "Gene", 60, 150, "Lifting și hrănire gene naturale"},
}

var defaultClients = []seedClient{
	{"Maria Popescu", "0722 123 456", "maria@email.com", "Preferă programări dimineața", core.NewDate(2024, 1, 15), core.NewDate(2024, 12, 28), 12, 1850},
	{"Elena Ionescu", "0733 234 567", "elena@email.com", "Alergii la parfum", core.NewDate(2024, 3, 20), core.NewDate(2024, 12, 30), 8, 1200},
	{"Ana Dumitrescu", "0744 345 678", "", "", core.NewDate(2024, 6, 10), core.NewDate(2024, 12, 25), 5, 680},
	{"Cristina Marin", "0755 456 789", "cristina@email.com", "", core.NewDate(2024, 8, 5), core.NewDate(2024, 12, 29), 4, 520},
	{"Diana Stan", "0766 567 890", "", "", core.NewDate(2024, 10, 12), core.NewDate(2024, 12, 27), 3, 350},
}

var defaultAppointments = []seedAppointment{
	{1, 1, "09:00"},
	{2, 7, "10:30"},
	{3, 2, "14:00"},
	{4, 5, "16:00"},
}

// DefaultSeed is the demo catalogue: eight services, five clients and four
// appointments scheduled on the day of now. There are no expenses.
func DefaultSeed(now time.Time) core.State {
	s := core.State{Expenses: []core.Expense{}}
	for i, d := range defaultServices {
		s.Services = append(s.Services, core.Service{
			ID:          seedID("service", i+1),
			Name:        d.name,
			Category:    d.category,
			Duration:    d.duration,
			Price:       core.Money{Cents: d.price * 100},
			Description: d.description,
		})
	}
	for i, d := range defaultClients {
		lv := d.lastVisit
		s.Clients = append(s.Clients, core.Client{
			ID:          seedID("client", i+1),
			Name:        d.name,
			Phone:       d.phone,
			Email:       d.email,
			Notes:       d.notes,
			CreatedAt:   d.created,
			LastVisit:   &lv,
			TotalVisits: d.visits,
			TotalSpent:  core.Money{Cents: d.spent * 100},
		})
	}
	for i, d := range defaultAppointments {
		c := s.Clients[d.client-1]
		svc := s.Services[d.service-1]
		s.Appointments = append(s.Appointments, core.Appointment{
			ID:          seedID("appointment", i+1),
			ClientID:    c.ID,
			ClientName:  c.Name,
			ServiceID:   svc.ID,
			ServiceName: svc.Name,
			Date:        core.DateOf(now),
			Time:        d.time,
			Duration:    svc.Duration,
			Price:       svc.Price,
			Status:      core.StatusScheduled,
		})
	}
	return s
}
