package core

// Patches carry a partial update. A nil field is left unchanged.
type (
	ClientPatch struct {
		Name        *string
		Phone       *string
		Email       *string
		Notes       *string
		LastVisit   *Date
		TotalVisits *int
		TotalSpent  *Money
	}

	ServicePatch struct {
		Name        *string
		Category    *string
		Duration    *int
		Price       *Money
		Description *string
	}

	// AppointmentPatch only reaches the fields that may change after
	// booking. Client, service, price and duration stay as they were
	// copied at creation.
	AppointmentPatch struct {
		Date       *Date
		Time       *string
		Status     *Status
		FinalPrice *Money
		Notes      *string
	}

	ExpensePatch struct {
		Category    *string
		Description *string
		Amount      *Money
		Date        *Date
		Notes       *string
	}
)

func (p ClientPatch) Apply(c Client) Client {
	setIf(&c.Name, p.Name)
	setIf(&c.Phone, p.Phone)
	setIf(&c.Email, p.Email)
	setIf(&c.Notes, p.Notes)
	setIf(&c.TotalVisits, p.TotalVisits)
	setIf(&c.TotalSpent, p.TotalSpent)
	if p.LastVisit != nil {
		lv := *p.LastVisit
		c.LastVisit = &lv
	}
	return c
}

func (p ServicePatch) Apply(s Service) Service {
	setIf(&s.Name, p.Name)
	setIf(&s.Category, p.Category)
	setIf(&s.Duration, p.Duration)
	setIf(&s.Price, p.Price)
	setIf(&s.Description, p.Description)
	return s
}

func (p AppointmentPatch) Apply(a Appointment) Appointment {
	setIf(&a.Date, p.Date)
	setIf(&a.Time, p.Time)
	setIf(&a.Status, p.Status)
	setIf(&a.Notes, p.Notes)
	if p.FinalPrice != nil {
		fp := *p.FinalPrice
		a.FinalPrice = &fp
	}
	return a
}

func (p ExpensePatch) Apply(e Expense) Expense {
	setIf(&e.Category, p.Category)
	setIf(&e.Description, p.Description)
	setIf(&e.Amount, p.Amount)
	setIf(&e.Date, p.Date)
	setIf(&e.Notes, p.Notes)
	return e
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T { return &v }
