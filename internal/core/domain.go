package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

const (
	CategoryService CategoryType = "service"
	CategoryExpense CategoryType = "expense"
)

type (
	Status string

	CategoryType string

	Money struct {
		Cents int64
	}

	Client struct {
		ID          string `json:"id"`
		Name        string `json:"name" validate:"required,max=200"`
		Phone       string `json:"phone" validate:"max=50"`
		Email       string `json:"email,omitempty" validate:"omitempty,email"`
		Notes       string `json:"notes,omitempty"`
		CreatedAt   Date   `json:"createdAt"`
		LastVisit   *Date  `json:"lastVisit,omitempty"`
		TotalVisits int    `json:"totalVisits" validate:"gte=0"`
		TotalSpent  Money  `json:"totalSpent"`
	}

	// Service is a catalog entry. Appointments copy its name, price and
	// duration when they are created.
	Service struct {
		ID          string `json:"id"`
		Name        string `json:"name" validate:"required,max=200"`
		Category    string `json:"category"`
		Duration    int    `json:"duration" validate:"gt=0"` // minutes
		Price       Money  `json:"price"`
		Description string `json:"description,omitempty"`
	}

	Appointment struct {
		ID          string `json:"id"`
		ClientID    string `json:"clientId" validate:"required"`
		ClientName  string `json:"clientName"`
		ServiceID   string `json:"serviceId" validate:"required"`
		ServiceName string `json:"serviceName"`
		Date        Date   `json:"date"`
		Time        string `json:"time" validate:"datetime=15:04"`
		Duration    int    `json:"duration" validate:"gte=0"`
		Price       Money  `json:"price"`
		Status      Status `json:"status" validate:"oneof=scheduled completed cancelled"`
		FinalPrice  *Money `json:"finalPrice,omitempty"`
		Notes       string `json:"notes,omitempty"`
	}

	// Expense.Category holds the category label by value.
	Expense struct {
		ID          string `json:"id"`
		Category    string `json:"category" validate:"required"`
		Description string `json:"description" validate:"max=200"`
		Amount      Money  `json:"amount"`
		Date        Date   `json:"date"`
		Notes       string `json:"notes,omitempty"`
	}

	Category struct {
		ID   string       `json:"id"`
		Name string       `json:"name" validate:"required,max=100"`
		Type CategoryType `json:"type" validate:"oneof=service expense"`
	}

	// State is the full set of entity collections.
	State struct {
		Clients      []Client      `json:"clients"`
		Services     []Service     `json:"services"`
		Appointments []Appointment `json:"appointments"`
		Expenses     []Expense     `json:"expenses"`
	}
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidTime     = errors.New("invalid time, expected HH:MM")
	ErrInvalidStatus   = errors.New("invalid appointment status")
	ErrInvalidDuration = errors.New("duration must be positive")
	ErrInvalidEmail    = errors.New("invalid email")
	ErrEmptyName       = errors.New("empty name")
	ErrEmptyCategory   = errors.New("empty category")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError reports the first field that failed a rule.
type ValidationError struct {
	Field string
	Rule  string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", strings.ToLower(e.Field), e.Err, e.Rule)
}

func (e *ValidationError) Unwrap() []error { return []error{e.Err, ErrValidation} }

func checkStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	fe := verrs[0]
	return &ValidationError{Field: fe.Field(), Rule: fe.Tag(), Err: sentinelFor(fe.Field(), fe.Tag())}
}

func sentinelFor(field, tag string) error {
	switch {
	case tag == "email":
		return ErrInvalidEmail
	case tag == "datetime":
		return ErrInvalidTime
	case field == "Status":
		return ErrInvalidStatus
	case field == "Duration":
		return ErrInvalidDuration
	case field == "Name":
		return ErrEmptyName
	case field == "Category":
		return ErrEmptyCategory
	}
	return ErrValidation
}

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (c Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "Name", Rule: "required", Err: ErrEmptyName}
	}
	if err := checkStruct(c); err != nil {
		return err
	}
	return c.TotalSpent.Validate()
}

func (s Service) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return &ValidationError{Field: "Name", Rule: "required", Err: ErrEmptyName}
	}
	if err := checkStruct(s); err != nil {
		return err
	}
	return s.Price.Validate()
}

func (a Appointment) Validate() error {
	if err := checkStruct(a); err != nil {
		return err
	}
	if err := a.Date.Validate(); err != nil {
		return err
	}
	if err := a.Price.Validate(); err != nil {
		return err
	}
	if a.FinalPrice != nil {
		return a.FinalPrice.Validate()
	}
	return nil
}

// Realized is the amount an appointment contributes to revenue once completed.
func (a Appointment) Realized() Money {
	if a.FinalPrice != nil {
		return *a.FinalPrice
	}
	return a.Price
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Category) == "" {
		return &ValidationError{Field: "Category", Rule: "required", Err: ErrEmptyCategory}
	}
	if err := checkStruct(e); err != nil {
		return err
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	return e.Amount.Validate()
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "Name", Rule: "required", Err: ErrEmptyName}
	}
	return checkStruct(c)
}

// Clone returns a deep copy; optional fields are not shared with s.
func (s State) Clone() State {
	out := State{
		Clients:      make([]Client, len(s.Clients)),
		Services:     append([]Service{}, s.Services...),
		Appointments: make([]Appointment, len(s.Appointments)),
		Expenses:     append([]Expense{}, s.Expenses...),
	}
	for i, c := range s.Clients {
		if c.LastVisit != nil {
			lv := *c.LastVisit
			c.LastVisit = &lv
		}
		out.Clients[i] = c
	}
	for i, a := range s.Appointments {
		if a.FinalPrice != nil {
			fp := *a.FinalPrice
			a.FinalPrice = &fp
		}
		out.Appointments[i] = a
	}
	return out
}
