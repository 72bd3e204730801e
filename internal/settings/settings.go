// Package settings keeps user preferences and the service and expense
// category lists. Each value lives under its own storage key, apart from
// the salon snapshot.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"salon/internal/core"
	applog "salon/internal/log"
	"salon/internal/storage"
)

const (
	KeyThemeMode         = "themeMode"
	KeyColorTheme        = "colorTheme"
	KeyLanguage          = "language"
	KeyServiceCategories = "serviceCategories"
	KeyExpenseCategories = "expenseCategories"
)

var (
	ThemeModes  = []string{"light", "dark"}
	ColorThemes = []string{"rose-gold", "ocean-blue", "forest-green"}
	Languages   = []string{"ro", "ru", "en"}
)

var (
	ErrInvalidValue      = errors.New("invalid setting value")
	ErrDuplicateCategory = errors.New("category already exists")
)

type Settings struct {
	ThemeMode         string          `json:"themeMode"`
	ColorTheme        string          `json:"colorTheme"`
	Language          string          `json:"language"`
	ServiceCategories []core.Category `json:"serviceCategories"`
	ExpenseCategories []core.Category `json:"expenseCategories"`
}

func Defaults() Settings {
	return Settings{
		ThemeMode:  "light",
		ColorTheme: "rose-gold",
		Language:   "ro",
		ServiceCategories: []core.Category{
			{ID: "1", Name: "Manichiură", Type: core.CategoryService},
			{ID: "2", Name: "Pedichiură", Type: core.CategoryService},
			{ID: "3", Name: "Coafor", Type: core.CategoryService},
			{ID: "4", Name: "Cosmetologie", Type: core.CategoryService},
			{ID: "5", Name: "Masaj", Type: core.CategoryService},
		},
		ExpenseCategories: []core.Category{
			{ID: "10", Name: "Produse", Type: core.CategoryExpense},
			{ID: "11", Name: "Ustensile", Type: core.CategoryExpense},
			{ID: "12", Name: "Chirie", Type: core.CategoryExpense},
			{ID: "13", Name: "Utilități", Type: core.CategoryExpense},
			{ID: "14", Name: "Marketing", Type: core.CategoryExpense},
			{ID: "15", Name: "Altele", Type: core.CategoryExpense},
		},
	}
}

type Manager struct {
	mu     sync.Mutex
	kv     storage.KV
	newID  func() string
	logger *applog.Logger
}

func NewManager(kv storage.KV, logger *applog.Logger) *Manager {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Manager{
		kv:     kv,
		newID:  func() string { return uuid.NewString() },
		logger: logger.WithComponent(applog.ComponentSettings),
	}
}

// Load returns every setting. Missing or unrecognised stored values read as
// their defaults.
func (m *Manager) Load(ctx context.Context) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx)
}

func (m *Manager) load(ctx context.Context) (Settings, error) {
	s := Defaults()
	var err error
	if s.ThemeMode, err = m.choice(ctx, KeyThemeMode, ThemeModes, s.ThemeMode); err != nil {
		return Settings{}, err
	}
	if s.ColorTheme, err = m.choice(ctx, KeyColorTheme, ColorThemes, s.ColorTheme); err != nil {
		return Settings{}, err
	}
	if s.Language, err = m.choice(ctx, KeyLanguage, Languages, s.Language); err != nil {
		return Settings{}, err
	}
	if s.ServiceCategories, err = m.categories(ctx, KeyServiceCategories, s.ServiceCategories); err != nil {
		return Settings{}, err
	}
	if s.ExpenseCategories, err = m.categories(ctx, KeyExpenseCategories, s.ExpenseCategories); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (m *Manager) choice(ctx context.Context, key string, allowed []string, def string) (string, error) {
	v, ok, err := m.kv.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return def, nil
	}
	if !slices.Contains(allowed, v) {
		m.logger.WarnContext(ctx, "Ignoring unknown stored setting", applog.FieldKey, key, "value", v)
		return def, nil
	}
	return v, nil
}

func (m *Manager) categories(ctx context.Context, key string, def []core.Category) ([]core.Category, error) {
	raw, ok, err := m.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if !ok {
		return def, nil
	}
	var out []core.Category
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		m.logger.WarnContext(ctx, "Stored category list is unreadable, using defaults", applog.FieldKey, key, applog.FieldError, err)
		return def, nil
	}
	return out, nil
}

func (m *Manager) SetThemeMode(ctx context.Context, v string) error {
	return m.setChoice(ctx, KeyThemeMode, ThemeModes, v)
}

func (m *Manager) SetColorTheme(ctx context.Context, v string) error {
	return m.setChoice(ctx, KeyColorTheme, ColorThemes, v)
}

func (m *Manager) SetLanguage(ctx context.Context, v string) error {
	return m.setChoice(ctx, KeyLanguage, Languages, v)
}

// Set updates a preference by its storage key.
func (m *Manager) Set(ctx context.Context, key, v string) error {
	switch key {
	case KeyThemeMode:
		return m.SetThemeMode(ctx, v)
	case KeyColorTheme:
		return m.SetColorTheme(ctx, v)
	case KeyLanguage:
		return m.SetLanguage(ctx, v)
	}
	return fmt.Errorf("%w: unknown setting %q", ErrInvalidValue, key)
}

func (m *Manager) setChoice(ctx context.Context, key string, allowed []string, v string) error {
	if !slices.Contains(allowed, v) {
		return fmt.Errorf("%w: %s must be one of %v", ErrInvalidValue, key, allowed)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kv.Set(ctx, key, v)
}

// AddCategory appends a category of the given type. Names are unique per
// type, ignoring case.
func (m *Manager) AddCategory(ctx context.Context, typ core.CategoryType, name string) (core.Category, error) {
	c := core.Category{ID: m.newID(), Name: strings.TrimSpace(name), Type: typ}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.load(ctx)
	if err != nil {
		return core.Category{}, err
	}
	list := s.list(typ)
	if err := checkUnique(list, c.Name, -1); err != nil {
		return core.Category{}, err
	}
	if err := m.saveList(ctx, typ, append(list, c)); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

// RenameCategory renames the category with id in whichever list holds it.
// The new name must not match another category of that list, ignoring
// case. Entities that stored the old name keep it.
func (m *Manager) RenameCategory(ctx context.Context, id, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, core.ErrEmptyName
	}
	return m.editLists(ctx, id, func(list []core.Category, i int) ([]core.Category, error) {
		if err := checkUnique(list, name, i); err != nil {
			return nil, err
		}
		list[i].Name = name
		return list, nil
	})
}

// DeleteCategory removes the category with id. Entities that reference it
// by name are left alone.
func (m *Manager) DeleteCategory(ctx context.Context, id string) (bool, error) {
	return m.editLists(ctx, id, func(list []core.Category, i int) ([]core.Category, error) {
		return slices.Delete(list, i, i+1), nil
	})
}

// checkUnique rejects name when a category other than list[skip] already
// uses it.
func checkUnique(list []core.Category, name string, skip int) error {
	fold := cases.Fold()
	for i, existing := range list {
		if i != skip && fold.String(existing.Name) == fold.String(name) {
			return fmt.Errorf("%w: %s", ErrDuplicateCategory, existing.Name)
		}
	}
	return nil
}

func (m *Manager) editLists(ctx context.Context, id string, edit func([]core.Category, int) ([]core.Category, error)) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.load(ctx)
	if err != nil {
		return false, err
	}
	found := false
	for _, typ := range []core.CategoryType{core.CategoryService, core.CategoryExpense} {
		list := s.list(typ)
		i := slices.IndexFunc(list, func(c core.Category) bool { return c.ID == id })
		if i < 0 {
			continue
		}
		next, err := edit(list, i)
		if err != nil {
			return false, err
		}
		if err := m.saveList(ctx, typ, next); err != nil {
			return false, err
		}
		found = true
	}
	return found, nil
}

func (m *Manager) saveList(ctx context.Context, typ core.CategoryType, list []core.Category) error {
	key := KeyServiceCategories
	if typ == core.CategoryExpense {
		key = KeyExpenseCategories
	}
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return m.kv.Set(ctx, key, string(data))
}

// ExpenseLabels lists the configured expense category names.
func (m *Manager) ExpenseLabels(ctx context.Context) ([]string, error) {
	s, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(s.ExpenseCategories))
	for i, c := range s.ExpenseCategories {
		out[i] = c.Name
	}
	return out, nil
}

func (s Settings) list(typ core.CategoryType) []core.Category {
	if typ == core.CategoryExpense {
		return slices.Clone(s.ExpenseCategories)
	}
	return slices.Clone(s.ServiceCategories)
}
