package settings

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"salon/internal/core"
	"salon/internal/storage/memory"
)

func newTestManager(stored map[string]string) (*Manager, *memory.Store) {
	kv := memory.NewWith(stored)
	m := NewManager(kv, nil)
	n := 0
	m.newID = func() string {
		n++
		return "new-" + strconv.Itoa(n)
	}
	return m, kv
}

func TestLoadDefaults(t *testing.T) {
	m, _ := newTestManager(nil)
	s, err := m.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.ThemeMode != "light" || s.ColorTheme != "rose-gold" || s.Language != "ro" {
		t.Errorf("unexpected preferences %+v", s)
	}
	if len(s.ServiceCategories) != 5 || len(s.ExpenseCategories) != 6 {
		t.Errorf("default categories = %d/%d", len(s.ServiceCategories), len(s.ExpenseCategories))
	}
}

func TestLoadIgnoresInvalidStoredValues(t *testing.T) {
	m, _ := newTestManager(map[string]string{
		KeyThemeMode:         "sepia",
		KeyLanguage:          "ru",
		KeyExpenseCategories: "not json",
	})
	s, err := m.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.ThemeMode != "light" {
		t.Errorf("ThemeMode = %q, want default", s.ThemeMode)
	}
	if s.Language != "ru" {
		t.Errorf("Language = %q, want ru", s.Language)
	}
	if len(s.ExpenseCategories) != 6 {
		t.Errorf("unreadable category list should fall back to defaults")
	}
}

func TestSetPreferences(t *testing.T) {
	ctx := context.Background()
	m, kv := newTestManager(nil)

	tests := []struct {
		key, value string
		wantErr    bool
	}{
		{KeyThemeMode, "dark", false},
		{KeyColorTheme, "ocean-blue", false},
		{KeyLanguage, "en", false},
		{KeyLanguage, "fr", true},
		{KeyColorTheme, "purple", true},
		{"fontSize", "12", true},
	}
	for _, tt := range tests {
		err := m.Set(ctx, tt.key, tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("Set(%s, %s) error = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidValue) {
			t.Errorf("Set(%s) error %v is not ErrInvalidValue", tt.key, err)
		}
	}

	if v, _, _ := kv.Get(ctx, KeyThemeMode); v != "dark" {
		t.Errorf("themeMode stored as %q", v)
	}
	s, _ := m.Load(ctx)
	if s.ColorTheme != "ocean-blue" || s.Language != "en" {
		t.Errorf("unexpected settings after Set: %+v", s)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(nil)

	c, err := m.AddCategory(ctx, core.CategoryExpense, "  Transport ")
	if err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	if c.ID != "new-1" || c.Name != "Transport" || c.Type != core.CategoryExpense {
		t.Fatalf("unexpected category %+v", c)
	}
	if _, err := m.AddCategory(ctx, core.CategoryExpense, "transport"); !errors.Is(err, ErrDuplicateCategory) {
		t.Errorf("duplicate add error = %v", err)
	}
	if _, err := m.AddCategory(ctx, core.CategoryService, " "); err == nil {
		t.Errorf("expected empty name to be rejected")
	}

	labels, _ := m.ExpenseLabels(ctx)
	if len(labels) != 7 || labels[6] != "Transport" {
		t.Fatalf("ExpenseLabels = %v", labels)
	}

	ok, err := m.RenameCategory(ctx, "3", "Hair")
	if err != nil || !ok {
		t.Fatalf("RenameCategory = %v, %v", ok, err)
	}
	if ok, err := m.RenameCategory(ctx, "11", "produse"); !errors.Is(err, ErrDuplicateCategory) || ok {
		t.Errorf("rename onto an existing name = %v, %v", ok, err)
	}
	if ok, err := m.RenameCategory(ctx, "3", "hair"); err != nil || !ok {
		t.Errorf("case-only rename of the same category = %v, %v", ok, err)
	}
	if ok, err := m.RenameCategory(ctx, "11", "Marketing online"); err != nil || !ok {
		t.Errorf("rename to a free name = %v, %v", ok, err)
	}
	ok, err = m.DeleteCategory(ctx, "12")
	if err != nil || !ok {
		t.Fatalf("DeleteCategory = %v, %v", ok, err)
	}
	ok, err = m.DeleteCategory(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("DeleteCategory(missing) = %v, %v", ok, err)
	}

	s, _ := m.Load(ctx)
	if s.ServiceCategories[2].Name != "hair" {
		t.Errorf("rename not persisted: %+v", s.ServiceCategories)
	}
	for _, c := range s.ExpenseCategories {
		if c.ID == "12" {
			t.Errorf("deleted category still present")
		}
	}
	if len(s.ExpenseCategories) != 6 {
		t.Errorf("expense categories = %d, want 6", len(s.ExpenseCategories))
	}
	produse := 0
	for _, c := range s.ExpenseCategories {
		if strings.EqualFold(c.Name, "Produse") {
			produse++
		}
	}
	if produse != 1 {
		t.Errorf("%d expense categories named Produse", produse)
	}
}
