package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"

	"salon/internal/core"
	"salon/internal/settings"
)

func (a *App) categoryCmd(ctx context.Context, args []string) error {
	return dispatch(ctx, "category", args, map[string]command{
		"list":   a.categoryList,
		"add":    a.categoryAdd,
		"rename": a.categoryRename,
		"delete": a.categoryDelete,
	})
}

func (a *App) categoryList(ctx context.Context, args []string) error {
	fs := a.flags("category list")
	typ := fs.String("type", "", "service or expense, both when empty")
	asJSON := fs.Bool("json", false, "print JSON")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	s, err := a.Settings.Load(ctx)
	if err != nil {
		return err
	}
	var list []core.Category
	switch core.CategoryType(*typ) {
	case core.CategoryService:
		list = s.ServiceCategories
	case core.CategoryExpense:
		list = s.ExpenseCategories
	case "":
		list = append(append(list, s.ServiceCategories...), s.ExpenseCategories...)
	default:
		return fmt.Errorf("%w: -type must be service or expense", ErrUsage)
	}
	return a.render(*asJSON, list, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tTYPE\tNAME")
		for _, c := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Type, c.Name)
		}
	})
}

func (a *App) categoryAdd(ctx context.Context, args []string) error {
	fs := a.flags("category add")
	typ := fs.String("type", string(core.CategoryExpense), "service or expense")
	asJSON := fs.Bool("json", false, "print JSON")
	pos, err := parse(fs, args)
	if err != nil {
		return err
	}
	if len(pos) == 0 {
		return fmt.Errorf("%w: salon category add [-type T] NAME", ErrUsage)
	}
	c, err := a.Settings.AddCategory(ctx, core.CategoryType(*typ), strings.Join(pos, " "))
	if err != nil {
		return err
	}
	return a.printCreated(*asJSON, "category", c.ID, c)
}

func (a *App) categoryRename(ctx context.Context, args []string) error {
	pos, err := parse(a.flags("category rename"), args)
	if err != nil {
		return err
	}
	if len(pos) < 2 {
		return fmt.Errorf("%w: salon category rename ID NAME", ErrUsage)
	}
	ok, err := a.Settings.RenameCategory(ctx, pos[0], strings.Join(pos[1:], " "))
	if err != nil {
		return err
	}
	if !ok {
		return notFound("category", pos[0])
	}
	fmt.Fprintf(a.Out, "Renamed category %s\n", pos[0])
	return nil
}

func (a *App) categoryDelete(ctx context.Context, args []string) error {
	id, err := parseOne(a.flags("category delete"), args, "ID")
	if err != nil {
		return err
	}
	ok, err := a.Settings.DeleteCategory(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("category", id)
	}
	fmt.Fprintf(a.Out, "Deleted category %s\n", id)
	return nil
}

func (a *App) settingsCmd(ctx context.Context, args []string) error {
	return dispatch(ctx, "settings", args, map[string]command{
		"show": a.settingsShow,
		"set":  a.settingsSet,
	})
}

func (a *App) settingsShow(ctx context.Context, args []string) error {
	fs := a.flags("settings show")
	asJSON := fs.Bool("json", false, "print JSON")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	s, err := a.Settings.Load(ctx)
	if err != nil {
		return err
	}
	return a.render(*asJSON, s, func(w io.Writer) {
		fmt.Fprintf(w, "%s\t%s\n", settings.KeyThemeMode, s.ThemeMode)
		fmt.Fprintf(w, "%s\t%s\n", settings.KeyColorTheme, s.ColorTheme)
		fmt.Fprintf(w, "%s\t%s\n", settings.KeyLanguage, s.Language)
		fmt.Fprintf(w, "%s\t%s\n", settings.KeyServiceCategories, categoryNames(s.ServiceCategories))
		fmt.Fprintf(w, "%s\t%s\n", settings.KeyExpenseCategories, categoryNames(s.ExpenseCategories))
	})
}

func (a *App) settingsSet(ctx context.Context, args []string) error {
	pos, err := parse(a.flags("settings set"), args)
	if err != nil {
		return err
	}
	if len(pos) != 2 {
		return fmt.Errorf("%w: salon settings set KEY VALUE", ErrUsage)
	}
	if err := a.Settings.Set(ctx, pos[0], pos[1]); err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "%s = %s\n", pos[0], pos[1])
	return nil
}

func categoryNames(list []core.Category) string {
	names := make([]string, len(list))
	for i, c := range list {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

func equalFold(a, b string) bool {
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}
