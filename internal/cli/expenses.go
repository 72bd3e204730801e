package cli

import (
	"context"
	"fmt"
	"io"

	"salon/internal/core"
	applog "salon/internal/log"
)

func (a *App) expenseCmd(ctx context.Context, args []string) error {
	return dispatch(ctx, "expense", args, map[string]command{
		"list":   a.expenseList,
		"add":    a.expenseAdd,
		"update": a.expenseUpdate,
		"delete": a.expenseDelete,
	})
}

func (a *App) expenseList(_ context.Context, args []string) error {
	fs := a.flags("expense list")
	category := fs.String("category", "", "only this category, ignoring case")
	asJSON := fs.Bool("json", false, "print JSON")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	list := a.Store.Expenses(*category)
	var total core.Money
	for _, e := range list {
		total = total.Add(e.Amount)
	}
	return a.render(*asJSON, list, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tDATE\tCATEGORY\tDESCRIPTION\tAMOUNT")
		for _, e := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.ID, a.day(e.Date), e.Category, e.Description, e.Amount)
		}
		fmt.Fprintf(w, "\t\t\tTotal\t%s\n", total)
	})
}

func (a *App) expenseAdd(ctx context.Context, args []string) error {
	fs := a.flags("expense add")
	category := fs.String("category", "", "category label")
	description := fs.String("description", "", "what was bought")
	amount := fs.String("amount", "", "amount, e.g. 120.50")
	date := fs.String("date", "", "day (YYYY-MM-DD), defaults to now")
	notes := fs.String("notes", "", "notes")
	asJSON := fs.Bool("json", false, "print JSON")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	amt, err := core.ParseAmount(*amount)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}
	e := core.Expense{Category: *category, Description: *description, Amount: amt, Notes: *notes}
	if *date != "" {
		if e.Date, err = a.parseDay(*date); err != nil {
			return err
		}
	}
	a.warnUnknownCategory(ctx, e.Category)
	e, err = a.Store.AddExpense(ctx, e)
	if err != nil {
		return err
	}
	return a.printCreated(*asJSON, "expense", e.ID, e)
}

func (a *App) expenseUpdate(ctx context.Context, args []string) error {
	fs := a.flags("expense update")
	category := fs.String("category", "", "category label")
	description := fs.String("description", "", "what was bought")
	amount := fs.String("amount", "", "amount")
	date := fs.String("date", "", "day (YYYY-MM-DD)")
	notes := fs.String("notes", "", "notes")
	id, err := parseOne(fs, args, "ID [flags]")
	if err != nil {
		return err
	}
	set := setFlags(fs)
	var patch core.ExpensePatch
	if set["category"] {
		a.warnUnknownCategory(ctx, *category)
		patch.Category = category
	}
	if set["description"] {
		patch.Description = description
	}
	if set["notes"] {
		patch.Notes = notes
	}
	if set["amount"] {
		amt, err := core.ParseAmount(*amount)
		if err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		patch.Amount = &amt
	}
	if set["date"] {
		d, err := a.parseDay(*date)
		if err != nil {
			return err
		}
		patch.Date = &d
	}
	_, ok, err := a.Store.UpdateExpense(ctx, id, patch)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("expense", id)
	}
	fmt.Fprintf(a.Out, "Updated expense %s\n", id)
	return nil
}

func (a *App) expenseDelete(ctx context.Context, args []string) error {
	id, err := parseOne(a.flags("expense delete"), args, "ID")
	if err != nil {
		return err
	}
	if !a.Store.DeleteExpense(ctx, id) {
		return notFound("expense", id)
	}
	fmt.Fprintf(a.Out, "Deleted expense %s\n", id)
	return nil
}

// warnUnknownCategory logs labels outside the configured list. They are
// still accepted; reports group them on their own.
func (a *App) warnUnknownCategory(ctx context.Context, name string) {
	if a.Settings == nil || name == "" {
		return
	}
	labels, err := a.Settings.ExpenseLabels(ctx)
	if err != nil {
		return
	}
	for _, l := range labels {
		if equalFold(l, name) {
			return
		}
	}
	a.Logger.WarnContext(ctx, "Expense category is not configured", applog.FieldCategory, name)
}
