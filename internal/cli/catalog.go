package cli

import (
	"context"
	"flag"
	"fmt"
	"io"

	"salon/internal/core"
)

func (a *App) serviceCmd(ctx context.Context, args []string) error {
	return dispatch(ctx, "service", args, map[string]command{
		"list":   a.serviceList,
		"add":    a.serviceAdd,
		"update": a.serviceUpdate,
		"delete": a.serviceDelete,
	})
}

func (a *App) serviceList(_ context.Context, args []string) error {
	fs := a.flags("service list")
	category := fs.String("category", "", "only this category")
	asJSON := fs.Bool("json", false, "print JSON")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	list := a.Store.Services(*category)
	return a.render(*asJSON, list, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tMINUTES\tPRICE")
		for _, s := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", s.ID, s.Name, s.Category, s.Duration, s.Price)
		}
	})
}

type serviceFlags struct {
	name, category, price, description *string
	duration                           *int
}

func (a *App) serviceFlagSet(name string) (*flag.FlagSet, serviceFlags) {
	fs := a.flags(name)
	return fs, serviceFlags{
		name:        fs.String("name", "", "service name"),
		category:    fs.String("category", "", "service category"),
		duration:    fs.Int("duration", 0, "duration in minutes"),
		price:       fs.String("price", "", "price, e.g. 150 or 12.50"),
		description: fs.String("description", "", "description"),
	}
}

func (a *App) serviceAdd(ctx context.Context, args []string) error {
	fs, f := a.serviceFlagSet("service add")
	asJSON := fs.Bool("json", false, "print JSON")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	price, err := core.ParseAmount(*f.price)
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}
	s, err := a.Store.AddService(ctx, core.Service{
		Name:        *f.name,
		Category:    *f.category,
		Duration:    *f.duration,
		Price:       price,
		Description: *f.description,
	})
	if err != nil {
		return err
	}
	return a.printCreated(*asJSON, "service", s.ID, s)
}

func (a *App) serviceUpdate(ctx context.Context, args []string) error {
	fs, f := a.serviceFlagSet("service update")
	id, err := parseOne(fs, args, "ID [flags]")
	if err != nil {
		return err
	}
	set := setFlags(fs)
	var patch core.ServicePatch
	if set["name"] {
		patch.Name = f.name
	}
	if set["category"] {
		patch.Category = f.category
	}
	if set["duration"] {
		patch.Duration = f.duration
	}
	if set["description"] {
		patch.Description = f.description
	}
	if set["price"] {
		price, err := core.ParseAmount(*f.price)
		if err != nil {
			return fmt.Errorf("price: %w", err)
		}
		patch.Price = &price
	}
	_, ok, err := a.Store.UpdateService(ctx, id, patch)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("service", id)
	}
	fmt.Fprintf(a.Out, "Updated service %s\n", id)
	return nil
}

func (a *App) serviceDelete(ctx context.Context, args []string) error {
	id, err := parseOne(a.flags("service delete"), args, "ID")
	if err != nil {
		return err
	}
	if !a.Store.DeleteService(ctx, id) {
		return notFound("service", id)
	}
	fmt.Fprintf(a.Out, "Deleted service %s\n", id)
	return nil
}
