package cli

import (
	"context"
	"fmt"
	"io"

	"salon/internal/core"
)

func (a *App) clientCmd(ctx context.Context, args []string) error {
	return dispatch(ctx, "client", args, map[string]command{
		"list":   a.clientList,
		"show":   a.clientShow,
		"add":    a.clientAdd,
		"update": a.clientUpdate,
		"delete": a.clientDelete,
	})
}

func (a *App) clientList(_ context.Context, args []string) error {
	fs := a.flags("client list")
	search := fs.String("search", "", "match name or phone")
	asJSON := fs.Bool("json", false, "print JSON")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	clients := a.Store.Clients(*search)
	return a.render(*asJSON, clients, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tNAME\tPHONE\tVISITS\tSPENT\tLAST VISIT")
		for _, c := range clients {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n", c.ID, c.Name, c.Phone, c.TotalVisits, c.TotalSpent, a.optDay(c.LastVisit))
		}
	})
}

func (a *App) clientShow(_ context.Context, args []string) error {
	fs := a.flags("client show")
	asJSON := fs.Bool("json", false, "print JSON")
	id, err := parseOne(fs, args, "ID")
	if err != nil {
		return err
	}
	c, ok := a.Store.Client(id)
	if !ok {
		return notFound("client", id)
	}
	var history []core.Appointment
	for _, ap := range a.Store.Appointments() {
		if ap.ClientID == id {
			history = append(history, ap)
		}
	}

	view := struct {
		core.Client
		Appointments []core.Appointment `json:"appointments"`
	}{c, history}
	return a.render(*asJSON, view, func(w io.Writer) {
		fmt.Fprintf(w, "Name:\t%s\n", c.Name)
		fmt.Fprintf(w, "Phone:\t%s\n", c.Phone)
		if c.Email != "" {
			fmt.Fprintf(w, "Email:\t%s\n", c.Email)
		}
		if c.Notes != "" {
			fmt.Fprintf(w, "Notes:\t%s\n", c.Notes)
		}
		fmt.Fprintf(w, "Client since:\t%s\n", a.day(c.CreatedAt))
		fmt.Fprintf(w, "Visits:\t%d\n", c.TotalVisits)
		fmt.Fprintf(w, "Spent:\t%s\n", c.TotalSpent)
		fmt.Fprintf(w, "Last visit:\t%s\n", a.optDay(c.LastVisit))
		if len(history) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "DATE\tTIME\tSERVICE\tSTATUS\tPRICE")
			for _, ap := range history {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.day(ap.Date), ap.Time, ap.ServiceName, ap.Status, ap.Realized())
			}
		}
	})
}

func (a *App) clientAdd(ctx context.Context, args []string) error {
	fs := a.flags("client add")
	name := fs.String("name", "", "full name")
	phone := fs.String("phone", "", "phone number")
	email := fs.String("email", "", "email address")
	notes := fs.String("notes", "", "free-form notes")
	asJSON := fs.Bool("json", false, "print JSON")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	c, err := a.Store.AddClient(ctx, core.Client{Name: *name, Phone: *phone, Email: *email, Notes: *notes})
	if err != nil {
		return err
	}
	return a.printCreated(*asJSON, "client", c.ID, c)
}

func (a *App) clientUpdate(ctx context.Context, args []string) error {
	fs := a.flags("client update")
	name := fs.String("name", "", "full name")
	phone := fs.String("phone", "", "phone number")
	email := fs.String("email", "", "email address")
	notes := fs.String("notes", "", "free-form notes")
	id, err := parseOne(fs, args, "ID [flags]")
	if err != nil {
		return err
	}
	set := setFlags(fs)
	var patch core.ClientPatch
	if set["name"] {
		patch.Name = name
	}
	if set["phone"] {
		patch.Phone = phone
	}
	if set["email"] {
		patch.Email = email
	}
	if set["notes"] {
		patch.Notes = notes
	}
	_, ok, err := a.Store.UpdateClient(ctx, id, patch)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("client", id)
	}
	fmt.Fprintf(a.Out, "Updated client %s\n", id)
	return nil
}

func (a *App) clientDelete(ctx context.Context, args []string) error {
	id, err := parseOne(a.flags("client delete"), args, "ID")
	if err != nil {
		return err
	}
	if !a.Store.DeleteClient(ctx, id) {
		return notFound("client", id)
	}
	fmt.Fprintf(a.Out, "Deleted client %s\n", id)
	return nil
}

func (a *App) printCreated(asJSON bool, kind, id string, v any) error {
	if asJSON {
		return a.render(true, v, nil)
	}
	fmt.Fprintf(a.Out, "Created %s %s\n", kind, id)
	return nil
}
