package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"salon/internal/core"
	"salon/internal/services"
)

func (a *App) appointmentCmd(ctx context.Context, args []string) error {
	return dispatch(ctx, "appointment", args, map[string]command{
		"list":     a.appointmentList,
		"book":     a.appointmentBook,
		"add":      a.appointmentAdd,
		"update":   a.appointmentUpdate,
		"complete": a.appointmentComplete,
		"cancel":   a.appointmentCancel,
		"delete":   a.appointmentDelete,
	})
}

func (a *App) appointmentList(_ context.Context, args []string) error {
	fs := a.flags("appointment list")
	date := fs.String("date", "", "only this day (YYYY-MM-DD), ordered by time")
	clientID := fs.String("client", "", "only this client id")
	status := fs.String("status", "", "only this status")
	asJSON := fs.Bool("json", false, "print JSON")
	if _, err := parse(fs, args); err != nil {
		return err
	}

	var list []core.Appointment
	if *date != "" {
		d, err := a.parseDay(*date)
		if err != nil {
			return err
		}
		list = a.Store.AppointmentsOn(d.Time)
	} else {
		list = a.Store.Appointments()
	}
	filtered := list[:0]
	for _, ap := range list {
		if *clientID != "" && ap.ClientID != *clientID {
			continue
		}
		if *status != "" && !strings.EqualFold(string(ap.Status), *status) {
			continue
		}
		filtered = append(filtered, ap)
	}

	return a.render(*asJSON, filtered, func(w io.Writer) {
		fmt.Fprintln(w, "ID\tDATE\tTIME\tCLIENT\tSERVICE\tMIN\tSTATUS\tPRICE")
		for _, ap := range filtered {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
				ap.ID, a.day(ap.Date), ap.Time, ap.ClientName, ap.ServiceName, ap.Duration, ap.Status, ap.Realized())
		}
	})
}

func (a *App) appointmentBook(ctx context.Context, args []string) error {
	fs := a.flags("appointment book")
	clientID := fs.String("client", "", "client id")
	serviceID := fs.String("service", "", "service id")
	date := fs.String("date", "", "day (YYYY-MM-DD)")
	at := fs.String("time", "", "start time (HH:MM)")
	notes := fs.String("notes", "", "notes")
	asJSON := fs.Bool("json", false, "print JSON")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	d, err := a.parseDay(*date)
	if err != nil {
		return err
	}
	ap, err := a.Store.BookAppointment(ctx, services.BookingRequest{
		ClientID:  *clientID,
		ServiceID: *serviceID,
		Date:      d,
		Time:      *at,
		Notes:     *notes,
	})
	if err != nil {
		return err
	}
	return a.printCreated(*asJSON, "appointment", ap.ID, ap)
}

// appointmentAdd stores an appointment exactly as given, without looking up
// the client or service.
func (a *App) appointmentAdd(ctx context.Context, args []string) error {
	fs := a.flags("appointment add")
	clientID := fs.String("client-id", "", "client id")
	clientName := fs.String("client-name", "", "client name")
	serviceID := fs.String("service-id", "", "service id")
	serviceName := fs.String("service-name", "", "service name")
	date := fs.String("date", "", "day (YYYY-MM-DD)")
	at := fs.String("time", "", "start time (HH:MM)")
	duration := fs.Int("duration", 0, "duration in minutes")
	price := fs.String("price", "", "booked price")
	status := fs.String("status", string(core.StatusScheduled), "scheduled, completed or cancelled")
	notes := fs.String("notes", "", "notes")
	asJSON := fs.Bool("json", false, "print JSON")
	if _, err := parse(fs, args); err != nil {
		return err
	}
	d, err := a.parseDay(*date)
	if err != nil {
		return err
	}
	p, err := core.ParseAmount(*price)
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}
	ap, err := a.Store.AddAppointment(ctx, core.Appointment{
		ClientID:    *clientID,
		ClientName:  *clientName,
		ServiceID:   *serviceID,
		ServiceName: *serviceName,
		Date:        d,
		Time:        *at,
		Duration:    *duration,
		Price:       p,
		Status:      core.Status(*status),
		Notes:       *notes,
	})
	if err != nil {
		return err
	}
	return a.printCreated(*asJSON, "appointment", ap.ID, ap)
}

func (a *App) appointmentUpdate(ctx context.Context, args []string) error {
	fs := a.flags("appointment update")
	date := fs.String("date", "", "new day (YYYY-MM-DD)")
	at := fs.String("time", "", "new start time (HH:MM)")
	status := fs.String("status", "", "scheduled, completed or cancelled")
	finalPrice := fs.String("final-price", "", "price actually charged")
	notes := fs.String("notes", "", "notes")
	id, err := parseOne(fs, args, "ID [flags]")
	if err != nil {
		return err
	}
	set := setFlags(fs)
	var patch core.AppointmentPatch
	if set["date"] {
		d, err := a.parseDay(*date)
		if err != nil {
			return err
		}
		patch.Date = &d
	}
	if set["time"] {
		patch.Time = at
	}
	if set["status"] {
		patch.Status = core.Ptr(core.Status(*status))
	}
	if set["notes"] {
		patch.Notes = notes
	}
	if set["final-price"] {
		fp, err := core.ParseAmount(*finalPrice)
		if err != nil {
			return fmt.Errorf("final price: %w", err)
		}
		patch.FinalPrice = &fp
	}
	_, ok, err := a.Store.UpdateAppointment(ctx, id, patch)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("appointment", id)
	}
	fmt.Fprintf(a.Out, "Updated appointment %s\n", id)
	return nil
}

func (a *App) appointmentComplete(ctx context.Context, args []string) error {
	fs := a.flags("appointment complete")
	finalPrice := fs.String("final-price", "", "price actually charged, defaults to the booked price")
	id, err := parseOne(fs, args, "ID [-final-price P]")
	if err != nil {
		return err
	}
	var fp *core.Money
	if *finalPrice != "" {
		m, err := core.ParseAmount(*finalPrice)
		if err != nil {
			return fmt.Errorf("final price: %w", err)
		}
		fp = &m
	}
	ap, ok, err := a.Store.CompleteAppointment(ctx, id, fp)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("appointment", id)
	}
	fmt.Fprintf(a.Out, "Completed appointment %s for %s\n", id, ap.Realized())
	return nil
}

func (a *App) appointmentCancel(ctx context.Context, args []string) error {
	id, err := parseOne(a.flags("appointment cancel"), args, "ID")
	if err != nil {
		return err
	}
	_, ok, err := a.Store.CancelAppointment(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("appointment", id)
	}
	fmt.Fprintf(a.Out, "Cancelled appointment %s\n", id)
	return nil
}

func (a *App) appointmentDelete(ctx context.Context, args []string) error {
	id, err := parseOne(a.flags("appointment delete"), args, "ID")
	if err != nil {
		return err
	}
	if !a.Store.DeleteAppointment(ctx, id) {
		return notFound("appointment", id)
	}
	fmt.Fprintf(a.Out, "Deleted appointment %s\n", id)
	return nil
}
