package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	alertdomain "envmonitor/console/internal/alert/domain"
	alertsvc "envmonitor/console/internal/alert/service"
	"envmonitor/console/internal/export"
)

const alertHeader = "ID\tDATE\tTYPE\tSEVERITE\tPARAMETRE\tVALEUR\tMESSAGE"

func alertRow(al alertdomain.Alert) []string {
	return []string{
		fmt.Sprint(al.ID), al.Timestamp.Local().Format("02/01/2006 15:04"), al.Type.Label(), string(al.Severity),
		al.Parameter.Label(), ptrFloat(al.Value), al.Message,
	}
}

func runAlertsList(ctx context.Context, a *App, args []string) error {
	fs := flags("alerts list", a)
	typ := fs.String("type", "", "air or weather")
	severity := fs.String("severity", "", "info, warning or danger")
	search := fs.String("search", "", "message substring")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.alerts.Load(ctx); err != nil {
		return err
	}
	a.alerts.ApplyFilters(alertsvc.Filter{Type: alertdomain.Type(*typ), Severity: alertdomain.Severity(*severity), Term: *search})
	a.alerts.GoToPage(*page)
	rows := make([][]string, 0)
	for _, al := range a.alerts.Page() {
		rows = append(rows, alertRow(al))
	}
	if err := table(a.out, alertHeader, rows); err != nil {
		return err
	}
	n, total := a.alerts.PageNumber()
	s := a.alerts.Summary()
	fmt.Fprintf(a.out, "page %d/%d, %d alerts: %d danger, %d warning, %d info\n", n, total, s.Total, s.Danger, s.Warning, s.Info)
	return nil
}

func runAlertsThresholds(ctx context.Context, a *App, _ []string) error {
	err := a.alerts.LoadThresholds(ctx)
	thresholds, fallback := a.alerts.Thresholds()
	switch {
	case err != nil:
		fmt.Fprintf(a.out, "thresholds unavailable (%s), showing defaults\n", describe(err))
	case fallback:
		fmt.Fprintln(a.out, "no thresholds configured, showing defaults")
	}
	rows := make([][]string, 0, len(thresholds))
	for _, t := range thresholds {
		rows = append(rows, []string{
			fmt.Sprint(t.ID), t.Parameter.Label(), fmt.Sprint(t.WarningThreshold), fmt.Sprint(t.CriticalThreshold),
		})
	}
	return table(a.out, "ID\tPARAMETRE\tALERTE\tCRITIQUE", rows)
}

func runAlertsSetThreshold(ctx context.Context, a *App, args []string) error {
	fs := flags("alerts set-threshold", a)
	id := fs.Int64("id", 0, "threshold id")
	param := fs.String("param", "", "parameter, instead of -id")
	warning := fs.Float64("warning", 0, "warning level")
	critical := fs.Float64("critical", 0, "critical level")
	if err := fs.Parse(args); err != nil {
		return err
	}
	_ = a.alerts.LoadThresholds(ctx)
	thresholds, _ := a.alerts.Thresholds()
	var t *alertdomain.Threshold
	for i := range thresholds {
		if (*id != 0 && thresholds[i].ID == *id) || (*param != "" && string(thresholds[i].Parameter) == *param) {
			t = &thresholds[i]
			break
		}
	}
	if t == nil {
		return errors.New("threshold not found")
	}
	t.WarningThreshold, t.CriticalThreshold = *warning, *critical
	updated, err := a.alerts.UpdateThreshold(ctx, *t)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: warning %v, critical %v\n", updated.Parameter.Label(), updated.WarningThreshold, updated.CriticalThreshold)
	return nil
}

func runAlertsRecalculate(ctx context.Context, a *App, _ []string) error {
	if err := a.alerts.Recalculate(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "alerts recalculated")
	return nil
}

func runAlertsShow(ctx context.Context, a *App, args []string) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}
	al, err := a.alerts.Get(ctx, id)
	if err != nil {
		return err
	}
	return table(a.out, alertHeader, [][]string{alertRow(*al)})
}

func runAlertsDelete(ctx context.Context, a *App, args []string) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}
	if err := a.alerts.Load(ctx); err != nil {
		return err
	}
	if err := a.alerts.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "alert %d deleted\n", id)
	return nil
}

func runAlertsClear(ctx context.Context, a *App, _ []string) error {
	if !confirm(a.out, "Delete every alert?") {
		fmt.Fprintln(a.out, "cancelled")
		return nil
	}
	if err := a.alerts.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "all alerts deleted")
	return nil
}

func runAlertsExport(ctx context.Context, a *App, args []string) error {
	fs := flags("alerts export", a)
	format := fs.String("format", string(export.FormatCSV), "csv, json, pdf or xlsx")
	out := fs.String("o", "", "output file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	f, err := export.ParseFormat(*format)
	if err != nil {
		return err
	}
	if err := a.alerts.Load(ctx); err != nil {
		return err
	}
	alerts := a.alerts.All()
	return a.writeExport(ctx, "alertes", f, *out, func(w io.Writer) error {
		if f == export.FormatJSON {
			return export.WriteAlertsJSON(w, alerts)
		}
		return export.Write(w, export.AlertsTable(alerts), f)
	})
}
