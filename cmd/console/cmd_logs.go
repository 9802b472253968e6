package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"envmonitor/console/internal/export"
	loginlogdomain "envmonitor/console/internal/loginlog/domain"
	"envmonitor/console/internal/platform/paging"
)

const logHeader = "ID\tUTILISATEUR\tADRESSE IP\tDATE/HEURE\tSTATUT\tNAVIGATEUR"

func logRows(logs []loginlogdomain.LoginLog) [][]string {
	rows := make([][]string, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, []string{
			fmt.Sprint(l.ID), l.Username, loginlogdomain.MaskIP(l.IPAddress), l.FormatTime(), l.Status.Label(), l.Browser(),
		})
	}
	return rows
}

func (a *App) printLogPage() error {
	if err := table(a.out, logHeader, logRows(a.logs.Logs())); err != nil {
		return err
	}
	pages, elements := a.logs.Totals()
	var window []string
	for _, n := range a.logs.PageWindow() {
		switch {
		case n == paging.Ellipsis:
			window = append(window, "…")
		case n == a.logs.PageNumber():
			window = append(window, fmt.Sprintf("[%d]", n+1))
		default:
			window = append(window, fmt.Sprint(n+1))
		}
	}
	fmt.Fprintf(a.out, "%d logs on %d pages: %s\n", elements, pages, strings.Join(window, " "))
	return nil
}

func logFilterFlags(name string, a *App, f *loginlogdomain.Filters) func([]string) error {
	fs := flags(name, a)
	fs.StringVar(&f.Username, "username", "", "user name")
	fs.StringVar(&f.IPAddress, "ip", "", "IP address")
	status := fs.String("status", "", "SUCCESS or FAILURE")
	fs.StringVar(&f.StartDate, "from", "", "start date (YYYY-MM-DD)")
	fs.StringVar(&f.EndDate, "to", "", "end date (YYYY-MM-DD)")
	return func(args []string) error {
		if err := fs.Parse(args); err != nil {
			return err
		}
		f.Status = loginlogdomain.Status(strings.ToUpper(*status))
		return nil
	}
}

func runLogsList(ctx context.Context, a *App, args []string) error {
	fs := flags("logs list", a)
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.logs.Load(ctx); err != nil {
		return err
	}
	if *page > 1 {
		if _, err := a.logs.GoToPage(ctx, *page-1); err != nil {
			return err
		}
	}
	return a.printLogPage()
}

func runLogsSearch(ctx context.Context, a *App, args []string) error {
	var f loginlogdomain.Filters
	if err := logFilterFlags("logs search", a, &f)(args); err != nil {
		return err
	}
	if err := a.logs.ApplyFilters(ctx, f); err != nil {
		return err
	}
	return a.printLogPage()
}

func runLogsStats(ctx context.Context, a *App, _ []string) error {
	s := a.logs.LoadStats(ctx)
	if err := table(a.out, "TOTAL\tSUCCES\tECHECS\tTAUX\tUTILISATEURS AUJOURD'HUI", [][]string{{
		fmt.Sprint(s.TotalLogins), fmt.Sprint(s.SuccessfulLogins), fmt.Sprint(s.FailedLogins),
		fmt.Sprintf("%.1f%%", s.SuccessRate()), fmt.Sprint(s.UniqueUsersToday),
	}}); err != nil {
		return err
	}
	if len(s.SuspiciousIPs) > 0 {
		fmt.Fprintf(a.out, "suspicious IPs: %s\n", strings.Join(s.SuspiciousIPs, ", "))
	}
	for _, sec := range []struct {
		title string
		load  func(context.Context) ([]loginlogdomain.StatRow, error)
	}{
		{"daily", a.logs.Daily},
		{"peak hours", a.logs.PeakHours},
		{"active users", func(ctx context.Context) ([]loginlogdomain.StatRow, error) { return a.logs.ActiveUsers(ctx, 10) }},
	} {
		rows, err := sec.load(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "\n%s:\n", sec.title)
		if err := statTable(a.out, rows); err != nil {
			return err
		}
	}
	return nil
}

// statTable renders free-form stat rows with the union of their keys as columns.
func statTable(w io.Writer, rows []loginlogdomain.StatRow) error {
	var keys []string
	seen := map[string]bool{}
	for _, r := range rows {
		for k := range r {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells := make([]string, len(keys))
		for i, k := range keys {
			if v, ok := r[k]; ok && v != nil {
				cells[i] = fmt.Sprint(v)
			}
		}
		out = append(out, cells)
	}
	return table(w, strings.ToUpper(strings.Join(keys, "\t")), out)
}

func runLogsSuspicious(ctx context.Context, a *App, args []string) error {
	fs := flags("logs suspicious", a)
	hours := fs.Int("hours", 24, "look-back window for failures")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ips, err := a.logs.SuspiciousIPs(ctx)
	if err != nil {
		return err
	}
	if err := statTable(a.out, ips); err != nil {
		return err
	}
	failures, err := a.logs.RecentFailures(ctx, *hours)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d failed logins in the last %d hours\n", len(failures), *hours)
	return table(a.out, logHeader, logRows(failures))
}

func runLogsCheckIP(ctx context.Context, a *App, args []string) error {
	if len(args) == 0 {
		return errors.New("missing IP argument")
	}
	res, err := a.logs.CheckIP(ctx, args[0])
	if err != nil {
		return err
	}
	verdict := "not suspicious"
	if res.Suspicious {
		verdict = "SUSPICIOUS"
	}
	fmt.Fprintf(a.out, "%s: %s, %d failed attempts\n", args[0], verdict, res.AttemptCount)
	return nil
}

func runLogsCleanup(ctx context.Context, a *App, args []string) error {
	fs := flags("logs cleanup", a)
	days := fs.Int("days", 0, "days of logs to keep")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !confirm(a.out, fmt.Sprintf("Delete login logs older than %d days?", *days)) {
		fmt.Fprintln(a.out, "cancelled")
		return nil
	}
	n, err := a.logs.Cleanup(ctx, *days)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d logs deleted\n", n)
	return nil
}

func runLogsExport(ctx context.Context, a *App, args []string) error {
	var f loginlogdomain.Filters
	fs := flags("logs export", a)
	format := fs.String("format", string(export.FormatCSV), "csv or pdf")
	local := fs.Bool("local", false, "render the current page locally instead of the server export")
	out := fs.String("o", "", "output file")
	fs.StringVar(&f.Username, "username", "", "user name")
	fs.StringVar(&f.IPAddress, "ip", "", "IP address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ef, err := export.ParseFormat(*format)
	if err != nil {
		return err
	}
	if ef != export.FormatCSV && ef != export.FormatPDF {
		return errors.New("login logs export only as csv or pdf")
	}
	if !f.Empty() {
		if err := a.logs.ApplyFilters(ctx, f); err != nil {
			return err
		}
	}

	if *local {
		if f.Empty() {
			if err := a.logs.Load(ctx); err != nil {
				return err
			}
		}
		tbl := export.LoginLogsTable(a.logs.Logs())
		return a.writeExport(ctx, "logs_connexion", ef, *out, func(w io.Writer) error {
			return export.Write(w, tbl, ef)
		})
	}

	fetch := a.logs.ExportCSV
	if ef == export.FormatPDF {
		fetch = a.logs.ExportPDF
	}
	blob, err := fetch(ctx)
	if err != nil {
		return err
	}
	return a.writeExport(ctx, "logs_connexion", ef, *out, func(w io.Writer) error {
		_, err := w.Write(blob)
		return err
	})
}
