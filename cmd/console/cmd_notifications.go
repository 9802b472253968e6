package main

import (
	"context"
	"fmt"

	notifdomain "envmonitor/console/internal/notification/domain"
)

func notificationRows(list []notifdomain.Notification) [][]string {
	rows := make([][]string, 0, len(list))
	for _, n := range list {
		mark := " "
		if n.Unread() {
			mark = "*"
		}
		rows = append(rows, []string{
			mark, fmt.Sprint(n.ID), n.CreatedAt.Local().Format("02/01/2006 15:04"), n.Type.Label(), n.Title, n.Message,
		})
	}
	return rows
}

const notificationHeader = " \tID\tDATE\tTYPE\tTITRE\tMESSAGE"

func runNotificationsList(ctx context.Context, a *App, args []string) error {
	fs := flags("notifications list", a)
	page := fs.Int("page", 0, "zero-based page")
	size := fs.Int("size", 10, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := a.notifs.Load(ctx, *page, *size)
	if err != nil {
		return err
	}
	if err := table(a.out, notificationHeader, notificationRows(p.Content)); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "page %d/%d, %d notifications\n", p.Number+1, max(p.TotalPages, 1), p.TotalElements)
	return nil
}

func runNotificationsUnread(ctx context.Context, a *App, _ []string) error {
	n, err := a.notifs.RefreshUnread(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d unread\n", n)
	return nil
}

func runNotificationsRead(ctx context.Context, a *App, args []string) error {
	id, err := idArg(args)
	if err != nil {
		return err
	}
	if err := a.notifs.MarkRead(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "notification %d marked read\n", id)
	return nil
}

func runNotificationsReadAll(ctx context.Context, a *App, _ []string) error {
	if err := a.notifs.MarkAllRead(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "all notifications marked read")
	return nil
}

func runNotificationsPrefs(ctx context.Context, a *App, args []string) error {
	p, err := a.notifs.Preferences(ctx)
	if err != nil {
		return err
	}
	fs := flags("notifications prefs", a)
	fs.BoolVar(&p.EmailNotifications, "email", p.EmailNotifications, "email notifications")
	fs.BoolVar(&p.WebNotifications, "web", p.WebNotifications, "web notifications")
	fs.BoolVar(&p.WeatherAlerts, "weather", p.WeatherAlerts, "weather alerts")
	fs.BoolVar(&p.AirQualityAlerts, "air", p.AirQualityAlerts, "air quality alerts")
	fs.BoolVar(&p.AccountNotifications, "account", p.AccountNotifications, "account notifications")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NFlag() > 0 {
		if p, err = a.notifs.UpdatePreferences(ctx, *p); err != nil {
			return err
		}
	}
	return table(a.out, "EMAIL\tWEB\tMETEO\tAIR\tCOMPTE", [][]string{{
		fmt.Sprint(p.EmailNotifications), fmt.Sprint(p.WebNotifications), fmt.Sprint(p.WeatherAlerts),
		fmt.Sprint(p.AirQualityAlerts), fmt.Sprint(p.AccountNotifications),
	}})
}
