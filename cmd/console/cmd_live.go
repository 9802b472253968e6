package main

import (
	"bufio"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"envmonitor/console/internal/dashboard"
	userdomain "envmonitor/console/internal/user/domain"
)

func (a *App) userDashboard() *dashboard.User {
	return dashboard.NewUser(a.airRepo, a.sensorRepo, a.alertRepo, a.weather)
}

func (a *App) adminDashboard() *dashboard.Admin {
	return dashboard.NewAdmin(a.userRepo, a.sensorRepo, a.alertRepo, a.loginRepo, a.notifRepo)
}

func runDashboard(ctx context.Context, a *App, args []string) error {
	fs := flags("dashboard", a)
	city := fs.String("city", defaultCity, "weather city")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.holder.IsAdmin() {
		d := a.adminDashboard()
		if err := d.Load(ctx); err != nil {
			return err
		}
		printAdminDashboard(a, d)
		return nil
	}
	d := a.userDashboard()
	if err := d.Activate(ctx, *city); err != nil {
		return err
	}
	printUserDashboard(a, d)
	return nil
}

func printAdminDashboard(a *App, d *dashboard.Admin) {
	c := d.Counts()
	statuses := make([]userdomain.UserStatus, 0, len(c.Users))
	for s := range c.Users {
		statuses = append(statuses, s)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
	fmt.Fprintf(a.out, "users: %d", c.TotalUsers())
	for _, s := range statuses {
		fmt.Fprintf(a.out, ", %s %d", s.Label(), c.Users[s])
	}
	fmt.Fprintf(a.out, "\nsensors: %d\n", c.TotalSensors())
	fmt.Fprintf(a.out, "alerts: %d (danger %d, warning %d, info %d)\n", c.Alerts.Total, c.Alerts.Danger, c.Alerts.Warning, c.Alerts.Info)
	s := d.LoginStats()
	fmt.Fprintf(a.out, "logins: %d total, %d failed, %d users today\n", s.TotalLogins, s.FailedLogins, s.UniqueUsersToday)
	_ = table(a.out, notificationHeader, notificationRows(d.Notifications()))
}

func printUserDashboard(a *App, d *dashboard.User) {
	fmt.Fprintf(a.out, "%s, updated %s\n", d.City(), d.LastUpdate().Local().Format("15:04:05"))
	if r, category := d.AirQuality(); r != nil {
		fmt.Fprintf(a.out, "air quality: AQI %.0f (%s)\n", r.AQI, category)
	}
	rows := [][]string{}
	for _, r := range d.Readings() {
		rows = append(rows, []string{r.Name, fmt.Sprintf("%.1f %s", r.Value, r.Unit), r.Trend})
	}
	_ = table(a.out, "MESURE\tVALEUR\tTENDANCE", rows)
	fmt.Fprintf(a.out, "sensors: %d active of %d\n", d.ActiveSensors(), len(d.Sensors()))
	fmt.Fprintf(a.out, "alerts: %d unread\n", d.UnreadAlerts())
	rows = rows[:0]
	for _, al := range d.RecentAlerts() {
		rows = append(rows, []string{string(al.Severity), al.Message})
	}
	_ = table(a.out, "SEVERITE\tMESSAGE", rows)
}

// runWatch keeps the realtime channels open and prints every event until interrupted.
func runWatch(ctx context.Context, a *App, args []string) error {
	fs := flags("watch", a)
	city := fs.String("city", defaultCity, "weather city")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var release []func()
	if a.holder.IsAdmin() {
		d := a.adminDashboard()
		if err := d.Load(ctx); err != nil {
			return err
		}
		release = append(release, d.Watch(a.bus))
	} else {
		d := a.userDashboard()
		if err := d.Activate(ctx, *city); err != nil {
			return err
		}
		release = append(release, d.Watch(a.bus))
	}
	release = append(release, a.alerts.Watch(a.bus), a.notifs.Watch(a.bus))
	defer func() {
		for _, r := range release {
			r()
		}
	}()

	conn := a.bus.Connection.Subscribe(16)
	defer conn.Cancel()
	alerts := a.bus.Alerts.Subscribe(16)
	defer alerts.Cancel()
	notifs := a.bus.Notifications.Subscribe(16)
	defer notifs.Cancel()
	air := a.bus.AirQuality.Subscribe(16)
	defer air.Cancel()

	a.live.Connect(ctx)
	defer a.live.Disconnect()
	fmt.Fprintln(a.out, "watching; type r + Enter to reconnect, Ctrl-C to stop")

	retry := make(chan struct{}, 1)
	go func() {
		sc := bufio.NewScanner(stdin)
		for sc.Scan() {
			if strings.EqualFold(strings.TrimSpace(sc.Text()), "r") {
				select {
				case retry <- struct{}{}:
				default:
				}
			}
		}
	}()

	stamp := func() string { return time.Now().Format("15:04:05") }
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-retry:
			fmt.Fprintf(a.out, "%s reconnecting\n", stamp())
			a.live.Reconnect(ctx)
		case ev, ok := <-conn.C():
			if !ok {
				return nil
			}
			line := fmt.Sprintf("%s [%s] %s", stamp(), ev.Channel, ev.State)
			if ev.Attempt > 0 {
				line += fmt.Sprintf(" attempt %d", ev.Attempt)
			}
			if ev.Err != "" {
				line += ": " + ev.Err
			}
			fmt.Fprintln(a.out, line)
			if ev.GaveUp {
				fmt.Fprintf(a.out, "%s [%s] gave up reconnecting, type r to retry\n", stamp(), ev.Channel)
			}
		case al, ok := <-alerts.C():
			if !ok {
				return nil
			}
			fmt.Fprintf(a.out, "%s alert %s: %s\n", stamp(), string(al.Severity), al.Message)
		case n, ok := <-notifs.C():
			if !ok {
				return nil
			}
			fmt.Fprintf(a.out, "%s notification %s: %s\n", stamp(), n.Type.Label(), n.Title)
		case r, ok := <-air.C():
			if !ok {
				return nil
			}
			fmt.Fprintf(a.out, "%s air quality: AQI %.0f, PM2.5 %.1f, PM10 %.1f\n", stamp(), r.AQI, r.PM25, r.PM10)
		}
	}
}
