package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

// ErrUnknownCommand is returned by resolve for a command that is not registered.
var ErrUnknownCommand = errors.New("unknown command")

type runFunc func(ctx context.Context, a *App, args []string) error

type command struct {
	name  string
	route string
	usage string
	run   runFunc
}

// Guarded routes of the console commands.
const (
	routeHome          = "/"
	routeLogin         = "/auth/login"
	routeRegister      = "/auth/register"
	routeForgot        = "/auth/forgot-password"
	routeReset         = "/auth/reset-password"
	routeUserDashboard = "/user/dashboard"
	routeUserSensors   = "/user/sensors"
	routeUserAlerts    = "/user/alerts"
	routeNotifications = "/user/notifications"
	routeAdminUsers    = "/admin/users"
	routeAdminSensors  = "/admin/sensors"
	routeAdminAlerts   = "/admin/alerts"
	routeAdminLogs     = "/admin/login-logs"
	routeAdminAudit    = "/admin/audit"
	routeWeather       = "/weather"
)

var commands = []command{
	{"login", routeLogin, "-email E -password P [-remember]", runLogin},
	{"register", routeRegister, "-username U -email E -password P -confirm P", runRegister},
	{"logout", routeHome, "", runLogout},
	{"whoami", routeHome, "", runWhoami},
	{"password forgot", routeForgot, "-email E", runPasswordForgot},
	{"password validate", routeReset, "-token T", runPasswordValidate},
	{"password reset", routeReset, "-token T -password P -confirm P", runPasswordReset},

	{"users list", routeAdminUsers, "[-status all|pending|active|inactive] [-search S] [-field all|username|email] [-page N]", runUsersList},
	{"users pending", routeAdminUsers, "", runUsersPending},
	{"users approve", routeAdminUsers, "ID", runUsersApprove},
	{"users reject", routeAdminUsers, "ID", runUsersReject},
	{"users deactivate", routeAdminUsers, "ID", runUsersDeactivate},
	{"users delete", routeAdminUsers, "ID", runUsersDelete},

	{"sensors list", routeUserSensors, "[-type T] [-status S] [-search S] [-current] [-page N]", runSensorsList},
	{"sensors create", routeAdminSensors, "-name N -type T [-status S] (-location TEXT | -lat X -lon Y)", runSensorsCreate},
	{"sensors delete", routeAdminSensors, "ID", runSensorsDelete},
	{"sensors history", routeUserSensors, "ID", runSensorsHistory},
	{"sensors add-history", routeAdminSensors, "-status S -comment C ID", runSensorsAddHistory},
	{"sensors generate", routeAdminSensors, "ID", runSensorsGenerate},
	{"sensors export", routeAdminSensors, "[-format xlsx|csv|json|pdf] [-o FILE]", runSensorsExport},
	{"sensors import", routeAdminSensors, "FILE", runSensorsImport},

	{"alerts list", routeUserAlerts, "[-type T] [-severity S] [-search S] [-page N]", runAlertsList},
	{"alerts show", routeUserAlerts, "ID", runAlertsShow},
	{"alerts thresholds", routeAdminAlerts, "", runAlertsThresholds},
	{"alerts set-threshold", routeAdminAlerts, "(-id ID | -param P) -warning W -critical C", runAlertsSetThreshold},
	{"alerts recalculate", routeAdminAlerts, "", runAlertsRecalculate},
	{"alerts delete", routeAdminAlerts, "ID", runAlertsDelete},
	{"alerts clear", routeAdminAlerts, "", runAlertsClear},
	{"alerts export", routeUserAlerts, "[-format csv|json|pdf|xlsx] [-o FILE]", runAlertsExport},

	{"notifications list", routeNotifications, "[-page N] [-size N]", runNotificationsList},
	{"notifications unread", routeNotifications, "", runNotificationsUnread},
	{"notifications read", routeNotifications, "ID", runNotificationsRead},
	{"notifications read-all", routeNotifications, "", runNotificationsReadAll},
	{"notifications prefs", routeNotifications, "[-email bool] [-web bool] [-weather bool] [-air bool] [-account bool]", runNotificationsPrefs},

	{"logs list", routeAdminLogs, "[-page N]", runLogsList},
	{"logs search", routeAdminLogs, "[-username U] [-ip IP] [-status SUCCESS|FAILURE] [-from DATE] [-to DATE]", runLogsSearch},
	{"logs stats", routeAdminLogs, "", runLogsStats},
	{"logs suspicious", routeAdminLogs, "[-hours N]", runLogsSuspicious},
	{"logs check-ip", routeAdminLogs, "IP", runLogsCheckIP},
	{"logs cleanup", routeAdminLogs, "-days N", runLogsCleanup},
	{"logs export", routeAdminLogs, "[-format csv|pdf] [-local] [-o FILE]", runLogsExport},

	{"weather current", routeWeather, "[CITY]", runWeatherCurrent},
	{"weather forecast", routeWeather, "[-days N] [CITY]", runWeatherForecast},
	{"weather search", routeWeather, "QUERY", runWeatherSearch},
	{"weather coords", routeWeather, "-lat X -lon Y", runWeatherCoords},
	{"weather compare-history", routeWeather, "[-add CITY]", runWeatherCompareHistory},

	{"dashboard", routeUserDashboard, "[-city CITY]", runDashboard},
	{"watch", routeUserDashboard, "[-city CITY]", runWatch},
	{"audit", routeAdminAudit, "[-limit N]", runAudit},
}

// resolve finds the command named by the leading one or two args.
func resolve(args []string) (command, []string, error) {
	if len(args) == 0 {
		return command{}, nil, errors.New("missing command")
	}
	if len(args) >= 2 {
		if c, ok := lookup(args[0] + " " + args[1]); ok {
			return c, args[2:], nil
		}
	}
	if c, ok := lookup(args[0]); ok {
		return c, args[1:], nil
	}
	return command{}, nil, fmt.Errorf("%w: %s", ErrUnknownCommand, strings.Join(args[:min(2, len(args))], " "))
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: console [-env-file FILE] <command> [flags]")
	fmt.Fprintln(w)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-24s %s\n", c.name, c.usage)
	}
}

// flags returns a flag set that reports parse errors instead of exiting.
func flags(name string, a *App) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}
