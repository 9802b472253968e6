package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	alertdomain "envmonitor/console/internal/alert/domain"
	"envmonitor/console/internal/bus"
	loginlogdomain "envmonitor/console/internal/loginlog/domain"
	notifdomain "envmonitor/console/internal/notification/domain"
	"envmonitor/console/internal/platform/paging"
	sensordomain "envmonitor/console/internal/sensor/domain"
	userdomain "envmonitor/console/internal/user/domain"
)

// RecentNotificationLimit caps the admin notification feed.
const RecentNotificationLimit = 10

// UserLister lists all accounts.
type UserLister interface {
	List(ctx context.Context) ([]userdomain.User, error)
}

// SensorLister lists all sensors.
type SensorLister interface {
	List(ctx context.Context) ([]sensordomain.Sensor, error)
}

// LoginStatsSource returns the login overview.
type LoginStatsSource interface {
	Stats(ctx context.Context) (*loginlogdomain.Stats, error)
}

// NotificationSource returns one page of notifications.
type NotificationSource interface {
	List(ctx context.Context, page, size int) (*paging.Page[notifdomain.Notification], error)
}

// Counts are the admin headline figures.
type Counts struct {
	Users   map[userdomain.UserStatus]int `json:"users"`
	Sensors map[sensordomain.Status]int   `json:"sensors"`
	Alerts  alertdomain.Summary           `json:"alerts"`
}

// TotalUsers sums the per-status user counts.
func (c Counts) TotalUsers() int {
	n := 0
	for _, v := range c.Users {
		n += v
	}
	return n
}

// TotalSensors sums the per-status sensor counts.
func (c Counts) TotalSensors() int {
	n := 0
	for _, v := range c.Sensors {
		n += v
	}
	return n
}

// Admin is the admin dashboard view-model. Safe for concurrent use.
type Admin struct {
	users   UserLister
	sensors SensorLister
	alerts  AlertSource
	logins  LoginStatsSource
	notifs  NotificationSource

	mu     sync.Mutex
	counts Counts
	stats  loginlogdomain.Stats
	feed   []notifdomain.Notification
	err    error
}

// NewAdmin returns an admin dashboard over the given sources.
func NewAdmin(users UserLister, sensors SensorLister, alerts AlertSource, logins LoginStatsSource, notifs NotificationSource) *Admin {
	return &Admin{
		users:   users,
		sensors: sensors,
		alerts:  alerts,
		logins:  logins,
		notifs:  notifs,
		counts: Counts{
			Users:   map[userdomain.UserStatus]int{},
			Sensors: map[sensordomain.Status]int{},
		},
		stats: loginlogdomain.ZeroStats(),
	}
}

// Load fetches every admin source in parallel. Failed sources keep their previous figures (zero
// login stats on a first failure) and the joined failures are returned and kept.
func (a *Admin) Load(ctx context.Context) error {
	err := loadSources(ctx, "dashboard: admin ",
		source{"users", func(ctx context.Context) error {
			list, err := a.users.List(ctx)
			if err != nil {
				return err
			}
			counts := make(map[userdomain.UserStatus]int)
			for _, u := range list {
				st := u.Status
				if st == "" {
					st = userdomain.UserStatusPending
				}
				counts[st]++
			}
			a.mu.Lock()
			a.counts.Users = counts
			a.mu.Unlock()
			return nil
		}},
		source{"sensors", func(ctx context.Context) error {
			list, err := a.sensors.List(ctx)
			if err != nil {
				return err
			}
			counts := make(map[sensordomain.Status]int)
			for _, s := range list {
				counts[s.Status]++
			}
			a.mu.Lock()
			a.counts.Sensors = counts
			a.mu.Unlock()
			return nil
		}},
		source{"alerts", func(ctx context.Context) error {
			list, err := a.alerts.List(ctx)
			if err != nil {
				return err
			}
			a.SetAlertSummary(alertdomain.Summarize(list))
			return nil
		}},
		source{"login stats", func(ctx context.Context) error {
			st, err := a.logins.Stats(ctx)
			if err != nil {
				return err
			}
			if st == nil {
				return nil
			}
			a.mu.Lock()
			a.stats = *st
			a.mu.Unlock()
			return nil
		}},
		source{"notifications", func(ctx context.Context) error {
			p, err := a.notifs.List(ctx, 0, RecentNotificationLimit)
			if err != nil {
				return err
			}
			var feed []notifdomain.Notification
			if p != nil {
				feed = p.Content
			}
			if len(feed) > RecentNotificationLimit {
				feed = feed[:RecentNotificationLimit]
			}
			a.mu.Lock()
			a.feed = append([]notifdomain.Notification(nil), feed...)
			a.mu.Unlock()
			return nil
		}},
	)

	a.mu.Lock()
	a.err = err
	a.mu.Unlock()
	return err
}

// SetAlertSummary replaces the alert counts.
func (a *Admin) SetAlertSummary(s alertdomain.Summary) {
	a.mu.Lock()
	a.counts.Alerts = s
	a.mu.Unlock()
}

// PushNotification prepends n to the feed.
func (a *Admin) PushNotification(n notifdomain.Notification) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.feed = append([]notifdomain.Notification{n}, a.feed...)
	if len(a.feed) > RecentNotificationLimit {
		a.feed = a.feed[:RecentNotificationLimit]
	}
}

// FromUserEvent turns an account event into an unread feed entry. Unknown event types are shown
// as system alerts.
func FromUserEvent(ev notifdomain.UserEvent) notifdomain.Notification {
	t := notifdomain.Type(ev.Type)
	if !t.Valid() {
		t = notifdomain.TypeSystemAlert
	}
	msg := ev.Message
	if msg == "" {
		msg = fmt.Sprintf("Nouvel utilisateur: %s", ev.Username)
	}
	at := ev.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	return notifdomain.Notification{
		Title:     t.Label(),
		Message:   msg,
		Type:      t,
		Status:    notifdomain.StatusUnread,
		CreatedAt: at,
	}
}

// Watch keeps the feed and alert counts live until release is called.
func (a *Admin) Watch(b *bus.Bus) (release func()) {
	releases := []func(){
		bus.Watch(b.AdminNotifications, bus.DefaultBuffer, func(ev notifdomain.UserEvent) {
			a.PushNotification(FromUserEvent(ev))
		}),
		bus.Watch(b.Notifications, bus.DefaultBuffer, a.PushNotification),
		bus.Watch(b.AlertSummary, 1, a.SetAlertSummary),
	}
	return func() {
		for _, r := range releases {
			r()
		}
	}
}

// Counts returns a copy of the headline figures.
func (a *Admin) Counts() Counts {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := Counts{
		Users:   make(map[userdomain.UserStatus]int, len(a.counts.Users)),
		Sensors: make(map[sensordomain.Status]int, len(a.counts.Sensors)),
		Alerts:  a.counts.Alerts,
	}
	for k, v := range a.counts.Users {
		out.Users[k] = v
	}
	for k, v := range a.counts.Sensors {
		out.Sensors[k] = v
	}
	return out
}

// LoginStats returns the last login overview.
func (a *Admin) LoginStats() loginlogdomain.Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// Notifications returns the feed, newest first.
func (a *Admin) Notifications() []notifdomain.Notification {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]notifdomain.Notification(nil), a.feed...)
}

// Err returns the failures of the last load, or nil.
func (a *Admin) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}
