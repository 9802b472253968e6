// Package domain holds login-log records, filters and statistics.
package domain

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Status is the outcome of a login attempt.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return s == StatusSuccess || s == StatusFailure }

// Label returns the French display label. Anything but SUCCESS reads as a failure.
func (s Status) Label() string {
	if s == StatusSuccess {
		return "Succès"
	}
	return "Échec"
}

// BadgeClass returns the badge css class.
func (s Status) BadgeClass() string {
	if s == StatusSuccess {
		return "badge-success"
	}
	return "badge-danger"
}

// LoginLog is one recorded login attempt. LoginTime is kept as sent; backends emit it with or
// without a zone.
type LoginLog struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	IPAddress     string `json:"ipAddress"`
	LoginTime     string `json:"loginTime"`
	Status        Status `json:"status"`
	UserAgent     string `json:"userAgent,omitempty"`
	Path          string `json:"path,omitempty"`
	FailureReason string `json:"failureReason,omitempty"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Time parses LoginTime. ok is false when it is empty or in an unknown layout.
func (l LoginLog) Time() (t time.Time, ok bool) {
	return ParseTime(l.LoginTime)
}

// ParseTime parses a backend timestamp; zone-less values are read as UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTime renders LoginTime as dd/mm/yyyy hh:mm. Unparsable values are returned as is and
// empty ones as "N/A".
func (l LoginLog) FormatTime() string {
	if strings.TrimSpace(l.LoginTime) == "" {
		return "N/A"
	}
	t, ok := l.Time()
	if !ok {
		return l.LoginTime
	}
	return t.Format("02/01/2006 15:04")
}

// Browser returns the user agent, or a placeholder.
func (l LoginLog) Browser() string {
	if l.UserAgent == "" {
		return "Non spécifié"
	}
	return l.UserAgent
}

var (
	ipv4Re = regexp.MustCompile(`^(\d{1,3}\.)(\d{1,3}\.)\d{1,3}\.\d{1,3}$`)
	ipv6Re = regexp.MustCompile(`^([0-9a-fA-F]{1,4}:){2}[0-9a-fA-F:]+$`)
)

// MaskIP hides the host half of an address: a.b.xxx.xxx for IPv4, a:b:xxx:xxx for long IPv6.
func MaskIP(ip string) string {
	if ip == "" {
		return "N/A"
	}
	if ipv4Re.MatchString(ip) {
		return ipv4Re.ReplaceAllString(ip, "${1}${2}xxx.xxx")
	}
	if ipv6Re.MatchString(ip) {
		if parts := strings.Split(ip, ":"); len(parts) > 4 {
			return parts[0] + ":" + parts[1] + ":xxx:xxx"
		}
	}
	return ip
}

// Filters narrow a log search. Empty fields are not sent.
type Filters struct {
	Username  string `json:"username,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`
	Status    Status `json:"status,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
}

// Normalize trims free-text fields.
func (f Filters) Normalize() Filters {
	f.Username = strings.TrimSpace(f.Username)
	f.IPAddress = strings.TrimSpace(f.IPAddress)
	f.StartDate = strings.TrimSpace(f.StartDate)
	f.EndDate = strings.TrimSpace(f.EndDate)
	return f
}

// Empty reports whether no filter is set.
func (f Filters) Empty() bool {
	f = f.Normalize()
	return f.Username == "" && f.IPAddress == "" && f.Status == "" && f.StartDate == "" && f.EndDate == ""
}

// Query encodes the set filters.
func (f Filters) Query() url.Values {
	f = f.Normalize()
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("username", f.Username)
	set("ipAddress", f.IPAddress)
	set("status", string(f.Status))
	set("startDate", f.StartDate)
	set("endDate", f.EndDate)
	return q
}

// Stats is the login overview.
type Stats struct {
	TotalLogins      int      `json:"totalLogins"`
	SuccessfulLogins int      `json:"successfulLogins"`
	FailedLogins     int      `json:"failedLogins"`
	UniqueUsersToday int      `json:"uniqueUsersToday"`
	SuspiciousIPs    []string `json:"suspiciousIps"`
}

// ZeroStats is reported when the overview cannot be fetched.
func ZeroStats() Stats {
	return Stats{SuspiciousIPs: []string{}}
}

// SuccessRate is the percentage of successful logins, 0 when there are none.
func (s Stats) SuccessRate() float64 {
	if s.TotalLogins == 0 {
		return 0
	}
	return float64(s.SuccessfulLogins) * 100 / float64(s.TotalLogins)
}

// IPCheck is the verdict on one address.
type IPCheck struct {
	Suspicious   bool `json:"suspicious"`
	AttemptCount int  `json:"attemptCount"`
}

// StatRow is one row of an aggregate endpoint (daily, peak hours, active users, suspicious IPs);
// its columns depend on the endpoint.
type StatRow map[string]any
