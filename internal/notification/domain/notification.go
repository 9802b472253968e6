// Package domain holds notification types and their label/icon tables.
package domain

import "time"

// Type is a notification category.
type Type string

const (
	TypeWeatherAlert           Type = "WEATHER_ALERT"
	TypeAirQualityAlert        Type = "AIR_QUALITY_ALERT"
	TypeSystemAlert            Type = "SYSTEM_ALERT"
	TypeAccountValidation      Type = "ACCOUNT_VALIDATION"
	TypeAccountApproved        Type = "ACCOUNT_APPROVED"
	TypeAccountRejected        Type = "ACCOUNT_REJECTED"
	TypeNewUser                Type = "NEW_USER"
	TypeCriticalThresholdAlert Type = "CRITICAL_THRESHOLD_ALERT"
)

type typeInfo struct {
	label string
	icon  string
}

var typeTable = map[Type]typeInfo{
	TypeWeatherAlert:           {"Alerte Météo", "cloud-rain"},
	TypeAirQualityAlert:        {"Alerte Qualité Air", "wind"},
	TypeSystemAlert:            {"Alerte Système", "alert-triangle"},
	TypeAccountValidation:      {"Validation Compte", "user-check"},
	TypeAccountApproved:        {"Compte Approuvé", "check-circle"},
	TypeAccountRejected:        {"Compte Rejeté", "x-circle"},
	TypeNewUser:                {"Nouveau Compte", "person_add"},
	TypeCriticalThresholdAlert: {"Alerte Seuil Critique", "warning"},
}

// DefaultIcon is shown for unknown types.
const DefaultIcon = "bell"

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	_, ok := typeTable[t]
	return ok
}

// Label returns the display label, or the raw type when unknown.
func (t Type) Label() string {
	if info, ok := typeTable[t]; ok {
		return info.label
	}
	return string(t)
}

// Icon returns the icon name, or DefaultIcon when unknown.
func (t Type) Icon() string {
	if info, ok := typeTable[t]; ok {
		return info.icon
	}
	return DefaultIcon
}

// Status is the read state.
type Status string

const (
	StatusUnread Status = "UNREAD"
	StatusRead   Status = "READ"
)

// UserRef is the user a notification belongs to.
type UserRef struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// ThresholdRef describes the breached threshold of a critical-threshold notification.
type ThresholdRef struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
	Limit float64 `json:"limit"`
}

// Notification is a backend notification.
type Notification struct {
	ID            int64         `json:"id"`
	Title         string        `json:"title,omitempty"`
	Message       string        `json:"message"`
	Type          Type          `json:"type"`
	Status        Status        `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	ReadAt        *time.Time    `json:"readAt,omitempty"`
	ReferenceID   *int64        `json:"referenceId,omitempty"`
	ReferenceType string        `json:"referenceType,omitempty"`
	User          *UserRef      `json:"user,omitempty"`
	Threshold     *ThresholdRef `json:"threshold,omitempty"`
}

// Unread reports whether n has not been acknowledged.
func (n Notification) Unread() bool { return n.Status != StatusRead }

// MarkRead flips n to READ at the given time.
func (n *Notification) MarkRead(at time.Time) {
	n.Status = StatusRead
	n.ReadAt = &at
}

// Preferences are the per-user delivery settings.
type Preferences struct {
	ID                   *int64 `json:"id,omitempty"`
	EmailNotifications   bool   `json:"emailNotifications"`
	WebNotifications     bool   `json:"webNotifications"`
	WeatherAlerts        bool   `json:"weatherAlerts"`
	AirQualityAlerts     bool   `json:"airQualityAlerts"`
	AccountNotifications bool   `json:"accountNotifications"`
}

// UserEvent is an account event pushed to admins (registration, approval).
type UserEvent struct {
	Type      string    `json:"type"`
	Username  string    `json:"username"`
	Role      string    `json:"role,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message,omitempty"`
}
