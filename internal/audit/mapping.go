package audit

import (
	"net/http"
	"strings"
)

// ActionResource holds action and resource derived from a REST mutation.
type ActionResource struct {
	Action   string
	Resource string
}

// collection segment -> resource name
var resources = map[string]string{
	"users":         "user",
	"capteurs":      "sensor",
	"alerts":        "alert",
	"thresholds":    "threshold",
	"login-logs":    "login_log",
	"notifications": "notification",
}

// trailing verb segments that name the action themselves
var verbs = map[string]string{
	"approve":         "approve",
	"reject":          "reject",
	"deactivate":      "deactivate",
	"suspend":         "suspend",
	"role":            "role_changed",
	"clear":           "clear",
	"recalculate":     "recalculate",
	"cleanup":         "cleanup",
	"generate-data":   "generate_data",
	"history":         "history_update",
	"read":            "mark_read",
	"mark-all-read":   "mark_all_read",
	"approve-user":    "approve",
	"reject-user":     "reject",
	"new-user":        "notify_new_user",
	"preferences":     "update_preferences",
	"threshold-alert": "threshold_alert",
}

// ParseRequest returns action and resource for a REST mutation path relative to the API base
// (e.g. PUT /admin/users/12/approve -> approve/user). ok is false for requests that are not
// journaled: reads, /auth calls and unknown collections.
func ParseRequest(method, path string) (ActionResource, bool) {
	if method == http.MethodGet || method == http.MethodHead {
		return ActionResource{}, false
	}
	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(segments) > 0 && segments[0] == "admin" {
		segments = segments[1:]
	}
	if len(segments) == 0 || segments[0] == "auth" {
		return ActionResource{}, false
	}

	resource := ""
	for _, seg := range segments {
		if r, ok := resources[seg]; ok {
			resource = r
		}
	}
	if resource == "" {
		return ActionResource{}, false
	}

	verb := segments[len(segments)-1]
	if len(segments) >= 2 && isID(verb) {
		// PUT /notifications/approve-user/:id
		verb = segments[len(segments)-2]
	}
	action, ok := verbs[verb]
	if !ok {
		return ActionResource{Action: methodToAction(method), Resource: resource}, true
	}
	if strings.HasSuffix(verb, "-user") {
		resource = "user"
	}
	return ActionResource{Action: action, Resource: resource}, true
}

func methodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

func isID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
