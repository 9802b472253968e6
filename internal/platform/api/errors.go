package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound is wrapped by errors for 404 responses.
	ErrNotFound = errors.New("resource not found")
	// ErrUnauthorized is wrapped by errors for 401 and 403 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrServer is wrapped by errors for 5xx responses.
	ErrServer = errors.New("server error")
	// ErrNetwork is wrapped when the request never got a response.
	ErrNetwork = errors.New("network error")
	// ErrRejected is wrapped by errors for other 4xx responses.
	ErrRejected = errors.New("request rejected")
)

// Kind classifies a REST failure.
type Kind int

const (
	KindClient Kind = iota
	KindNotFound
	KindAuth
	KindServer
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAuth:
		return "auth"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	default:
		return "client"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindAuth:
		return ErrUnauthorized
	case KindServer:
		return ErrServer
	case KindNetwork:
		return ErrNetwork
	default:
		return ErrRejected
	}
}

// kindForStatus maps an HTTP status to its failure kind.
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status >= 500:
		return KindServer
	default:
		return KindClient
	}
}

// Error is a failed REST call.
type Error struct {
	Kind   Kind
	Status int
	Method string
	Path   string
	// Message is the server-provided message, if any.
	Message string
	// Err is the transport error for KindNetwork.
	Err error
}

func (e *Error) Error() string {
	if e.Kind == KindNetwork {
		return fmt.Sprintf("api: %s %s: %v", e.Method, e.Path, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("api: %s %s: %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("api: %s %s: %d", e.Method, e.Path, e.Status)
}

// Unwrap exposes the kind sentinel and, for network failures, the transport error.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind.sentinel(), e.Err}
	}
	return []error{e.Kind.sentinel()}
}

// UserMessage is the French text shown to the user for this failure.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindNotFound:
		return "Ressource non trouvée."
	case KindAuth:
		return "Erreur d'authentification. Veuillez vous reconnecter."
	case KindServer:
		return "Erreur serveur. Veuillez réessayer plus tard."
	case KindNetwork:
		return "Impossible de contacter le serveur."
	}
	if e.Message != "" {
		return e.Message
	}
	return "Une erreur est survenue."
}

// UserMessage renders any error for display; non-API errors use their own text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return err.Error()
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

const maxMessageLen = 200

// serverMessage extracts {message} or {error} from a JSON body, else the trimmed text.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
		return ""
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen]
	}
	return msg
}
