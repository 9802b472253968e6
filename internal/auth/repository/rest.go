package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"envmonitor/console/internal/platform/api"
	sessiondomain "envmonitor/console/internal/session/domain"
)

// RESTRepository implements Repository against /auth.
type RESTRepository struct {
	client *api.Client
}

// NewRESTRepository returns a Repository backed by client.
func NewRESTRepository(client *api.Client) *RESTRepository {
	return &RESTRepository{client: client}
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe,omitempty"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleRequest struct {
	Token    string `json:"token"`
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Provider string `json:"provider"`
}

// wireResponse accepts both {token, user} and a flat user object that carries token.
type wireResponse struct {
	Token string
	User  *sessiondomain.User
}

func (w *wireResponse) UnmarshalJSON(b []byte) error {
	var envelope struct {
		Token string              `json:"token"`
		User  *sessiondomain.User `json:"user"`
	}
	if err := json.Unmarshal(b, &envelope); err != nil {
		return err
	}
	w.Token = envelope.Token
	w.User = envelope.User
	if w.User == nil {
		return json.Unmarshal(b, &w.User)
	}
	return nil
}

func (w *wireResponse) normalize() *AuthResponse {
	out := &AuthResponse{Token: w.Token}
	if w.User != nil {
		out.User = *w.User
	}
	return out
}

func (r *RESTRepository) post(ctx context.Context, path string, in any) (*AuthResponse, error) {
	var out wireResponse
	if err := r.client.PostJSON(ctx, path, in, &out); err != nil {
		return nil, err
	}
	return out.normalize(), nil
}

// Login posts credentials to /auth/login.
func (r *RESTRepository) Login(ctx context.Context, email, password string, rememberMe bool) (*AuthResponse, error) {
	return r.post(ctx, "/auth/login", loginRequest{Email: email, Password: password, RememberMe: rememberMe})
}

// Register posts a new account to /auth/register. The reply may carry no token while the
// account awaits approval.
func (r *RESTRepository) Register(ctx context.Context, username, email, password string) (*AuthResponse, error) {
	return r.post(ctx, "/auth/register", registerRequest{Username: username, Email: email, Password: password})
}

// Google exchanges a Google ID token at /auth/google.
func (r *RESTRepository) Google(ctx context.Context, idToken, email, name string) (*AuthResponse, error) {
	return r.post(ctx, "/auth/google", googleRequest{Token: idToken, Email: email, Name: name, Provider: "google"})
}

// ForgotPassword requests a reset mail.
func (r *RESTRepository) ForgotPassword(ctx context.Context, email string) error {
	return r.client.PostJSON(ctx, "/auth/password/forgot", map[string]string{"email": email}, nil)
}

// ValidateResetToken reads {valid} from /auth/password/validate-token.
func (r *RESTRepository) ValidateResetToken(ctx context.Context, token string) (bool, error) {
	var out struct {
		Valid bool `json:"valid"`
	}
	if err := r.client.GetJSON(ctx, "/auth/password/validate-token", url.Values{"token": {token}}, &out); err != nil {
		return false, fmt.Errorf("validate reset token: %w", err)
	}
	return out.Valid, nil
}

// ResetPassword sets a new password for the holder of token.
func (r *RESTRepository) ResetPassword(ctx context.Context, token, password string) error {
	return r.client.PostJSON(ctx, "/auth/password/reset", map[string]string{"token": token, "password": password}, nil)
}
