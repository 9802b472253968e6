package repository

import (
	"context"
	"net/http"
	"strconv"

	"envmonitor/console/internal/platform/api"
	"envmonitor/console/internal/user/domain"
)

// RESTRepository implements Repository against /admin/users and /users.
type RESTRepository struct {
	client *api.Client
}

// NewRESTRepository returns a Repository backed by client.
func NewRESTRepository(client *api.Client) *RESTRepository {
	return &RESTRepository{client: client}
}

func adminPath(id int64, action string) string {
	p := "/admin/users/" + strconv.FormatInt(id, 10)
	if action != "" {
		p += "/" + action
	}
	return p
}

// List returns every account.
func (r *RESTRepository) List(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	if err := r.client.GetJSON(ctx, "/admin/users", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPending returns accounts awaiting approval.
func (r *RESTRepository) ListPending(ctx context.Context) ([]domain.User, error) {
	var out []domain.User
	if err := r.client.GetJSON(ctx, "/admin/users/pending", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type createRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

type updateRequest struct {
	Username string            `json:"username"`
	Email    string            `json:"email"`
	Role     string            `json:"role"`
	Status   domain.UserStatus `json:"status,omitempty"`
}

// Create posts a new account to /users.
func (r *RESTRepository) Create(ctx context.Context, u domain.User, password string) (*domain.User, error) {
	var out domain.User
	req := createRequest{Username: u.Username, Email: u.Email, Role: u.Role, Password: password}
	if err := r.client.PostJSON(ctx, "/users", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update saves profile fields and status via PUT /users/:id.
func (r *RESTRepository) Update(ctx context.Context, u domain.User) (*domain.User, error) {
	var out domain.User
	req := updateRequest{Username: u.Username, Email: u.Email, Role: u.Role, Status: u.Status}
	if err := r.client.PutJSON(ctx, "/users/"+strconv.FormatInt(u.ID, 10), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes an account through the admin endpoint.
func (r *RESTRepository) Delete(ctx context.Context, id int64) error {
	return r.client.Delete(ctx, adminPath(id, ""), nil, nil)
}

func (r *RESTRepository) transition(ctx context.Context, id int64, action string) (*domain.User, error) {
	var out domain.User
	if err := r.client.PutJSON(ctx, adminPath(id, action), struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Approve activates a pending account.
func (r *RESTRepository) Approve(ctx context.Context, id int64) (*domain.User, error) {
	return r.transition(ctx, id, "approve")
}

// Reject refuses a pending account.
func (r *RESTRepository) Reject(ctx context.Context, id int64) (*domain.User, error) {
	return r.transition(ctx, id, "reject")
}

// Deactivate disables an active account.
func (r *RESTRepository) Deactivate(ctx context.Context, id int64) (*domain.User, error) {
	return r.transition(ctx, id, "deactivate")
}

// Suspend suspends an account.
func (r *RESTRepository) Suspend(ctx context.Context, id int64) (*domain.User, error) {
	return r.transition(ctx, id, "suspend")
}

// ChangeRole sets the account role via PATCH /admin/users/:id/role.
func (r *RESTRepository) ChangeRole(ctx context.Context, id int64, role string) (*domain.User, error) {
	var out domain.User
	if err := r.client.PatchJSON(ctx, adminPath(id, "role"), map[string]string{"role": role}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping returns the text of /users/test.
func (r *RESTRepository) Ping(ctx context.Context) (string, error) {
	body, err := r.client.Do(ctx, http.MethodGet, "/users/test", nil, nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
