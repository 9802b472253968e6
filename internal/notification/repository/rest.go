package repository

import (
	"context"
	"net/url"
	"strconv"

	"envmonitor/console/internal/notification/domain"
	"envmonitor/console/internal/platform/api"
	"envmonitor/console/internal/platform/paging"
)

const basePath = "/notifications"

// Creation endpoints accepted by Create.
const (
	EndpointNewUser        = "new-user"
	EndpointThresholdAlert = "threshold-alert"
)

// RESTRepository implements Repository against /notifications.
type RESTRepository struct {
	client *api.Client
}

// NewRESTRepository returns a Repository backed by client.
func NewRESTRepository(client *api.Client) *RESTRepository {
	return &RESTRepository{client: client}
}

// List returns one page of the caller's notifications.
func (r *RESTRepository) List(ctx context.Context, page, size int) (*paging.Page[domain.Notification], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	var out paging.Page[domain.Notification]
	if err := r.client.GetJSON(ctx, basePath, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UnreadCount reads {unreadCount}.
func (r *RESTRepository) UnreadCount(ctx context.Context) (int, error) {
	var out struct {
		UnreadCount int `json:"unreadCount"`
	}
	if err := r.client.GetJSON(ctx, basePath+"/unread-count", nil, &out); err != nil {
		return 0, err
	}
	return out.UnreadCount, nil
}

// MarkRead acknowledges one notification.
func (r *RESTRepository) MarkRead(ctx context.Context, id int64) error {
	return r.client.PutJSON(ctx, basePath+"/"+strconv.FormatInt(id, 10)+"/read", struct{}{}, nil)
}

// MarkAllRead acknowledges every notification of the caller.
func (r *RESTRepository) MarkAllRead(ctx context.Context) error {
	return r.client.PutJSON(ctx, basePath+"/mark-all-read", struct{}{}, nil)
}

// Preferences returns the caller's delivery settings.
func (r *RESTRepository) Preferences(ctx context.Context) (*domain.Preferences, error) {
	var out domain.Preferences
	if err := r.client.GetJSON(ctx, basePath+"/preferences", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePreferences replaces the caller's delivery settings.
func (r *RESTRepository) UpdatePreferences(ctx context.Context, p domain.Preferences) (*domain.Preferences, error) {
	var out domain.Preferences
	if err := r.client.PutJSON(ctx, basePath+"/preferences", p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create posts n to /notifications/<endpoint>.
func (r *RESTRepository) Create(ctx context.Context, endpoint string, n domain.Notification) (*domain.Notification, error) {
	var out domain.Notification
	if err := r.client.PostJSON(ctx, basePath+"/"+endpoint, n, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApproveUser marks a pending registration approved.
func (r *RESTRepository) ApproveUser(ctx context.Context, userID int64) error {
	return r.client.PutJSON(ctx, basePath+"/approve-user/"+strconv.FormatInt(userID, 10), struct{}{}, nil)
}

// RejectUser marks a pending registration rejected.
func (r *RESTRepository) RejectUser(ctx context.Context, userID int64) error {
	return r.client.PutJSON(ctx, basePath+"/reject-user/"+strconv.FormatInt(userID, 10), struct{}{}, nil)
}
