package repository

import (
	"context"
	"errors"
	"net/url"
	"strconv"

	"envmonitor/console/internal/loginlog/domain"
	"envmonitor/console/internal/platform/api"
	"envmonitor/console/internal/platform/paging"
)

const basePath = "/admin/login-logs"

// RESTRepository implements Repository against /admin/login-logs.
type RESTRepository struct {
	client *api.Client
}

// NewRESTRepository returns a Repository backed by client.
func NewRESTRepository(client *api.Client) *RESTRepository {
	return &RESTRepository{client: client}
}

func pageQuery(q url.Values, page, size int) url.Values {
	if q == nil {
		q = url.Values{}
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	return q
}

func (r *RESTRepository) page(ctx context.Context, path string, q url.Values) (*paging.Page[domain.LoginLog], error) {
	var out paging.Page[domain.LoginLog]
	if err := r.client.GetJSON(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RESTRepository) rows(ctx context.Context, path string, q url.Values) ([]domain.StatRow, error) {
	var out []domain.StatRow
	if err := r.client.GetJSON(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RESTRepository) logs(ctx context.Context, path string, q url.Values) ([]domain.LoginLog, error) {
	var out []domain.LoginLog
	if err := r.client.GetJSON(ctx, path, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns one unfiltered page.
func (r *RESTRepository) List(ctx context.Context, page, size int) (*paging.Page[domain.LoginLog], error) {
	return r.page(ctx, basePath, pageQuery(nil, page, size))
}

// Search returns one page matching f.
func (r *RESTRepository) Search(ctx context.Context, f domain.Filters, page, size int) (*paging.Page[domain.LoginLog], error) {
	return r.page(ctx, basePath+"/search", pageQuery(f.Query(), page, size))
}

// ByUser returns one page of a user's logins.
func (r *RESTRepository) ByUser(ctx context.Context, username string, page, size int) (*paging.Page[domain.LoginLog], error) {
	return r.page(ctx, basePath+"/user/"+url.PathEscape(username), pageQuery(nil, page, size))
}

// LastLogin returns the newest login of username.
func (r *RESTRepository) LastLogin(ctx context.Context, username string) (*domain.LoginLog, error) {
	var out *domain.LoginLog
	if err := r.client.GetJSON(ctx, basePath+"/user/"+url.PathEscape(username)+"/last", nil, &out); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

// Today returns today's logins.
func (r *RESTRepository) Today(ctx context.Context) ([]domain.LoginLog, error) {
	return r.logs(ctx, basePath+"/today", nil)
}

// Stats returns the login overview.
func (r *RESTRepository) Stats(ctx context.Context) (*domain.Stats, error) {
	var out domain.Stats
	if err := r.client.GetJSON(ctx, basePath+"/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Daily returns per-day login counts.
func (r *RESTRepository) Daily(ctx context.Context) ([]domain.StatRow, error) {
	return r.rows(ctx, basePath+"/stats/daily", nil)
}

// PeakHours returns per-hour login counts.
func (r *RESTRepository) PeakHours(ctx context.Context) ([]domain.StatRow, error) {
	return r.rows(ctx, basePath+"/stats/peak-hours", nil)
}

// ActiveUsers returns the most active users.
func (r *RESTRepository) ActiveUsers(ctx context.Context, limit int) ([]domain.StatRow, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	return r.rows(ctx, basePath+"/stats/active-users", q)
}

// SuspiciousIPs returns addresses with repeated failures.
func (r *RESTRepository) SuspiciousIPs(ctx context.Context) ([]domain.StatRow, error) {
	return r.rows(ctx, basePath+"/security/suspicious-ips", nil)
}

// RecentFailures returns failed logins of the last hours.
func (r *RESTRepository) RecentFailures(ctx context.Context, hours int) ([]domain.LoginLog, error) {
	q := url.Values{}
	q.Set("hours", strconv.Itoa(hours))
	return r.logs(ctx, basePath+"/security/recent-failures", q)
}

// CheckIP asks whether ip is suspicious.
func (r *RESTRepository) CheckIP(ctx context.Context, ip string) (*domain.IPCheck, error) {
	q := url.Values{}
	q.Set("ip", ip)
	var out domain.IPCheck
	if err := r.client.GetJSON(ctx, basePath+"/security/check-ip", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cleanup deletes logs older than daysToKeep.
func (r *RESTRepository) Cleanup(ctx context.Context, daysToKeep int) (int, error) {
	q := url.Values{}
	q.Set("daysToKeep", strconv.Itoa(daysToKeep))
	var out struct {
		DeletedCount int `json:"deletedCount"`
	}
	if err := r.client.Delete(ctx, basePath+"/cleanup", q, &out); err != nil {
		return 0, err
	}
	return out.DeletedCount, nil
}

// Delete removes one log.
func (r *RESTRepository) Delete(ctx context.Context, id int64) error {
	return r.client.Delete(ctx, basePath+"/"+strconv.FormatInt(id, 10), nil, nil)
}

// ExportCSV returns the server-rendered CSV of the logs matching f.
func (r *RESTRepository) ExportCSV(ctx context.Context, f domain.Filters) ([]byte, error) {
	return r.client.GetBlob(ctx, basePath+"/export/csv", f.Query())
}

// ExportPDF returns the server-rendered PDF of the logs matching f.
func (r *RESTRepository) ExportPDF(ctx context.Context, f domain.Filters) ([]byte, error) {
	return r.client.GetBlob(ctx, basePath+"/export/pdf", f.Query())
}
