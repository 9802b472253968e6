// Package repository reads and prunes login logs through the admin REST API.
package repository

import (
	"context"

	"envmonitor/console/internal/loginlog/domain"
	"envmonitor/console/internal/platform/paging"
)

// Repository is the login-log store. Pages are zero-based.
type Repository interface {
	List(ctx context.Context, page, size int) (*paging.Page[domain.LoginLog], error)
	Search(ctx context.Context, f domain.Filters, page, size int) (*paging.Page[domain.LoginLog], error)
	ByUser(ctx context.Context, username string, page, size int) (*paging.Page[domain.LoginLog], error)
	// LastLogin returns nil, nil when the user never logged in.
	LastLogin(ctx context.Context, username string) (*domain.LoginLog, error)
	Today(ctx context.Context) ([]domain.LoginLog, error)

	Stats(ctx context.Context) (*domain.Stats, error)
	Daily(ctx context.Context) ([]domain.StatRow, error)
	PeakHours(ctx context.Context) ([]domain.StatRow, error)
	ActiveUsers(ctx context.Context, limit int) ([]domain.StatRow, error)

	SuspiciousIPs(ctx context.Context) ([]domain.StatRow, error)
	RecentFailures(ctx context.Context, hours int) ([]domain.LoginLog, error)
	CheckIP(ctx context.Context, ip string) (*domain.IPCheck, error)

	// Cleanup deletes logs older than daysToKeep and returns how many were removed.
	Cleanup(ctx context.Context, daysToKeep int) (int, error)
	Delete(ctx context.Context, id int64) error
	ExportCSV(ctx context.Context, f domain.Filters) ([]byte, error)
	ExportPDF(ctx context.Context, f domain.Filters) ([]byte, error)
}
