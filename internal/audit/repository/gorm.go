package repository

import (
	"context"

	"gorm.io/gorm"

	"envmonitor/console/internal/audit/domain"
)

// DefaultListLimit applies when List is called with a non-positive limit.
const DefaultListLimit = 50

type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository returns an audit repository on db. The audit_entries table comes from migrations.
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Create persists e. e must have ID set.
func (r *GormRepository) Create(ctx context.Context, e *domain.Entry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

// List returns the newest entries first.
func (r *GormRepository) List(ctx context.Context, limit int) ([]*domain.Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var out []*domain.Entry
	err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
