package domain

import "time"

// Entry is one journaled admin mutation performed through the console.
type Entry struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Actor     string    `gorm:"column:actor"`
	Action    string    `gorm:"column:action"`
	Resource  string    `gorm:"column:resource"`
	Metadata  string    `gorm:"column:metadata"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName maps Entry to the audit_entries table.
func (Entry) TableName() string { return "audit_entries" }
