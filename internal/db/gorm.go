package db

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrUnsupportedDSN is returned for a store DSN that is neither sqlite3:// nor postgres://.
var ErrUnsupportedDSN = errors.New("unsupported store DSN; use sqlite3:// or postgres://")

const sqlitePrefix = "sqlite3://"

// Dialect returns "sqlite3" or "postgres" for the given store DSN.
func Dialect(dsn string) (string, error) {
	switch {
	case strings.HasPrefix(dsn, sqlitePrefix):
		return "sqlite3", nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "postgres", nil
	default:
		return "", ErrUnsupportedDSN
	}
}

// OpenGorm opens the local store. sqlite3://<path> uses the sqlite driver; postgres DSNs are
// opened with pgx (see Open) and handed to gorm's postgres dialector.
func OpenGorm(dsn string, debug bool) (*gorm.DB, error) {
	dialect, err := Dialect(dsn)
	if err != nil {
		return nil, err
	}
	level := logger.Silent
	if debug {
		level = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(level)}

	switch dialect {
	case "sqlite3":
		path := strings.TrimPrefix(dsn, sqlitePrefix)
		if path == "" {
			return nil, fmt.Errorf("db: sqlite3 DSN has no path")
		}
		return gorm.Open(sqlite.Open(path), cfg)
	default:
		sqlDB, err := Open(dsn)
		if err != nil {
			return nil, err
		}
		gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), cfg)
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return gdb, nil
	}
}
