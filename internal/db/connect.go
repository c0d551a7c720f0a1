package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Backend names accepted in configuration.
const (
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
)

// Opts selects and parameterizes a storage backend.
type Opts struct {
	Backend  string // "sqlite" or "mysql"
	Path     string // sqlite: database file path, or ":memory:"
	Host     string // mysql
	Port     int    // mysql
	Database string // mysql
	User     string // mysql
	Password string // mysql
}

// DSN builds the MySQL DSN for the networked backend.
func DSN(user, password, host string, port int, database string) string {
	cred := user
	if password != "" {
		cred += ":" + password
	}
	// clientFoundRows makes UPDATE report matched rows rather than changed
	// rows, so affected-row checks behave the same as on sqlite.
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true&clientFoundRows=true", cred, host, port, database)
}

// Connect opens a GORM connection to the configured backend. The engine is
// authored against GORM's portable surface only, so both backends behave the
// same from the caller's point of view.
func Connect(opts Opts) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	switch opts.Backend {
	case BackendSQLite, "":
		path := opts.Path
		if path == "" {
			path = "beam.db"
		}
		db, err := gorm.Open(sqlite.Open(path), cfg)
		if err != nil {
			return nil, fmt.Errorf("db: open sqlite %s: %w", path, err)
		}
		return db, nil
	case BackendMySQL:
		dsn := DSN(opts.User, opts.Password, opts.Host, opts.Port, opts.Database)
		db, err := gorm.Open(mysql.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", opts.Host, opts.Port, opts.Database, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("db: unsupported backend %q", opts.Backend)
	}
}
