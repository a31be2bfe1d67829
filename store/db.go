package store

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"

	defaultSQLitePath  = "signup.db"
	defaultPingTimeout = 10 * time.Second
)

// DB is the local backend connection and the driver it was opened with.
type DB struct {
	*sqlx.DB
	Driver string
}

// ConnOptions selects the local database. A URL means postgres unless
// Driver says otherwise; without one the sqlite file at Path is used.
type ConnOptions struct {
	URL         string
	Path        string
	Driver      string
	PingTimeout time.Duration
}

func (o ConnOptions) resolve() (driver, dsn string, err error) {
	path := o.Path
	if path == "" {
		path = defaultSQLitePath
	}
	switch strings.ToLower(strings.TrimSpace(o.Driver)) {
	case "":
		if o.URL != "" {
			return DriverPostgres, o.URL, nil
		}
		return DriverSQLite, path, nil
	case "postgres", "pgx":
		if o.URL == "" {
			return "", "", fmt.Errorf("db_url required for driver %q", o.Driver)
		}
		return DriverPostgres, o.URL, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, path, nil
	default:
		return "", "", fmt.Errorf("unsupported db driver %q", o.Driver)
	}
}

// Open connects and pings. Struct fields map to snake_case columns when
// they carry no db tag.
func Open(ctx context.Context, o ConnOptions) (*DB, error) {
	driver, dsn, err := o.resolve()
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db.Mapper = reflectx.NewMapperFunc("db", toSnake)

	timeout := o.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return &DB{DB: db, Driver: driver}, nil
}

func toSnake(s string) string {
	var out strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := rune(s[i-1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) {
					out.WriteByte('_')
				}
			}
			out.WriteRune(unicode.ToLower(r))
		} else {
			out.WriteRune(r)
		}
	}
	return out.String()
}

func (db *DB) Close() error {
	if db == nil || db.DB == nil {
		return nil
	}
	return db.DB.Close()
}
