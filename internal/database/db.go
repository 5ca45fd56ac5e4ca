package database

import (
	"context"
	"database/sql"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Options are the connection settings read from config.
type Options struct {
	User, Pass, Host, Port, Name string
	// LockWaitTimeout is applied to every session as innodb_lock_wait_timeout
	// (seconds).  Zero keeps the server default.
	LockWaitTimeout int
}

// DSN builds the driver connection string.  parseTime=true maps DATE and
// DATETIME to time.Time and loc=UTC keeps them consistent.
func DSN(o Options) string {
	cfg := mysql.NewConfig()
	cfg.User = o.User
	cfg.Passwd = o.Pass
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(o.Host, o.Port)
	cfg.DBName = o.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Collation = "utf8mb4_unicode_ci"
	if o.LockWaitTimeout > 0 {
		cfg.Params = map[string]string{"innodb_lock_wait_timeout": strconv.Itoa(o.LockWaitTimeout)}
	}
	return cfg.FormatDSN()
}

// Open connects to MySQL and verifies the connection.
func Open(o Options) (*sql.DB, error) {
	return OpenDSN(DSN(o))
}

// OpenDSN is Open for a ready-made DSN, as used by the integration tests.
func OpenDSN(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
