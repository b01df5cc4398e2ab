// Package mysql is the MySQL / MariaDB sink (github.com/go-sql-driver/mysql).
//
// MySQL commits implicitly around DDL, so a failed run can leave created
// tables behind even though its rows are rolled back.
package mysql

import (
	"context"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"catalogetl/internal/dialect"
	"catalogetl/internal/storage"
)

func init() {
	storage.Register("mysql", Open)
}

// Open connects and verifies the connection.
// DSN example: user:pass@tcp(host:3306)/catalog?charset=utf8mb4
func Open(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
	db, err := sqlx.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	db.SetMaxOpenConns(4)
	return storage.NewSQLXSink(db, dialect.MySQL{}), nil
}
