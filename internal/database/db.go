package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(user, pass, host, port, name string) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(user, pass, host, port, name))
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// DSN builds the go-sql-driver/mysql connection string. parseTime maps
// DATETIME to time.Time and loc=UTC keeps archived timestamps consistent.
func DSN(user, pass, host, port, name string) string {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)
}

const salesTable = `CREATE TABLE IF NOT EXISTS session_sales (
  id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
  session_id     VARCHAR(64)  NOT NULL,
  sale_id        VARCHAR(64)  NOT NULL,
  ticket_type    VARCHAR(16)  NOT NULL,
  quantity       INT          NOT NULL,
  seats_consumed INT          NOT NULL,
  total_cents    BIGINT       NOT NULL,
  sold_by        VARCHAR(190) NOT NULL DEFAULT '',
  created_at     DATETIME     NOT NULL,
  UNIQUE KEY uq_session_sale (session_id, sale_id)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`

// EnsureSchema creates the sale archive table when missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, salesTable); err != nil {
		return fmt.Errorf("create session_sales: %w", err)
	}
	return nil
}
