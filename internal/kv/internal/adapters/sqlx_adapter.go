package adapters

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// SQLXAdapter runs kv statements on a sqlx handle, usually opened with lib/pq.
type SQLXAdapter struct {
	db *sqlx.DB
}

func NewSQLXAdapter(db *sqlx.DB) *SQLXAdapter {
	return &SQLXAdapter{db: db}
}

func (s *SQLXAdapter) QueryValue(ctx context.Context, query string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, query)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRows
	}
	return value, err
}

func (s *SQLXAdapter) Exec(ctx context.Context, query string) (int64, error) {
	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
