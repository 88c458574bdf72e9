package adapters

import (
	"context"
	"errors"
)

// ErrNoRows is returned by QueryValue when the query matched nothing.
var ErrNoRows = errors.New("no rows in result set")

// DBAdapter runs the two kinds of statement the key-value store issues:
// a single-value read and a write reporting affected rows.
type DBAdapter interface {
	// QueryValue scans the first column of the first row as text.
	QueryValue(ctx context.Context, query string) (string, error)
	Exec(ctx context.Context, query string) (int64, error)
}
