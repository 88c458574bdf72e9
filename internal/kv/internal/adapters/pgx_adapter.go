package adapters

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGXAdapter runs kv statements on a pgx pool.
type PGXAdapter struct {
	pool *pgxpool.Pool
}

func NewPGXAdapter(pool *pgxpool.Pool) *PGXAdapter {
	return &PGXAdapter{pool: pool}
}

func (p *PGXAdapter) QueryValue(ctx context.Context, query string) (string, error) {
	var value string
	err := p.pool.QueryRow(ctx, query).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNoRows
	}
	return value, err
}

func (p *PGXAdapter) Exec(ctx context.Context, query string) (int64, error) {
	tag, err := p.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
