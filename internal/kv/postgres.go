package kv

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	"agenda/internal/kv/internal/adapters"
)

const (
	defaultTableName = "kv_entries"
	dialectPostgres  = "postgres"
	colKey           = "key"
	colValue         = "value"
	colUpdatedAt     = "updated_at"

	logMsgQueryFailed  = "kv query failed"
	logMsgExecFailed   = "kv exec failed"
	logMsgSQLExecuted  = "kv sql executed: "
	logAttrError       = "error"
	logAttrKey         = "key"
	logAttrQuery       = "query"
	logAttrDurationMS  = "duration_ms"
	logActionGet       = "get"
	logActionSet       = "set"
	logActionDelete    = "delete"
	logActionMigration = "ensure_schema"
)

var ErrNilDatabaseConnection = errors.New("database connection is nil")
var ErrEmptyTableName = errors.New("empty table name supplied")
var ErrInvalidJSONValue = errors.New("value is not valid json")

// PostgresStore keeps each key as one row of a jsonb table.
type PostgresStore struct {
	db        adapters.DBAdapter
	tableName string
	logger    Logger
}

// Option defines a functional option for configuring PostgresStore.
type Option func(*PostgresStore) error

// WithTableName sets the table holding the entries.
func WithTableName(tableName string) Option {
	return func(ps *PostgresStore) error {
		if tableName == "" {
			return ErrEmptyTableName
		}
		if err := validateKey(tableName); err != nil {
			return fmt.Errorf("invalid table name: %w", err)
		}
		ps.tableName = tableName
		return nil
	}
}

// WithLogger sets the logger. SQL statements are logged at debug level,
// failures at error level.
func WithLogger(logger Logger) Option {
	return func(ps *PostgresStore) error {
		ps.logger = logger
		return nil
	}
}

// NewPostgresStoreFromPGXPool creates a PostgresStore on top of a pgx pool.
func NewPostgresStoreFromPGXPool(pool *pgxpool.Pool, options ...Option) (*PostgresStore, error) {
	if pool == nil {
		return nil, ErrNilDatabaseConnection
	}
	return newPostgresStore(adapters.NewPGXAdapter(pool), options...)
}

// NewPostgresStoreFromSQLX creates a PostgresStore on top of a sqlx handle
// (typically opened with the lib/pq "postgres" driver).
func NewPostgresStoreFromSQLX(db *sqlx.DB, options ...Option) (*PostgresStore, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}
	return newPostgresStore(adapters.NewSQLXAdapter(db), options...)
}

func newPostgresStore(db adapters.DBAdapter, options ...Option) (*PostgresStore, error) {
	ps := &PostgresStore{
		db:        db,
		tableName: defaultTableName,
	}
	for _, option := range options {
		if err := option(ps); err != nil {
			return nil, err
		}
	}
	return ps, nil
}

// EnsureSchema creates the entries table if it does not exist yet.
func (ps *PostgresStore) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (
	%q text PRIMARY KEY,
	%q jsonb NOT NULL,
	%q timestamptz NOT NULL DEFAULT now()
)`, ps.tableName, colKey, colValue, colUpdatedAt)

	_, err := ps.exec(ctx, logActionMigration, ddl)
	return err
}

func (ps *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	query, err := ps.buildSelectQuery(key)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	value, err := ps.db.QueryValue(ctx, query)
	ps.logQuery(logActionGet, query, time.Since(start))
	if errors.Is(err, adapters.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		ps.logError(logMsgQueryFailed, err, key, query)
		return nil, fmt.Errorf("failed to query %s: %w", key, err)
	}
	return []byte(value), nil
}

// Set upserts the value. It must be valid JSON since the column is jsonb.
func (ps *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if !jsoniter.ConfigCompatibleWithStandardLibrary.Valid(value) {
		return ErrInvalidJSONValue
	}
	query, err := ps.buildUpsertQuery(key, value)
	if err != nil {
		return err
	}
	_, err = ps.exec(ctx, logActionSet, query)
	return err
}

func (ps *PostgresStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	query, err := ps.buildDeleteQuery(key)
	if err != nil {
		return err
	}
	_, err = ps.exec(ctx, logActionDelete, query)
	return err
}

func (ps *PostgresStore) exec(ctx context.Context, action, query string) (int64, error) {
	start := time.Now()
	n, err := ps.db.Exec(ctx, query)
	ps.logQuery(action, query, time.Since(start))
	if err != nil {
		ps.logError(logMsgExecFailed, err, action, query)
		return 0, fmt.Errorf("kv %s failed: %w", action, err)
	}
	return n, nil
}

func (ps *PostgresStore) buildSelectQuery(key string) (string, error) {
	stmt := goqu.Dialect(dialectPostgres).
		From(ps.tableName).
		Select(goqu.L(fmt.Sprintf("%q::text", colValue))).
		Where(goqu.C(colKey).Eq(key))

	query, _, err := stmt.ToSQL()
	if err != nil {
		return "", fmt.Errorf("failed to build select query: %w", err)
	}
	return query, nil
}

func (ps *PostgresStore) buildUpsertQuery(key string, value []byte) (string, error) {
	stmt := goqu.Dialect(dialectPostgres).
		Insert(ps.tableName).
		Rows(goqu.Record{
			colKey:       key,
			colValue:     goqu.L("?::jsonb", string(value)),
			colUpdatedAt: goqu.L("now()"),
		}).
		OnConflict(goqu.DoUpdate(colKey, goqu.Record{
			colValue:     goqu.L("EXCLUDED." + colValue),
			colUpdatedAt: goqu.L("EXCLUDED." + colUpdatedAt),
		}))

	query, _, err := stmt.ToSQL()
	if err != nil {
		return "", fmt.Errorf("failed to build upsert query: %w", err)
	}
	return query, nil
}

func (ps *PostgresStore) buildDeleteQuery(key string) (string, error) {
	stmt := goqu.Dialect(dialectPostgres).
		Delete(ps.tableName).
		Where(goqu.C(colKey).Eq(key))

	query, _, err := stmt.ToSQL()
	if err != nil {
		return "", fmt.Errorf("failed to build delete query: %w", err)
	}
	return query, nil
}

func (ps *PostgresStore) logQuery(action, query string, d time.Duration) {
	if ps.logger != nil {
		ps.logger.Debug(logMsgSQLExecuted+action, logAttrDurationMS, durationToMilliseconds(d), logAttrQuery, query)
	}
}

func (ps *PostgresStore) logError(msg string, err error, key, query string) {
	if ps.logger != nil {
		ps.logger.Error(msg, logAttrError, err.Error(), logAttrKey, key, logAttrQuery, query)
	}
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}
