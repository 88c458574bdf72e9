package kv_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agenda/internal/kv"
)

const testDSNEnv = "AGENDA_TEST_POSTGRES_DSN"

func postgresDSN(t *testing.T) string {
	t.Helper()

	dsn := os.Getenv(testDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set, skipping postgres test", testDSNEnv)
	}
	return dsn
}

func Test_PostgresStore_PGXPool_Roundtrip(t *testing.T) {
	// setup
	dsn := postgresDSN(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "error connecting to DB pool in test setup")
	defer pool.Close()

	store, err := kv.NewPostgresStoreFromPGXPool(pool, kv.WithTableName("kv_entries_pgx_test"))
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.Delete(ctx, kv.KeyEvents))

	// act
	require.NoError(t, store.Set(ctx, kv.KeyEvents, []byte(`[{"id":"a"}]`)))
	got, err := store.Get(ctx, kv.KeyEvents)

	// assert
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"a"}]`, string(got))
}

func Test_PostgresStore_SQLX_Roundtrip(t *testing.T) {
	// setup
	dsn := postgresDSN(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := sqlx.Open("postgres", dsn)
	require.NoError(t, err, "error opening sqlx handle in test setup")
	defer db.Close()

	store, err := kv.NewPostgresStoreFromSQLX(db, kv.WithTableName("kv_entries_sqlx_test"))
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.Delete(ctx, kv.KeyNotifications))

	// act
	_, missingErr := store.Get(ctx, kv.KeyNotifications)
	require.NoError(t, store.Set(ctx, kv.KeyNotifications, []byte(`[]`)))
	got, err := store.Get(ctx, kv.KeyNotifications)

	// assert
	assert.ErrorIs(t, missingErr, kv.ErrKeyNotFound)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(got))
}

func Test_PostgresStore_Rejects_NilConnections(t *testing.T) {
	_, err := kv.NewPostgresStoreFromPGXPool(nil)
	assert.ErrorIs(t, err, kv.ErrNilDatabaseConnection)

	_, err = kv.NewPostgresStoreFromSQLX(nil)
	assert.ErrorIs(t, err, kv.ErrNilDatabaseConnection)
}

func Test_PostgresStore_Set_Rejects_NonJSON(t *testing.T) {
	store, err := kv.NewPostgresStoreFromSQLX(sqlx.NewDb(nil, "postgres"))
	require.NoError(t, err)

	err = store.Set(context.Background(), kv.KeyEvents, []byte("not json"))

	assert.ErrorIs(t, err, kv.ErrInvalidJSONValue)
}
