package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agenda/internal/kv/internal/adapters"
)

type fakeDB struct {
	values  map[string]string
	queries []string
	execs   []string
}

func (f *fakeDB) QueryValue(_ context.Context, query string) (string, error) {
	f.queries = append(f.queries, query)
	v, ok := f.values[query]
	if !ok {
		return "", adapters.ErrNoRows
	}
	return v, nil
}

func (f *fakeDB) Exec(_ context.Context, query string) (int64, error) {
	f.execs = append(f.execs, query)
	return 1, nil
}

func Test_PostgresStore_Get_When_NoRowMatches(t *testing.T) {
	// setup
	db := &fakeDB{values: map[string]string{}}
	ps, err := newPostgresStore(db)
	require.NoError(t, err)

	// act
	_, err = ps.Get(context.Background(), KeyEvents)

	// assert
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.Len(t, db.queries, 1)
}

func Test_PostgresStore_Get_Returns_StoredValue(t *testing.T) {
	// setup
	ps, err := newPostgresStore(&fakeDB{})
	require.NoError(t, err)
	query, err := ps.buildSelectQuery(KeyEvents)
	require.NoError(t, err)
	ps.db = &fakeDB{values: map[string]string{query: `[{"id":"e1"}]`}}

	// act
	got, err := ps.Get(context.Background(), KeyEvents)

	// assert
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"e1"}]`, string(got))
}

func Test_PostgresStore_Set_When_ValueIsNotJSON(t *testing.T) {
	// setup
	db := &fakeDB{}
	ps, err := newPostgresStore(db)
	require.NoError(t, err)

	// act
	errInvalid := ps.Set(context.Background(), KeyEvents, []byte(`{not json`))
	errValid := ps.Set(context.Background(), KeyDemoEventsLoaded, []byte(`true`))

	// assert
	assert.ErrorIs(t, errInvalid, ErrInvalidJSONValue)
	assert.NoError(t, errValid)
	assert.Len(t, db.execs, 1, "only the valid value reaches the database")
}

func Test_PostgresStore_BuildSelectQuery(t *testing.T) {
	ps := &PostgresStore{tableName: defaultTableName}

	query, err := ps.buildSelectQuery(KeyEvents)

	require.NoError(t, err)
	assert.Contains(t, query, `FROM "kv_entries"`)
	assert.Contains(t, query, `"value"::text`)
	assert.Contains(t, query, `("key" = 'events')`)
}

func Test_PostgresStore_BuildUpsertQuery_Escapes_Value(t *testing.T) {
	ps := &PostgresStore{tableName: "agenda_kv"}

	query, err := ps.buildUpsertQuery(KeyEvents, []byte(`[{"title":"O'Reilly"}]`))

	require.NoError(t, err)
	assert.Contains(t, query, `INSERT INTO "agenda_kv"`)
	assert.Contains(t, query, `'[{"title":"O''Reilly"}]'::jsonb`)
	assert.Contains(t, query, `ON CONFLICT (key) DO UPDATE SET`)
	assert.Contains(t, query, `EXCLUDED.value`)
}

func Test_PostgresStore_BuildDeleteQuery(t *testing.T) {
	ps := &PostgresStore{tableName: defaultTableName}

	query, err := ps.buildDeleteQuery(KeyCurrentUser)

	require.NoError(t, err)
	assert.Contains(t, query, `DELETE FROM "kv_entries"`)
	assert.Contains(t, query, `'current-user'`)
}

func Test_WithTableName_Rejects_InvalidNames(t *testing.T) {
	ps := &PostgresStore{}

	assert.ErrorIs(t, WithTableName("")(ps), ErrEmptyTableName)
	assert.ErrorIs(t, WithTableName(`kv"; drop`)(ps), ErrInvalidKey)
	assert.NoError(t, WithTableName("agenda_kv")(ps))
	assert.Equal(t, "agenda_kv", ps.tableName)
}
