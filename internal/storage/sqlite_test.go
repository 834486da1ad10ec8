package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStorage(t)
	assert.NoError(t, store.Migrate(context.Background()))
}

func TestSaveAndGetCalculation(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	inputs := json.RawMessage(`{"uber_rides":[{"distance":5}]}`)
	results := json.RawMessage(`{"total_emissions_kg":2}`)

	saved, err := store.SaveCalculation(ctx, inputs, results)
	require.NoError(t, err)
	assert.Positive(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	got, err := store.GetCalculation(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, got.ID)
	assert.JSONEq(t, string(inputs), string(got.Inputs))
	assert.JSONEq(t, string(results), string(got.Results))
}

func TestGetCalculationMissing(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetCalculation(context.Background(), 9999)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSaveCalculationRejectsEmpty(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.SaveCalculation(context.Background(), nil, json.RawMessage(`{}`))
	assert.Error(t, err)

	_, err = store.SaveCalculation(context.Background(), json.RawMessage(`{}`), nil)
	assert.Error(t, err)
}

func TestListCalculationsNewestFirst(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.SaveCalculation(ctx,
			json.RawMessage(`{"n":`+string(rune('0'+i))+`}`),
			json.RawMessage(`{}`))
		require.NoError(t, err)
	}

	calcs, err := store.ListCalculations(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, calcs, 3)
	assert.Greater(t, calcs[0].ID, calcs[1].ID)
	assert.Greater(t, calcs[1].ID, calcs[2].ID)
}

func TestListCalculationsPagination(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.SaveCalculation(ctx, json.RawMessage(`{}`), json.RawMessage(`{}`))
		require.NoError(t, err)
	}

	page, err := store.ListCalculations(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(3), page[0].ID)
	assert.Equal(t, int64(2), page[1].ID)
}

func TestListCalculationsEmpty(t *testing.T) {
	store := newTestStorage(t)

	calcs, err := store.ListCalculations(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, calcs)
}
