package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
}

func (r testRecord) RecordID() string { return r.ID }

func TestMemoryStoreUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[testRecord]()

	_, err := store.Update(ctx, func(records []testRecord) ([]testRecord, error) {
		return append(records, testRecord{ID: "a", Value: 1}), nil
	})
	require.NoError(t, err)

	records, err := store.Read(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff([]testRecord{{ID: "a", Value: 1}}, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryStoreMutatorErrorLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[testRecord]()
	_, err := store.Update(ctx, func(records []testRecord) ([]testRecord, error) {
		return append(records, testRecord{ID: "a", Value: 1}), nil
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = store.Update(ctx, func(records []testRecord) ([]testRecord, error) {
		records[0].Value = 99
		return records, boom
	})
	assert.ErrorIs(t, err, boom)

	records, err := store.Read(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Value)
}

func TestMemoryStoreReadReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore[testRecord]()
	_, err := store.Update(ctx, func(records []testRecord) ([]testRecord, error) {
		return append(records, testRecord{ID: "a", Value: 1}), nil
	})
	require.NoError(t, err)

	records, err := store.Read(ctx)
	require.NoError(t, err)
	records[0].Value = 42

	fresh, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh[0].Value)
}

func TestFindAndReplace(t *testing.T) {
	records := []testRecord{{ID: "a", Value: 1}, {ID: "b", Value: 2}}

	got, ok := Find(records, "b")
	require.True(t, ok)
	assert.Equal(t, 2, got.Value)

	_, ok = Find(records, "missing")
	assert.False(t, ok)

	next := Replace(records, testRecord{ID: "a", Value: 7})
	got, _ = Find(next, "a")
	assert.Equal(t, 7, got.Value)
	assert.Len(t, next, 2)
}
