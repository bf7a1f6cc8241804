package storage_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/absmach/fedkm/pkg/errors"
	"github.com/absmach/fedkm/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStorage(t *testing.T) {
	ctx := context.Background()
	s := storage.NewInMemoryStorage()

	for i := range 5 {
		require.NoError(t, s.Create(ctx, fmt.Sprintf("k%d", i), i))
	}

	assert.ErrorIs(t, s.Create(ctx, "k1", 10), errors.ErrEntityExists)
	assert.ErrorIs(t, s.Create(ctx, "", 10), errors.ErrEmptyKey)
	assert.ErrorIs(t, s.Update(ctx, "missing", 10), errors.ErrNotFound)

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	require.NoError(t, s.Update(ctx, "k2", 20))
	v, err := s.Get(ctx, "k2")
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	require.NoError(t, s.Delete(ctx, "k0"))

	cases := []struct {
		desc   string
		offset uint64
		limit  uint64
		want   []any
	}{
		{desc: "all", offset: 0, limit: 10, want: []any{1, 20, 3, 4}},
		{desc: "page", offset: 1, limit: 2, want: []any{20, 3}},
		{desc: "past the end", offset: 4, limit: 2, want: nil},
		{desc: "zero limit", offset: 0, limit: 0, want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			got, total, err := s.List(ctx, tc.offset, tc.limit)
			require.NoError(t, err)
			assert.Equal(t, uint64(4), total)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestInMemoryStorageDeleteKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := storage.NewInMemoryStorage()
	for _, k := range []string{"a", "b", "c", "d"} {
		require.NoError(t, s.Create(ctx, k, k))
	}

	require.NoError(t, s.Delete(ctx, "b"))
	require.NoError(t, s.Delete(ctx, "b"))
	require.NoError(t, s.Update(ctx, "d", "D"))

	got, total, err := s.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
	assert.Equal(t, []any{"a", "c", "D"}, got)

	require.NoError(t, s.Create(ctx, "b", "b"))
	got, _, err = s.List(ctx, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, []any{"D", "b"}, got)
}

func TestInMemoryStorageConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := storage.NewInMemoryStorage()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			assert.NoError(t, s.Create(ctx, key, i))
			_, err := s.Get(ctx, key)
			assert.NoError(t, err)
			_, _, err = s.List(ctx, 0, 10)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	_, total, err := s.List(ctx, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), total)
}
