package kvstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/rally-results/internal/model"
	"github.com/Tiliavir/rally-results/internal/storage"
	"github.com/Tiliavir/rally-results/internal/storage/kvstore"
	"github.com/Tiliavir/rally-results/internal/storage/storagetest"
)

func TestStoreInMemory(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := kvstore.Open(kvstore.Options{})
		require.NoError(t, err)
		return s
	})
}

func TestStoreOnDisk(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := kvstore.Open(kvstore.Options{Path: t.TempDir()})
		require.NoError(t, err)
		return s
	})
}

func TestReopenKeepsIDsAscending(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := kvstore.Open(kvstore.Options{Path: dir})
	require.NoError(t, err)
	first := model.Driver{Name: "A"}
	require.NoError(t, s.CreateDriver(ctx, &first))
	require.NoError(t, s.Close())

	s, err = kvstore.Open(kvstore.Options{Path: dir})
	require.NoError(t, err)
	defer s.Close()

	second := model.Driver{Name: "B"}
	require.NoError(t, s.CreateDriver(ctx, &second))
	assert.Greater(t, second.ID, first.ID)

	drivers, err := s.ListDrivers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Driver{first, second}, drivers)
}
