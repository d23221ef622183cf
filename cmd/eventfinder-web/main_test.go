package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commonground/eventfinder/internal/config"
	"github.com/commonground/eventfinder/internal/storage/memory"
	"github.com/commonground/eventfinder/internal/storage/sqlite"
)

func TestOpenFeedbackStore_SQLiteDefault(t *testing.T) {
	cfg := &config.Config{
		Storage: config.StorageConfig{
			StorageEngine: "sqlite",
			DataPath:      t.TempDir(),
		},
	}

	store, err := openFeedbackStore(cfg)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, ok := store.(*sqlite.FeedbackStore)
	assert.True(t, ok, "default engine should be sqlite")
}

func TestOpenFeedbackStore_Memory(t *testing.T) {
	cfg := &config.Config{
		Storage: config.StorageConfig{
			StorageEngine: "memory",
		},
	}

	store, err := openFeedbackStore(cfg)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, ok := store.(*memory.FeedbackStore)
	assert.True(t, ok, "memory engine should be selected")
}

func TestOpenFeedbackStore_CreatesDataDir(t *testing.T) {
	dir := t.TempDir() + "/nested/data"
	cfg := &config.Config{
		Storage: config.StorageConfig{
			StorageEngine: "sqlite",
			DataPath:      dir,
		},
	}

	store, err := openFeedbackStore(cfg)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
}
