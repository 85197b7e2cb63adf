package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plc-copilot/internal/config"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.Config{StoreBackend: config.StoreMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, config.Config{StoreBackend: config.StoreFile, StoreDir: t.TempDir()}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(ctx, config.Config{StoreBackend: config.StorePostgres}, nil)
	assert.Error(t, err)

	_, err = Open(ctx, config.Config{StoreBackend: "cassette"}, nil)
	assert.Error(t, err)
}
