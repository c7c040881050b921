package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/quotakeeper/internal/models"
	"github.com/iudanet/quotakeeper/internal/storage"
	"github.com/iudanet/quotakeeper/internal/storage/memory"
)

func TestSaveLoad(t *testing.T) {
	svc := New(memory.New())
	ctx := context.Background()

	cfg := models.PublicConfig{
		Repository:   "org/repo",
		LastUpdated:  time.Now().UnixMilli(),
		AutoSync:     true,
		SyncInterval: (10 * time.Minute).Milliseconds(),
	}
	require.NoError(t, svc.Save(ctx, cfg))

	loaded := svc.Load(ctx)
	assert.Equal(t, cfg, loaded)
}

func TestSaveFillsDefaultInterval(t *testing.T) {
	svc := New(memory.New())
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, models.PublicConfig{Repository: "org/repo"}))

	loaded := svc.Load(ctx)
	assert.Equal(t, DefaultSyncInterval.Milliseconds(), loaded.SyncInterval)
}

func TestLoadMissing(t *testing.T) {
	svc := New(memory.New())

	assert.Equal(t, models.PublicConfig{}, svc.Load(context.Background()))
}

func TestLoadMalformed(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, storage.KeyPublicConfig, []byte("{broken")))

	svc := New(store)
	assert.Equal(t, models.PublicConfig{}, svc.Load(ctx))
}
