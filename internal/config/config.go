// Package config persists the non-sensitive sync settings in the durable
// store. Everything here is safe to keep in cleartext - the token itself
// lives in securestore.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iudanet/quotakeeper/internal/models"
	"github.com/iudanet/quotakeeper/internal/storage"
)

// DefaultSyncInterval - интервал автосинхронизации по умолчанию
const DefaultSyncInterval = 5 * time.Minute

// Service reads and writes the PublicConfig record.
type Service struct {
	durable storage.Store
}

// New creates a config service over the durable storage.
func New(durable storage.Store) *Service {
	return &Service{durable: durable}
}

// Save stores the public configuration, filling in the default sync
// interval when unset.
func (s *Service) Save(ctx context.Context, cfg models.PublicConfig) error {
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = DefaultSyncInterval.Milliseconds()
	}

	data, err := json.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal public config: %w", err)
	}
	if err := s.durable.Put(ctx, storage.KeyPublicConfig, data); err != nil {
		return fmt.Errorf("failed to save public config: %w", err)
	}
	return nil
}

// Load returns the stored public configuration. A missing or malformed
// record yields the zero config, not an error - settings are best-effort.
func (s *Service) Load(ctx context.Context) models.PublicConfig {
	data, err := s.durable.Get(ctx, storage.KeyPublicConfig)
	if err != nil {
		return models.PublicConfig{}
	}

	var cfg models.PublicConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return models.PublicConfig{}
	}
	return cfg
}
