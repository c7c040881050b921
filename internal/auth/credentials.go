// Package auth implements the administrator login protocol: the credential
// store, the failed-attempt rate limiter and the session manager that ties
// them together over the two storage scopes.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/quotakeeper/internal/crypto"
	"github.com/iudanet/quotakeeper/internal/models"
	"github.com/iudanet/quotakeeper/internal/storage"
)

// Default administrator account seeded on first run.
// The password is fixed and documented: the operator is expected to change
// it through the passwd flow after the first login.
const (
	DefaultAdminUsername = "admin"
	DefaultAdminPassword = "admin123"
)

// CredentialStore owns the single AdminCredential record in the durable
// store. Exactly one record exists after EnsureDefaultAdmin has run.
type CredentialStore struct {
	durable storage.Store
	now     func() time.Time
}

// NewCredentialStore creates a credential store over the durable storage.
func NewCredentialStore(durable storage.Store) *CredentialStore {
	return &CredentialStore{
		durable: durable,
		now:     time.Now,
	}
}

// EnsureDefaultAdmin seeds the default administrator record if none exists.
// Idempotent - safe to call on every startup.
func (c *CredentialStore) EnsureDefaultAdmin(ctx context.Context) error {
	_, err := c.Get(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	admin := models.AdminCredential{
		Username:     DefaultAdminUsername,
		PasswordHash: crypto.HashPassword(DefaultAdminPassword),
		Permissions:  models.AllPermissions(),
		CreatedAt:    c.now().UnixMilli(),
	}

	return c.save(ctx, &admin)
}

// Get returns the stored administrator credential.
// Returns storage.ErrNotFound before the first EnsureDefaultAdmin.
func (c *CredentialStore) Get(ctx context.Context) (*models.AdminCredential, error) {
	data, err := c.durable.Get(ctx, storage.KeyAdminHash)
	if err != nil {
		return nil, err
	}

	var admin models.AdminCredential
	if err := json.Unmarshal(data, &admin); err != nil {
		return nil, fmt.Errorf("failed to unmarshal admin credential: %w", err)
	}

	return &admin, nil
}

// Verify reports whether username and password match the stored credential.
// Comparison is digest-based: digest(password+salt) against the stored hash.
func (c *CredentialStore) Verify(ctx context.Context, username, password string) (bool, error) {
	admin, err := c.Get(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	return admin.Username == username && admin.PasswordHash == crypto.HashPassword(password), nil
}

// UpdatePassword recomputes and overwrites the stored hash.
func (c *CredentialStore) UpdatePassword(ctx context.Context, newPassword string) error {
	admin, err := c.Get(ctx)
	if err != nil {
		return err
	}

	admin.PasswordHash = crypto.HashPassword(newPassword)
	admin.UpdatedAt = c.now().UnixMilli()

	return c.save(ctx, admin)
}

func (c *CredentialStore) save(ctx context.Context, admin *models.AdminCredential) error {
	data, err := json.Marshal(admin)
	if err != nil {
		return fmt.Errorf("failed to marshal admin credential: %w", err)
	}
	if err := c.durable.Put(ctx, storage.KeyAdminHash, data); err != nil {
		return fmt.Errorf("failed to save admin credential: %w", err)
	}
	return nil
}
