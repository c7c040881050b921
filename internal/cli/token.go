package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/quotakeeper/internal/models"
	"github.com/iudanet/quotakeeper/internal/securestore"
)

// RunTokenSet prompts for a GitHub token and repository and stores them
// obfuscated in the session-scoped store.
func (c *Cli) RunTokenSet(ctx context.Context) error {
	if c.manager.CurrentUser(ctx) == nil {
		c.io.Println("Not authenticated")
		return nil
	}

	token, err := c.io.ReadPassword("GitHub token: ")
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}

	check := c.tokens.ValidateTokenFormat(token)
	if !check.Valid {
		c.io.Printf("Rejected: %s\n", check.Error)
		return nil
	}

	repository, err := c.io.ReadInput("Repository (owner/name): ")
	if err != nil {
		return fmt.Errorf("failed to read repository: %w", err)
	}

	if err := c.tokens.SaveToken(ctx, token, repository); err != nil {
		c.io.Println("Failed to store token")
		return nil
	}

	// Репозиторий дублируется в публичной конфигурации
	cfg := c.config.Load(ctx)
	cfg.Repository = repository
	cfg.LastUpdated = time.Now().UnixMilli()
	if err := c.config.Save(ctx, cfg); err != nil {
		c.io.Println("Warning: failed to update public config")
	}

	c.io.Printf("Stored %s token for %s\n", check.Type, repository)
	return nil
}

// RunTokenShow prints the stored token in masked form.
func (c *Cli) RunTokenShow(ctx context.Context) error {
	if !c.manager.HasPermission(ctx, models.PermissionAdmin) {
		c.io.Println("Not authorized")
		return nil
	}

	data := c.tokens.GetToken(ctx)
	if data == nil {
		c.io.Println("No token stored")
		return nil
	}

	saved := time.UnixMilli(data.Timestamp)
	c.io.Printf("Token:      %s\n", securestore.MaskToken(data.Token))
	c.io.Printf("Repository: %s\n", data.Repository)
	c.io.Printf("Saved:      %s\n", saved.Format(time.RFC3339))
	return nil
}

// RunTokenClear removes the stored token.
func (c *Cli) RunTokenClear(ctx context.Context) error {
	if err := c.tokens.Clear(ctx); err != nil {
		c.io.Println("Failed to clear token")
		return nil
	}
	c.io.Println("Token cleared")
	return nil
}
