package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/quotakeeper/internal/validation"
)

// RunLogin prompts for credentials and establishes a session.
func (c *Cli) RunLogin(ctx context.Context) error {
	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	if err := validation.ValidateUsername(username); err != nil {
		c.io.Printf("Invalid username: %v\n", err)
		return nil
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		c.io.Printf("Invalid password: %v\n", err)
		return nil
	}

	result := c.manager.Login(ctx, username, password)
	if !result.Success {
		c.io.Printf("Login failed: %s\n", result.Message)
		return nil
	}

	expires := time.UnixMilli(result.User.ExpiresAt)
	c.io.Printf("Logged in as %s, session valid until %s\n",
		result.User.Username, expires.Format(time.RFC3339))
	return nil
}

// RunLogout destroys the current session. Safe to run when not logged in.
func (c *Cli) RunLogout(ctx context.Context) error {
	c.manager.Logout(ctx)
	c.io.Println("Logged out")
	return nil
}

// RunStatus shows session, token and sync configuration state.
func (c *Cli) RunStatus(ctx context.Context) error {
	user := c.manager.CurrentUser(ctx)
	if user == nil {
		c.io.Println("Session: not authenticated")
	} else {
		expires := time.UnixMilli(user.ExpiresAt)
		c.io.Printf("Session: %s (expires %s)\n", user.Username, expires.Format(time.RFC3339))
		c.io.Printf("Permissions: %v\n", user.Permissions)
	}

	if c.tokens.IsTokenValid(ctx) {
		c.io.Println("Sync token: configured")
	} else {
		c.io.Println("Sync token: not configured or expired")
	}

	cfg := c.config.Load(ctx)
	if cfg.Repository != "" {
		c.io.Printf("Repository: %s\n", cfg.Repository)
	}
	return nil
}

// RunPasswd changes the administrator password. Requires an active session.
func (c *Cli) RunPasswd(ctx context.Context) error {
	current, err := c.io.ReadPassword("Current password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}

	updated, err := c.io.ReadPassword("New password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if err := validation.ValidatePassword(updated); err != nil {
		c.io.Printf("Invalid new password: %v\n", err)
		return nil
	}

	result := c.manager.ChangePassword(ctx, current, updated)
	c.io.Println(result.Message)
	return nil
}
