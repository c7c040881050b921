package cli

import (
	"context"
	"fmt"
	"os"
	"time"
)

// defaultSnapshotPath - путь снапшота в репозитории по умолчанию
const defaultSnapshotPath = "data/quota-snapshot.json"

// RunSyncTest checks that the stored token can reach its repository.
func (c *Cli) RunSyncTest(ctx context.Context) error {
	result := c.sync.TestConnection(ctx)
	if !result.Success {
		c.io.Printf("Connection failed: %s\n", result.Error)
		return nil
	}

	visibility := "public"
	if result.Private {
		visibility = "private"
	}
	c.io.Printf("Connected to %s (%s)\n", result.Repository, visibility)
	return nil
}

// RunSyncPush uploads a local snapshot file to the repository.
// args: <local-file> [remote-path]
func (c *Cli) RunSyncPush(ctx context.Context, args []string) error {
	if len(args) < 1 {
		c.io.Println("Usage: quotakeeper sync push <local-file> [remote-path]")
		return nil
	}

	localPath := args[0]
	remotePath := defaultSnapshotPath
	if len(args) > 1 {
		remotePath = args[1]
	}

	content, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read snapshot file: %w", err)
	}

	message := fmt.Sprintf("Update quota snapshot (%s)", time.Now().Format("2006-01-02 15:04"))
	if err := c.sync.PushSnapshot(ctx, remotePath, message, content); err != nil {
		c.io.Printf("Push failed: %v\n", err)
		return nil
	}

	// Отмечаем время последней синхронизации
	cfg := c.config.Load(ctx)
	cfg.LastUpdated = time.Now().UnixMilli()
	if err := c.config.Save(ctx, cfg); err != nil {
		c.io.Println("Warning: failed to update public config")
	}

	c.io.Printf("Pushed %s to %s\n", localPath, remotePath)
	return nil
}
