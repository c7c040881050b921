// Package cli implements the terminal commands. It is the presentation
// layer of the core: every auth and token operation returns result values,
// so commands only format outcomes - no error recovery logic lives here.
package cli

import (
	"github.com/iudanet/quotakeeper/internal/auth"
	"github.com/iudanet/quotakeeper/internal/config"
	"github.com/iudanet/quotakeeper/internal/ghsync"
	"github.com/iudanet/quotakeeper/internal/iocli"
	"github.com/iudanet/quotakeeper/internal/securestore"
)

// Cli holds the wired core components used by the commands.
type Cli struct {
	io      iocli.IO
	manager *auth.Manager
	tokens  *securestore.Store
	config  *config.Service
	sync    *ghsync.Client
}

// New creates the command handler.
func New(io iocli.IO, manager *auth.Manager, tokens *securestore.Store, cfg *config.Service, sync *ghsync.Client) *Cli {
	return &Cli{
		io:      io,
		manager: manager,
		tokens:  tokens,
		config:  cfg,
		sync:    sync,
	}
}

// PrintUsage выводит справку по командам
func (c *Cli) PrintUsage() {
	c.io.Println("Usage: quotakeeper [flags] <command>")
	c.io.Println("")
	c.io.Println("Commands:")
	c.io.Println("  login         Authenticate as the administrator")
	c.io.Println("  logout        Destroy the current session")
	c.io.Println("  status        Show session and sync token state")
	c.io.Println("  passwd        Change the administrator password")
	c.io.Println("  token set     Store the GitHub sync token")
	c.io.Println("  token show    Show the stored token (masked)")
	c.io.Println("  token clear   Remove the stored token")
	c.io.Println("  sync test     Check GitHub connectivity")
	c.io.Println("  sync push     Push a snapshot file to the repository")
}
