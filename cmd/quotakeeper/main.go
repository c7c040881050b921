package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/iudanet/quotakeeper/internal/auth"
	"github.com/iudanet/quotakeeper/internal/cli"
	"github.com/iudanet/quotakeeper/internal/config"
	"github.com/iudanet/quotakeeper/internal/ghsync"
	"github.com/iudanet/quotakeeper/internal/iocli"
	"github.com/iudanet/quotakeeper/internal/securestore"
	"github.com/iudanet/quotakeeper/internal/storage/boltdb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	dbPath := flag.String("db", "quotakeeper.db", "Path to the durable store")
	sessionPath := flag.String("session-db", filepath.Join(os.TempDir(), "quotakeeper-session.db"),
		"Path to the session-scoped store (cleared on logout/expiry)")
	apiURL := flag.String("github-api", ghsync.DefaultBaseURL, "GitHub API base URL")
	verbose := flag.Bool("verbose", false, "Enable debug logging")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	stdio := iocli.NewStdio()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx := context.Background()

	durable, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open durable store: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := durable.Close(); err != nil {
			logger.Error("failed to close durable store", "error", err)
		}
	}()

	// Session-scoped хранилище живет в temp: переживает отдельные вызовы
	// CLI, но не переустановку окружения. Аналог sessionStorage.
	session, err := boltdb.New(ctx, *sessionPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open session store: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("failed to close session store", "error", err)
		}
	}()

	credentials := auth.NewCredentialStore(durable)
	if err := credentials.EnsureDefaultAdmin(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to seed administrator account: %v\n", err)
		os.Exit(1)
	}

	manager := auth.NewManager(credentials, auth.NewRateLimiter(durable), session, logger)
	tokens := securestore.New(session, securestore.DetectEnvironment(), logger)
	cfgService := config.New(durable)
	syncClient := ghsync.NewClient(*apiURL, tokens)

	commands := cli.New(stdio, manager, tokens, cfgService, syncClient)

	if len(args) == 0 {
		commands.PrintUsage()
		os.Exit(1)
	}

	if err := dispatch(ctx, commands, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, commands *cli.Cli, args []string) error {
	switch args[0] {
	case "login":
		return commands.RunLogin(ctx)
	case "logout":
		return commands.RunLogout(ctx)
	case "status":
		return commands.RunStatus(ctx)
	case "passwd":
		return commands.RunPasswd(ctx)
	case "token":
		return dispatchToken(ctx, commands, args[1:])
	case "sync":
		return dispatchSync(ctx, commands, args[1:])
	default:
		commands.PrintUsage()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func dispatchToken(ctx context.Context, commands *cli.Cli, args []string) error {
	if len(args) == 0 {
		commands.PrintUsage()
		return fmt.Errorf("token requires a subcommand: set, show or clear")
	}
	switch args[0] {
	case "set":
		return commands.RunTokenSet(ctx)
	case "show":
		return commands.RunTokenShow(ctx)
	case "clear":
		return commands.RunTokenClear(ctx)
	default:
		return fmt.Errorf("unknown token subcommand: %s", args[0])
	}
}

func dispatchSync(ctx context.Context, commands *cli.Cli, args []string) error {
	if len(args) == 0 {
		commands.PrintUsage()
		return fmt.Errorf("sync requires a subcommand: test or push")
	}
	switch args[0] {
	case "test":
		return commands.RunSyncTest(ctx)
	case "push":
		return commands.RunSyncPush(ctx, args[1:])
	default:
		return fmt.Errorf("unknown sync subcommand: %s", args[0])
	}
}

func printVersion() {
	fmt.Printf("QuotaKeeper\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
