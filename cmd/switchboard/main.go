package main

//  ____             _  _          _      _                              _
// / ___| __      __(_)| |_   ___ | |__  | |__    ___    __ _  _ __   __| |
// \___ \ \ \ /\ / /| || __| / __|| '_ \ | '_ \  / _ \  / _' || '__| / _' |
//  ___) | \ V  V / | || |_ | (__ | | | || |_) || (_) || (_| || |   | (_| |
// |____/   \_/\_/  |_| \__| \___||_| |_||_.__/  \___/  \__,_||_|    \__,_|
//  .  .  .  operator,  get  me  long  distance

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"pkdindustries/switchboard/internal/audit"
	"pkdindustries/switchboard/internal/commands"
	"pkdindustries/switchboard/internal/config"
	"pkdindustries/switchboard/internal/console"
	"pkdindustries/switchboard/internal/core"
	"pkdindustries/switchboard/internal/llm"
	"pkdindustries/switchboard/internal/metastore"
	"pkdindustries/switchboard/internal/secrets"
	"pkdindustries/switchboard/internal/tools"
)

const version = "0.1"

func main() {
	cmd := &cli.Command{
		Name:    "switchboard",
		Usage:   "one console, every model",
		Version: version + " - http://github.com/pkdindustries/switchboard",
		Flags:   config.GetFlags(),
		Action:  run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		// Print to stderr first in case logger isn't initialized
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *cli.Command) error {
	fmt.Printf("%s\n", console.GetBanner(version))

	cfg := config.NewConfiguration(c)
	core.InitLogger(cfg.App.Verbose)
	defer zap.L().Sync()

	if cfg.App.Verbose {
		cfg.PrintConfig()
	}

	// Continuation caches persist only when both the state directory and the
	// cachepersist flag say so.
	cacheDir := ""
	if cfg.Cache.Persist && cfg.App.StateDir != "" {
		cacheDir = filepath.Join(cfg.App.StateDir, "metastore")
	}
	caches := metastore.NewRegistry(cacheDir)
	// Reserved namespaces get the configured bound; variants reuse them as-is.
	for _, name := range []string{
		metastore.NamespaceToolContinuation,
		metastore.NamespaceReasoningSignature,
		metastore.NamespaceLastResponse,
	} {
		caches.Namespace(name, metastore.Options{Capacity: cfg.Cache.Capacity, Persist: true})
	}
	caches.Restore()
	defer caches.Flush()

	var store secrets.Store = secrets.NewMemoryStore()
	if cfg.App.StateDir != "" {
		fs, err := secrets.NewFileStore(filepath.Join(cfg.App.StateDir, "secrets.json"))
		if err != nil {
			zap.S().Warnw("secret store unavailable, keys live in memory only", "error", err)
		} else {
			store = fs
		}
	}

	auditLog := audit.NewLog(cfg.Audit.Records)
	status := &console.StatusLine{}

	registry := tools.NewRegistry()
	if err := console.RegisterBuiltins(registry); err != nil {
		return err
	}

	router := llm.NewRouter(cfg, store, caches)
	client := llm.NewEnvelope(llm.NewOrchestrator(router, auditLog, status))

	session := console.NewSession(cfg.App.Prompt, cfg.App.MaxHistory)

	env := &commands.Env{
		Config:   cfg,
		Session:  session,
		Tools:    registry,
		Audit:    auditLog,
		Caches:   caches,
		Secrets:  store,
		Backends: router,
		Status:   status,
		Out:      os.Stdout,
		Started:  time.Now(),
	}

	cmdRegistry := commands.NewRegistry()
	cmdRegistry.Register(
		&commands.SetCommand{},
		&commands.GetCommand{},
		&commands.ToolsCommand{},
		&commands.StatsCommand{},
		&commands.LogCommand{},
		&commands.ResetCommand{},
		&commands.VersionCommand{Version: "v" + version},
		&commands.QuitCommand{},
	)
	cmdRegistry.Register(commands.NewHelpCommand(cmdRegistry))

	term := console.New(console.Options{
		Config:   cfg,
		Client:   client,
		Session:  session,
		Tools:    registry,
		Commands: cmdRegistry,
		Env:      env,
		In:       os.Stdin,
		Out:      os.Stdout,
		Color:    true,
	})

	zap.S().Infow("switchboard ready", "model", cfg.Model.Model, "tools", registry.Len())
	return term.Run(ctx)
}
