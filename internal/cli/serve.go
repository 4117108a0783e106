package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jwhitt/kindred/internal/auth"
	"github.com/jwhitt/kindred/internal/config"
	"github.com/jwhitt/kindred/internal/crypto"
	"github.com/jwhitt/kindred/internal/llm"
	"github.com/jwhitt/kindred/internal/server"
	"github.com/jwhitt/kindred/internal/session"
	"github.com/jwhitt/kindred/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the companion HTTP server",
	RunE:  runServe,
}

// loadConfig layers the config file over defaults and applies env
// overrides. A .env file in the working directory is honored.
func loadConfig() (config.Config, error) {
	_ = godotenv.Load()

	path := configPath
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".kindred", "config.toml")
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.LLM.Provider = "anthropic"
		cfg.LLM.AnthropicKey = key
	}
	if key := os.Getenv("KINDRED_MASTER_KEY"); key != "" {
		cfg.Security.MasterKey = key
	}
	return cfg, nil
}

// openStore resolves the database path and codec from config and opens
// the store.
func openStore(cfg config.Config) (*store.DB, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}

	var codec crypto.Codec = crypto.Passthrough{}
	if cfg.Security.MasterKey != "" {
		aead, err := crypto.NewAEAD(cfg.Security.MasterKey)
		if err != nil {
			return nil, fmt.Errorf("init encryption: %w", err)
		}
		codec = aead
	}

	db, err := store.Open(dbPath, codec)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func summaryTimeout(cfg config.Config) time.Duration {
	secs := cfg.LLM.SummaryTimeout
	if secs <= 0 {
		secs = 30
	}
	return time.Duration(secs) * time.Second
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: LLM not configured (%v), replies will use fallbacks\n", err)
		client = llm.Disabled()
	} else {
		fmt.Fprintf(os.Stderr, "  llm: %s (%s)\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	sum := llm.NewSummarizer(client, summaryTimeout(cfg))

	registry := session.NewRegistry(db, client, sum, cfg.Memory)

	verifier := auth.NewStaticVerifier(cfg.Security.Tokens)
	if verifier.Open() {
		fmt.Fprintln(os.Stderr, "  auth: open (single local user)")
	} else {
		fmt.Fprintf(os.Stderr, "  auth: %d bearer token(s)\n", len(cfg.Security.Tokens))
	}
	if cfg.Security.MasterKey != "" {
		fmt.Fprintln(os.Stderr, "  encryption: on")
	}

	srv := server.New(db, registry, verifier, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "kindred serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  db: %s\n", db.Path)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Flush active conversations into memory before the listener dies,
	// otherwise in-flight sessions are lost.
	registry.DrainAll(ctx)

	return httpServer.Shutdown(ctx)
}
