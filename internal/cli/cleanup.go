package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jwhitt/kindred/internal/llm"
	"github.com/jwhitt/kindred/internal/memory"
)

var cleanupDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete old consolidated memories that have decayed to noise",
	RunE:  runCleanup,
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "age threshold in days (default from config)")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	days := cleanupDays
	if days <= 0 {
		days = cfg.Memory.CleanupDays
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	users, err := db.UserIDs()
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	// Cleanup never calls the LLM, so a disabled summarizer is fine.
	sum := llm.NewSummarizer(llm.Disabled(), time.Second)

	total := 0
	for _, userID := range users {
		mgr := memory.NewManager(db, userID, sum)
		n, err := mgr.Cleanup(days)
		if err != nil {
			return fmt.Errorf("cleanup %s: %w", userID, err)
		}
		if n > 0 {
			fmt.Printf("  %s: deleted %d\n", userID, n)
		}
		total += n
	}

	fmt.Printf("cleanup complete: %d memories deleted (threshold %dd)\n", total, days)
	return nil
}
