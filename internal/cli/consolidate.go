package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jwhitt/kindred/internal/llm"
	"github.com/jwhitt/kindred/internal/memory"
)

var (
	consolidateUser  string
	consolidateBoost float64
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Force a memory consolidation pass for a user",
	RunE:  runConsolidate,
}

func init() {
	consolidateCmd.Flags().StringVar(&consolidateUser, "user", "local", "user to consolidate")
	consolidateCmd.Flags().Float64Var(&consolidateBoost, "boost", 0, "importance boost applied to the pending batch")
}

func runConsolidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return fmt.Errorf("consolidation needs an LLM provider: %w", err)
	}
	sum := llm.NewSummarizer(client, summaryTimeout(cfg))

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	mgr := memory.NewManager(db, consolidateUser, sum)
	id, err := mgr.ForceConsolidate(context.Background(), consolidateBoost)
	if err != nil {
		return fmt.Errorf("consolidate: %w", err)
	}
	if id == "" {
		fmt.Println("not enough unconsolidated memories yet; nothing consolidated")
		return nil
	}
	fmt.Printf("super memory created: %s\n", id)
	return nil
}
