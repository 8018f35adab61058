package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/cli"
)

func judgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "judge",
		Short: "Send risk-flagged labels to the arbitration service",
		Long: `Routes every validated label in a configured risk tier to the stronger
judge model under the same caching, rate-limiting and resume contract as
labeling. Already-judged reviews are skipped; errored verdicts are
retried.`,
		RunE: runJudge,
	}
}

func runJudge(cmd *cobra.Command, _ []string) error {
	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	p, cleanup, err := buildPipeline(store)
	if err != nil {
		return err
	}
	defer cleanup()

	usage, err := p.Judge(ctx)
	if err != nil {
		return err
	}

	cmd.Println(cli.TitleStyle.Render("Judging complete"))
	cmd.Println(cli.SuccessStyle.Render(fmt.Sprintf("  requests: %d  already judged: %d  errors: %d",
		usage.Requests, usage.CacheHits, usage.Errors)))
	cmd.Printf("  tokens in: %d  tokens out: %d  cost: $%.4f\n",
		usage.TokensIn, usage.TokensOut, usage.Cost)
	return nil
}
