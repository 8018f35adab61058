package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/cli"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
)

func sampleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sample <snapshot.csv>",
		Short: "Draw the stratified, rebalanced review sample from a snapshot",
		Long: `Reads a raw review snapshot, apportions per-category quotas with floor
guarantees, draws a seeded stratified sample, rebalances sentiment
proportions from the residual pools, and persists the final sample set.

Deterministic for a fixed seed and snapshot.`,
		Args: cobra.ExactArgs(1),
		RunE: runSample,
	}
}

func runSample(cmd *cobra.Command, args []string) error {
	snapshot, err := loadSnapshot(args[0])
	if err != nil {
		return err
	}

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	p := buildOfflinePipeline(store)
	sample, shortfalls, err := p.Sample(ctx, snapshot)
	if err != nil {
		return err
	}

	counts := make(map[model.Sentiment]int)
	for _, r := range sample {
		counts[r.RatingSentiment()]++
	}

	cmd.Println(cli.TitleStyle.Render("Sample complete"))
	cmd.Println(cli.SuccessStyle.Render(fmt.Sprintf("  %d reviews drawn from %d", len(sample), len(snapshot))))
	for _, class := range model.Sentiments {
		cmd.Printf("  %s: %d\n", class, counts[class])
	}
	for _, sf := range shortfalls {
		cmd.Println(cli.WarningStyle.Render(fmt.Sprintf("  shortfall %s %s: wanted %d, got %d",
			sf.Stage, sf.Key, sf.Target, sf.Actual)))
	}
	return nil
}
