package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/cli"
)

func mergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Assign terminal statuses and publish the final corpus",
		Long: `Replays the validation and risk checks over the durable labels, folds in
the judge verdicts, assigns each sampled review its terminal status, and
publishes the final corpus atomically. Offline: no external calls.`,
		RunE: runMerge,
	}
}

func runMerge(cmd *cobra.Command, _ []string) error {
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
	records, summary, err := p.Merge(ctx)
	if err != nil {
		return err
	}

	cmd.Println(cli.TitleStyle.Render(fmt.Sprintf("Merged %d records", len(records))))
	cmd.Println(cli.RenderRunSummary(summary))
	return nil
}
