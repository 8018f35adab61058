package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/cli"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <snapshot.csv>",
		Short: "Run the full pipeline: sample, label, judge, merge",
		Long: `Executes every stage in order over a raw review snapshot. Safe to
interrupt and rerun: labeling and judging resume from durable state, and
rerunning over unchanged inputs rebuilds an identical corpus without new
billed calls.`,
		Args: cobra.ExactArgs(1),
		RunE: runPipeline,
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
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

	p, cleanup, err := buildPipeline(store)
	if err != nil {
		return err
	}
	defer cleanup()

	started := time.Now()
	summary, err := p.Run(ctx, snapshot)
	if err != nil {
		return err
	}

	cmd.Println(cli.RenderRunSummary(summary))
	cmd.Println(cli.SubtleStyle.Render("Took " + formatDuration(time.Since(started))))
	return nil
}
