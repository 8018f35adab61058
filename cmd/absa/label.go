package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/cli"
)

func labelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "label",
		Short: "Label the sampled reviews with the external labeling service",
		Long: `Obtains one structured label per sampled review. Labels are cached by
review text and prompt version, so interrupted runs resume where they
stopped and rerunning never repeats a billed call. Errored reviews from a
previous run are retried.`,
		RunE: runLabel,
	}
}

func runLabel(cmd *cobra.Command, _ []string) error {
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

	usage, err := p.Label(ctx)
	if err != nil {
		return err
	}

	cmd.Println(cli.TitleStyle.Render("Labeling complete"))
	cmd.Println(cli.SuccessStyle.Render(fmt.Sprintf("  requests: %d  cache hits: %d  errors: %d",
		usage.Requests, usage.CacheHits, usage.Errors)))
	cmd.Printf("  tokens in: %d  tokens out: %d  cost: $%.4f\n",
		usage.TokensIn, usage.TokensOut, usage.Cost)
	return nil
}
