package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/cli"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/common"
)

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show the latest run report",
		RunE:  runSummary,
	}
}

func runSummary(cmd *cobra.Command, _ []string) error {
	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	summary, err := store.GetLatestRunSummary(ctx)
	if errors.Is(err, common.ErrNotFound) {
		cmd.Println(cli.SubtleStyle.Render("No completed runs yet."))
		return nil
	}
	if err != nil {
		return err
	}

	cmd.Println(cli.RenderRunSummary(summary))
	return nil
}
