package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/cli"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Run rule validation and risk triage over the durable labels",
		Long: `Applies the structural and domain checks to every labeled review and
triages the valid ones into risk tiers. Pure and offline: no external
calls, nothing is persisted.`,
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, _ []string) error {
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
	assessments, err := p.Assess(ctx)
	if err != nil {
		return err
	}

	valid := 0
	codes := make(map[string]int)
	tiers := make(map[model.RiskTier]int)
	for _, a := range assessments {
		if a.Validation.Valid {
			valid++
			tiers[a.Annotation.Tier]++
		}
		for _, code := range a.Validation.Codes {
			codes[code]++
		}
	}

	cmd.Println(cli.TitleStyle.Render("Validation"))
	cmd.Println(cli.SuccessStyle.Render(fmt.Sprintf("  valid: %d / %d", valid, len(assessments))))

	if len(codes) > 0 {
		names := make([]string, 0, len(codes))
		for code := range codes {
			names = append(names, code)
		}
		sort.Strings(names)
		for _, code := range names {
			cmd.Println(cli.ErrorStyle.Render(fmt.Sprintf("  %s: %d", code, codes[code])))
		}
	}

	cmd.Println(cli.BoldStyle.Render("Risk tiers"))
	for _, tier := range []model.RiskTier{model.RiskHigh, model.RiskMedium, model.RiskNone} {
		cmd.Printf("  %s: %d\n", tier, tiers[tier])
	}
	return nil
}
