package main

import (
	"github.com/spf13/viper"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/engine"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/judge"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/labeler"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/risk"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/storage"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/validate"
)

// buildOfflinePipeline wires the stages that never call the external
// services: sample, validate, and merge. No API key is required and no rate
// budget is started.
func buildOfflinePipeline(store *storage.SQLiteStorage) *engine.Pipeline {
	aspects := viper.GetStringSlice("labels.aspects")

	lab := labeler.New(nil, store, nil, labeler.Config{Aspects: aspects})

	var tiers []model.RiskTier
	for _, t := range viper.GetStringSlice("judge.tiers") {
		tiers = append(tiers, model.RiskTier(t))
	}
	jud := judge.New(nil, store, nil, judge.Config{Tiers: tiers, Aspects: aspects})

	validator := validate.New(validate.Config{
		Aspects:       aspects,
		EvidenceMatch: validate.MatchMode(viper.GetString("validate.evidence_match_mode")),
	})

	classifier := risk.New(risk.Config{
		NegativeKeywords: viper.GetStringSlice("risk.negative_keywords"),
		ContrastMarkers:  viper.GetStringSlice("risk.contrast_markers"),
	})

	return engine.New(store, lab, jud, validator, classifier, samplingConfig())
}
