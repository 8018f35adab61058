package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/config"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/engine"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/judge"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/labeler"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/llm"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/risk"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/sampling"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/service"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/storage"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/validate"
)

func openStorage() (*storage.SQLiteStorage, error) {
	dbPath := config.ExpandPath(viper.GetString("database.path"))
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "absa", "absa.db")
	}
	return storage.NewSQLiteStorage(dbPath)
}

func samplingConfig() engine.Config {
	cfg := engine.Config{
		Allocator: sampling.AllocatorConfig{
			TargetSize:     viper.GetInt("sampling.target_size"),
			Category1Floor: viper.GetInt("sampling.category1_floor"),
			Category2Floor: viper.GetInt("sampling.category2_floor"),
		},
		Seed: viper.GetInt64("sampling.seed"),
	}
	if cfg.Allocator.TargetSize <= 0 {
		cfg.Allocator.TargetSize = 20000
	}
	if cfg.Allocator.Category1Floor <= 0 {
		cfg.Allocator.Category1Floor = 600
	}
	if cfg.Allocator.Category2Floor <= 0 {
		cfg.Allocator.Category2Floor = 200
	}
	if !viper.IsSet("sampling.seed") {
		cfg.Seed = 42
	}

	if targets := viper.GetStringMap("sampling.sentiment_targets"); len(targets) > 0 {
		cfg.Targets = make(map[model.Sentiment]float64, len(targets))
		for class := range targets {
			cfg.Targets[model.Sentiment(class)] = viper.GetFloat64("sampling.sentiment_targets." + class)
		}
	}
	return cfg
}

func retryOptions() service.RetryOptions {
	opts := labeler.DefaultRetryOptions
	if v := viper.GetInt("llm.max_retries"); v > 0 {
		opts.MaxAttempts = v
	}
	if v := viper.GetDuration("llm.retry_delay"); v > 0 {
		opts.InitialDelay = v
	}
	return opts
}

// buildPipeline wires every stage from configuration. The returned cleanup
// stops the rate budget's refill loop.
func buildPipeline(store *storage.SQLiteStorage) (*engine.Pipeline, func(), error) {
	client, err := llm.NewOpenAIClient(llm.Config{
		APIKey:     viper.GetString("llm.api_key"),
		BaseURL:    viper.GetString("llm.base_url"),
		LabelModel: viper.GetString("llm.label_model"),
		JudgeModel: viper.GetString("llm.judge_model"),
		Timeout:    viper.GetDuration("llm.timeout"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create llm client: %w", err)
	}

	budget := llm.NewBudget(viper.GetInt("llm.rate_limit_rpm"), viper.GetInt("llm.rate_limit_tpm"))

	aspects := viper.GetStringSlice("labels.aspects")
	workers := viper.GetInt("llm.workers")
	retry := retryOptions()

	lab := labeler.New(client, store, budget, labeler.Config{
		Workers:      workers,
		Aspects:      aspects,
		Retry:        retry,
		ShowProgress: true,
	})

	var tiers []model.RiskTier
	for _, t := range viper.GetStringSlice("judge.tiers") {
		tiers = append(tiers, model.RiskTier(t))
	}
	jud := judge.New(client, store, budget, judge.Config{
		Tiers:        tiers,
		Workers:      workers,
		Aspects:      aspects,
		Retry:        retry,
		ShowProgress: true,
	})

	validator := validate.New(validate.Config{
		Aspects:       aspects,
		EvidenceMatch: validate.MatchMode(viper.GetString("validate.evidence_match_mode")),
	})

	classifier := risk.New(risk.Config{
		NegativeKeywords: viper.GetStringSlice("risk.negative_keywords"),
		ContrastMarkers:  viper.GetStringSlice("risk.contrast_markers"),
	})

	p := engine.New(store, lab, jud, validator, classifier, samplingConfig())
	return p, budget.Close, nil
}

// loadSnapshot reads a raw review snapshot from a CSV file with a header row
// of id, category_1, category_2, text, rating.
func loadSnapshot(path string) ([]model.Review, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 5

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot header: %w", err)
	}
	if header[0] != "id" {
		return nil, fmt.Errorf("unexpected snapshot header: %v", header)
	}

	var reviews []model.Review
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot row: %w", err)
		}

		rating, err := strconv.Atoi(record[4])
		if err != nil {
			return nil, fmt.Errorf("invalid rating %q for review %s: %w", record[4], record[0], err)
		}
		reviews = append(reviews, model.Review{
			ID:        record[0],
			Category1: record[1],
			Category2: record[2],
			Text:      record[3],
			Rating:    rating,
		})
	}
	if len(reviews) == 0 {
		return nil, fmt.Errorf("snapshot %s contains no reviews", path)
	}
	return reviews, nil
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Second).String()
}
