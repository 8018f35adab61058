package sampling

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand"
	"sort"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
)

// SamplePool partitions each stratum into drawn and residual identifiers.
// Items only ever move from residual to drawn, never back.
type SamplePool struct {
	Drawn    []model.Review
	Residual map[string][]model.Review
}

// PopulationFromReviews derives nested population counts from a snapshot.
func PopulationFromReviews(reviews []model.Review) map[string]map[string]int {
	population := make(map[string]map[string]int)
	for _, r := range reviews {
		if population[r.Category1] == nil {
			population[r.Category1] = make(map[string]int)
		}
		population[r.Category1][r.Category2]++
	}
	return population
}

// Draw samples each leaf stratum's quota uniformly at random without
// replacement. The draw is fully deterministic: identical seed and snapshot
// produce an identical sample regardless of input order. Sentiment mix inside
// a stratum is not forced; natural skew is preserved.
func Draw(reviews []model.Review, alloc Allocation, seed int64) (*SamplePool, error) {
	byStratum := make(map[string][]model.Review)
	for _, r := range reviews {
		key := r.Stratum()
		byStratum[key] = append(byStratum[key], r)
	}

	pool := &SamplePool{Residual: make(map[string][]model.Review)}
	seen := make(map[string]struct{}, len(reviews))

	for _, leaf := range alloc.Leaves {
		key := leaf.Key()
		stratum := byStratum[key]
		if len(stratum) < leaf.Quota {
			return nil, fmt.Errorf("stratum %s has %d items for quota %d", key, len(stratum), leaf.Quota)
		}

		// Canonical order before shuffling so the snapshot's row order does
		// not affect the draw.
		sort.Slice(stratum, func(i, j int) bool { return stratum[i].ID < stratum[j].ID })
		rng := rand.New(rand.NewSource(stratumSeed(seed, key)))
		rng.Shuffle(len(stratum), func(i, j int) {
			stratum[i], stratum[j] = stratum[j], stratum[i]
		})

		for i, r := range stratum {
			if _, dup := seen[r.ID]; dup {
				return nil, fmt.Errorf("duplicate review id %s in stratum %s", r.ID, key)
			}
			seen[r.ID] = struct{}{}
			if i < leaf.Quota {
				pool.Drawn = append(pool.Drawn, r)
			} else {
				pool.Residual[key] = append(pool.Residual[key], r)
			}
		}

		slog.Debug("stratum drawn",
			"stratum", key,
			"quota", leaf.Quota,
			"residual", len(stratum)-leaf.Quota)
	}

	slog.Info("natural sampling complete",
		"drawn", len(pool.Drawn),
		"strata", len(alloc.Leaves))

	return pool, nil
}

// stratumSeed derives a per-stratum seed so each leaf draws from an
// independent, reproducible stream.
func stratumSeed(seed int64, stratum string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(stratum))
	return seed ^ int64(h.Sum64())
}
