package sampling

import (
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/model"
	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/service"
)

// RebalancerConfig holds the global sentiment rebalancing parameters.
type RebalancerConfig struct {
	TargetSize int
	Targets    map[model.Sentiment]float64
	Seed       int64
}

// DefaultSentimentTargets mirrors the shipped 30/30/40 distribution.
var DefaultSentimentTargets = map[model.Sentiment]float64{
	model.SentimentNegative: 0.30,
	model.SentimentNeutral:  0.30,
	model.SentimentPositive: 0.40,
}

// Rebalance moves the pooled sample's sentiment proportions toward the
// configured targets without changing the total sample size and without ever
// drawing an item twice. Under-target classes are topped up from the union of
// all strata's residual pools; over-target classes then shed the overage.
// Scarcity is reported as a shortfall, never resolved by duplication.
func Rebalance(pool *SamplePool, cfg RebalancerConfig) ([]model.Review, []service.Shortfall) {
	if cfg.Targets == nil {
		cfg.Targets = DefaultSentimentTargets
	}

	sample := append([]model.Review(nil), pool.Drawn...)
	targets := targetCounts(cfg.TargetSize, cfg.Targets)
	var shortfalls []service.Shortfall

	current := make(map[model.Sentiment]int)
	for _, r := range sample {
		current[r.RatingSentiment()]++
	}

	// Top up under-target classes, scarcest first.
	under := make([]model.Sentiment, 0, len(model.Sentiments))
	for _, s := range model.Sentiments {
		if current[s] < targets[s] {
			under = append(under, s)
		}
	}
	sort.SliceStable(under, func(i, j int) bool {
		return current[under[i]] < current[under[j]]
	})

	for _, class := range under {
		needed := targets[class] - current[class]
		available := residualOfClass(pool, class)

		rng := rand.New(rand.NewSource(cfg.Seed ^ stratumSeed(0, "rebalance/"+string(class))))
		rng.Shuffle(len(available), func(i, j int) {
			available[i], available[j] = available[j], available[i]
		})

		take := needed
		if take > len(available) {
			take = len(available)
		}
		sample = append(sample, available[:take]...)
		current[class] += take

		if take < needed {
			shortfalls = append(shortfalls, service.Shortfall{
				Stage:  "rebalance",
				Key:    string(class),
				Target: targets[class],
				Actual: current[class],
			})
			slog.Warn("sentiment class exhausted corpus-wide",
				"class", class,
				"target", targets[class],
				"actual", current[class])
		}
	}

	// Shed overage from the classes furthest above target until the total is
	// back at the fixed sample size. Removed items are not reinserted.
	if excess := len(sample) - cfg.TargetSize; excess > 0 {
		sample = trimOverage(sample, targets, current, excess, cfg.Seed)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	rng.Shuffle(len(sample), func(i, j int) {
		sample[i], sample[j] = sample[j], sample[i]
	})

	slog.Info("global rebalance complete",
		"size", len(sample),
		"shortfalls", len(shortfalls))

	return sample, shortfalls
}

// targetCounts converts class proportions into integer targets summing to
// total, with the rounding remainder assigned to the largest class.
func targetCounts(total int, proportions map[model.Sentiment]float64) map[model.Sentiment]int {
	targets := make(map[model.Sentiment]int, len(proportions))
	sum := 0
	largest := model.Sentiments[0]
	for _, s := range model.Sentiments {
		targets[s] = int(math.Floor(float64(total) * proportions[s]))
		sum += targets[s]
		if targets[s] > targets[largest] {
			largest = s
		}
	}
	targets[largest] += total - sum
	return targets
}

// residualOfClass collects every undrawn item of the class across all strata,
// in deterministic stratum order.
func residualOfClass(pool *SamplePool, class model.Sentiment) []model.Review {
	var out []model.Review
	for _, key := range sortedKeys(pool.Residual) {
		kept := pool.Residual[key][:0:0]
		for _, r := range pool.Residual[key] {
			if r.RatingSentiment() == class {
				out = append(out, r)
			} else {
				kept = append(kept, r)
			}
		}
		pool.Residual[key] = kept
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// trimOverage removes excess items from over-target classes, furthest above
// target first, keeping the removal deterministic under the run seed.
func trimOverage(sample []model.Review, targets, current map[model.Sentiment]int, excess int, seed int64) []model.Review {
	over := make([]model.Sentiment, 0, len(model.Sentiments))
	for _, s := range model.Sentiments {
		if current[s] > targets[s] {
			over = append(over, s)
		}
	}
	sort.SliceStable(over, func(i, j int) bool {
		return current[over[i]]-targets[over[i]] > current[over[j]]-targets[over[j]]
	})

	remove := make(map[string]struct{}, excess)
	for _, class := range over {
		if excess <= 0 {
			break
		}
		removable := current[class] - targets[class]
		if removable > excess {
			removable = excess
		}

		var members []string
		for _, r := range sample {
			if r.RatingSentiment() == class {
				members = append(members, r.ID)
			}
		}
		sort.Strings(members)
		rng := rand.New(rand.NewSource(seed ^ stratumSeed(0, "trim/"+string(class))))
		rng.Shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})

		for _, id := range members[:removable] {
			remove[id] = struct{}{}
		}
		current[class] -= removable
		excess -= removable
	}

	kept := sample[:0]
	for _, r := range sample {
		if _, drop := remove[r.ID]; !drop {
			kept = append(kept, r)
		}
	}
	return kept
}
