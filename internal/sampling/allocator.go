// Package sampling implements the deterministic sampling stages: hierarchical
// quota apportionment, seeded without-replacement draws, and global sentiment
// rebalancing.
package sampling

import (
	"log/slog"
	"math"
	"sort"

	"github.com/YuSeok-Kwon/Daiso-Cosmetic-analysis/internal/service"
)

// AllocatorConfig holds the quota apportionment parameters.
type AllocatorConfig struct {
	TargetSize     int
	Category1Floor int
	Category2Floor int
}

// StratumQuota is the fixed target for one leaf stratum.
type StratumQuota struct {
	Category1  string
	Category2  string
	Quota      int
	Population int
}

// Key returns the stratum key for this quota.
func (q StratumQuota) Key() string {
	return q.Category1 + "/" + q.Category2
}

// Allocation is the full quota tree produced by Allocate.
type Allocation struct {
	Category1Quotas map[string]int
	Leaves          []StratumQuota
	Total           int
	Shortfalls      []service.Shortfall
}

// Allocate computes two-level quotas from nested population counts using
// largest-remainder apportionment with per-category floors. The sum of leaf
// quotas equals the target size whenever the total population permits;
// otherwise it equals the total population and the shortfall is recorded.
func Allocate(population map[string]map[string]int, cfg AllocatorConfig) Allocation {
	alloc := Allocation{Category1Quotas: make(map[string]int)}

	cat1Counts := make(map[string]int, len(population))
	for cat1, subs := range population {
		for _, n := range subs {
			cat1Counts[cat1] += n
		}
	}

	cat1Quotas, shortfalls := apportion(cat1Counts, cfg.TargetSize, cfg.Category1Floor, "category_1")
	alloc.Shortfalls = append(alloc.Shortfalls, shortfalls...)

	for _, cat1 := range sortedKeys(cat1Quotas) {
		quota := cat1Quotas[cat1]
		alloc.Category1Quotas[cat1] = quota

		subQuotas, subShortfalls := apportion(population[cat1], quota, cfg.Category2Floor, cat1)
		alloc.Shortfalls = append(alloc.Shortfalls, subShortfalls...)

		for _, cat2 := range sortedKeys(subQuotas) {
			leaf := StratumQuota{
				Category1:  cat1,
				Category2:  cat2,
				Quota:      subQuotas[cat2],
				Population: population[cat1][cat2],
			}
			alloc.Leaves = append(alloc.Leaves, leaf)
			alloc.Total += leaf.Quota
		}
	}

	slog.Info("quota allocation complete",
		"target", cfg.TargetSize,
		"allocated", alloc.Total,
		"categories", len(cat1Quotas),
		"leaves", len(alloc.Leaves),
		"shortfalls", len(alloc.Shortfalls))

	return alloc
}

// apportion distributes total units among categories proportionally to their
// counts, guaranteeing each category at least floor units where capacity
// allows. Quotas never exceed a category's population; excess is redistributed
// among siblings with spare capacity, and any unplaceable remainder is
// reported as a shortfall keyed under parent.
func apportion(counts map[string]int, total, floor int, parent string) (map[string]int, []service.Shortfall) {
	quotas := make(map[string]int, len(counts))
	var shortfalls []service.Shortfall

	cats := sortedKeys(counts)
	if len(cats) == 0 || total <= 0 {
		return quotas, shortfalls
	}

	countTotal := 0
	for _, c := range cats {
		countTotal += counts[c]
	}
	if countTotal == 0 {
		return quotas, shortfalls
	}

	// Floors that cannot all fit are infeasible; fall back to pure
	// proportional apportionment and report the squeeze.
	remaining := total - floor*len(cats)
	if remaining < 0 {
		shortfalls = append(shortfalls, service.Shortfall{
			Stage:  "allocation",
			Key:    parent + ":floor",
			Target: floor * len(cats),
			Actual: total,
		})
		floor = 0
		remaining = total
	}

	type share struct {
		name      string
		remainder float64
	}
	assigned := 0
	shares := make([]share, 0, len(cats))
	for _, c := range cats {
		exact := float64(remaining) * float64(counts[c]) / float64(countTotal)
		base := int(math.Floor(exact))
		quotas[c] = floor + base
		assigned += floor + base
		shares = append(shares, share{name: c, remainder: exact - float64(base)})
	}

	// Residual units go to the largest fractional remainders; ties break by
	// larger population, then name.
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].remainder != shares[j].remainder {
			return shares[i].remainder > shares[j].remainder
		}
		if counts[shares[i].name] != counts[shares[j].name] {
			return counts[shares[i].name] > counts[shares[j].name]
		}
		return shares[i].name < shares[j].name
	})
	for i := 0; assigned < total; i = (i + 1) % len(shares) {
		quotas[shares[i].name]++
		assigned++
	}

	shortfalls = append(shortfalls, clampToPopulation(quotas, counts, parent)...)
	return quotas, shortfalls
}

// clampToPopulation caps each quota at its population and redistributes the
// excess among categories with spare capacity, largest remainder first. If no
// sibling can absorb the excess it is recorded as a shortfall.
func clampToPopulation(quotas, counts map[string]int, parent string) []service.Shortfall {
	excess := 0
	for _, c := range sortedKeys(quotas) {
		if quotas[c] > counts[c] {
			excess += quotas[c] - counts[c]
			quotas[c] = counts[c]
		}
	}
	if excess == 0 {
		return nil
	}

	type spare struct {
		name string
		room int
	}
	var spares []spare
	roomTotal := 0
	for _, c := range sortedKeys(quotas) {
		if room := counts[c] - quotas[c]; room > 0 {
			spares = append(spares, spare{name: c, room: room})
			roomTotal += room
		}
	}

	// Larger spare capacity absorbs first; a placement never exceeds a
	// sibling's population so one pass is enough.
	sort.Slice(spares, func(i, j int) bool {
		if spares[i].room != spares[j].room {
			return spares[i].room > spares[j].room
		}
		return spares[i].name < spares[j].name
	})
	if roomTotal > 0 {
		place := excess
		if place > roomTotal {
			place = roomTotal
		}
		excess -= place
		for i := 0; place > 0; i = (i + 1) % len(spares) {
			if quotas[spares[i].name] < counts[spares[i].name] {
				quotas[spares[i].name]++
				place--
			}
		}
	}

	if excess == 0 {
		return nil
	}

	actual := 0
	for _, c := range sortedKeys(quotas) {
		actual += quotas[c]
	}
	return []service.Shortfall{{
		Stage:  "allocation",
		Key:    parent,
		Target: actual + excess,
		Actual: actual,
	}}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
