// Package balance turns candidate matches into balanced match groups.
//
// The calculator solves the one-to-many case: given one anchor amount and a
// pool of opposite-sign amounts linked to it, find the subsets that cancel
// it out. The search is bounded twice, by pool size and by subset size, so
// its cost never depends on the size of the dataset.
//
// Example usage:
//
//	calc := balance.NewCalculator(balance.DefaultConfig())
//	combos, err := calc.FindCombinations(revenue.Amount(), pool, 0)
//	var bounded *balance.SearchBoundedError
//	if errors.As(err, &bounded) {
//	    // combos are best-effort over the truncated pool
//	}
package balance

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/ledger-reconcile/internal/domain/validator"
)

// PoolEntry is one transaction offered to the combination search, along
// with the confidence of its link to the anchor.
type PoolEntry struct {
	ID         int
	Amount     decimal.Decimal
	Confidence float64
}

// Combination is a subset of the pool together with its balance.
type Combination struct {
	// IDs of the chosen entries, ascending
	IDs []int

	// Sum of the chosen amounts
	Sum decimal.Decimal

	// Residual is Sum plus the target; zero means a perfect offset
	Residual decimal.Decimal

	// Confidence of the combined group
	Confidence float64
}

// Size returns the number of entries in the combination.
func (c Combination) Size() int { return len(c.IDs) }

// Calculator searches pools for balancing combinations.
type Calculator struct {
	config Config
}

// NewCalculator creates a calculator. Zero or negative bounds fall back to
// the defaults.
func NewCalculator(config Config) *Calculator {
	defaults := DefaultConfig()
	if config.MaxCombinationSize <= 0 {
		config.MaxCombinationSize = defaults.MaxCombinationSize
	}
	if config.MaxCandidatePool <= 0 {
		config.MaxCandidatePool = defaults.MaxCandidatePool
	}
	if config.Tolerance.IsNegative() {
		config.Tolerance = decimal.Zero
	}
	return &Calculator{config: config}
}

// Config returns the calculator configuration.
func (c *Calculator) Config() Config {
	return c.config
}

// FindCombinations returns every subset of pool, up to maxSize entries,
// whose amounts offset target within tolerance. Results are ordered by size,
// then confidence descending, then ids. A maxSize of zero uses the
// configured MaxCombinationSize.
//
// When the pool exceeds MaxCandidatePool only the best entries are searched
// and a *SearchBoundedError is returned together with the results.
func (c *Calculator) FindCombinations(target decimal.Decimal, pool []PoolEntry, maxSize int) ([]Combination, error) {
	entries, err := c.boundPool(pool)

	var found []Combination
	c.eachSubset(entries, maxSize, func(subset []PoolEntry) {
		combo := c.combine(target, subset)
		if combo.Residual.Abs().LessThanOrEqual(c.config.Tolerance) {
			found = append(found, combo)
		}
	})

	slices.SortStableFunc(found, func(a, b Combination) int {
		if n := cmp.Compare(a.Size(), b.Size()); n != 0 {
			return n
		}
		if n := cmp.Compare(b.Confidence, a.Confidence); n != 0 {
			return n
		}
		return slices.Compare(a.IDs, b.IDs)
	})

	return found, err
}

// FindNearest returns the combination with the smallest absolute residual,
// provided that residual is within the loose tolerance of
// LooseToleranceRatio x |target|. Ties go to smaller, then more confident,
// then lower-id combinations. Bounding behaves as in FindCombinations.
func (c *Calculator) FindNearest(target decimal.Decimal, pool []PoolEntry, maxSize int) (Combination, bool, error) {
	entries, err := c.boundPool(pool)

	var (
		best  Combination
		found bool
	)
	c.eachSubset(entries, maxSize, func(subset []PoolEntry) {
		combo := c.combine(target, subset)
		if !found || nearer(combo, best) {
			best = combo
			found = true
		}
	})

	if !found || best.Residual.Abs().GreaterThan(c.LooseTolerance(target)) {
		return Combination{}, false, err
	}
	return best, true, err
}

// LooseTolerance returns the residual accepted for a nearest-match
// suggestion against target.
func (c *Calculator) LooseTolerance(target decimal.Decimal) decimal.Decimal {
	return target.Abs().Mul(c.config.LooseToleranceRatio)
}

// ValidateBalance reports whether the amounts net to zero within tolerance.
func (c *Calculator) ValidateBalance(amounts []decimal.Decimal) bool {
	return validator.ValidateGroup(amounts, c.config.Tolerance).Valid
}

// CombinedConfidence folds link confidences into one group confidence.
//
// A group is only as strong as its weakest link, so the minimum is taken.
// A group whose amounts balance is corroborated by that fact and moves
// BalanceCorroboration of the way from there towards 1.
func (c *Calculator) CombinedConfidence(links []float64, balanced bool) float64 {
	if len(links) == 0 {
		return 0
	}

	conf := min(max(slices.Min(links), 0), 1)
	if balanced {
		conf += (1 - conf) * min(max(c.config.BalanceCorroboration, 0), 1)
	}
	return conf
}

// boundPool orders the pool best-first and truncates it to the cap.
func (c *Calculator) boundPool(pool []PoolEntry) ([]PoolEntry, error) {
	entries := slices.Clone(pool)
	slices.SortStableFunc(entries, func(a, b PoolEntry) int {
		if n := cmp.Compare(b.Confidence, a.Confidence); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if len(entries) <= c.config.MaxCandidatePool {
		return entries, nil
	}
	return entries[:c.config.MaxCandidatePool], &SearchBoundedError{
		PoolSize: len(pool),
		Cap:      c.config.MaxCandidatePool,
	}
}

// eachSubset visits every subset of size 1..maxSize in increasing size and
// lexicographic index order. The slice passed to visit is reused.
func (c *Calculator) eachSubset(entries []PoolEntry, maxSize int, visit func([]PoolEntry)) {
	if maxSize <= 0 {
		maxSize = c.config.MaxCombinationSize
	}
	maxSize = min(maxSize, len(entries))

	subset := make([]PoolEntry, 0, maxSize)
	for size := 1; size <= maxSize; size++ {
		idx := make([]int, size)
		for i := range idx {
			idx[i] = i
		}

		for {
			subset = subset[:0]
			for _, i := range idx {
				subset = append(subset, entries[i])
			}
			visit(subset)

			// advance to the next index combination
			i := size - 1
			for i >= 0 && idx[i] == len(entries)-size+i {
				i--
			}
			if i < 0 {
				break
			}
			idx[i]++
			for j := i + 1; j < size; j++ {
				idx[j] = idx[j-1] + 1
			}
		}
	}
}

func (c *Calculator) combine(target decimal.Decimal, subset []PoolEntry) Combination {
	ids := make([]int, 0, len(subset))
	links := make([]float64, 0, len(subset))
	sum := decimal.Zero
	for _, e := range subset {
		ids = append(ids, e.ID)
		links = append(links, e.Confidence)
		sum = sum.Add(e.Amount)
	}
	slices.Sort(ids)

	residual := sum.Add(target)
	balanced := residual.Abs().LessThanOrEqual(c.config.Tolerance)

	return Combination{
		IDs:        ids,
		Sum:        sum,
		Residual:   residual,
		Confidence: c.CombinedConfidence(links, balanced),
	}
}

func nearer(a, b Combination) bool {
	if n := a.Residual.Abs().Cmp(b.Residual.Abs()); n != 0 {
		return n < 0
	}
	if a.Size() != b.Size() {
		return a.Size() < b.Size()
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return slices.Compare(a.IDs, b.IDs) < 0
}
