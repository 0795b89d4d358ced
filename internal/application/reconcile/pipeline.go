// Package reconcile runs the reconciliation pipeline over one transaction set.
//
// Levels run in fixed precedence: exact, keyword, fuzzy, then a nearest-match
// pass that parks close-but-unbalanced groups for review. Each level anchors
// on revenues first and expenses second, and only ever sees transactions no
// earlier level claimed. Whatever is left gets assisted suggestions.
//
// The balanced levels only commit combinations within tolerance; anything
// else has to pass the loose tolerance of the nearest pass. Transactions with
// an identical description on the other side are kept out of the keyword and
// fuzzy levels and only ever grouped as exact.
//
// Example usage:
//
//	p := reconcile.NewPipeline(matcher.DefaultConfig(), balance.DefaultConfig(), logger)
//	result, err := p.Run(ctx, set)
//	if err != nil {
//	    return err // only context cancellation
//	}
//	fmt.Println(result.Summary.ProgressPercent)
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/eshaffer321/ledger-reconcile/internal/domain/balance"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/transaction"
)

// poolFunc gathers the linked partners of an anchor, best first.
type poolFunc func(anchor transaction.Transaction, pool []transaction.Transaction) []matcher.Candidate

// level is one step of the matching ladder.
type level struct {
	strategy matcher.Strategy
	pool     poolFunc
}

// Run reconciles a transaction set from scratch. The returned state belongs
// to the caller; nothing is shared between runs. The only error is context
// cancellation, checked between anchors.
func (p *Pipeline) Run(ctx context.Context, set *transaction.Set) (*Result, error) {
	start := time.Now()
	state := balance.NewState(set, p.balance)
	result := &Result{State: state}

	p.logger.Debug("Starting reconciliation",
		"transactions", set.Len(),
		"max_combination_size", p.balance.MaxCombinationSize,
		"max_candidate_pool", p.balance.MaxCandidatePool,
	)

	levels := []level{
		{strategy: matcher.StrategyExact, pool: p.matcher.ExactPool},
		{strategy: matcher.StrategyKeyword, pool: p.matcher.KeywordPool},
		{strategy: matcher.StrategyFuzzy, pool: p.matcher.FuzzyPool},
	}

	for _, lvl := range levels {
		before := len(state.Groups())
		if err := p.runLevel(ctx, state, lvl, result); err != nil {
			return nil, err
		}
		p.logger.Debug("Level complete",
			"strategy", lvl.strategy,
			"groups", len(state.Groups())-before,
		)
	}

	if err := p.runNearest(ctx, state, result); err != nil {
		return nil, err
	}

	result.ReviewItems = p.Review(state)
	result.Summary = balance.ComputeStatistics(state)
	result.Duration = time.Since(start)

	p.logger.Info("Reconciliation complete",
		"groups", result.Summary.TotalGroups,
		"matched", result.Summary.MatchedTransactions,
		"pending_review", result.Summary.PendingTransactions,
		"unresolved", result.Summary.UnmatchedTransactions,
		"progress_percent", result.Summary.ProgressPercent,
		"bounded_searches", result.Summary.BoundedSearches,
		"duration", result.Duration,
	)

	return result, nil
}

// runLevel anchors on every unclaimed revenue, then every unclaimed expense,
// and commits the first balancing combination found in its linked pool.
func (p *Pipeline) runLevel(ctx context.Context, state *balance.State, lvl level, result *Result) error {
	for _, kind := range []transaction.Kind{transaction.KindRevenue, transaction.KindExpense} {
		for _, anchor := range state.Unclaimed(kind) {
			if err := ctx.Err(); err != nil {
				return err
			}
			if state.IsClaimed(anchor.ID()) {
				continue
			}

			candidates := lvl.pool(anchor, state.Unclaimed(kind.Opposite()))
			if lvl.strategy != matcher.StrategyExact {
				if p.exactBound(state, anchor) {
					continue
				}
				candidates = p.withoutExactBound(state, candidates)
			}
			if len(candidates) == 0 {
				continue
			}

			combos, err := p.calculator.FindCombinations(anchor.Amount(), p.poolEntries(state, candidates), 0)
			p.noteBounded(state, anchor, string(lvl.strategy), err, result)

			if len(combos) > 0 {
				p.commit(state, anchor, combos[0].IDs, lvl.strategy, combos[0].Confidence, candidates, result)
			}
		}
	}
	return nil
}

// runNearest offers the closest unbalanced combination, as long as it is
// within the loose tolerance. An anchor with identical-description partners
// only searches those; any other anchor searches the union of its keyword and
// fuzzy links. It runs after every balanced level so an unbalanced exact pair
// never takes a partner that balances from the other direction.
func (p *Pipeline) runNearest(ctx context.Context, state *balance.State, result *Result) error {
	for _, kind := range []transaction.Kind{transaction.KindRevenue, transaction.KindExpense} {
		for _, anchor := range state.Unclaimed(kind) {
			if err := ctx.Err(); err != nil {
				return err
			}
			if state.IsClaimed(anchor.ID()) {
				continue
			}

			partners := state.Unclaimed(kind.Opposite())
			candidates := p.matcher.ExactPool(anchor, partners)
			strategy := matcher.StrategyExact
			var keyword []matcher.Candidate
			if len(candidates) == 0 {
				keyword = p.withoutExactBound(state, p.matcher.KeywordPool(anchor, partners))
				fuzzy := p.withoutExactBound(state, p.matcher.FuzzyPool(anchor, partners))
				candidates = mergeCandidates(keyword, fuzzy)
				strategy = matcher.StrategyFuzzy
			}
			if len(candidates) == 0 {
				continue
			}

			nearest, ok, err := p.calculator.FindNearest(anchor.Amount(), p.poolEntries(state, candidates), 0)
			p.noteBounded(state, anchor, "nearest", err, result)
			if !ok {
				continue
			}

			for _, c := range keyword {
				if slices.Contains(nearest.IDs, c.Member()) {
					strategy = matcher.StrategyKeyword
					break
				}
			}
			p.commit(state, anchor, nearest.IDs, strategy, nearest.Confidence, candidates, result)
		}
	}
	return nil
}

// commit assigns anchor plus partners as one group. Failures are logged and
// recorded as warnings; they never stop the run.
func (p *Pipeline) commit(
	state *balance.State,
	anchor transaction.Transaction,
	partners []int,
	strategy matcher.Strategy,
	confidence float64,
	candidates []matcher.Candidate,
	result *Result,
) {
	members := append([]int{anchor.ID()}, partners...)

	group, err := state.AssignGroup(members, strategy, confidence, sharedKeywords(candidates, partners))
	if err != nil {
		p.logger.Warn("Failed to assign group",
			"anchor_id", anchor.ID(),
			"strategy", strategy,
			"members", members,
			"error", err,
		)
		result.Warnings = append(result.Warnings, fmt.Sprintf("transaction %d: %v", anchor.ID(), err))
		return
	}

	p.logger.Debug("Assigned group",
		"group_id", group.ID,
		"strategy", group.Strategy,
		"members", group.Members,
		"confidence", group.Confidence,
		"status", group.Status,
		"balance", group.Balance.String(),
	)
}

func (p *Pipeline) noteBounded(state *balance.State, anchor transaction.Transaction, stage string, err error, result *Result) {
	var bounded *balance.SearchBoundedError
	if !errors.As(err, &bounded) {
		return
	}

	state.RecordBoundedSearch()
	p.logger.Warn("Combination search bounded",
		"anchor_id", anchor.ID(),
		"stage", stage,
		"pool_size", bounded.PoolSize,
		"cap", bounded.Cap,
	)
	result.Warnings = append(result.Warnings, fmt.Sprintf("transaction %d (%s): %v", anchor.ID(), stage, err))
}

func (p *Pipeline) poolEntries(state *balance.State, candidates []matcher.Candidate) []balance.PoolEntry {
	entries := make([]balance.PoolEntry, 0, len(candidates))
	for _, c := range candidates {
		tx, ok := state.Transactions().Get(c.Member())
		if !ok {
			continue
		}
		entries = append(entries, balance.PoolEntry{
			ID:         tx.ID(),
			Amount:     tx.Amount(),
			Confidence: c.Confidence,
		})
	}
	return entries
}

// mergeCandidates unions two pools by member, keeping the stronger link.
// The result is ordered by confidence, then member id.
func mergeCandidates(pools ...[]matcher.Candidate) []matcher.Candidate {
	best := make(map[int]matcher.Candidate)
	for _, pool := range pools {
		for _, c := range pool {
			if cur, ok := best[c.Member()]; !ok || c.Confidence > cur.Confidence {
				best[c.Member()] = c
			}
		}
	}

	merged := make([]matcher.Candidate, 0, len(best))
	for _, c := range best {
		merged = append(merged, c)
	}
	slices.SortFunc(merged, func(a, b matcher.Candidate) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		default:
			return a.Member() - b.Member()
		}
	})
	return merged
}

// exactBound reports whether tx still has an unclaimed partner with an
// identical description. Such a transaction is only ever grouped as exact.
func (p *Pipeline) exactBound(state *balance.State, tx transaction.Transaction) bool {
	return len(p.matcher.ExactPool(tx, state.Unclaimed(tx.Kind().Opposite()))) > 0
}

// withoutExactBound drops the candidates that are exact-bound.
func (p *Pipeline) withoutExactBound(state *balance.State, candidates []matcher.Candidate) []matcher.Candidate {
	var out []matcher.Candidate
	for _, c := range candidates {
		tx, ok := state.Transactions().Get(c.Member())
		if ok && p.exactBound(state, tx) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// sharedKeywords collects the keywords linking the chosen partners to the anchor.
func sharedKeywords(candidates []matcher.Candidate, partners []int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, c := range candidates {
		if !slices.Contains(partners, c.Member()) {
			continue
		}
		for _, kw := range c.SharedKeywords {
			if _, ok := seen[kw]; !ok {
				seen[kw] = struct{}{}
				out = append(out, kw)
			}
		}
	}
	slices.Sort(out)
	return out
}
