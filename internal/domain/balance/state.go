package balance

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/ledger-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/transaction"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/validator"
)

// Status is the reconciliation status of a group or a transaction.
type Status string

const (
	StatusMatched       Status = "matched"
	StatusPendingReview Status = "pending_review"
	StatusUnresolved    Status = "unresolved"
	// StatusExcluded marks zero-amount rows, which never take part in matching.
	StatusExcluded Status = "excluded"
)

// MatchGroup is a reconciled unit of at least one revenue and one expense.
type MatchGroup struct {
	ID             string           `json:"group_id"`
	Members        []int            `json:"members"`
	Strategy       matcher.Strategy `json:"strategy"`
	Confidence     float64          `json:"confidence"`
	Balance        decimal.Decimal  `json:"balance"`
	Status         Status           `json:"status"`
	SharedKeywords []string         `json:"shared_keywords,omitempty"`
	Reason         string           `json:"reason,omitempty"`
}

func (g *MatchGroup) clone() *MatchGroup {
	c := *g
	c.Members = slices.Clone(g.Members)
	c.SharedKeywords = slices.Clone(g.SharedKeywords)
	return &c
}

// State is the reconciliation state of one run: which transaction belongs
// to which group. It is not safe for concurrent use and is never shared
// between runs.
type State struct {
	set     *transaction.Set
	config  Config
	groups  []*MatchGroup
	byID    map[string]*MatchGroup
	claimed map[int]*MatchGroup
	nextSeq int

	boundedSearches int
}

// NewState creates an empty state over the given transactions.
func NewState(set *transaction.Set, config Config) *State {
	if config.Tolerance.IsNegative() {
		config.Tolerance = decimal.Zero
	}
	return &State{
		set:     set,
		config:  config,
		byID:    make(map[string]*MatchGroup),
		claimed: make(map[int]*MatchGroup),
	}
}

// Transactions returns the transaction set the state is built over.
func (s *State) Transactions() *transaction.Set {
	return s.set
}

// AssignGroup validates members and claims all of them for a new group, or
// claims none. The group is matched when its amounts balance and pending
// review otherwise.
func (s *State) AssignGroup(members []int, strategy matcher.Strategy, confidence float64, keywords []string) (*MatchGroup, error) {
	if err := s.validateMembers(members); err != nil {
		return nil, err
	}
	for _, id := range members {
		if owner, ok := s.claimed[id]; ok {
			return nil, &ConflictError{TransactionID: id, GroupID: owner.ID}
		}
	}

	amounts := make([]decimal.Decimal, 0, len(members))
	for _, id := range members {
		tx, _ := s.set.Get(id)
		amounts = append(amounts, tx.Amount())
	}
	check := validator.ValidateGroup(amounts, s.config.Tolerance)

	s.nextSeq++
	group := &MatchGroup{
		ID:             fmt.Sprintf("MG_%04d", s.nextSeq),
		Members:        slices.Clone(members),
		Strategy:       strategy,
		Confidence:     min(max(confidence, 0), 1),
		Balance:        check.Residual,
		Status:         StatusPendingReview,
		SharedKeywords: slices.Clone(keywords),
		Reason:         check.Reason,
	}
	if check.Valid {
		group.Status = StatusMatched
	}

	s.groups = append(s.groups, group)
	s.byID[group.ID] = group
	for _, id := range members {
		s.claimed[id] = group
	}

	return group.clone(), nil
}

// Dissolve removes a group and frees its members. Group ids are never
// reused.
func (s *State) Dissolve(groupID string) error {
	group, ok := s.byID[groupID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}

	for _, id := range group.Members {
		delete(s.claimed, id)
	}
	delete(s.byID, groupID)
	s.groups = slices.DeleteFunc(s.groups, func(g *MatchGroup) bool { return g.ID == groupID })
	return nil
}

// Override dissolves every group holding one of members, then assigns them
// to a new group. Nothing is dissolved when members cannot form a group.
// The ids of the dissolved groups are returned in creation order.
func (s *State) Override(members []int, strategy matcher.Strategy, confidence float64, keywords []string) (*MatchGroup, []string, error) {
	if err := s.validateMembers(members); err != nil {
		return nil, nil, err
	}

	var dissolved []string
	for _, g := range s.groups {
		if slices.ContainsFunc(g.Members, func(id int) bool { return slices.Contains(members, id) }) {
			dissolved = append(dissolved, g.ID)
		}
	}
	for _, groupID := range dissolved {
		if err := s.Dissolve(groupID); err != nil {
			return nil, nil, err
		}
	}

	group, err := s.AssignGroup(members, strategy, confidence, keywords)
	if err != nil {
		return nil, dissolved, err
	}
	return group, dissolved, nil
}

func (s *State) validateMembers(members []int) error {
	if len(members) < 2 {
		return &InvalidGroupError{Reason: "a group needs at least two transactions"}
	}

	seen := make(map[int]struct{}, len(members))
	var hasRevenue, hasExpense bool
	for _, id := range members {
		if _, dup := seen[id]; dup {
			return &InvalidGroupError{Reason: fmt.Sprintf("transaction %d listed twice", id)}
		}
		seen[id] = struct{}{}

		tx, ok := s.set.Get(id)
		if !ok {
			return &InvalidGroupError{Reason: fmt.Sprintf("unknown transaction %d", id)}
		}
		switch tx.Kind() {
		case transaction.KindRevenue:
			hasRevenue = true
		case transaction.KindExpense:
			hasExpense = true
		default:
			return &InvalidGroupError{Reason: fmt.Sprintf("transaction %d has a zero amount", id)}
		}
	}

	if !hasRevenue || !hasExpense {
		return &InvalidGroupError{Reason: "a group needs at least one revenue and one expense"}
	}
	return nil
}

// Group returns a copy of the group with the given id.
func (s *State) Group(groupID string) (*MatchGroup, bool) {
	g, ok := s.byID[groupID]
	if !ok {
		return nil, false
	}
	return g.clone(), true
}

// GroupOf returns a copy of the group a transaction belongs to.
func (s *State) GroupOf(id int) (*MatchGroup, bool) {
	g, ok := s.claimed[id]
	if !ok {
		return nil, false
	}
	return g.clone(), true
}

// IsClaimed reports whether a transaction belongs to any group.
func (s *State) IsClaimed(id int) bool {
	_, ok := s.claimed[id]
	return ok
}

// Groups returns copies of all groups in creation order.
func (s *State) Groups() []*MatchGroup {
	out := make([]*MatchGroup, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g.clone())
	}
	return out
}

// Unclaimed returns the transactions of one kind that belong to no group,
// in id order.
func (s *State) Unclaimed(kind transaction.Kind) []transaction.Transaction {
	var out []transaction.Transaction
	for _, tx := range s.set.OfKind(kind) {
		if !s.IsClaimed(tx.ID()) {
			out = append(out, tx)
		}
	}
	return out
}

// StatusOf returns the status of a single transaction.
func (s *State) StatusOf(id int) Status {
	if g, ok := s.claimed[id]; ok {
		return g.Status
	}
	if tx, ok := s.set.Get(id); ok && !tx.Matchable() {
		return StatusExcluded
	}
	return StatusUnresolved
}

// RecordBoundedSearch counts a combination search that ran over a
// truncated pool.
func (s *State) RecordBoundedSearch() {
	s.boundedSearches++
}

// BoundedSearches returns how many searches were truncated.
func (s *State) BoundedSearches() int {
	return s.boundedSearches
}
