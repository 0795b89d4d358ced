package balance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/ledger-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/transaction"
)

func newTestState() *State {
	set := transaction.MustSet(
		transaction.NewFromFloat(0, "Buy Pen from Shopee", -10000),
		transaction.NewFromFloat(1, "Buy Pencil from Shopee", -5000),
		transaction.NewFromFloat(2, "Buy Eraser from Shopee", -5000),
		transaction.NewFromFloat(3, "Stationery Purchase Payment", 20000),
		transaction.NewFromFloat(4, "Invoice A", -5000),
		transaction.NewFromFloat(5, "Invoice A", 5000),
		transaction.NewFromFloat(6, "Opening balance", 0),
		transaction.NewFromFloat(7, "Unknown deposit", 1234),
	)
	return NewState(set, DefaultConfig())
}

func TestState_AssignGroup(t *testing.T) {
	// Arrange
	state := newTestState()

	// Act
	group, err := state.AssignGroup([]int{5, 4}, matcher.StrategyExact, 1.0, nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "MG_0001", group.ID)
	assert.Equal(t, []int{5, 4}, group.Members)
	assert.Equal(t, StatusMatched, group.Status)
	assert.True(t, group.Balance.IsZero())
	assert.Empty(t, group.Reason)
	assert.Equal(t, StatusMatched, state.StatusOf(4))
	assert.Equal(t, StatusMatched, state.StatusOf(5))
}

func TestState_AssignGroup_Unbalanced(t *testing.T) {
	state := newTestState()

	group, err := state.AssignGroup([]int{3, 0, 1}, matcher.StrategyKeyword, 0.78, []string{"purchase"})

	require.NoError(t, err)
	assert.Equal(t, StatusPendingReview, group.Status)
	assert.Equal(t, "5000", group.Balance.String())
	assert.NotEmpty(t, group.Reason)
	assert.Equal(t, []string{"purchase"}, group.SharedKeywords)
}

func TestState_AssignGroup_MonotonicIDs(t *testing.T) {
	state := newTestState()

	first, err := state.AssignGroup([]int{5, 4}, matcher.StrategyExact, 1.0, nil)
	require.NoError(t, err)
	require.NoError(t, state.Dissolve(first.ID))

	second, err := state.AssignGroup([]int{5, 4}, matcher.StrategyExact, 1.0, nil)
	require.NoError(t, err)

	assert.Equal(t, "MG_0001", first.ID)
	assert.Equal(t, "MG_0002", second.ID, "dissolved ids are never reused")
}

func TestState_AssignGroup_ConflictIsAtomic(t *testing.T) {
	state := newTestState()
	_, err := state.AssignGroup([]int{5, 4}, matcher.StrategyExact, 1.0, nil)
	require.NoError(t, err)

	// 7 is free, 4 is taken
	_, err = state.AssignGroup([]int{7, 4}, matcher.StrategyFuzzy, 0.7, nil)

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, 4, conflict.TransactionID)
	assert.Equal(t, "MG_0001", conflict.GroupID)
	assert.False(t, state.IsClaimed(7), "no member is claimed when one conflicts")
	assert.Len(t, state.Groups(), 1)
}

func TestState_AssignGroup_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		members []int
	}{
		{"single member", []int{3}},
		{"duplicate member", []int{3, 0, 0}},
		{"unknown id", []int{3, 99}},
		{"zero amount", []int{5, 6}},
		{"expenses only", []int{0, 1}},
		{"revenues only", []int{3, 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := newTestState()

			_, err := state.AssignGroup(tt.members, matcher.StrategyManual, 1.0, nil)

			var invalid *InvalidGroupError
			assert.True(t, errors.As(err, &invalid))
			assert.Empty(t, state.Groups())
		})
	}
}

func TestState_AssignGroup_ClampsConfidence(t *testing.T) {
	state := newTestState()

	group, err := state.AssignGroup([]int{5, 4}, matcher.StrategyExact, 1.7, nil)

	require.NoError(t, err)
	assert.Equal(t, 1.0, group.Confidence)
}

func TestState_Dissolve(t *testing.T) {
	state := newTestState()
	group, err := state.AssignGroup([]int{5, 4}, matcher.StrategyExact, 1.0, nil)
	require.NoError(t, err)

	require.NoError(t, state.Dissolve(group.ID))

	assert.Empty(t, state.Groups())
	assert.Equal(t, StatusUnresolved, state.StatusOf(4))
	_, ok := state.GroupOf(4)
	assert.False(t, ok)

	err = state.Dissolve(group.ID)
	assert.True(t, errors.Is(err, ErrGroupNotFound))
}

func TestState_Override(t *testing.T) {
	state := newTestState()
	_, err := state.AssignGroup([]int{5, 4}, matcher.StrategyExact, 1.0, nil)
	require.NoError(t, err)
	_, err = state.AssignGroup([]int{3, 0, 1, 2}, matcher.StrategyKeyword, 0.91, nil)
	require.NoError(t, err)

	group, dissolved, err := state.Override([]int{7, 4}, matcher.StrategyManual, 1.0, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"MG_0001"}, dissolved)
	assert.Equal(t, "MG_0003", group.ID)
	assert.Equal(t, StatusUnresolved, state.StatusOf(5), "the displaced partner is freed")
	assert.Len(t, state.Groups(), 2)
}

func TestState_Override_InvalidKeepsGroups(t *testing.T) {
	state := newTestState()
	_, err := state.AssignGroup([]int{5, 4}, matcher.StrategyExact, 1.0, nil)
	require.NoError(t, err)

	_, dissolved, err := state.Override([]int{4, 0}, matcher.StrategyManual, 1.0, nil)

	var invalid *InvalidGroupError
	require.True(t, errors.As(err, &invalid))
	assert.Empty(t, dissolved)
	assert.True(t, state.IsClaimed(4))
}

func TestState_ReturnsCopies(t *testing.T) {
	state := newTestState()
	group, err := state.AssignGroup([]int{5, 4}, matcher.StrategyExact, 1.0, nil)
	require.NoError(t, err)

	group.Members[0] = 99
	group.Status = StatusPendingReview

	stored, ok := state.Group("MG_0001")
	require.True(t, ok)
	assert.Equal(t, []int{5, 4}, stored.Members)
	assert.Equal(t, StatusMatched, stored.Status)
}

func TestState_Unclaimed(t *testing.T) {
	state := newTestState()
	_, err := state.AssignGroup([]int{5, 4}, matcher.StrategyExact, 1.0, nil)
	require.NoError(t, err)

	var ids []int
	for _, tx := range state.Unclaimed(transaction.KindRevenue) {
		ids = append(ids, tx.ID())
	}
	assert.Equal(t, []int{3, 7}, ids)
}

func TestState_StatusOf(t *testing.T) {
	state := newTestState()

	assert.Equal(t, StatusExcluded, state.StatusOf(6))
	assert.Equal(t, StatusUnresolved, state.StatusOf(7))
	assert.Equal(t, StatusUnresolved, state.StatusOf(42))
}
