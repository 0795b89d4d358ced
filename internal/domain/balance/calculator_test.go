package balance

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func entry(id int, amount, confidence float64) PoolEntry {
	return PoolEntry{ID: id, Amount: dec(amount), Confidence: confidence}
}

func TestCalculator_FindCombinations_OneToMany(t *testing.T) {
	// Arrange - stationery bought in three orders, paid once
	calc := NewCalculator(DefaultConfig())
	link := 0.70 + 0.25/3.0
	pool := []PoolEntry{
		entry(0, -10000, link),
		entry(1, -5000, link),
		entry(2, -5000, link),
	}

	// Act
	combos, err := calc.FindCombinations(dec(20000), pool, 0)

	// Assert
	require.NoError(t, err)
	require.Len(t, combos, 1)
	assert.Equal(t, []int{0, 1, 2}, combos[0].IDs)
	assert.Equal(t, "-20000", combos[0].Sum.String())
	assert.True(t, combos[0].Residual.IsZero())
	assert.InDelta(t, link+(1-link)*0.6, combos[0].Confidence, 0.0001)
	assert.GreaterOrEqual(t, combos[0].Confidence, 0.90)
}

func TestCalculator_FindCombinations_Ordering(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	pool := []PoolEntry{
		entry(1, -100, 0.70),
		entry(2, -100, 0.90),
		entry(3, -60, 0.95),
		entry(4, -40, 0.95),
	}

	combos, err := calc.FindCombinations(dec(100), pool, 0)

	require.NoError(t, err)
	require.Len(t, combos, 3)
	assert.Equal(t, []int{2}, combos[0].IDs, "smaller and more confident first")
	assert.Equal(t, []int{1}, combos[1].IDs)
	assert.Equal(t, []int{3, 4}, combos[2].IDs, "larger groups come last")
}

func TestCalculator_FindCombinations_Deterministic(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	pool := []PoolEntry{
		entry(5, -30, 0.8),
		entry(3, -70, 0.8),
		entry(9, -50, 0.8),
		entry(1, -50, 0.8),
		entry(7, -20, 0.8),
	}

	first, err := calc.FindCombinations(dec(100), pool, 0)
	require.NoError(t, err)
	second, err := calc.FindCombinations(dec(100), pool, 0)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.NotEmpty(t, first)
	assert.Equal(t, []int{1, 9}, first[0].IDs, "equal confidence falls back to id order")
}

func TestCalculator_FindCombinations_Tolerance(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	combos, err := calc.FindCombinations(dec(100), []PoolEntry{entry(1, -99.99, 0.8)}, 0)
	require.NoError(t, err)
	assert.Len(t, combos, 1, "one cent is within tolerance")

	combos, err = calc.FindCombinations(dec(100), []PoolEntry{entry(1, -99.98, 0.8)}, 0)
	require.NoError(t, err)
	assert.Empty(t, combos)
}

func TestCalculator_FindCombinations_MaxSize(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	pool := []PoolEntry{
		entry(1, -20, 0.8),
		entry(2, -20, 0.8),
		entry(3, -20, 0.8),
		entry(4, -20, 0.8),
		entry(5, -20, 0.8),
	}

	combos, err := calc.FindCombinations(dec(100), pool, 4)
	require.NoError(t, err)
	assert.Empty(t, combos)

	combos, err = calc.FindCombinations(dec(100), pool, 5)
	require.NoError(t, err)
	require.Len(t, combos, 1)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, combos[0].IDs)
}

func TestCalculator_FindCombinations_DoesNotMutatePool(t *testing.T) {
	calc := NewCalculator(DefaultConfig())
	pool := []PoolEntry{entry(2, -50, 0.7), entry(1, -50, 0.9)}

	_, err := calc.FindCombinations(dec(100), pool, 0)

	require.NoError(t, err)
	assert.Equal(t, 2, pool[0].ID)
	assert.Equal(t, 1, pool[1].ID)
}

func TestCalculator_FindCombinations_Empty(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	combos, err := calc.FindCombinations(dec(100), nil, 0)

	require.NoError(t, err)
	assert.Empty(t, combos)
}

// boundedPool builds twelve linked expenses for a 1000 revenue. The two
// weakest links would balance it but fall outside the cap.
func boundedPool() []PoolEntry {
	pool := make([]PoolEntry, 0, 12)
	for id := 1; id <= 10; id++ {
		pool = append(pool, entry(id, -301, 0.8))
	}
	return append(pool, entry(11, -1000, 0.5), entry(12, -699, 0.5))
}

func TestCalculator_FindCombinations_BoundedPool(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	combos, err := calc.FindCombinations(dec(1000), boundedPool(), 0)

	var bounded *SearchBoundedError
	require.True(t, errors.As(err, &bounded))
	assert.Equal(t, 12, bounded.PoolSize)
	assert.Equal(t, 10, bounded.Cap)
	assert.Empty(t, combos, "the balancing entries were truncated away")
}

func TestCalculator_FindNearest_BoundedPool(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	nearest, ok, err := calc.FindNearest(dec(1000), boundedPool(), 0)

	var bounded *SearchBoundedError
	require.True(t, errors.As(err, &bounded))
	require.True(t, ok, "a best-effort suggestion is still returned")
	assert.Equal(t, []int{1, 2, 3}, nearest.IDs)
	assert.Equal(t, "97", nearest.Residual.String())
	assert.InDelta(t, 0.8, nearest.Confidence, 0.0001, "unbalanced groups are not corroborated")
}

func TestCalculator_FindNearest_OutsideLooseTolerance(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	_, ok, err := calc.FindNearest(dec(1000), []PoolEntry{entry(1, -500, 0.8)}, 0)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCalculator_FindNearest_PrefersExact(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	nearest, ok, err := calc.FindNearest(dec(100), []PoolEntry{
		entry(1, -95, 0.9),
		entry(2, -60, 0.7),
		entry(3, -40, 0.7),
	}, 0)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{2, 3}, nearest.IDs)
	assert.True(t, nearest.Residual.IsZero())
}

func TestCalculator_ValidateBalance(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	assert.True(t, calc.ValidateBalance([]decimal.Decimal{dec(5000), dec(-5000)}))
	assert.True(t, calc.ValidateBalance([]decimal.Decimal{dec(100), dec(-99.99)}))
	assert.False(t, calc.ValidateBalance([]decimal.Decimal{dec(100), dec(-90)}))
}

func TestCalculator_CombinedConfidence(t *testing.T) {
	calc := NewCalculator(DefaultConfig())

	assert.Equal(t, 0.0, calc.CombinedConfidence(nil, true))
	assert.InDelta(t, 0.7, calc.CombinedConfidence([]float64{0.9, 0.7}, false), 0.0001)
	assert.InDelta(t, 0.88, calc.CombinedConfidence([]float64{0.9, 0.7}, true), 0.0001)
	assert.InDelta(t, 1.0, calc.CombinedConfidence([]float64{1.0}, true), 0.0001)
	assert.InDelta(t, 1.0, calc.CombinedConfidence([]float64{1.5}, false), 0.0001, "clamped")
}

func TestNewCalculator_FillsBounds(t *testing.T) {
	calc := NewCalculator(Config{})

	assert.Equal(t, 5, calc.Config().MaxCombinationSize)
	assert.Equal(t, 10, calc.Config().MaxCandidatePool)
}
