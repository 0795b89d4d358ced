package balance

import (
	"github.com/shopspring/decimal"

	"github.com/eshaffer321/ledger-reconcile/internal/domain/validator"
)

// Config holds the bounds of the combination search and the balance rules.
type Config struct {
	// Tolerance is the largest residual a balanced group may carry.
	Tolerance decimal.Decimal

	// MaxCombinationSize caps how many pool entries one combination may use.
	MaxCombinationSize int

	// MaxCandidatePool caps the pool before any combination is generated.
	MaxCandidatePool int

	// LooseToleranceRatio scales |target| into the residual still accepted
	// for a nearest-match suggestion.
	LooseToleranceRatio decimal.Decimal

	// BalanceCorroboration is the share of the remaining doubt removed from
	// a group's confidence when its amounts balance.
	BalanceCorroboration float64

	// HighConfidenceThreshold marks groups eligible for auto-confirmation.
	HighConfidenceThreshold float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Tolerance:               validator.DefaultTolerance,
		MaxCombinationSize:      5,
		MaxCandidatePool:        10,
		LooseToleranceRatio:     decimal.New(1, -1),
		BalanceCorroboration:    0.6,
		HighConfidenceThreshold: 0.90,
	}
}
