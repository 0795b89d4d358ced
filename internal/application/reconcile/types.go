package reconcile

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/ledger-reconcile/internal/domain/balance"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/transaction"
)

// Result holds the outcome of one reconciliation run
type Result struct {
	State       *balance.State
	Summary     balance.Summary
	ReviewItems []ReviewItem
	Warnings    []string
	Duration    time.Duration
}

// ReviewItem is an unresolved transaction with ranked partner suggestions
// for a human to pick from.
type ReviewItem struct {
	TransactionID int              `json:"transaction_id"`
	Description   string           `json:"description"`
	Amount        decimal.Decimal  `json:"amount"`
	Kind          transaction.Kind `json:"kind"`
	Suggestions   []Suggestion     `json:"suggestions"`
}

// Suggestion is one assisted candidate partner.
type Suggestion struct {
	TransactionID  int             `json:"transaction_id"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	Confidence     float64         `json:"confidence"`
	Similarity     float64         `json:"similarity"`
	KeywordScore   float64         `json:"keyword_score"`
	AmountScore    float64         `json:"amount_score"`
	SharedKeywords []string        `json:"shared_keywords"`
}

// Pipeline runs the matching levels in precedence order and commits the
// resulting groups to a reconciliation state
type Pipeline struct {
	matcher    *matcher.Matcher
	calculator *balance.Calculator
	balance    balance.Config
	logger     *slog.Logger
}

// NewPipeline creates a new reconciliation pipeline
func NewPipeline(matcherConfig matcher.Config, balanceConfig balance.Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}

	calculator := balance.NewCalculator(balanceConfig)

	return &Pipeline{
		matcher:    matcher.NewMatcher(matcherConfig),
		calculator: calculator,
		balance:    calculator.Config(),
		logger:     logger.With(slog.String("component", "reconcile")),
	}
}

// Matcher returns the entity matcher used by the pipeline.
func (p *Pipeline) Matcher() *matcher.Matcher {
	return p.matcher
}

// Calculator returns the balance calculator used by the pipeline.
func (p *Pipeline) Calculator() *balance.Calculator {
	return p.calculator
}
