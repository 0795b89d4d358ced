package dto

import (
	"time"

	"github.com/eshaffer321/ledger-reconcile/internal/adapters/ingest"
	"github.com/eshaffer321/ledger-reconcile/internal/application/reconcile"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/balance"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Sessions  int    `json:"sessions"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse reports the number of live sessions at the current time.
func NewHealthResponse(sessions int) HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Sessions:  sessions,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// MessageResponse is a generic message response.
type MessageResponse struct {
	Message string `json:"message"`
}

// SessionResponse represents a reconciliation session.
type SessionResponse struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Status       string           `json:"status"`
	Transactions int              `json:"transactions"`
	CreatedAt    string           `json:"created_at"`
	UpdatedAt    string           `json:"updated_at"`
	CompletedAt  *string          `json:"completed_at,omitempty"`
	Error        string           `json:"error,omitempty"`
	Summary      *balance.Summary `json:"summary,omitempty"`
}

// SessionListResponse is returned when listing sessions.
type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Count    int               `json:"count"`
}

// RejectedRow is an uploaded row that could not become a transaction.
type RejectedRow struct {
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// CreateSessionResponse is returned after an upload.
type CreateSessionResponse struct {
	Session  SessionResponse `json:"session"`
	Expenses int             `json:"expenses"`
	Revenues int             `json:"revenues"`
	Zero     int             `json:"zero"`
	Rejected []RejectedRow   `json:"rejected"`
	Message  string          `json:"message"`
}

// AnalyzeResponse describes the columns of an uploaded file.
type AnalyzeResponse struct {
	ingest.ColumnAnalysis
	RowCount int        `json:"row_count"`
	Preview  [][]string `json:"preview"`
}

// RunResponse is returned after a reconciliation run.
type RunResponse struct {
	SessionID   string          `json:"session_id"`
	Summary     balance.Summary `json:"summary"`
	GroupCount  int             `json:"group_count"`
	ReviewCount int             `json:"review_count"`
	Warnings    []string        `json:"warnings"`
	DurationMS  int64           `json:"duration_ms"`
}

// MemberResponse is one transaction inside a match group.
type MemberResponse struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
}

// GroupResponse represents a match group.
type GroupResponse struct {
	GroupID        string           `json:"group_id"`
	Strategy       string           `json:"strategy"`
	Confidence     float64          `json:"confidence"`
	Balance        string           `json:"balance"`
	Status         string           `json:"status"`
	SharedKeywords []string         `json:"shared_keywords"`
	Reason         string           `json:"reason,omitempty"`
	Members        []MemberResponse `json:"members"`
}

// GroupListResponse is returned when listing match groups.
type GroupListResponse struct {
	Groups []GroupResponse `json:"groups"`
	Count  int             `json:"count"`
}

// ReviewResponse lists unresolved transactions with their suggestions.
type ReviewResponse struct {
	Items []reconcile.ReviewItem `json:"items"`
	Count int                    `json:"count"`
}

// SuggestionsResponse lists assisted suggestions for one transaction.
type SuggestionsResponse struct {
	TransactionID int                    `json:"transaction_id"`
	Suggestions   []reconcile.Suggestion `json:"suggestions"`
}

// SummaryResponse wraps the statistics of a session.
type SummaryResponse struct {
	SessionID string          `json:"session_id"`
	Summary   balance.Summary `json:"summary"`
}
