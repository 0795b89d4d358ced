package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/ledger-reconcile/internal/adapters/export"
	"github.com/eshaffer321/ledger-reconcile/internal/adapters/ingest"
	"github.com/eshaffer321/ledger-reconcile/internal/api/dto"
	"github.com/eshaffer321/ledger-reconcile/internal/application/reconcile"
	"github.com/eshaffer321/ledger-reconcile/internal/application/service"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/balance"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/transaction"
)

// Sessions is the session store the handlers drive.
// *service.ReconcileService satisfies it.
type Sessions interface {
	CreateSession(name string, set *transaction.Set, source *ingest.Table) (service.SessionInfo, error)
	Run(ctx context.Context, id string) (service.RunReport, error)
	Get(id string) (service.SessionInfo, error)
	List() []service.SessionInfo
	Delete(id string) error
	Review(id string) ([]reconcile.ReviewItem, error)
	Summary(id string) (balance.Summary, error)
	Suggest(id string, transactionID int) ([]reconcile.Suggestion, error)
	Confirm(id string, anchorID int, partnerIDs []int, override bool) (*balance.MatchGroup, error)
	Dissolve(id, groupID string) error
	View(id string, fn func(set *transaction.Set, state *balance.State, summary balance.Summary) error) error
	Source(id string) (*ingest.Table, error)
}

// Base provides shared functionality for all handlers.
type Base struct {
	logger *slog.Logger
}

// NewBase creates a new base handler.
func NewBase(logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	return &Base{logger: logger}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// WriteServiceError maps a service or domain error to its HTTP response.
// Anything unrecognised is logged and reported as a 500.
func (b *Base) WriteServiceError(w http.ResponseWriter, err error) {
	var (
		conflict *balance.ConflictError
		invalid  *balance.InvalidGroupError
	)

	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		b.WriteError(w, http.StatusNotFound, dto.NotFoundError("session"))
	case errors.Is(err, balance.ErrGroupNotFound):
		b.WriteError(w, http.StatusNotFound, dto.NotFoundError("group"))
	case errors.Is(err, reconcile.ErrTransactionNotFound):
		b.WriteError(w, http.StatusNotFound, dto.NotFoundError("transaction"))
	case errors.Is(err, service.ErrNotReconciled):
		b.WriteError(w, http.StatusConflict, dto.NotReconciledError(err.Error()))
	case errors.Is(err, service.ErrSessionBusy):
		b.WriteError(w, http.StatusConflict, dto.SessionBusyError(err.Error()))
	case errors.As(err, &conflict):
		b.WriteError(w, http.StatusConflict, dto.ConflictError(err.Error()))
	case errors.Is(err, balance.ErrUnbalanced):
		b.WriteError(w, http.StatusUnprocessableEntity, dto.UnbalancedError(err.Error()))
	case errors.As(err, &invalid), errors.Is(err, reconcile.ErrNotMatchable), errors.Is(err, export.ErrNoSource):
		b.WriteError(w, http.StatusUnprocessableEntity, dto.ValidationError(err.Error()))
	default:
		b.logger.Error("request failed", "error", err)
		b.WriteError(w, http.StatusInternalServerError, dto.InternalError())
	}
}

// ParseIntParam parses an integer query parameter with a default value.
func ParseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParseBoolParam parses a boolean query parameter with a default value.
func ParseBoolParam(r *http.Request, name string, defaultVal bool) bool {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1"
}

// sessionID returns the {id} URL parameter.
func sessionID(r *http.Request) string {
	return chi.URLParam(r, "id")
}
