package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/ledger-reconcile/internal/adapters/export"
	"github.com/eshaffer321/ledger-reconcile/internal/adapters/ingest"
	"github.com/eshaffer321/ledger-reconcile/internal/api/dto"
	"github.com/eshaffer321/ledger-reconcile/internal/api/handlers"
	"github.com/eshaffer321/ledger-reconcile/internal/application/reconcile"
	"github.com/eshaffer321/ledger-reconcile/internal/application/service"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/balance"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/transaction"
)

// MockSessions is a testify mock of the session store.
type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) CreateSession(name string, set *transaction.Set, source *ingest.Table) (service.SessionInfo, error) {
	args := m.Called(name, set, source)
	return args.Get(0).(service.SessionInfo), args.Error(1)
}

func (m *MockSessions) Run(ctx context.Context, id string) (service.RunReport, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(service.RunReport), args.Error(1)
}

func (m *MockSessions) Get(id string) (service.SessionInfo, error) {
	args := m.Called(id)
	return args.Get(0).(service.SessionInfo), args.Error(1)
}

func (m *MockSessions) List() []service.SessionInfo {
	args := m.Called()
	return args.Get(0).([]service.SessionInfo)
}

func (m *MockSessions) Delete(id string) error {
	return m.Called(id).Error(0)
}

func (m *MockSessions) Review(id string) ([]reconcile.ReviewItem, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reconcile.ReviewItem), args.Error(1)
}

func (m *MockSessions) Summary(id string) (balance.Summary, error) {
	args := m.Called(id)
	return args.Get(0).(balance.Summary), args.Error(1)
}

func (m *MockSessions) Suggest(id string, transactionID int) ([]reconcile.Suggestion, error) {
	args := m.Called(id, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reconcile.Suggestion), args.Error(1)
}

func (m *MockSessions) Confirm(id string, anchorID int, partnerIDs []int, override bool) (*balance.MatchGroup, error) {
	args := m.Called(id, anchorID, partnerIDs, override)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*balance.MatchGroup), args.Error(1)
}

func (m *MockSessions) Dissolve(id, groupID string) error {
	return m.Called(id, groupID).Error(0)
}

func (m *MockSessions) View(id string, fn func(*transaction.Set, *balance.State, balance.Summary) error) error {
	return m.Called(id, fn).Error(0)
}

func (m *MockSessions) Source(id string) (*ingest.Table, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingest.Table), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// withParams attaches chi URL parameters to a request.
func withParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.APIError {
	t.Helper()
	return decodeBody[dto.APIError](t, rec)
}

func TestSessionsHandler_Get(t *testing.T) {
	t.Run("returns the session", func(t *testing.T) {
		sessions := new(MockSessions)
		created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		sessions.On("Get", "s1").Return(service.SessionInfo{
			ID: "s1", Name: "march", Status: service.StatusCreated, Transactions: 4,
			CreatedAt: created, UpdatedAt: created,
		}, nil)
		handler := handlers.NewSessionsHandler(sessions, handlers.UploadOptions{}, testLogger())

		rec := httptest.NewRecorder()
		handler.Get(rec, withParams(httptest.NewRequest(http.MethodGet, "/api/sessions/s1", nil), map[string]string{"id": "s1"}))

		assert.Equal(t, http.StatusOK, rec.Code)
		var response dto.SessionResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "march", response.Name)
		assert.Equal(t, "created", response.Status)
		assert.Equal(t, "2024-03-01T09:00:00Z", response.CreatedAt)
		assert.Nil(t, response.CompletedAt)
		sessions.AssertExpectations(t)
	})

	t.Run("returns 404 for unknown session", func(t *testing.T) {
		sessions := new(MockSessions)
		sessions.On("Get", "missing").Return(service.SessionInfo{}, fmt.Errorf("%w: missing", service.ErrSessionNotFound))
		handler := handlers.NewSessionsHandler(sessions, handlers.UploadOptions{}, testLogger())

		rec := httptest.NewRecorder()
		handler.Get(rec, withParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "missing"}))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, dto.ErrCodeNotFound, decodeError(t, rec).Code)
	})
}

func TestSessionsHandler_Run(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"busy session", service.ErrSessionBusy, http.StatusConflict, dto.ErrCodeSessionBusy},
		{"unknown session", service.ErrSessionNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"unexpected failure", errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := new(MockSessions)
			sessions.On("Run", mock.Anything, "s1").Return(service.RunReport{}, tt.err)
			handler := handlers.NewSessionsHandler(sessions, handlers.UploadOptions{}, testLogger())

			rec := httptest.NewRecorder()
			handler.Run(rec, withParams(httptest.NewRequest(http.MethodPost, "/", nil), map[string]string{"id": "s1"}))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}

	t.Run("reports the run", func(t *testing.T) {
		sessions := new(MockSessions)
		sessions.On("Run", mock.Anything, "s1").Return(service.RunReport{
			Summary:     balance.Summary{TotalGroups: 3},
			ReviewCount: 1,
			Duration:    1500 * time.Millisecond,
		}, nil)
		handler := handlers.NewSessionsHandler(sessions, handlers.UploadOptions{}, testLogger())

		rec := httptest.NewRecorder()
		handler.Run(rec, withParams(httptest.NewRequest(http.MethodPost, "/", nil), map[string]string{"id": "s1"}))

		require.Equal(t, http.StatusOK, rec.Code)
		var response dto.RunResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, 3, response.GroupCount)
		assert.Equal(t, 1, response.ReviewCount)
		assert.Equal(t, int64(1500), response.DurationMS)
		assert.NotNil(t, response.Warnings)
	})
}

func TestSessionsHandler_Create_JSON(t *testing.T) {
	t.Run("rejects a quoted non-number", func(t *testing.T) {
		sessions := new(MockSessions)
		handler := handlers.NewSessionsHandler(sessions, handlers.UploadOptions{}, testLogger())

		body := `{"name":"march","transactions":[
			{"description":"Invoice A","amount":-5000},
			{"description":"Invoice A","amount":5000},
			{"description":"Broken","amount":"oops"}
		]}`
		rec := httptest.NewRecorder()
		handler.Create(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewBufferString(body)))

		require.Equal(t, http.StatusBadRequest, rec.Code, "a quoted non-number is not a JSON number")
		sessions.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing amounts are rejected per row", func(t *testing.T) {
		sessions := new(MockSessions)
		sessions.On("CreateSession", "march", mock.MatchedBy(func(set *transaction.Set) bool {
			return set.Len() == 2
		}), mock.MatchedBy(func(source *ingest.Table) bool {
			// the rejected row stays in the source so row indexes line up
			return len(source.Rows) == 3 && source.Rows[2][0] == "No amount"
		})).Return(service.SessionInfo{ID: "s1", Name: "march", Transactions: 2}, nil)
		handler := handlers.NewSessionsHandler(sessions, handlers.UploadOptions{}, testLogger())

		body := `{"name":"march","transactions":[
			{"description":"Invoice A","amount":-5000},
			{"description":"Invoice A","amount":5000},
			{"description":"No amount"}
		]}`
		rec := httptest.NewRecorder()
		handler.Create(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewBufferString(body)))

		require.Equal(t, http.StatusCreated, rec.Code)
		var response dto.CreateSessionResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "s1", response.Session.ID)
		assert.Equal(t, 1, response.Expenses)
		assert.Equal(t, 1, response.Revenues)
		require.Len(t, response.Rejected, 1)
		assert.Equal(t, 2, response.Rejected[0].Row)
		assert.Equal(t, "amount", response.Rejected[0].Field)
		sessions.AssertExpectations(t)
	})

	t.Run("rejects an empty upload", func(t *testing.T) {
		handler := handlers.NewSessionsHandler(new(MockSessions), handlers.UploadOptions{}, testLogger())

		rec := httptest.NewRecorder()
		handler.Create(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewBufferString(`{"name":"x"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects an upload with no valid rows", func(t *testing.T) {
		handler := handlers.NewSessionsHandler(new(MockSessions), handlers.UploadOptions{RequireDescription: true}, testLogger())

		body := `{"transactions":[{"description":"","amount":10}]}`
		rec := httptest.NewRecorder()
		handler.Create(rec, httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewBufferString(body)))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestGroupsHandler_Confirm(t *testing.T) {
	confirm := func(sessions *MockSessions, body string) *httptest.ResponseRecorder {
		handler := handlers.NewGroupsHandler(sessions, testLogger())
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
		handler.Confirm(rec, withParams(req, map[string]string{"id": "s1"}))
		return rec
	}

	t.Run("conflict maps to 409", func(t *testing.T) {
		sessions := new(MockSessions)
		sessions.On("Confirm", "s1", 2, []int{3}, false).
			Return(nil, &balance.ConflictError{TransactionID: 3, GroupID: "MG_0001"})

		rec := confirm(sessions, `{"anchor_id":2,"partner_ids":[3]}`)

		assert.Equal(t, http.StatusConflict, rec.Code)
		apiErr := decodeError(t, rec)
		assert.Equal(t, dto.ErrCodeConflict, apiErr.Code)
		assert.Contains(t, apiErr.Message, "MG_0001")
	})

	t.Run("unbalanced maps to 422", func(t *testing.T) {
		sessions := new(MockSessions)
		sessions.On("Confirm", "s1", 0, []int{1}, true).
			Return(nil, fmt.Errorf("%w: transactions [0 1]", balance.ErrUnbalanced))

		rec := confirm(sessions, `{"anchor_id":0,"partner_ids":[1],"override":true}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, dto.ErrCodeUnbalanced, decodeError(t, rec).Code)
	})

	t.Run("invalid group maps to 422", func(t *testing.T) {
		sessions := new(MockSessions)
		sessions.On("Confirm", "s1", 0, []int{0}, false).
			Return(nil, &balance.InvalidGroupError{Reason: "duplicate transaction 0"})

		rec := confirm(sessions, `{"anchor_id":0,"partner_ids":[0]}`)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, dto.ErrCodeValidation, decodeError(t, rec).Code)
	})

	t.Run("anchor is required", func(t *testing.T) {
		sessions := new(MockSessions)

		rec := confirm(sessions, `{"partner_ids":[1]}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		sessions.AssertNotCalled(t, "Confirm", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("partners are required", func(t *testing.T) {
		rec := confirm(new(MockSessions), `{"anchor_id":1}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := confirm(new(MockSessions), `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGroupsHandler_Suggestions(t *testing.T) {
	t.Run("non-numeric transaction id", func(t *testing.T) {
		handler := handlers.NewGroupsHandler(new(MockSessions), testLogger())

		rec := httptest.NewRecorder()
		handler.Suggestions(rec, withParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "s1", "txID": "abc"}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown transaction", func(t *testing.T) {
		sessions := new(MockSessions)
		sessions.On("Suggest", "s1", 42).Return(nil, fmt.Errorf("%w: 42", reconcile.ErrTransactionNotFound))
		handler := handlers.NewGroupsHandler(sessions, testLogger())

		rec := httptest.NewRecorder()
		handler.Suggestions(rec, withParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "s1", "txID": "42"}))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("zero-amount transaction", func(t *testing.T) {
		sessions := new(MockSessions)
		sessions.On("Suggest", "s1", 5).Return(nil, fmt.Errorf("%w: 5", reconcile.ErrNotMatchable))
		handler := handlers.NewGroupsHandler(sessions, testLogger())

		rec := httptest.NewRecorder()
		handler.Suggestions(rec, withParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "s1", "txID": "5"}))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("empty list is not null", func(t *testing.T) {
		sessions := new(MockSessions)
		sessions.On("Suggest", "s1", 1).Return(nil, nil)
		handler := handlers.NewGroupsHandler(sessions, testLogger())

		rec := httptest.NewRecorder()
		handler.Suggestions(rec, withParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "s1", "txID": "1"}))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"suggestions":[]`)
	})
}

func TestGroupsHandler_ReviewBeforeRun(t *testing.T) {
	sessions := new(MockSessions)
	sessions.On("Review", "s1").Return(nil, service.ErrNotReconciled)
	handler := handlers.NewGroupsHandler(sessions, testLogger())

	rec := httptest.NewRecorder()
	handler.Review(rec, withParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": "s1"}))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, dto.ErrCodeNotReconciled, decodeError(t, rec).Code)
}

func TestGroupsHandler_Dissolve_UnknownGroup(t *testing.T) {
	sessions := new(MockSessions)
	sessions.On("Dissolve", "s1", "MG_9999").Return(fmt.Errorf("%w: MG_9999", balance.ErrGroupNotFound))
	handler := handlers.NewGroupsHandler(sessions, testLogger())

	rec := httptest.NewRecorder()
	req := withParams(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"id": "s1", "groupID": "MG_9999"})
	handler.Dissolve(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "group not found", decodeError(t, rec).Message)
}

func TestExportHandler_UnknownFormat(t *testing.T) {
	sessions := new(MockSessions)
	handler := handlers.NewExportHandler(sessions, export.DefaultOptions(), testLogger())

	rec := httptest.NewRecorder()
	handler.Export(rec, withParams(httptest.NewRequest(http.MethodGet, "/?format=pdf", nil), map[string]string{"id": "s1"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	sessions.AssertNotCalled(t, "View", mock.Anything, mock.Anything)
}

func TestExportHandler_UpdateUnknownSession(t *testing.T) {
	sessions := new(MockSessions)
	sessions.On("Source", "s1").Return(nil, fmt.Errorf("%w: s1", service.ErrSessionNotFound))
	handler := handlers.NewExportHandler(sessions, export.DefaultOptions(), testLogger())

	rec := httptest.NewRecorder()
	handler.Export(rec, withParams(httptest.NewRequest(http.MethodGet, "/?format=update", nil), map[string]string{"id": "s1"}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	sessions.AssertNotCalled(t, "View", mock.Anything, mock.Anything)
}

func TestParseParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&bad=x&flag=1", nil)

	assert.Equal(t, 5, handlers.ParseIntParam(req, "limit", 10))
	assert.Equal(t, 10, handlers.ParseIntParam(req, "bad", 10))
	assert.Equal(t, 10, handlers.ParseIntParam(req, "missing", 10))
	assert.True(t, handlers.ParseBoolParam(req, "flag", false))
	assert.True(t, handlers.ParseBoolParam(req, "missing", true))
}
