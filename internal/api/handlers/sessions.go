package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/eshaffer321/ledger-reconcile/internal/adapters/ingest"
	"github.com/eshaffer321/ledger-reconcile/internal/api/dto"
	"github.com/eshaffer321/ledger-reconcile/internal/application/service"
)

const previewRows = 5

// UploadOptions bound and shape session uploads.
type UploadOptions struct {
	MaxBytes           int64
	RequireDescription bool
}

// SessionsHandler handles session lifecycle requests.
type SessionsHandler struct {
	*Base
	sessions Sessions
	upload   UploadOptions
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(sessions Sessions, upload UploadOptions, logger *slog.Logger) *SessionsHandler {
	return &SessionsHandler{
		Base:     NewBase(logger),
		sessions: sessions,
		upload:   upload,
	}
}

// Create handles POST /api/sessions. The body is either JSON rows or a
// multipart CSV/XLSX upload.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var (
		name      string
		processed *ingest.Processed
		ok        bool
	)
	if isMultipart(r) {
		name, processed, ok = h.processUpload(w, r)
	} else {
		name, processed, ok = h.processJSON(w, r)
	}
	if !ok {
		return
	}

	if processed.Set.Len() == 0 {
		h.WriteError(w, http.StatusUnprocessableEntity, dto.ValidationError("no valid transactions in upload"))
		return
	}

	info, err := h.sessions.CreateSession(name, processed.Set, processed.Source)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	response := dto.CreateSessionResponse{
		Session:  toSessionResponse(info),
		Expenses: processed.Expenses,
		Revenues: processed.Revenues,
		Zero:     processed.Zero,
		Rejected: make([]dto.RejectedRow, 0, len(processed.Rejected)),
		Message:  processed.Message(),
	}
	for _, rejected := range processed.Rejected {
		response.Rejected = append(response.Rejected, dto.RejectedRow{
			Row:    rejected.Row,
			Field:  rejected.Field,
			Reason: rejected.Reason,
		})
	}

	h.WriteJSON(w, http.StatusCreated, response)
}

// processJSON turns JSON rows into a table so both upload paths share the
// same row validation.
func (h *SessionsHandler) processJSON(w http.ResponseWriter, r *http.Request) (string, *ingest.Processed, bool) {
	var req dto.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return "", nil, false
	}
	if len(req.Transactions) == 0 {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("transactions are required"))
		return "", nil, false
	}

	table := &ingest.Table{Headers: []string{"description", "amount"}}
	for _, tx := range req.Transactions {
		table.Rows = append(table.Rows, []string{tx.Description, tx.Amount.String()})
	}

	processed, err := ingest.Process(table, "amount", "description", ingest.Options{
		RequireDescription: h.upload.RequireDescription,
	})
	if err != nil {
		h.WriteServiceError(w, err)
		return "", nil, false
	}
	return req.Name, processed, true
}

func (h *SessionsHandler) processUpload(w http.ResponseWriter, r *http.Request) (string, *ingest.Processed, bool) {
	table, filename, ok := h.readUpload(w, r)
	if !ok {
		return "", nil, false
	}

	amountColumn := r.FormValue(dto.FormAmountColumn)
	descriptionColumn := r.FormValue(dto.FormDescriptionColumn)
	if amountColumn == "" || descriptionColumn == "" {
		analysis := ingest.AnalyzeColumns(table)
		if amountColumn == "" {
			amountColumn = analysis.SuggestedAmountColumn
		}
		if descriptionColumn == "" {
			descriptionColumn = analysis.SuggestedDescriptionColumn
		}
	}

	opts := ingest.Options{RequireDescription: h.upload.RequireDescription}
	if v := r.FormValue(dto.FormRequireDescription); v != "" {
		opts.RequireDescription = v == "true" || v == "1"
	}

	processed, err := ingest.Process(table, amountColumn, descriptionColumn, opts)
	if err != nil {
		if errors.Is(err, ingest.ErrColumnNotFound) {
			h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		} else {
			h.WriteServiceError(w, err)
		}
		return "", nil, false
	}

	name := r.FormValue(dto.FormName)
	if name == "" {
		name = filename
	}
	return name, processed, true
}

// readUpload parses the multipart form and reads its file into a table.
func (h *SessionsHandler) readUpload(w http.ResponseWriter, r *http.Request) (*ingest.Table, string, bool) {
	if h.upload.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.upload.MaxBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid upload: "+err.Error()))
		return nil, "", false
	}

	file, header, err := r.FormFile(dto.FormFile)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("file is required"))
		return nil, "", false
	}
	defer file.Close()

	format, err := ingest.FormatFromPath(header.Filename)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return nil, "", false
	}

	table, err := ingest.Read(file, format)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return nil, "", false
	}
	return table, header.Filename, true
}

// Analyze handles POST /api/analyze - suggests amount and description
// columns for an uploaded file without creating a session.
func (h *SessionsHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if !isMultipart(r) {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("multipart upload required"))
		return
	}

	table, _, ok := h.readUpload(w, r)
	if !ok {
		return
	}

	preview := table.Rows
	if len(preview) > previewRows {
		preview = preview[:previewRows]
	}

	h.WriteJSON(w, http.StatusOK, dto.AnalyzeResponse{
		ColumnAnalysis: ingest.AnalyzeColumns(table),
		RowCount:       len(table.Rows),
		Preview:        preview,
	})
}

// List handles GET /api/sessions.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	infos := h.sessions.List()

	response := dto.SessionListResponse{
		Sessions: make([]dto.SessionResponse, 0, len(infos)),
		Count:    len(infos),
	}
	for _, info := range infos {
		response.Sessions = append(response.Sessions, toSessionResponse(info))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Get handles GET /api/sessions/{id}.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.sessions.Get(sessionID(r))
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, toSessionResponse(info))
}

// Delete handles DELETE /api/sessions/{id}.
func (h *SessionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(sessionID(r)); err != nil {
		h.WriteServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "Session deleted"})
}

// Run handles POST /api/sessions/{id}/run - reconciles the session from
// scratch. Manual confirmations made before are discarded.
func (h *SessionsHandler) Run(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)

	report, err := h.sessions.Run(r.Context(), id)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	warnings := report.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	h.WriteJSON(w, http.StatusOK, dto.RunResponse{
		SessionID:   id,
		Summary:     report.Summary,
		GroupCount:  report.Summary.TotalGroups,
		ReviewCount: report.ReviewCount,
		Warnings:    warnings,
		DurationMS:  report.Duration.Milliseconds(),
	})
}

func toSessionResponse(info service.SessionInfo) dto.SessionResponse {
	response := dto.SessionResponse{
		ID:           info.ID,
		Name:         info.Name,
		Status:       string(info.Status),
		Transactions: info.Transactions,
		CreatedAt:    info.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    info.UpdatedAt.Format(time.RFC3339),
		Error:        info.Error,
		Summary:      info.Summary,
	}
	if info.CompletedAt != nil {
		completedAt := info.CompletedAt.Format(time.RFC3339)
		response.CompletedAt = &completedAt
	}
	return response
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}
