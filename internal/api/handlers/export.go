package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/eshaffer321/ledger-reconcile/internal/adapters/export"
	"github.com/eshaffer321/ledger-reconcile/internal/api/dto"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/balance"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/transaction"
)

// ExportHandler streams reconciliation results as files.
type ExportHandler struct {
	*Base
	sessions Sessions
	options  export.Options
}

// NewExportHandler creates a new export handler.
func NewExportHandler(sessions Sessions, options export.Options, logger *slog.Logger) *ExportHandler {
	return &ExportHandler{
		Base:     NewBase(logger),
		sessions: sessions,
		options:  options,
	}
}

// Export handles GET /api/sessions/{id}/export?format=csv|xlsx|report|unmatched|update.
// The highlight and status_text query parameters override the configured
// XLSX options. status_columns, repeated or comma separated, names the
// columns the update format fills.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("format must be one of csv, xlsx, report, unmatched, update"))
		return
	}

	opts := h.options
	opts.Highlight = ParseBoolParam(r, "highlight", opts.Highlight)
	if text := r.URL.Query().Get("status_text"); text != "" {
		opts.StatusText = text
	}
	if columns := statusColumnsParam(r); len(columns) > 0 {
		opts.StatusColumns = columns
	}

	if format == export.FormatUpdate {
		if opts.Source, err = h.sessions.Source(id); err != nil {
			h.WriteServiceError(w, err)
			return
		}
	}

	var buf bytes.Buffer
	err = h.sessions.View(id, func(_ *transaction.Set, state *balance.State, summary balance.Summary) error {
		return format.Write(&buf, state, summary, opts)
	})
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(id)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func statusColumnsParam(r *http.Request) []string {
	var columns []string
	for _, value := range r.URL.Query()["status_columns"] {
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				columns = append(columns, name)
			}
		}
	}
	return columns
}
