package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eshaffer321/ledger-reconcile/internal/api/dto"
	"github.com/eshaffer321/ledger-reconcile/internal/application/reconcile"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/balance"
	"github.com/eshaffer321/ledger-reconcile/internal/domain/transaction"
)

// GroupsHandler handles match group and review requests of a session.
type GroupsHandler struct {
	*Base
	sessions Sessions
}

// NewGroupsHandler creates a new groups handler.
func NewGroupsHandler(sessions Sessions, logger *slog.Logger) *GroupsHandler {
	return &GroupsHandler{
		Base:     NewBase(logger),
		sessions: sessions,
	}
}

// List handles GET /api/sessions/{id}/groups.
func (h *GroupsHandler) List(w http.ResponseWriter, r *http.Request) {
	var response dto.GroupListResponse
	err := h.sessions.View(sessionID(r), func(set *transaction.Set, state *balance.State, _ balance.Summary) error {
		groups := state.Groups()
		response.Groups = make([]dto.GroupResponse, 0, len(groups))
		for _, g := range groups {
			response.Groups = append(response.Groups, toGroupResponse(g, set))
		}
		response.Count = len(groups)
		return nil
	})
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, response)
}

// Confirm handles POST /api/sessions/{id}/confirm - records a manual match.
func (h *GroupsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req dto.ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	if req.AnchorID == nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("anchor_id is required"))
		return
	}
	if len(req.PartnerIDs) == 0 {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("partner_ids are required"))
		return
	}

	id := sessionID(r)
	group, err := h.sessions.Confirm(id, *req.AnchorID, req.PartnerIDs, req.Override)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	var response dto.GroupResponse
	err = h.sessions.View(id, func(set *transaction.Set, _ *balance.State, _ balance.Summary) error {
		response = toGroupResponse(group, set)
		return nil
	})
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, response)
}

// Dissolve handles DELETE /api/sessions/{id}/groups/{groupID}.
func (h *GroupsHandler) Dissolve(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	if err := h.sessions.Dissolve(sessionID(r), groupID); err != nil {
		h.WriteServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "Group " + groupID + " dissolved"})
}

// Review handles GET /api/sessions/{id}/review.
func (h *GroupsHandler) Review(w http.ResponseWriter, r *http.Request) {
	items, err := h.sessions.Review(sessionID(r))
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}
	if items == nil {
		items = []reconcile.ReviewItem{}
	}
	if limit := ParseIntParam(r, "limit", 0); limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	h.WriteJSON(w, http.StatusOK, dto.ReviewResponse{Items: items, Count: len(items)})
}

// Suggestions handles GET /api/sessions/{id}/transactions/{txID}/suggestions.
func (h *GroupsHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	txID, err := strconv.Atoi(chi.URLParam(r, "txID"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("transaction id must be an integer"))
		return
	}

	suggestions, err := h.sessions.Suggest(sessionID(r), txID)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}
	if suggestions == nil {
		suggestions = []reconcile.Suggestion{}
	}
	h.WriteJSON(w, http.StatusOK, dto.SuggestionsResponse{TransactionID: txID, Suggestions: suggestions})
}

// Summary handles GET /api/sessions/{id}/summary.
func (h *GroupsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	summary, err := h.sessions.Summary(id)
	if err != nil {
		h.WriteServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.SummaryResponse{SessionID: id, Summary: summary})
}

func toGroupResponse(g *balance.MatchGroup, set *transaction.Set) dto.GroupResponse {
	response := dto.GroupResponse{
		GroupID:        g.ID,
		Strategy:       string(g.Strategy),
		Confidence:     g.Confidence,
		Balance:        g.Balance.String(),
		Status:         string(g.Status),
		SharedKeywords: g.SharedKeywords,
		Reason:         g.Reason,
		Members:        make([]dto.MemberResponse, 0, len(g.Members)),
	}
	if response.SharedKeywords == nil {
		response.SharedKeywords = []string{}
	}
	for _, id := range g.Members {
		tx, ok := set.Get(id)
		if !ok {
			continue
		}
		response.Members = append(response.Members, dto.MemberResponse{
			ID:          tx.ID(),
			Description: tx.Description(),
			Amount:      tx.Amount().String(),
			Kind:        string(tx.Kind()),
		})
	}
	return response
}
