package dto

import "encoding/json"

// TransactionInput is one row of a JSON session upload. Amount accepts any
// JSON number; its sign decides whether the row is an expense or a revenue.
type TransactionInput struct {
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
}

// CreateSessionRequest is the JSON body of POST /api/sessions.
type CreateSessionRequest struct {
	Name         string             `json:"name"`
	Transactions []TransactionInput `json:"transactions"`
}

// ConfirmRequest is the body of POST /api/sessions/{id}/confirm.
type ConfirmRequest struct {
	AnchorID   *int  `json:"anchor_id"`
	PartnerIDs []int `json:"partner_ids"`
	Override   bool  `json:"override"`
}

// Multipart form fields accepted by POST /api/sessions and POST /api/analyze.
const (
	FormFile               = "file"
	FormName               = "name"
	FormAmountColumn       = "amount_column"
	FormDescriptionColumn  = "description_column"
	FormRequireDescription = "require_description"
)
