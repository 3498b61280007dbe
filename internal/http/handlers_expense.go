package http

import (
	"net/http"
	"time"

	"divvy/internal/core"
	"divvy/internal/services"
)

type recordExpenseRequest struct {
	PaidBy      string `json:"paid_by,omitempty"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents,omitempty"`
	Amount      string `json:"amount,omitempty"`
	Category    string `json:"category,omitempty"`
	Date        string `json:"date,omitempty"`
	// Participants in split order; on equal splits earlier participants
	// absorb remainder units first.
	ParticipantIDs []string         `json:"participant_ids"`
	SplitMode      string           `json:"split_mode,omitempty"`
	CustomAmounts  map[string]int64 `json:"custom_amounts,omitempty"`
}

type updateExpenseRequest struct {
	AmountCents int64  `json:"amount_cents,omitempty"`
	Amount      string `json:"amount,omitempty"`
}

type splitResponse struct {
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
}

type expenseResponse struct {
	ID          string          `json:"id"`
	GroupID     string          `json:"group_id"`
	PaidBy      string          `json:"paid_by"`
	Description string          `json:"description"`
	AmountCents int64           `json:"amount_cents"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	Splits      []splitResponse `json:"splits"`
	Version     int64           `json:"version"`
	CreatedAt   string          `json:"created_at"`
	UpdatedAt   string          `json:"updated_at"`
}

func expenseToResponse(e *core.Expense) expenseResponse {
	splits := make([]splitResponse, len(e.Splits))
	for i, s := range e.Splits {
		splits[i] = splitResponse{UserID: s.UserID, AmountCents: s.Amount.Cents}
	}
	return expenseResponse{
		ID:          e.ID,
		GroupID:     e.GroupID,
		PaidBy:      e.PaidBy,
		Description: e.Description,
		AmountCents: e.Amount.Cents,
		Category:    string(e.Category),
		Date:        e.Date.Format("2006-01-02"),
		Splits:      splits,
		Version:     e.Version,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
}

// handleRecordExpense records an expense with its full split set atomically.
func (s *Server) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req recordExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	amount, err := parseAmount(req.AmountCents, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	paidBy := req.PaidBy
	if paidBy == "" {
		paidBy = actor
	}
	category := core.Category(req.Category)
	if req.Category == "" {
		category = core.CategoryGeneral
	}
	mode := core.SplitMode(req.SplitMode)
	if req.SplitMode == "" {
		mode = core.SplitEqual
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, err)
		return
	}

	var custom map[string]core.Money
	if len(req.CustomAmounts) > 0 {
		custom = make(map[string]core.Money, len(req.CustomAmounts))
		for id, cents := range req.CustomAmounts {
			custom[id] = core.Money{Cents: cents}
		}
	}

	expense, err := s.ledger.RecordExpense(r.Context(), services.RecordExpenseInput{
		GroupID:       r.PathValue("id"),
		PaidBy:        paidBy,
		Description:   req.Description,
		Amount:        amount,
		Category:      category,
		Date:          date,
		Participants:  req.ParticipantIDs,
		SplitMode:     mode,
		CustomAmounts: custom,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, expenseToResponse(expense))
}

// handleGetExpense returns an expense with its splits.
func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	expense, err := s.ledger.GetExpense(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expenseToResponse(expense))
}

// handleUpdateExpense rescales an expense to a new amount. Payer only.
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateExpenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	amount, err := parseAmount(req.AmountCents, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	expense, err := s.ledger.UpdateExpenseAmount(r.Context(), r.PathValue("id"), amount, actor)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, expenseToResponse(expense))
}

// handleDeleteExpense deletes an expense and its splits. Payer only.
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.ledger.DeleteExpense(r.Context(), r.PathValue("id"), actor); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

func parseDate(value string) (core.Date, error) {
	if value == "" {
		now := time.Now().UTC()
		return core.NewDate(now.Year(), int(now.Month()), now.Day()), nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return core.Date{}, &core.ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}
	return core.Date{Time: t}, nil
}
