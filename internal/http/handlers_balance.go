package http

import (
	"net/http"
)

type memberBalanceResponse struct {
	UserID   string `json:"user_id"`
	NetCents int64  `json:"net_cents"`
}

type groupBalancesResponse struct {
	GroupID  string                  `json:"group_id"`
	Balances []memberBalanceResponse `json:"balances"`
}

type userBalanceResponse struct {
	UserID   string `json:"user_id"`
	NetCents int64  `json:"net_cents"`
}

// handleGroupBalances returns every member's net balance, zeros included.
func (s *Server) handleGroupBalances(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	balances, err := s.ledger.GroupBalances(r.Context(), groupID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := groupBalancesResponse{
		GroupID:  groupID,
		Balances: make([]memberBalanceResponse, len(balances)),
	}
	for i, b := range balances {
		resp.Balances[i] = memberBalanceResponse{UserID: b.UserID, NetCents: b.Net.Cents}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleUserBalance returns the user's net balance summed across all their
// groups.
func (s *Server) handleUserBalance(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	net, err := s.ledger.UserAggregateBalance(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userBalanceResponse{UserID: userID, NetCents: net.Cents})
}
