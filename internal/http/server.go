// Package http exposes the ledger over a JSON API. The server never
// authenticates callers; the upstream identity provider installs the actor
// id header on every request.
package http

import (
	"net/http"

	"divvy/internal/middleware/trace"
	"divvy/internal/services"
)

type Server struct {
	http.Server
	ledger *services.LedgerService
}

// NewServer configures routes and returns a ready-to-run http.Server.
func NewServer(addr string, ledger *services.LedgerService) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: trace.Middleware(mux),
		},
		ledger: ledger,
	}

	mux.HandleFunc("GET /healthz", handleHealth)

	mux.HandleFunc("POST /api/groups", s.handleCreateGroup)
	mux.HandleFunc("GET /api/groups/{id}", s.handleGetGroup)
	mux.HandleFunc("DELETE /api/groups/{id}", s.handleDeleteGroup)
	mux.HandleFunc("POST /api/groups/{id}/members", s.handleAddMember)
	mux.HandleFunc("POST /api/groups/{id}/expenses", s.handleRecordExpense)
	mux.HandleFunc("GET /api/groups/{id}/balances", s.handleGroupBalances)

	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PATCH /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /api/users/{id}/balance", s.handleUserBalance)

	return s
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
