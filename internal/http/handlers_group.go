package http

import (
	"net/http"
	"time"

	"divvy/internal/core"
)

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
}

type groupResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	CreatedBy   string   `json:"created_by"`
	MemberIDs   []string `json:"member_ids"`
	CreatedAt   string   `json:"created_at"`
}

type membershipResponse struct {
	GroupID  string `json:"group_id"`
	UserID   string `json:"user_id"`
	JoinedAt string `json:"joined_at"`
}

func groupToResponse(g *core.Group) groupResponse {
	return groupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		CreatedBy:   g.CreatedBy,
		MemberIDs:   g.MemberIDs,
		CreatedAt:   g.CreatedAt.Format(time.RFC3339),
	}
}

// handleCreateGroup creates a group with the actor as creator and first member.
func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req createGroupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	group, err := s.ledger.CreateGroup(r.Context(), req.Name, req.Description, actor)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, groupToResponse(group))
}

// handleGetGroup returns a group with its members.
func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.ledger.GetGroup(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groupToResponse(group))
}

// handleDeleteGroup removes a group and everything it owns. Creator only.
func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.ledger.DeleteGroup(r.Context(), r.PathValue("id"), actor); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// handleAddMember enrolls a user into a group.
func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	if _, err := actorID(r); err != nil {
		writeError(w, err)
		return
	}

	var req addMemberRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	membership, err := s.ledger.AddMember(r.Context(), r.PathValue("id"), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, membershipResponse{
		GroupID:  membership.GroupID,
		UserID:   membership.UserID,
		JoinedAt: membership.JoinedAt.Format(time.RFC3339),
	})
}
