package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/WinterWeShare/weshare/internal/middleware"
	"github.com/WinterWeShare/weshare/internal/service"
)

// GroupHandler serves the group, membership and invite endpoints.
type GroupHandler struct {
	memberships *service.MembershipService
}

// NewGroupHandler creates a GroupHandler.
func NewGroupHandler(memberships *service.MembershipService) *GroupHandler {
	return &GroupHandler{memberships: memberships}
}

type createGroupRequest struct {
	Name string `json:"name"`
}

// Create handles POST /groups.
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	group, err := h.memberships.CreateGroup(r.Context(), middleware.UserID(r.Context()), req.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, group)
}

// List handles GET /groups.
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	groups, err := h.memberships.ListGroups(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

// Get handles GET /groups/{groupId}.
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	group, err := h.memberships.GetGroup(r.Context(), middleware.UserID(r.Context()), groupID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, group)
}

// Members handles GET /groups/{groupId}/members.
func (h *GroupHandler) Members(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	members, err := h.memberships.ListMembers(r.Context(), middleware.UserID(r.Context()), groupID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, members)
}

// RemoveMember handles DELETE /groups/{groupId}/members/{userId}.
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	err := h.memberships.RemoveMember(r.Context(), middleware.UserID(r.Context()), vars["userId"], vars["groupId"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type inviteRequest struct {
	ReceiverID string `json:"receiverId"`
}

// Invite handles POST /groups/{groupId}/invites.
func (h *GroupHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	groupID := mux.Vars(r)["groupId"]
	invite, err := h.memberships.Invite(r.Context(), middleware.UserID(r.Context()), req.ReceiverID, groupID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, invite)
}

// InvitableFriends handles GET /groups/{groupId}/invitable-friends.
func (h *GroupHandler) InvitableFriends(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	friends, err := h.memberships.ListInvitableFriends(r.Context(), middleware.UserID(r.Context()), groupID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, friends)
}

// ListInvites handles GET /invites.
func (h *GroupHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := h.memberships.ListInvites(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, invites)
}

// AcceptInvite handles POST /invites/{groupId}/accept.
func (h *GroupHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	membership, err := h.memberships.AcceptInvite(r.Context(), middleware.UserID(r.Context()), groupID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, membership)
}

// RejectInvite handles POST /invites/{groupId}/reject.
func (h *GroupHandler) RejectInvite(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	if err := h.memberships.RejectInvite(r.Context(), middleware.UserID(r.Context()), groupID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
