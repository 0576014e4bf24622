package handlers

import (
	"net/http"

	"chat-team/backend/models"
)

// memberTarget 從路徑取出目前使用者、聊天室 ID 與目標使用者 ID
func memberTarget(r *http.Request) (actorID, chatID, userID int64, err error) {
	if actorID, err = currentUser(r); err != nil {
		return
	}
	if chatID, err = pathID(r, "id"); err != nil {
		return
	}
	userID, err = pathID(r, "userId")
	return
}

// ListMembers GET /chats/{id}/members
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) error {
	actorID, err := currentUser(r)
	if err != nil {
		return err
	}
	chatID, err := pathID(r, "id")
	if err != nil {
		return err
	}

	members, err := h.members.ListMembers(r.Context(), actorID, chatID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, members)
}

// AddMember POST /chats/{id}/members
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) error {
	actorID, err := currentUser(r)
	if err != nil {
		return err
	}
	chatID, err := pathID(r, "id")
	if err != nil {
		return err
	}

	var req models.AddMemberRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	member, err := h.members.AddMember(r.Context(), actorID, chatID, req.UserID, req.Role)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, member)
}

// ChangeMemberRole PUT /chats/{id}/members/{userId}/role
func (h *Handler) ChangeMemberRole(w http.ResponseWriter, r *http.Request) error {
	actorID, chatID, userID, err := memberTarget(r)
	if err != nil {
		return err
	}

	var req models.ChangeRoleRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	member, err := h.members.ChangeRole(r.Context(), actorID, chatID, userID, req.Role)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, member)
}

// RemoveMember DELETE /chats/{id}/members/{userId}
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) error {
	actorID, chatID, userID, err := memberTarget(r)
	if err != nil {
		return err
	}

	if err := h.members.RemoveMember(r.Context(), actorID, chatID, userID); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
