package handlers

import (
	"net/http"

	"chat-team/backend/models"
)

// CreateChat 處理創建聊天室的請求，建立者成為擁有者
func (h *Handler) CreateChat(w http.ResponseWriter, r *http.Request) error {
	creatorID, err := currentUser(r)
	if err != nil {
		return err
	}

	var req models.CreateChatRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	chat, err := h.chats.CreateChat(r.Context(), creatorID, req.Name)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusCreated, chat)
}

// GetUserChats 處理獲取使用者所有聊天室的請求
func (h *Handler) GetUserChats(w http.ResponseWriter, r *http.Request) error {
	userID, err := currentUser(r)
	if err != nil {
		return err
	}

	chats, err := h.chats.ListUserChats(r.Context(), userID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, chats)
}

func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) error {
	userID, err := currentUser(r)
	if err != nil {
		return err
	}
	chatID, err := pathID(r, "id")
	if err != nil {
		return err
	}

	chat, err := h.chats.GetChat(r.Context(), userID, chatID)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, chat)
}
