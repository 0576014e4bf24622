package handlers

import (
	"net/http"

	"chat-team/backend/models"

	"github.com/samber/lo"
)

type userResponse struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

func toUserResponse(u models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Username: u.Username}
}

// RegisterUser 處理使用者註冊請求
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) error {
	var req models.RegisterRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	user, err := h.users.Register(r.Context(), req)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"id":      user.ID,
	})
}

// LoginUser 處理使用者登入請求
func (h *Handler) LoginUser(w http.ResponseWriter, r *http.Request) error {
	var req models.LoginRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	token, user, err := h.users.Login(r.Context(), req)
	if err != nil {
		return err
	}

	h.log.Info("User logged in successfully", "userId", user.ID)
	return writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Login successful",
		"token":    token,
		"id":       user.ID,
		"username": user.Username,
	})
}

// GetAllUsers 處理獲取所有使用者列表的請求
func (h *Handler) GetAllUsers(w http.ResponseWriter, r *http.Request) error {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, lo.Map(users, func(u models.User, _ int) userResponse {
		return toUserResponse(u)
	}))
}
