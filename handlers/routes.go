package handlers

import (
	"fmt"
	"net/http"

	"chat-team/backend/models"

	"github.com/gorilla/mux"
)

// RegisterRoutes 註冊所有 API 路由；auth 只套用在需要登入的路由
func RegisterRoutes(router *mux.Router, h *Handler, auth mux.MiddlewareFunc, ws http.Handler) {
	// 找不到路由或方法不符時也回傳 JSON 錯誤格式
	router.NotFoundHandler = h.wrap(func(w http.ResponseWriter, r *http.Request) error {
		return models.ErrRouteNotFound
	})
	router.MethodNotAllowedHandler = h.wrap(func(w http.ResponseWriter, r *http.Request) error {
		return models.ErrMethodNotAllowed
	})

	// 健康檢查路由
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "Backend is running!")
	}).Methods(http.MethodGet)

	router.Handle("/register", h.wrap(h.RegisterUser)).Methods(http.MethodPost)
	router.Handle("/login", h.wrap(h.LoginUser)).Methods(http.MethodPost)
	// WebSocket 從查詢參數取得 token
	router.Handle("/ws", ws).Methods(http.MethodGet)

	api := router.NewRoute().Subrouter()
	api.Use(auth)
	api.Handle("/users", h.wrap(h.GetAllUsers)).Methods(http.MethodGet)
	api.Handle("/chats", h.wrap(h.CreateChat)).Methods(http.MethodPost)
	api.Handle("/chats", h.wrap(h.GetUserChats)).Methods(http.MethodGet)
	api.Handle("/chats/{id}", h.wrap(h.GetChat)).Methods(http.MethodGet)
	api.Handle("/chats/{id}/members", h.wrap(h.ListMembers)).Methods(http.MethodGet)
	api.Handle("/chats/{id}/members", h.wrap(h.AddMember)).Methods(http.MethodPost)
	api.Handle("/chats/{id}/members/{userId}/role", h.wrap(h.ChangeMemberRole)).Methods(http.MethodPut)
	api.Handle("/chats/{id}/members/{userId}", h.wrap(h.RemoveMember)).Methods(http.MethodDelete)
}
