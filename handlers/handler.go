package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"chat-team/backend/middleware"
	"chat-team/backend/models"
	"chat-team/backend/services"
	"chat-team/backend/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

// Handler 集合所有 HTTP handler 需要的服務
type Handler struct {
	users    *services.UserService
	chats    *services.ChatService
	members  *services.ChatMemberService
	validate *validator.Validate
	log      *slog.Logger
}

func New(users *services.UserService, chats *services.ChatService, members *services.ChatMemberService, log *slog.Logger) *Handler {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// 驗證錯誤使用 JSON 欄位名稱，與請求內容一致
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{users: users, chats: chats, members: members, validate: validate, log: log}
}

func (h *Handler) wrap(fn middleware.HandlerFunc) http.Handler {
	return middleware.Handle(h.log, fn)
}

// decode 解析 JSON 請求體並驗證
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.log.Debug("JSON decode error", "error", err)
		return models.ErrInvalidPayload
	}
	return h.validate.Struct(dst)
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := utils.ParseID(mux.Vars(r)[name])
	if err != nil {
		return 0, models.ErrInvalidID
	}
	return id, nil
}

func currentUser(r *http.Request) (int64, error) {
	userID, err := utils.GetUserIDFromContext(r.Context())
	if err != nil {
		return 0, models.ErrUnauthorized
	}
	return userID, nil
}
