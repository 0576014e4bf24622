package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chat-team/backend/database"
	"chat-team/backend/middleware"
	"chat-team/backend/models"
	"chat-team/backend/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret"

type apiClient struct {
	t      *testing.T
	server *httptest.Server
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := database.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })

	h := New(
		services.NewUserService(store, testSecret, time.Hour, log),
		services.NewChatService(store, store, nil, log),
		services.NewChatMemberService(store, store, store, nil, log),
		log,
	)

	router := mux.NewRouter()
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	RegisterRoutes(router, h, middleware.JWTMiddleware(testSecret, log), ws)

	server := httptest.NewServer(middleware.ErrorHandler(log)(router))
	t.Cleanup(server.Close)
	return &apiClient{t: t, server: server}
}

func (c *apiClient) do(method, path, token string, body any) (*http.Response, []byte) {
	c.t.Helper()
	var reader io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			reader = bytes.NewBufferString(raw)
		} else {
			payload, err := json.Marshal(body)
			require.NoError(c.t, err)
			reader = bytes.NewReader(payload)
		}
	}

	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, data
}

// signup 註冊並登入，回傳使用者 ID 與 token
func (c *apiClient) signup(name string) (int64, string) {
	c.t.Helper()
	email := name + "@example.com"
	resp, _ := c.do(http.MethodPost, "/register", "", models.RegisterRequest{Email: email, Username: name, Password: "password123"})
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)

	resp, body := c.do(http.MethodPost, "/login", "", models.LoginRequest{Email: email, Password: "password123"})
	require.Equal(c.t, http.StatusOK, resp.StatusCode)

	var login struct {
		Token string `json:"token"`
		ID    int64  `json:"id"`
	}
	require.NoError(c.t, json.Unmarshal(body, &login))
	require.NotEmpty(c.t, login.Token)
	return login.ID, login.Token
}

func (c *apiClient) createChat(token, name string) models.Chat {
	c.t.Helper()
	resp, body := c.do(http.MethodPost, "/chats", token, models.CreateChatRequest{Name: name})
	require.Equal(c.t, http.StatusCreated, resp.StatusCode)

	var chat models.Chat
	require.NoError(c.t, json.Unmarshal(body, &chat))
	return chat
}

func decodeErrors(t *testing.T, body []byte) []models.Error {
	t.Helper()
	var envelope models.ApiErrorResponse
	require.NoError(t, json.Unmarshal(body, &envelope))
	require.NotEmpty(t, envelope.Errors)
	return envelope.Errors
}

func TestAuthRoutes(t *testing.T) {
	api := newTestAPI(t)

	t.Run("should register and login", func(t *testing.T) {
		id, token := api.signup("alice")
		assert.NotZero(t, id)
		assert.NotEmpty(t, token)
	})

	t.Run("should reject duplicate email with conflict", func(t *testing.T) {
		resp, body := api.do(http.MethodPost, "/register", "", models.RegisterRequest{Email: "alice@example.com", Username: "alice2", Password: "password123"})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, models.ErrEmailAlreadyExists.Code, decodeErrors(t, body)[0].Code)
	})

	t.Run("should report validation errors by json field name", func(t *testing.T) {
		resp, body := api.do(http.MethodPost, "/register", "", models.RegisterRequest{Email: "not-an-email", Username: "x", Password: "short"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		codes := make([]string, 0)
		for _, e := range decodeErrors(t, body) {
			codes = append(codes, e.Code)
		}
		assert.ElementsMatch(t, []string{"Validation.email", "Validation.username", "Validation.password"}, codes)
	})

	t.Run("should reject malformed json", func(t *testing.T) {
		resp, body := api.do(http.MethodPost, "/login", "", "{not json")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, models.ErrInvalidPayload.Code, decodeErrors(t, body)[0].Code)
	})

	t.Run("should reject wrong password", func(t *testing.T) {
		resp, body := api.do(http.MethodPost, "/login", "", models.LoginRequest{Email: "alice@example.com", Password: "wrong-password"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, models.ErrInvalidCredentials.Code, decodeErrors(t, body)[0].Code)
	})

	t.Run("should require token for protected routes", func(t *testing.T) {
		resp, body := api.do(http.MethodGet, "/users", "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, models.ErrUnauthorized.Code, decodeErrors(t, body)[0].Code)
	})

	t.Run("should list users without password hashes", func(t *testing.T) {
		_, token := api.signup("bob")
		resp, body := api.do(http.MethodGet, "/users", token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotContains(t, string(body), "password")

		var users []userResponse
		require.NoError(t, json.Unmarshal(body, &users))
		assert.Len(t, users, 2)
	})

	t.Run("should serve health and websocket routes without token", func(t *testing.T) {
		resp, body := api.do(http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Backend is running!", string(body))

		resp, _ = api.do(http.MethodGet, "/ws", "", nil)
		assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	})
}

func TestChatRoutes(t *testing.T) {
	api := newTestAPI(t)
	aliceID, alice := api.signup("alice")
	_, bob := api.signup("bob")

	chat := api.createChat(alice, "general")
	assert.Equal(t, "general", chat.Name)
	assert.Equal(t, aliceID, chat.CreatorID)

	t.Run("should list chats of the creator", func(t *testing.T) {
		resp, body := api.do(http.MethodGet, "/chats", alice, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var chats []models.Chat
		require.NoError(t, json.Unmarshal(body, &chats))
		require.Len(t, chats, 1)
		assert.Equal(t, chat.ID, chats[0].ID)
	})

	t.Run("should hide chat from non members", func(t *testing.T) {
		resp, body := api.do(http.MethodGet, fmt.Sprintf("/chats/%d", chat.ID), bob, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, models.ErrNotChatMember.Code, decodeErrors(t, body)[0].Code)
	})

	t.Run("should return not found for unknown chat", func(t *testing.T) {
		resp, body := api.do(http.MethodGet, "/chats/9999", alice, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, models.ErrChatNotFound.Code, decodeErrors(t, body)[0].Code)
	})

	t.Run("should reject invalid chat id", func(t *testing.T) {
		resp, body := api.do(http.MethodGet, "/chats/abc", alice, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, models.ErrInvalidID.Code, decodeErrors(t, body)[0].Code)
	})

	t.Run("should reject empty chat name", func(t *testing.T) {
		resp, body := api.do(http.MethodPost, "/chats", alice, models.CreateChatRequest{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Validation.name", decodeErrors(t, body)[0].Code)
	})
}

func TestMemberRoutes(t *testing.T) {
	api := newTestAPI(t)
	aliceID, alice := api.signup("alice")
	bobID, bob := api.signup("bob")
	carolID, carol := api.signup("carol")

	chat := api.createChat(alice, "general")
	membersPath := fmt.Sprintf("/chats/%d/members", chat.ID)

	t.Run("should add member with default role", func(t *testing.T) {
		resp, body := api.do(http.MethodPost, membersPath, alice, models.AddMemberRequest{UserID: bobID})
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var member models.ChatMember
		require.NoError(t, json.Unmarshal(body, &member))
		assert.NotZero(t, member.ID)
		assert.Equal(t, models.RoleMember, member.Role)
		assert.Nil(t, member.UpdatedAt)
		require.NotNil(t, member.User)
		assert.Equal(t, "bob", member.User.Username)
	})

	t.Run("should reject duplicate member", func(t *testing.T) {
		resp, body := api.do(http.MethodPost, membersPath, alice, models.AddMemberRequest{UserID: bobID})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, models.ErrMemberAlreadyExists.Code, decodeErrors(t, body)[0].Code)
	})

	t.Run("should reject plain member adding others", func(t *testing.T) {
		resp, body := api.do(http.MethodPost, membersPath, bob, models.AddMemberRequest{UserID: carolID})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, models.ErrNotChatAdmin.Code, decodeErrors(t, body)[0].Code)
	})

	t.Run("should reject granting owner role", func(t *testing.T) {
		resp, body := api.do(http.MethodPost, membersPath, alice, models.AddMemberRequest{UserID: carolID, Role: models.RoleOwner})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Validation.role", decodeErrors(t, body)[0].Code)
	})

	t.Run("should return not found for unknown user", func(t *testing.T) {
		resp, body := api.do(http.MethodPost, membersPath, alice, models.AddMemberRequest{UserID: 9999})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, models.ErrUserNotFound.Code, decodeErrors(t, body)[0].Code)
	})

	t.Run("should promote member and stamp updatedAt", func(t *testing.T) {
		resp, body := api.do(http.MethodPut, fmt.Sprintf("%s/%d/role", membersPath, bobID), alice, models.ChangeRoleRequest{Role: models.RoleAdmin})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var member models.ChatMember
		require.NoError(t, json.Unmarshal(body, &member))
		assert.Equal(t, models.RoleAdmin, member.Role)
		assert.NotNil(t, member.UpdatedAt)
	})

	t.Run("should let admin add members", func(t *testing.T) {
		resp, _ := api.do(http.MethodPost, membersPath, bob, models.AddMemberRequest{UserID: carolID})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("should refuse changing owner role", func(t *testing.T) {
		resp, body := api.do(http.MethodPut, fmt.Sprintf("%s/%d/role", membersPath, aliceID), bob, models.ChangeRoleRequest{Role: models.RoleMember})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, models.ErrOwnerImmutable.Code, decodeErrors(t, body)[0].Code)
	})

	t.Run("should list members with users", func(t *testing.T) {
		resp, body := api.do(http.MethodGet, membersPath, carol, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var members []models.ChatMember
		require.NoError(t, json.Unmarshal(body, &members))
		require.Len(t, members, 3)
		for _, m := range members {
			require.NotNil(t, m.User)
			assert.Equal(t, m.UserID, m.User.ID)
		}
	})

	t.Run("should let member leave", func(t *testing.T) {
		resp, _ := api.do(http.MethodDelete, fmt.Sprintf("%s/%d", membersPath, carolID), carol, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp, body := api.do(http.MethodGet, membersPath, carol, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, models.ErrNotChatMember.Code, decodeErrors(t, body)[0].Code)
	})

	t.Run("should refuse removing owner", func(t *testing.T) {
		resp, body := api.do(http.MethodDelete, fmt.Sprintf("%s/%d", membersPath, aliceID), bob, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, models.ErrOwnerImmutable.Code, decodeErrors(t, body)[0].Code)
	})

	t.Run("should return not found when removing non member", func(t *testing.T) {
		resp, body := api.do(http.MethodDelete, fmt.Sprintf("%s/%d", membersPath, carolID), alice, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, models.ErrMemberNotFound.Code, decodeErrors(t, body)[0].Code)
	})
}

func TestUnknownRoutes(t *testing.T) {
	api := newTestAPI(t)

	t.Run("should return envelope for unknown path", func(t *testing.T) {
		resp, body := api.do(http.MethodGet, "/nope", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		assert.Equal(t, models.ErrRouteNotFound.Code, decodeErrors(t, body)[0].Code)
	})

	t.Run("should return envelope for unsupported method", func(t *testing.T) {
		resp, body := api.do(http.MethodPatch, "/chats", "", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		assert.Equal(t, models.ErrMethodNotAllowed.Code, decodeErrors(t, body)[0].Code)
	})
}
