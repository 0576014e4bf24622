package services

import (
	"context"
	"testing"
	"time"

	"chat-team/backend/mocks"
	"chat-team/backend/models"
	"chat-team/backend/utils"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func newUserService(t *testing.T) (*UserService, *mocks.MockUserStore) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserStore(ctrl)
	return NewUserService(users, testSecret, time.Hour, discardLogger()), users
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()
	request := models.RegisterRequest{Email: "alice@example.com", Username: "alice", Password: "ComplexPass123!"}

	t.Run("should store a bcrypt hash", func(t *testing.T) {
		req := require.New(t)
		svc, users := newUserService(t)

		users.EXPECT().GetUserByEmail(gomock.Any(), request.Email).Return(nil, models.ErrUserNotFound)
		users.EXPECT().CreateUser(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *models.User) error {
			req.NotEqual(request.Password, u.Password, "密碼不應以明文儲存")
			req.NoError(bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(request.Password)))
			u.ID = 1
			return nil
		})

		user, err := svc.Register(ctx, request)

		req.NoError(err)
		req.Equal(int64(1), user.ID)
	})

	t.Run("should reject duplicate email", func(t *testing.T) {
		req := require.New(t)
		svc, users := newUserService(t)

		users.EXPECT().GetUserByEmail(gomock.Any(), request.Email).Return(&models.User{ID: 1}, nil)
		users.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.Register(ctx, request)

		req.ErrorIs(err, models.ErrEmailAlreadyExists)
	})
}

func TestUserService_Login(t *testing.T) {
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("ComplexPass123!"), bcrypt.MinCost)
	require.NoError(t, err)
	stored := &models.User{ID: 3, Email: "alice@example.com", Username: "alice", Password: string(hash)}

	t.Run("should issue a token for valid credentials", func(t *testing.T) {
		req := require.New(t)
		svc, users := newUserService(t)
		users.EXPECT().GetUserByEmail(gomock.Any(), stored.Email).Return(stored, nil)

		token, user, err := svc.Login(ctx, models.LoginRequest{Email: stored.Email, Password: "ComplexPass123!"})

		req.NoError(err)
		req.Equal(int64(3), user.ID)
		userID, err := utils.GetUserIDFromToken(token, testSecret)
		req.NoError(err)
		req.Equal(int64(3), userID)
	})

	t.Run("should flatten unknown email and wrong password", func(t *testing.T) {
		req := require.New(t)
		svc, users := newUserService(t)
		users.EXPECT().GetUserByEmail(gomock.Any(), "nobody@example.com").Return(nil, models.ErrUserNotFound)
		users.EXPECT().GetUserByEmail(gomock.Any(), stored.Email).Return(stored, nil)

		_, _, err := svc.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "x"})
		req.ErrorIs(err, models.ErrInvalidCredentials)

		_, _, err = svc.Login(ctx, models.LoginRequest{Email: stored.Email, Password: "wrong"})
		req.ErrorIs(err, models.ErrInvalidCredentials)
	})
}

func TestUserService_ListUsers(t *testing.T) {
	req := require.New(t)
	svc, users := newUserService(t)
	users.EXPECT().ListUsers(gomock.Any()).Return([]models.User{{ID: 1, Password: "hash"}}, nil)

	list, err := svc.ListUsers(context.Background())

	req.NoError(err)
	req.Empty(list[0].Password)
}
