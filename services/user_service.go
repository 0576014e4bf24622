package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chat-team/backend/database"
	"chat-team/backend/models"
	"chat-team/backend/utils"

	"golang.org/x/crypto/bcrypt" // 用於密碼哈希
)

// UserService 註冊、登入與列出使用者
type UserService struct {
	users     database.UserStore
	jwtSecret string
	jwtTTL    time.Duration
	log       *slog.Logger
	now       func() time.Time
}

func NewUserService(users database.UserStore, jwtSecret string, jwtTTL time.Duration, log *slog.Logger) *UserService {
	return &UserService{users: users, jwtSecret: jwtSecret, jwtTTL: jwtTTL, log: log, now: time.Now}
}

// Register 建立新使用者，Email 不可重複
func (s *UserService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	_, err := s.users.GetUserByEmail(ctx, req.Email)
	if err == nil {
		return nil, models.ErrEmailAlreadyExists
	}
	if !errors.Is(err, models.ErrUserNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:     req.Email,
		Username:  req.Username,
		Password:  string(hashedPassword),
		CreatedAt: s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("User registered successfully", "userId", user.ID)
	return user, nil
}

// Login 驗證帳密並簽發 token；找不到 Email 與密碼錯誤回傳相同錯誤
func (s *UserService) Login(ctx context.Context, req models.LoginRequest) (string, *models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, models.ErrUserNotFound) {
		return "", nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	// 比較哈希後的密碼
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return "", nil, models.ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(user.ID, user.Username, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// ListUsers 列出所有使用者，清空密碼欄位
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}
