package database

//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=../mocks/mock_store.go -package=mocks

import (
	"context"

	"chat-team/backend/models"
)

// UserStore 使用者資料存取
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []int64) ([]models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// ChatStore 聊天室資料存取
type ChatStore interface {
	CreateChat(ctx context.Context, chat *models.Chat) error
	GetChatByID(ctx context.Context, id int64) (*models.Chat, error)
	ListChatsByUser(ctx context.Context, userID int64) ([]models.Chat, error)
	DeleteChat(ctx context.Context, id int64) error
}

// ChatMemberStore 聊天室成員資料存取。
// CreateMember 成功後會回填 member.ID；同一聊天室重複加入回傳 models.ErrMemberAlreadyExists
type ChatMemberStore interface {
	CreateMember(ctx context.Context, member *models.ChatMember) error
	GetMember(ctx context.Context, chatID, userID int64) (*models.ChatMember, error)
	ListMembers(ctx context.Context, chatID int64) ([]models.ChatMember, error)
	UpdateMemberRole(ctx context.Context, member *models.ChatMember) error
	DeleteMember(ctx context.Context, id int64) error
}

// Store 集合所有資料存取介面
type Store interface {
	UserStore
	ChatStore
	ChatMemberStore
	Close(ctx context.Context) error
}
