package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"chat-team/backend/database"
	"chat-team/backend/events"
	"chat-team/backend/models"
)

// ChatService 建立與查詢聊天室
type ChatService struct {
	chats      database.ChatStore
	members    database.ChatMemberStore
	dispatcher events.Dispatcher
	log        *slog.Logger
	now        func() time.Time
}

func NewChatService(chats database.ChatStore, members database.ChatMemberStore, dispatcher events.Dispatcher, log *slog.Logger) *ChatService {
	return &ChatService{chats: chats, members: members, dispatcher: dispatcher, log: log, now: time.Now}
}

// CreateChat 建立聊天室，建立者自動成為擁有者
func (s *ChatService) CreateChat(ctx context.Context, creatorID int64, name string) (*models.Chat, error) {
	now := s.now().UTC()
	chat := &models.Chat{
		Name:      name,
		CreatorID: creatorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.chats.CreateChat(ctx, chat); err != nil {
		return nil, err
	}

	owner, created := models.NewChatMember(creatorID, chat.ID, models.RoleOwner, models.WithClock(func() time.Time { return now }))
	if err := s.members.CreateMember(ctx, owner); err != nil {
		// 沒有擁有者的聊天室無法管理，直接刪除
		if delErr := s.chats.DeleteChat(ctx, chat.ID); delErr != nil {
			s.log.Error("Failed to delete chat without owner", "chatId", chat.ID, "error", delErr)
		}
		return nil, err
	}

	dispatch(ctx, s.dispatcher, s.log, created...)
	return chat, nil
}

// GetChat 取得聊天室；非成員無法查看
func (s *ChatService) GetChat(ctx context.Context, actorID, chatID int64) (*models.Chat, error) {
	chat, err := s.chats.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.GetMember(ctx, chatID, actorID); err != nil {
		if errors.Is(err, models.ErrMemberNotFound) {
			return nil, models.ErrNotChatMember
		}
		return nil, err
	}
	return chat, nil
}

func (s *ChatService) ListUserChats(ctx context.Context, userID int64) ([]models.Chat, error) {
	return s.chats.ListChatsByUser(ctx, userID)
}
