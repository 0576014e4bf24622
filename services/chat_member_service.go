package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"chat-team/backend/database"
	"chat-team/backend/events"
	"chat-team/backend/models"

	"github.com/samber/lo"
)

// ChatMemberService 處理聊天室成員的加入、角色變更與移除
type ChatMemberService struct {
	members    database.ChatMemberStore
	chats      database.ChatStore
	users      database.UserStore
	dispatcher events.Dispatcher
	log        *slog.Logger
	now        func() time.Time
}

func NewChatMemberService(
	members database.ChatMemberStore,
	chats database.ChatStore,
	users database.UserStore,
	dispatcher events.Dispatcher,
	log *slog.Logger,
) *ChatMemberService {
	return &ChatMemberService{
		members:    members,
		chats:      chats,
		users:      users,
		dispatcher: dispatcher,
		log:        log,
		now:        time.Now,
	}
}

// AddMember 由 actor 將 userID 加入聊天室；actor 必須是管理員或擁有者
func (s *ChatMemberService) AddMember(ctx context.Context, actorID, chatID, userID int64, role models.ChatMemberRole) (*models.ChatMember, error) {
	if role == "" {
		role = models.RoleMember
	}
	if err := validateGrantableRole(role); err != nil {
		return nil, err
	}
	if _, err := s.chats.GetChatByID(ctx, chatID); err != nil {
		return nil, err
	}
	if _, err := s.requireManager(ctx, chatID, actorID); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	member, created := models.NewChatMember(userID, chatID, role, models.WithClock(s.now))
	if err := s.members.CreateMember(ctx, member); err != nil {
		return nil, err
	}
	member.User = user

	dispatch(ctx, s.dispatcher, s.log, created...)
	return member, nil
}

// ChangeRole 變更成員角色；擁有者的角色不可變更，也不能授予擁有者
func (s *ChatMemberService) ChangeRole(ctx context.Context, actorID, chatID, userID int64, role models.ChatMemberRole) (*models.ChatMember, error) {
	if err := validateGrantableRole(role); err != nil {
		return nil, err
	}
	if _, err := s.chats.GetChatByID(ctx, chatID); err != nil {
		return nil, err
	}
	if _, err := s.requireManager(ctx, chatID, actorID); err != nil {
		return nil, err
	}

	target, err := s.members.GetMember(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if target.Role == models.RoleOwner {
		return nil, models.ErrOwnerImmutable
	}

	event, err := target.ChangeRole(role, s.now())
	if err != nil {
		return nil, err
	}
	if event == nil {
		return target, nil
	}
	if err := s.members.UpdateMemberRole(ctx, target); err != nil {
		return nil, err
	}

	dispatch(ctx, s.dispatcher, s.log, event)
	return target, nil
}

// RemoveMember 成員可以自行離開；移除他人需要管理權限；擁有者不可被移除
func (s *ChatMemberService) RemoveMember(ctx context.Context, actorID, chatID, userID int64) error {
	if _, err := s.chats.GetChatByID(ctx, chatID); err != nil {
		return err
	}
	if actorID != userID {
		if _, err := s.requireManager(ctx, chatID, actorID); err != nil {
			return err
		}
	}

	target, err := s.members.GetMember(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if target.Role == models.RoleOwner {
		return models.ErrOwnerImmutable
	}
	if err := s.members.DeleteMember(ctx, target.ID); err != nil {
		return err
	}

	dispatch(ctx, s.dispatcher, s.log, target.Remove(s.now()))
	return nil
}

// ListMembers 列出聊天室成員並附上使用者資料；actor 必須是成員
func (s *ChatMemberService) ListMembers(ctx context.Context, actorID, chatID int64) ([]models.ChatMember, error) {
	if _, err := s.chats.GetChatByID(ctx, chatID); err != nil {
		return nil, err
	}
	if _, err := s.requireMember(ctx, chatID, actorID); err != nil {
		return nil, err
	}

	members, err := s.members.ListMembers(ctx, chatID)
	if err != nil {
		return nil, err
	}
	users, err := s.users.GetUsersByIDs(ctx, lo.Map(members, func(m models.ChatMember, _ int) int64 { return m.UserID }))
	if err != nil {
		return nil, err
	}

	byID := lo.KeyBy(users, func(u models.User) int64 { return u.ID })
	for i := range members {
		if user, ok := byID[members[i].UserID]; ok {
			members[i].User = &user
		}
	}
	return members, nil
}

func (s *ChatMemberService) requireMember(ctx context.Context, chatID, userID int64) (*models.ChatMember, error) {
	member, err := s.members.GetMember(ctx, chatID, userID)
	if errors.Is(err, models.ErrMemberNotFound) {
		return nil, models.ErrNotChatMember
	}
	return member, err
}

func (s *ChatMemberService) requireManager(ctx context.Context, chatID, userID int64) (*models.ChatMember, error) {
	member, err := s.requireMember(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if !member.Role.CanManage() {
		return nil, models.ErrNotChatAdmin
	}
	return member, nil
}

func validateGrantableRole(role models.ChatMemberRole) error {
	if !role.IsValid() {
		return models.ErrInvalidRole
	}
	if role == models.RoleOwner {
		return models.ErrOwnerRoleNotGranted
	}
	return nil
}

// dispatch 派送失敗只記錄，不影響已經成功寫入的請求
func dispatch(ctx context.Context, dispatcher events.Dispatcher, log *slog.Logger, evts ...models.DomainEvent) {
	if dispatcher == nil || len(evts) == 0 {
		return
	}
	if err := dispatcher.Dispatch(ctx, evts...); err != nil {
		log.Error("Failed to dispatch domain events", "count", len(evts), "error", err)
	}
}
