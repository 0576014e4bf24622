package models

import "time"

// ChatMemberRole 聊天室成員角色
type ChatMemberRole string

const (
	RoleMember ChatMemberRole = "member"
	RoleAdmin  ChatMemberRole = "admin"
	RoleOwner  ChatMemberRole = "owner"
)

func (r ChatMemberRole) IsValid() bool {
	switch r {
	case RoleMember, RoleAdmin, RoleOwner:
		return true
	}
	return false
}

// CanManage 是否可以管理其他成員
func (r ChatMemberRole) CanManage() bool {
	return r == RoleAdmin || r == RoleOwner
}

// AddMemberRequest 定義邀請成員的請求體
type AddMemberRequest struct {
	UserID int64          `json:"userId" validate:"required,gt=0"`
	Role   ChatMemberRole `json:"role" validate:"omitempty,oneof=member admin"`
}

// ChangeRoleRequest 定義變更角色的請求體
type ChangeRoleRequest struct {
	Role ChatMemberRole `json:"role" validate:"required,oneof=member admin"`
}

// ChatMember 代表某個使用者在某個聊天室中的成員身分
// ID 為 0 代表尚未寫入資料庫；UpdatedAt 為 nil 代表建立後從未修改
type ChatMember struct {
	ID        int64          `bson:"_id" json:"id"`
	UserID    int64          `bson:"userId" json:"userId"`
	ChatID    int64          `bson:"chatId" json:"chatId"`
	Role      ChatMemberRole `bson:"role" json:"role"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt *time.Time     `bson:"updatedAt" json:"updatedAt"`

	// 關聯資料，生命週期由資料層管理
	Chat *Chat `bson:"-" json:"chat,omitempty"`
	User *User `bson:"-" json:"user,omitempty"`
}

type createOptions struct {
	id    int64
	clock func() time.Time
}

// CreateOption 調整 NewChatMember 的行為
type CreateOption func(*createOptions)

// WithID 從資料庫重建時使用既有的 ID
func WithID(id int64) CreateOption {
	return func(o *createOptions) { o.id = id }
}

// WithClock 指定時間來源
func WithClock(clock func() time.Time) CreateOption {
	return func(o *createOptions) { o.clock = clock }
}

// NewChatMember 建立新的聊天室成員，並回傳建立事件。
// 事件只回傳給呼叫端，等資料寫入成功後再由呼叫端派送。
func NewChatMember(userID, chatID int64, role ChatMemberRole, opts ...CreateOption) (*ChatMember, []DomainEvent) {
	o := createOptions{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	now := o.clock().UTC()
	member := &ChatMember{
		ID:        o.id,
		UserID:    userID,
		ChatID:    chatID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: nil,
	}
	return member, []DomainEvent{NewChatMemberCreated(member, now)}
}

// IsPersisted 是否已寫入資料庫
func (m *ChatMember) IsPersisted() bool {
	return m.ID != 0
}

// IsUpdated 建立後是否被修改過
func (m *ChatMember) IsUpdated() bool {
	return m.UpdatedAt != nil
}

// ChangeRole 變更角色；角色相同時不做任何事，也不產生事件
func (m *ChatMember) ChangeRole(role ChatMemberRole, now time.Time) (DomainEvent, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	if role == m.Role {
		return nil, nil
	}

	previous := m.Role
	m.Role = role
	updatedAt := now.UTC()
	m.UpdatedAt = &updatedAt
	return NewChatMemberRoleChanged(m, previous, updatedAt), nil
}

// Remove 產生移除事件，實際刪除由資料層負責
func (m *ChatMember) Remove(now time.Time) DomainEvent {
	return NewChatMemberRemoved(m, now.UTC())
}
