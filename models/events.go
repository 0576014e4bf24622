package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventChatMemberCreated     = "chat_member.created"
	EventChatMemberRoleChanged = "chat_member.role_changed"
	EventChatMemberRemoved     = "chat_member.removed"
)

// DomainEvent 描述聚合上已經發生的事情
type DomainEvent interface {
	EventID() uuid.UUID
	EventName() string
	OccurredAt() time.Time
	ChatID() int64
}

type eventBase struct {
	ID uuid.UUID `json:"id"`
	At time.Time `json:"occurredAt"`
}

func newEventBase(at time.Time) eventBase {
	return eventBase{ID: uuid.New(), At: at}
}

func (e eventBase) EventID() uuid.UUID    { return e.ID }
func (e eventBase) OccurredAt() time.Time { return e.At }

// ChatMemberCreated 成員建立事件，持有建立出來的實體
type ChatMemberCreated struct {
	eventBase
	Member *ChatMember `json:"member"`
}

func NewChatMemberCreated(member *ChatMember, at time.Time) ChatMemberCreated {
	return ChatMemberCreated{eventBase: newEventBase(at), Member: member}
}

func (e ChatMemberCreated) EventName() string { return EventChatMemberCreated }
func (e ChatMemberCreated) ChatID() int64     { return e.Member.ChatID }

// ChatMemberRoleChanged 角色變更事件
type ChatMemberRoleChanged struct {
	eventBase
	Member       *ChatMember    `json:"member"`
	PreviousRole ChatMemberRole `json:"previousRole"`
}

func NewChatMemberRoleChanged(member *ChatMember, previous ChatMemberRole, at time.Time) ChatMemberRoleChanged {
	return ChatMemberRoleChanged{eventBase: newEventBase(at), Member: member, PreviousRole: previous}
}

func (e ChatMemberRoleChanged) EventName() string { return EventChatMemberRoleChanged }
func (e ChatMemberRoleChanged) ChatID() int64     { return e.Member.ChatID }

// ChatMemberRemoved 成員移除事件，實體已不存在，只保留識別資料
type ChatMemberRemoved struct {
	eventBase
	MemberID int64 `json:"memberId"`
	Chat     int64 `json:"chatId"`
	UserID   int64 `json:"userId"`
}

func NewChatMemberRemoved(member *ChatMember, at time.Time) ChatMemberRemoved {
	return ChatMemberRemoved{
		eventBase: newEventBase(at),
		MemberID:  member.ID,
		Chat:      member.ChatID,
		UserID:    member.UserID,
	}
}

func (e ChatMemberRemoved) EventName() string { return EventChatMemberRemoved }
func (e ChatMemberRemoved) ChatID() int64     { return e.Chat }
