package models

import "time"

// CreateChatRequest 定義創建聊天室的請求體
type CreateChatRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// Chat 代表一個聊天室的元資料
type Chat struct {
	ID        int64     `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	CreatorID int64     `bson:"creatorId" json:"creatorId"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
