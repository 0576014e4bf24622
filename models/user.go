package models

import "time"

// RegisterRequest 結構體用於處理註冊請求
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=2,max=32"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest 登入請求
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// User 結構體定義了使用者資料的欄位
type User struct {
	ID        int64     `bson:"_id" json:"id"`
	Email     string    `bson:"email" json:"email"`
	Username  string    `bson:"username" json:"username"`
	Password  string    `bson:"password" json:"-"` // 儲存哈希後的密碼，JSON 輸出時忽略
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
