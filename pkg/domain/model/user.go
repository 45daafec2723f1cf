package model

import "time"

// User 认证在外部完成，这里只保存展示通知文案需要的用户名
type User struct {
	ID        uint
	Username  string
	CreatedAt time.Time
}

// UserSummary 粉丝、关注列表中的一项
type UserSummary struct {
	ID         uint      `json:"id"`
	Username   string    `json:"username"`
	FollowedAt time.Time `json:"followed_at"`
}
