package model

import (
	"time"

	"github.com/photox-team/photox-app/pkg/constant"
)

// Notification 发给 RecipientID 的通知，创建后只允许翻转已读状态
type Notification struct {
	ID          uint
	RecipientID uint
	SenderID    *uint
	Kind        constant.NotificationKind
	Content     string
	IsRead      bool
	CreatedAt   time.Time
}
