package repository

import (
	"context"

	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
)

type CreateNotificationParams struct {
	RecipientID uint
	SenderID    *uint
	Kind        constant.NotificationKind
	Content     string
}

// NotificationRepository 通知只允许创建和翻转已读状态
type NotificationRepository interface {
	Create(ctx context.Context, params *CreateNotificationParams) (*model.Notification, error)

	FindByID(ctx context.Context, id uint) (*model.Notification, error)

	// 按时间倒序列出接收者的通知，unreadOnly 为 true 时只返回未读
	ListByRecipient(ctx context.Context, recipientID uint, unreadOnly bool, page PageQuery) ([]*model.Notification, int64, error)

	CountUnread(ctx context.Context, recipientID uint) (int, error)

	MarkRead(ctx context.Context, id uint) error

	// 返回被标记的数量
	MarkAllRead(ctx context.Context, recipientID uint) (int, error)
}
