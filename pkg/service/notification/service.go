/*
 * @Description: 通知服务，负责通知的生成、查询和已读状态
 * @Author: photox
 * @Date: 2025-10-11 15:32:08
 * @LastEditTime: 2025-10-21 10:04:37
 * @LastEditors: photox
 */
package notification

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/photox-team/photox-app/pkg/apperror"
	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
	"github.com/photox-team/photox-app/pkg/metrics"
	"github.com/photox-team/photox-app/pkg/service/utility"
)

// 通知文案模板，%s 为触发者用户名
const (
	TemplateFollow       = "%s 关注了你"
	TemplateLikeImage    = "%s 赞了你的图片"
	TemplateLikeAlbum    = "%s 赞了你的相册"
	TemplateLikeComment  = "%s 赞了你的评论"
	TemplateReply        = "%s 回复了你的评论"
	TemplateCommentImage = "%s 评论了你的图片"
	TemplateCommentAlbum = "%s 评论了你的相册"
)

// Event 描述一次需要通知的社交动作
type Event struct {
	RecipientID uint
	SenderID    uint
	Kind        constant.NotificationKind
	Template    string
}

// Emit 在调用方的事务内写入通知，自己对自己的动作不产生通知。
// 返回是否真正写入了通知，调用方在事务提交后据此清理未读数缓存。
func Emit(ctx context.Context, repos repository.Repositories, ev Event) (bool, error) {
	if ev.RecipientID == 0 || ev.RecipientID == ev.SenderID {
		return false, nil
	}

	username := fmt.Sprintf("用户%d", ev.SenderID)
	if u, err := repos.User.FindByID(ctx, ev.SenderID); err == nil && u.Username != "" {
		username = u.Username
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("查询通知发送者失败: %w", err)
	}

	senderID := ev.SenderID
	_, err := repos.Notification.Create(ctx, &repository.CreateNotificationParams{
		RecipientID: ev.RecipientID,
		SenderID:    &senderID,
		Kind:        ev.Kind,
		Content:     fmt.Sprintf(ev.Template, username),
	})
	if err != nil {
		return false, fmt.Errorf("创建通知失败: %w", err)
	}
	metrics.NotificationsCreated.WithLabelValues(string(ev.Kind)).Inc()
	return true, nil
}

// NotificationService 定义了接收者视角的通知操作
type NotificationService interface {
	List(ctx context.Context, recipientID uint, unreadOnly bool, page repository.PageQuery) (*repository.PageResult[*model.Notification], error)
	UnreadCount(ctx context.Context, recipientID uint) (int, error)
	MarkRead(ctx context.Context, recipientID, id uint) error
	MarkAllRead(ctx context.Context, recipientID uint) (int, error)

	// Delivered 在产生通知的事务提交之后调用
	Delivered(ctx context.Context, recipientID uint)
}

type notificationService struct {
	repo  repository.NotificationRepository
	cache utility.CacheService
}

func NewNotificationService(repo repository.NotificationRepository, cache utility.CacheService) NotificationService {
	return &notificationService{repo: repo, cache: cache}
}

func (s *notificationService) List(ctx context.Context, recipientID uint, unreadOnly bool, page repository.PageQuery) (*repository.PageResult[*model.Notification], error) {
	page = page.Normalize(constant.DefaultPageSize)
	items, total, err := s.repo.ListByRecipient(ctx, recipientID, unreadOnly, page)
	if err != nil {
		return nil, fmt.Errorf("查询通知列表失败: %w", err)
	}
	return &repository.PageResult[*model.Notification]{
		Items:    items,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}, nil
}

func (s *notificationService) UnreadCount(ctx context.Context, recipientID uint) (int, error) {
	if n, ok := s.cache.GetUnreadCount(ctx, recipientID); ok {
		return n, nil
	}
	n, err := s.repo.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, fmt.Errorf("统计未读通知失败: %w", err)
	}
	s.cache.SetUnreadCount(ctx, recipientID, n)
	return n, nil
}

// MarkRead 先判断存在，再判断是否为接收者
func (s *notificationService) MarkRead(ctx context.Context, recipientID, id uint) error {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NotFound("通知不存在")
		}
		return fmt.Errorf("查询通知失败: %w", err)
	}
	if n.RecipientID != recipientID {
		return apperror.Forbidden("无权操作该通知")
	}
	if n.IsRead {
		return nil
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return fmt.Errorf("标记通知已读失败: %w", err)
	}
	s.cache.InvalidateUnreadCount(ctx, recipientID)
	return nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, recipientID uint) (int, error) {
	n, err := s.repo.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, fmt.Errorf("标记全部已读失败: %w", err)
	}
	s.cache.InvalidateUnreadCount(ctx, recipientID)
	log.Printf("[通知] 用户 %d 标记了 %d 条通知为已读", recipientID, n)
	return n, nil
}

func (s *notificationService) Delivered(ctx context.Context, recipientID uint) {
	s.cache.InvalidateUnreadCount(ctx, recipientID)
}
