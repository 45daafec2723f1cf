// internal/infra/persistence/ent/notification_repo.go
package ent

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
)

const tableNotifications = "notifications"

var notificationColumns = []string{"id", "recipient_id", "sender_id", "kind", "content", "is_read", "created_at"}

type notificationRepo struct {
	base
}

func NewNotificationRepo(db execQuerier, dbType string) repository.NotificationRepository {
	return &notificationRepo{base: newBase(db, dbType)}
}

func (r *notificationRepo) Create(ctx context.Context, params *repository.CreateNotificationParams) (*model.Notification, error) {
	ts := now()
	id, err := r.insert(ctx, r.builder().Insert(tableNotifications).
		Columns("recipient_id", "sender_id", "kind", "content", "is_read", "created_at").
		Values(params.RecipientID, uintOrNil(params.SenderID), string(params.Kind), params.Content, false, ts))
	if err != nil {
		return nil, fmt.Errorf("创建通知失败: %w", err)
	}
	return &model.Notification{
		ID:          id,
		RecipientID: params.RecipientID,
		SenderID:    params.SenderID,
		Kind:        params.Kind,
		Content:     params.Content,
		CreatedAt:   ts,
	}, nil
}

func (r *notificationRepo) FindByID(ctx context.Context, id uint) (*model.Notification, error) {
	t := r.builder().Table(tableNotifications)
	list, err := r.scanList(ctx, r.builder().Select(columns(t, notificationColumns)...).From(t).Where(entsql.EQ(t.C("id"), id)))
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, repository.ErrNotFound
	}
	return list[0], nil
}

func recipientPredicate(t *entsql.SelectTable, recipientID uint, unreadOnly bool) *entsql.Predicate {
	p := entsql.EQ(t.C("recipient_id"), recipientID)
	if unreadOnly {
		return entsql.And(p, entsql.EQ(t.C("is_read"), false))
	}
	return p
}

func (r *notificationRepo) ListByRecipient(ctx context.Context, recipientID uint, unreadOnly bool, page repository.PageQuery) ([]*model.Notification, int64, error) {
	page = page.Normalize(constant.DefaultPageSize)
	ct := r.builder().Table(tableNotifications)
	total, err := r.count(ctx, r.builder().Select(entsql.Count("*")).From(ct).Where(recipientPredicate(ct, recipientID, unreadOnly)))
	if err != nil {
		return nil, 0, fmt.Errorf("统计通知失败: %w", err)
	}
	t := r.builder().Table(tableNotifications)
	list, err := r.scanList(ctx, r.builder().Select(columns(t, notificationColumns)...).From(t).
		Where(recipientPredicate(t, recipientID, unreadOnly)).
		OrderBy(entsql.Desc(t.C("created_at")), entsql.Desc(t.C("id"))).
		Limit(page.PageSize).
		Offset(page.Offset()))
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *notificationRepo) CountUnread(ctx context.Context, recipientID uint) (int, error) {
	t := r.builder().Table(tableNotifications)
	n, err := r.count(ctx, r.builder().Select(entsql.Count("*")).From(t).Where(recipientPredicate(t, recipientID, true)))
	return int(n), err
}

func (r *notificationRepo) MarkRead(ctx context.Context, id uint) error {
	n, err := r.execAffected(ctx, r.builder().Update(tableNotifications).Set("is_read", true).Where(entsql.EQ("id", id)))
	if err != nil {
		return fmt.Errorf("标记通知已读失败: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, recipientID uint) (int, error) {
	n, err := r.execAffected(ctx, r.builder().Update(tableNotifications).Set("is_read", true).Where(entsql.And(
		entsql.EQ("recipient_id", recipientID),
		entsql.EQ("is_read", false),
	)))
	if err != nil {
		return 0, fmt.Errorf("全部标记已读失败: %w", err)
	}
	return n, nil
}

func (r *notificationRepo) scanList(ctx context.Context, sel *entsql.Selector) ([]*model.Notification, error) {
	rows, err := r.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("查询通知失败: %w", err)
	}
	defer rows.Close()
	list := make([]*model.Notification, 0)
	for rows.Next() {
		var (
			id, recipientID int64
			senderID        sql.NullInt64
			kind, content   string
			isRead          bool
			created         scanTime
		)
		if err := rows.Scan(&id, &recipientID, &senderID, &kind, &content, &isRead, &created); err != nil {
			return nil, fmt.Errorf("扫描通知失败: %w", err)
		}
		list = append(list, &model.Notification{
			ID:          uint(id),
			RecipientID: uint(recipientID),
			SenderID:    nullableUint(senderID),
			Kind:        constant.NotificationKind(kind),
			Content:     content,
			IsRead:      isRead,
			CreatedAt:   created.Time,
		})
	}
	return list, rows.Err()
}
