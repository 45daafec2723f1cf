/*
 * @Description: 社交关系：点赞、关注、收藏
 * @Author: photox
 * @Date: 2025-10-11 09:47:22
 * @LastEditTime: 2025-10-21 10:36:05
 * @LastEditors: photox
 */
package social

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/photox-team/photox-app/pkg/apperror"
	"github.com/photox-team/photox-app/pkg/constant"
	"github.com/photox-team/photox-app/pkg/domain/model"
	"github.com/photox-team/photox-app/pkg/domain/repository"
	"github.com/photox-team/photox-app/pkg/service/notification"
)

// SocialService 定义了点赞、关注、收藏的业务逻辑接口
type SocialService interface {
	ToggleLike(ctx context.Context, userID uint, target model.LikeTarget) (*model.ToggleResult, error)
	CheckLike(ctx context.Context, userID uint, target model.LikeTarget) (*model.ToggleResult, error)

	ToggleFollow(ctx context.Context, followerID, followeeID uint) (*model.ToggleResult, error)
	ListFollowers(ctx context.Context, userID uint, page repository.PageQuery) (*repository.PageResult[*model.UserSummary], error)
	ListFollowing(ctx context.Context, userID uint, page repository.PageQuery) (*repository.PageResult[*model.UserSummary], error)

	// AddFavorite 重复收藏不报错，created 表示本次是否新建
	AddFavorite(ctx context.Context, userID, imageID uint) (created bool, err error)
	RemoveFavorite(ctx context.Context, userID, imageID uint) error
	IsFavorited(ctx context.Context, userID, imageID uint) (bool, error)
	ListFavorites(ctx context.Context, userID uint, page repository.PageQuery) (*repository.PageResult[*model.Image], error)
}

type socialService struct {
	repos    repository.Repositories
	tm       repository.TransactionManager
	notifier notification.NotificationService
}

func NewSocialService(repos repository.Repositories, tm repository.TransactionManager, notifier notification.NotificationService) SocialService {
	return &socialService{
		repos:    repos,
		tm:       tm,
		notifier: notifier,
	}
}

var likeTemplates = map[constant.LikeType]string{
	constant.LikeTypeImage:   notification.TemplateLikeImage,
	constant.LikeTypeAlbum:   notification.TemplateLikeAlbum,
	constant.LikeTypeComment: notification.TemplateLikeComment,
}

func validateTarget(target model.LikeTarget) error {
	if !target.Type.IsValid() {
		return apperror.Validation("无效的点赞类型").WithDetails(map[string]string{"like_type": "必须是 image、album 或 comment"})
	}
	if target.ObjectID == 0 {
		return apperror.Validation("缺少点赞对象").WithDetails(map[string]string{"object_id": "不能为空"})
	}
	return nil
}

// targetOwner 按类型查询点赞目标的所有者，目标不存在或对当前用户不可见时返回 NotFound
func targetOwner(ctx context.Context, repos repository.Repositories, userID uint, target model.LikeTarget) (uint, error) {
	switch target.Type {
	case constant.LikeTypeImage:
		img, err := repos.Image.FindByID(ctx, target.ObjectID)
		if err != nil {
			return 0, notFoundOr(err, "图片不存在")
		}
		if !img.VisibleTo(userID) {
			return 0, apperror.NotFound("图片不存在")
		}
		return img.OwnerID, nil
	case constant.LikeTypeAlbum:
		album, err := repos.Album.FindByID(ctx, target.ObjectID)
		if err != nil {
			return 0, notFoundOr(err, "相册不存在")
		}
		if !album.IsPublic && album.OwnerID != userID {
			return 0, apperror.NotFound("相册不存在")
		}
		return album.OwnerID, nil
	default:
		c, err := repos.Comment.FindByID(ctx, target.ObjectID)
		if err != nil {
			return 0, notFoundOr(err, "评论不存在")
		}
		if c.IsDeleted {
			return 0, apperror.NotFound("评论不存在")
		}
		return c.AuthorID, nil
	}
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NotFound(msg)
	}
	return err
}

// withRetry 插入撞上唯一索引时说明有并发的开关请求，重新读一次状态再执行
func (s *socialService) withRetry(ctx context.Context, op string, fn func(repos repository.Repositories) error) error {
	err := s.tm.Do(ctx, fn)
	if errors.Is(err, repository.ErrDuplicate) {
		log.Printf("[社交] %s 遇到并发冲突，重试一次", op)
		err = s.tm.Do(ctx, fn)
	}
	if errors.Is(err, repository.ErrDuplicate) {
		return apperror.Conflict("操作过于频繁，请稍后重试")
	}
	return err
}

func (s *socialService) ToggleLike(ctx context.Context, userID uint, target model.LikeTarget) (*model.ToggleResult, error) {
	if err := validateTarget(target); err != nil {
		return nil, err
	}

	var (
		result   model.ToggleResult
		notified uint
	)
	err := s.withRetry(ctx, "点赞", func(repos repository.Repositories) error {
		notified = 0
		// 目标后来变为不可见时，已有的点赞仍然允许取消
		_, err := repos.Like.Find(ctx, userID, target)
		switch {
		case err == nil:
			if _, err := repos.Like.Delete(ctx, userID, target); err != nil {
				return err
			}
			result.State = constant.ToggleInactive
		case errors.Is(err, repository.ErrNotFound):
			owner, err := targetOwner(ctx, repos, userID, target)
			if err != nil {
				return err
			}
			if _, err := repos.Like.Create(ctx, userID, target); err != nil {
				return err
			}
			result.State = constant.ToggleActive
			created, err := notification.Emit(ctx, repos, notification.Event{
				RecipientID: owner,
				SenderID:    userID,
				Kind:        constant.NotificationLike,
				Template:    likeTemplates[target.Type],
			})
			if err != nil {
				return err
			}
			if created {
				notified = owner
			}
		default:
			return err
		}

		result.Count, err = repos.Like.Count(ctx, target)
		return err
	})
	if err != nil {
		return nil, err
	}
	if notified != 0 {
		s.notifier.Delivered(ctx, notified)
	}
	return &result, nil
}

func (s *socialService) CheckLike(ctx context.Context, userID uint, target model.LikeTarget) (*model.ToggleResult, error) {
	if err := validateTarget(target); err != nil {
		return nil, err
	}
	result := &model.ToggleResult{State: constant.ToggleInactive}
	_, err := s.repos.Like.Find(ctx, userID, target)
	switch {
	case err == nil:
		result.State = constant.ToggleActive
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("查询点赞状态失败: %w", err)
	}
	if result.Count, err = s.repos.Like.Count(ctx, target); err != nil {
		return nil, fmt.Errorf("统计点赞数失败: %w", err)
	}
	return result, nil
}

// ToggleFollow 关注自己在写入任何数据之前就被拒绝
func (s *socialService) ToggleFollow(ctx context.Context, followerID, followeeID uint) (*model.ToggleResult, error) {
	if followerID == followeeID {
		return nil, apperror.Validation("不能关注自己")
	}

	var (
		result   model.ToggleResult
		notified bool
	)
	err := s.withRetry(ctx, "关注", func(repos repository.Repositories) error {
		notified = false
		if _, err := repos.User.FindByID(ctx, followeeID); err != nil {
			return notFoundOr(err, "用户不存在")
		}

		_, err := repos.Follow.Find(ctx, followerID, followeeID)
		switch {
		case err == nil:
			if _, err := repos.Follow.Delete(ctx, followerID, followeeID); err != nil {
				return err
			}
			result.State = constant.ToggleInactive
		case errors.Is(err, repository.ErrNotFound):
			if _, err := repos.Follow.Create(ctx, followerID, followeeID); err != nil {
				return err
			}
			result.State = constant.ToggleActive
			notified, err = notification.Emit(ctx, repos, notification.Event{
				RecipientID: followeeID,
				SenderID:    followerID,
				Kind:        constant.NotificationFollow,
				Template:    notification.TemplateFollow,
			})
			if err != nil {
				return err
			}
		default:
			return err
		}

		result.Count, err = repos.Follow.CountFollowers(ctx, followeeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if notified {
		s.notifier.Delivered(ctx, followeeID)
	}
	return &result, nil
}

func (s *socialService) ListFollowers(ctx context.Context, userID uint, page repository.PageQuery) (*repository.PageResult[*model.UserSummary], error) {
	return s.listFollows(ctx, userID, page, true)
}

func (s *socialService) ListFollowing(ctx context.Context, userID uint, page repository.PageQuery) (*repository.PageResult[*model.UserSummary], error) {
	return s.listFollows(ctx, userID, page, false)
}

func (s *socialService) listFollows(ctx context.Context, userID uint, page repository.PageQuery, followers bool) (*repository.PageResult[*model.UserSummary], error) {
	if _, err := s.repos.User.FindByID(ctx, userID); err != nil {
		return nil, notFoundOr(err, "用户不存在")
	}
	page = page.Normalize(constant.FeedPageSize)

	var (
		follows []*model.Follow
		total   int64
		err     error
	)
	if followers {
		follows, total, err = s.repos.Follow.ListFollowers(ctx, userID, page)
	} else {
		follows, total, err = s.repos.Follow.ListFollowing(ctx, userID, page)
	}
	if err != nil {
		return nil, fmt.Errorf("查询关注列表失败: %w", err)
	}

	ids := make([]uint, 0, len(follows))
	for _, f := range follows {
		if followers {
			ids = append(ids, f.FollowerID)
		} else {
			ids = append(ids, f.FolloweeID)
		}
	}
	users, err := s.repos.User.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("查询用户失败: %w", err)
	}
	names := make(map[uint]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}

	items := make([]*model.UserSummary, 0, len(follows))
	for i, f := range follows {
		name, ok := names[ids[i]]
		if !ok || name == "" {
			name = fmt.Sprintf("用户%d", ids[i])
		}
		items = append(items, &model.UserSummary{ID: ids[i], Username: name, FollowedAt: f.CreatedAt})
	}
	return &repository.PageResult[*model.UserSummary]{
		Items:    items,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}, nil
}

func (s *socialService) AddFavorite(ctx context.Context, userID, imageID uint) (bool, error) {
	img, err := s.repos.Image.FindByID(ctx, imageID)
	if err != nil {
		return false, notFoundOr(err, "图片不存在")
	}
	if !img.VisibleTo(userID) {
		return false, apperror.NotFound("图片不存在")
	}
	if _, err := s.repos.Favorite.Create(ctx, userID, imageID); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("收藏图片失败: %w", err)
	}
	return true, nil
}

func (s *socialService) RemoveFavorite(ctx context.Context, userID, imageID uint) error {
	removed, err := s.repos.Favorite.Delete(ctx, userID, imageID)
	if err != nil {
		return fmt.Errorf("取消收藏失败: %w", err)
	}
	if !removed {
		return apperror.NotFound("未收藏此图片")
	}
	return nil
}

func (s *socialService) IsFavorited(ctx context.Context, userID, imageID uint) (bool, error) {
	_, err := s.repos.Favorite.Find(ctx, userID, imageID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("查询收藏状态失败: %w", err)
}

// ListFavorites 按收藏时间倒序，已转为私有的他人图片不再展示
func (s *socialService) ListFavorites(ctx context.Context, userID uint, page repository.PageQuery) (*repository.PageResult[*model.Image], error) {
	page = page.Normalize(constant.DefaultPageSize)
	favorites, total, err := s.repos.Favorite.ListByUser(ctx, userID, page)
	if err != nil {
		return nil, fmt.Errorf("查询收藏列表失败: %w", err)
	}
	ids := make([]uint, 0, len(favorites))
	for _, f := range favorites {
		ids = append(ids, f.ImageID)
	}
	images, err := s.repos.Image.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("查询收藏图片失败: %w", err)
	}
	byID := make(map[uint]*model.Image, len(images))
	for _, img := range images {
		byID[img.ID] = img
	}
	items := make([]*model.Image, 0, len(ids))
	for _, id := range ids {
		if img, ok := byID[id]; ok && img.VisibleTo(userID) {
			items = append(items, img)
		}
	}
	return &repository.PageResult[*model.Image]{
		Items:    items,
		Total:    total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}, nil
}
